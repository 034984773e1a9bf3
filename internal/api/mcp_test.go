package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/identity"
	"github.com/taskflowhq/supportd/internal/kb"
	"github.com/taskflowhq/supportd/internal/sentiment"
	"github.com/taskflowhq/supportd/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *conversation.Store) {
	t.Helper()

	log, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	index, err := kb.NewIndex([]kb.Section{
		{Title: "Calendar Sync", Body: "Connect Google Calendar from Settings > Integrations.", Category: "Integrations"},
		{Title: "Boards", Body: "Boards hold lists and cards.", Category: "Core Features"},
	})
	if err != nil {
		t.Fatalf("building index: %v", err)
	}

	store := conversation.NewStore(identity.NewResolver())
	return MCPDeps{
		Store:  store,
		Index:  index,
		Scorer: sentiment.New(),
		Log:    log,
	}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_SearchKnowledgeBase(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchKnowledgeBase(deps)

	req := makeCallToolRequest("search_knowledge_base", map[string]interface{}{
		"query": "calendar sync",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var sections []struct {
		Title string  `json:"title"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &sections); err != nil {
		t.Fatalf("decoding results: %v", err)
	}
	if len(sections) == 0 || sections[0].Title != "Calendar Sync" {
		t.Fatalf("results = %+v, want Calendar Sync first", sections)
	}

	// Missing query is a tool error, not a transport error.
	result, err = handler(context.Background(), makeCallToolRequest("search_knowledge_base", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("missing query did not produce a tool error")
	}
}

func TestMCPTool_SearchKnowledgeBase_NoMatches(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpSearchKnowledgeBase(deps)

	req := makeCallToolRequest("search_knowledge_base", map[string]interface{}{
		"query": "zeppelin",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "[]" {
		t.Errorf("text = %q, want empty JSON array", got)
	}
}

func TestMCPTool_AnalyzeSentiment(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	handler := mcpAnalyzeSentiment(deps)

	req := makeCallToolRequest("analyze_sentiment", map[string]interface{}{
		"text": "this is terrible and broken",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]float64
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("decoding score: %v", err)
	}
	if out["score"] >= 0 {
		t.Errorf("score = %v, want negative", out["score"])
	}
}

func TestMCPTool_GetCustomerHistory(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	conv := store.StartConversation("sam@example.com", "chat", "Sam", "")
	store.AddMessage(conv.ID, conversation.Message{
		Role: conversation.RoleCustomer, Content: "hi", Channel: "chat",
	})

	handler := mcpGetCustomerHistory(deps)
	req := makeCallToolRequest("get_customer_history", map[string]interface{}{
		"customer_id": "sam@example.com",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var history conversation.CustomerHistory
	if err := json.Unmarshal([]byte(toolText(t, result)), &history); err != nil {
		t.Fatalf("decoding history: %v", err)
	}
	if history.ConversationCount != 1 {
		t.Errorf("ConversationCount = %d, want 1", history.ConversationCount)
	}
}

func TestMCPTool_EscalateToHuman(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	conv := store.StartConversation("sam@example.com", "chat", "Sam", "")

	handler := mcpEscalateToHuman(deps)
	req := makeCallToolRequest("escalate_to_human", map[string]interface{}{
		"conversation_id": conv.ID,
		"reason":          "customer asked for a human",
	})
	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), "ESC-") {
		t.Errorf("text = %q, want the escalation id", toolText(t, result))
	}

	got, _ := store.GetConversation(conv.ID)
	if got.Status != conversation.StatusEscalated {
		t.Errorf("status = %q, want escalated", got.Status)
	}

	// Unknown conversation is a tool error.
	req = makeCallToolRequest("escalate_to_human", map[string]interface{}{
		"conversation_id": "missing",
		"reason":          "x",
	})
	result, err = handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("unknown conversation did not produce a tool error")
	}
}

func TestMCPResource_Stats(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	store.StartConversation("a@x.com", "email", "", "")

	handler := mcpResourceStats(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("support://stats"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("len(contents) = %d, want 1", len(contents))
	}

	text := contents[0].(mcp.TextResourceContents).Text
	var stats conversation.Stats
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Total = %d, want 1", stats.Total)
	}
}

func TestMCPResource_RecentDecisions(t *testing.T) {
	deps, _ := newTestMCPDeps(t)

	log := deps.Log.(*storage.Store)
	if err := log.SaveDecision(storage.DecisionRecord{
		ID:         "dec-1",
		CustomerID: "a@x.com",
		Intent:     "how_to",
		Response:   strings.Repeat("long ", 100),
	}); err != nil {
		t.Fatalf("SaveDecision: %v", err)
	}

	handler := mcpResourceRecentDecisions(deps)
	contents, err := handler(context.Background(), makeReadResourceRequest("support://recent-decisions"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := contents[0].(mcp.TextResourceContents).Text
	var summaries []struct {
		ID       string `json:"id"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal([]byte(text), &summaries); err != nil {
		t.Fatalf("decoding summaries: %v", err)
	}
	if len(summaries) != 1 || summaries[0].ID != "dec-1" {
		t.Fatalf("summaries = %+v, want dec-1", summaries)
	}
	if len([]rune(summaries[0].Response)) > 203 {
		t.Errorf("response not truncated: %d runes", len([]rune(summaries[0].Response)))
	}
}
