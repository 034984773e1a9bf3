package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/kb"
	"github.com/taskflowhq/supportd/internal/sentiment"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store  *conversation.Store
	Index  *kb.Index
	Scorer *sentiment.Scorer
	Log    DecisionLog
}

// NewMCPServer creates an MCP server exposing the decision core to agent
// frontends: knowledge search, sentiment scoring, customer history, and
// manual escalation.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"supportd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("supportd is a customer support decision core: knowledge search, sentiment scoring, conversation history, and escalation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_knowledge_base",
			mcp.WithDescription("Search the product knowledge base and return the most relevant sections."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 3)")),
		),
		mcpSearchKnowledgeBase(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_sentiment",
			mcp.WithDescription("Score the sentiment of a customer message on a -1.0 to 1.0 scale."),
			mcp.WithString("text", mcp.Description("The message text to score"), mcp.Required()),
		),
		mcpAnalyzeSentiment(deps),
	)

	s.AddTool(
		mcp.NewTool("get_customer_history",
			mcp.WithDescription("Return the cross-channel conversation history for a customer identifier."),
			mcp.WithString("customer_id", mcp.Description("Email, phone, or any linked identifier"), mcp.Required()),
		),
		mcpGetCustomerHistory(deps),
	)

	s.AddTool(
		mcp.NewTool("escalate_to_human",
			mcp.WithDescription("Escalate a conversation to a human agent and return the escalation ticket id."),
			mcp.WithString("conversation_id", mcp.Description("Conversation to escalate"), mcp.Required()),
			mcp.WithString("reason", mcp.Description("Why this needs a human"), mcp.Required()),
		),
		mcpEscalateToHuman(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"support://stats",
			"Conversation Stats",
			mcp.WithResourceDescription("Aggregate conversation counts as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"support://recent-decisions",
			"Recent Decisions",
			mcp.WithResourceDescription("Last 10 pipeline decisions (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentDecisions(deps),
	)

	return s
}

func mcpSearchKnowledgeBase(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 3)
		if limit <= 0 {
			limit = 3
		}
		if limit > 10 {
			limit = 10
		}

		matches := deps.Index.Search(query, limit)
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		type sectionResult struct {
			Title    string  `json:"title"`
			Category string  `json:"category"`
			Source   string  `json:"source,omitempty"`
			Body     string  `json:"body"`
			Score    float64 `json:"score"`
		}

		results := make([]sectionResult, len(matches))
		for i, m := range matches {
			results[i] = sectionResult{
				Title:    m.Section.Title,
				Category: m.Section.Category,
				Source:   m.Section.Source,
				Body:     m.Section.Body,
				Score:    m.Score,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAnalyzeSentiment(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		score := deps.Scorer.Score(text)
		b, err := json.Marshal(map[string]float64{"score": score})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal score: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetCustomerHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		customerID, err := req.RequireString("customer_id")
		if err != nil {
			return mcpError("customer_id is required"), nil
		}

		history := deps.Store.CustomerHistory(customerID)
		b, err := json.Marshal(history)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpEscalateToHuman(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		conversationID, err := req.RequireString("conversation_id")
		if err != nil {
			return mcpError("conversation_id is required"), nil
		}
		reason, err := req.RequireString("reason")
		if err != nil {
			return mcpError("reason is required"), nil
		}

		escalationID, err := deps.Store.EscalateConversation(conversationID, reason, "")
		if errors.Is(err, conversation.ErrNotFound) {
			return mcpError("conversation not found"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("escalation failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Escalated as %s", escalationID)), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Store.Stats())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecentDecisions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		decisions, err := deps.Log.RecentDecisions(10)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent decisions: %w", err)
		}

		type decisionSummary struct {
			ID        string  `json:"id"`
			CreatedAt string  `json:"created_at"`
			Customer  string  `json:"customer"`
			Intent    string  `json:"intent"`
			Escalated bool    `json:"escalated"`
			Response  string  `json:"response"`
			Sentiment float64 `json:"sentiment"`
		}

		summaries := make([]decisionSummary, len(decisions))
		for i, d := range decisions {
			response := d.Response
			if utf8.RuneCountInString(response) > 200 {
				runes := []rune(response)
				response = string(runes[:200]) + "..."
			}
			summaries[i] = decisionSummary{
				ID:        d.ID,
				CreatedAt: d.CreatedAt.Format(time.RFC3339),
				Customer:  d.CustomerID,
				Intent:    d.Intent,
				Escalated: d.ShouldEscalate,
				Response:  response,
				Sentiment: d.Sentiment,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal decisions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
