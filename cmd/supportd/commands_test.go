package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskflowhq/supportd/internal/agent"
	"github.com/taskflowhq/supportd/internal/conversation"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestDecideRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /decide": `{"conversation_id":"conv-1","should_escalate":false,"intent":"how_to","sentiment":0.2,"trend":"neutral","confidence":0.85,"response":"Dear Sarah, ..."}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/decide", agent.Inbound{
		Channel:    "email",
		CustomerID: "sarah@example.com",
		Text:       "How do I export?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decision agent.Decision
	if err := decodeJSON(resp, &decision); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if decision.ConversationID != "conv-1" {
		t.Errorf("conversation_id = %q, want conv-1", decision.ConversationID)
	}
	if decision.Intent != "how_to" {
		t.Errorf("intent = %q, want how_to", decision.Intent)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/decide" {
		t.Errorf("request = %s %s, want POST /decide", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["customer_id"] != "sarah@example.com" {
		t.Errorf("body.customer_id = %v", body["customer_id"])
	}
	if body["text"] != "How do I export?" {
		t.Errorf("body.text = %v", body["text"])
	}
}

func TestDecideCommand_MissingCustomer(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"decide", "hello there"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("decide without --customer returned nil error")
	}
}

func TestStatsRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /stats": `{"total_conversations":3,"active":1,"escalated":1,"resolved":1,"unique_customers":2}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats conversation.Stats
	if err := decodeJSON(resp, &stats); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if stats.Total != 3 || stats.UniqueCustomers != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDecodeJSON_ErrorStatus(t *testing.T) {
	ts := newTestServer(t, nil)

	client := ts.client()
	resp, err := client.get(ctx, "/conversations/missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out any
	if err := decodeJSON(resp, &out); err == nil {
		t.Error("decodeJSON on a 404 returned nil error")
	}
}
