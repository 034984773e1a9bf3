// Package api exposes the decision core over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskflowhq/supportd/internal/agent"
	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecisionLog is the durable side of the API: decisions and identity links
// written through it survive restarts.
type DecisionLog interface {
	SaveDecision(d storage.DecisionRecord) error
	RecentDecisions(limit int) ([]storage.DecisionRecord, error)
	SaveIdentityLink(a, b string) error
}

// AppDeps holds dependencies for the HTTP API.
type AppDeps struct {
	Decider *agent.Decider
	Store   *conversation.Store
	Log     DecisionLog
	Token   string
}

// NewAppHandler builds the authenticated HTTP router.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/decide", handleDecide(deps))
		r.Get("/conversations/{id}", handleGetConversation(deps))
		r.Post("/conversations/{id}/resolve", handleResolveConversation(deps))
		r.Post("/conversations/{id}/escalate", handleEscalateConversation(deps))
		r.Get("/customers/{id}/history", handleCustomerHistory(deps))
		r.Post("/identity/links", handleLinkIdentity(deps))
		r.Get("/identity/links", handleListIdentityLinks(deps))
		r.Get("/decisions", handleRecentDecisions(deps))
		r.Get("/stats", handleStats(deps))
	})

	return r
}

func handleDecide(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var in agent.Inbound
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(in.CustomerID) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "customer_id is required")
			return
		}
		if strings.TrimSpace(in.Text) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}
		if in.Channel == "" {
			in.Channel = "email"
		}

		decision, err := deps.Decider.Decide(in)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "decision failed: %v", err)
			return
		}

		record := storage.DecisionRecord{
			ID:             uuid.New().String(),
			CreatedAt:      time.Now().UTC(),
			CustomerID:     in.CustomerID,
			ConversationID: decision.ConversationID,
			Channel:        in.Channel,
			Intent:         decision.Intent,
			Sentiment:      decision.Sentiment,
			ShouldEscalate: decision.ShouldEscalate,
			Reason:         decision.Reason,
			EscalationID:   decision.EscalationID,
			Confidence:     decision.Confidence,
			MatchedDocs:    decision.MatchedDocs,
			Response:       decision.Response,
		}
		if err := deps.Log.SaveDecision(record); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "persisting decision: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(decision)
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		conv, ok := deps.Store.GetConversation(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conv)
	}
}

func handleResolveConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.ResolveConversation(id)
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "resolving conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "resolved"})
	}
}

type escalateRequest struct {
	Reason string `json:"reason"`
}

func handleEscalateConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req escalateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Reason) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reason is required")
			return
		}

		escalationID, err := deps.Store.EscalateConversation(id, req.Reason, "")
		if errors.Is(err, conversation.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "escalating conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":        "escalated",
			"escalation_id": escalationID,
		})
	}
}

func handleCustomerHistory(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		history := deps.Store.CustomerHistory(id)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(history)
	}
}

type linkRequest struct {
	IDA string `json:"id_a"`
	IDB string `json:"id_b"`
}

func handleLinkIdentity(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req linkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.IDA == "" || req.IDB == "" || req.IDA == req.IDB {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "id_a and id_b must be two distinct identifiers")
			return
		}

		deps.Store.LinkIdentity(req.IDA, req.IDB)
		if err := deps.Log.SaveIdentityLink(req.IDA, req.IDB); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "persisting identity link: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "linked"})
	}
}

func handleListIdentityLinks(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		links := deps.Store.IdentityLinks()
		if links == nil {
			links = [][2]string{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(links)
	}
}

func handleRecentDecisions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		decisions, err := deps.Log.RecentDecisions(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing decisions: %v", err)
			return
		}
		if decisions == nil {
			decisions = []storage.DecisionRecord{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(decisions)
	}
}

func handleStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Store.Stats())
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
