package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DecisionRecord is one row of the durable decision log: the full outcome of
// a pipeline run for one inbound message.
type DecisionRecord struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	CustomerID     string    `json:"customer_id"`
	ConversationID string    `json:"conversation_id"`
	Channel        string    `json:"channel"`
	Intent         string    `json:"intent"`
	Sentiment      float64   `json:"sentiment"`
	ShouldEscalate bool      `json:"should_escalate"`
	Reason         string    `json:"reason,omitempty"`
	EscalationID   string    `json:"escalation_id,omitempty"`
	Confidence     float64   `json:"confidence"`
	MatchedDocs    []string  `json:"matched_docs"`
	Response       string    `json:"response"`
}
