// Package conversation tracks multi-turn, cross-channel support
// conversations per customer: message history, sentiment samples, topics,
// and escalation state.
package conversation

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a conversation id is unknown.
var ErrNotFound = errors.New("conversation not found")

// Role identifies who authored a message.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
)

// Status is the conversation lifecycle state. A resolved conversation is
// never reused for new inbound traffic; an escalated one is, so follow-up
// contact lands with the human already handling it.
type Status string

const (
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusEscalated Status = "escalated"
)

// Resolution records how a conversation ended.
type Resolution string

const (
	ResolutionPending   Resolution = "pending"
	ResolutionSolved    Resolution = "solved"
	ResolutionEscalated Resolution = "escalated"
)

// Message is a single conversation turn. Agent messages carry no sentiment
// or intent by convention.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
	Sentiment float64   `json:"sentiment"`
	Intent    string    `json:"intent,omitempty"`
	TicketRef string    `json:"ticket_ref,omitempty"`
}

// SentimentSample is one point in a conversation's sentiment history,
// recorded only for customer-authored messages.
type SentimentSample struct {
	Score        float64   `json:"score"`
	Timestamp    time.Time `json:"timestamp"`
	MessageIndex int       `json:"message_index"`
}

// Conversation is the aggregate owned by the Store. Callers receive copies;
// only the Store mutates the canonical instance.
type Conversation struct {
	ID               string            `json:"id"`
	CustomerID       string            `json:"customer_id"`
	Channel          string            `json:"channel"` // initial channel
	StartedAt        time.Time         `json:"started_at"`
	LastMessageAt    time.Time         `json:"last_message_at"`
	Status           Status            `json:"status"`
	Messages         []Message         `json:"messages"`
	Topics           []string          `json:"topics"`
	SentimentHistory []SentimentSample `json:"sentiment_history"`
	Resolution       Resolution        `json:"resolution"`
	EscalationID     string            `json:"escalation_id,omitempty"`
	EscalationReason string            `json:"escalation_reason,omitempty"`
	ChannelsUsed     []string          `json:"channels_used"`
	CustomerName     string            `json:"customer_name,omitempty"`
	CustomerPlan     string            `json:"customer_plan,omitempty"`
}

// Clone returns a deep copy safe to hand outside the Store.
func (c *Conversation) Clone() Conversation {
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	out.Topics = append([]string(nil), c.Topics...)
	out.SentimentHistory = append([]SentimentSample(nil), c.SentimentHistory...)
	out.ChannelsUsed = append([]string(nil), c.ChannelsUsed...)
	return out
}

// Trend labels for TrendReport.
const (
	TrendNeutral          = "neutral"
	TrendDeclining        = "declining"
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// TrendReport is the outcome of a sentiment-trend check.
type TrendReport struct {
	ShouldEscalate      bool    `json:"should_escalate"`
	Reason              string  `json:"reason,omitempty"`
	Trend               string  `json:"trend"`
	ConsecutiveNegative int     `json:"consecutive_negative,omitempty"`
	Drop                float64 `json:"drop,omitempty"`
}

// ConversationSummary is the per-conversation slice of a customer history.
type ConversationSummary struct {
	ID            string     `json:"id"`
	Channel       string     `json:"channel"`
	ChannelsUsed  []string   `json:"channels_used"`
	StartedAt     time.Time  `json:"started_at"`
	LastMessageAt time.Time  `json:"last_message_at"`
	Status        Status     `json:"status"`
	Resolution    Resolution `json:"resolution"`
	MessageCount  int        `json:"message_count"`
	Topics        []string   `json:"topics"`
}

// CustomerHistory aggregates everything known about one customer. A customer
// with no conversations gets a well-formed empty history, not an error.
type CustomerHistory struct {
	CustomerID        string                `json:"customer_id"`
	ConversationCount int                   `json:"conversation_count"`
	Conversations     []ConversationSummary `json:"conversations"`
	Topics            []string              `json:"topics"`
	Channels          []string              `json:"channels"`
	SentimentTrend    []SentimentSample     `json:"sentiment_trend"`
	LastContact       time.Time             `json:"last_contact,omitzero"`
}

// Stats is a point-in-time aggregate over all conversations.
type Stats struct {
	Total           int `json:"total_conversations"`
	Active          int `json:"active"`
	Escalated       int `json:"escalated"`
	Resolved        int `json:"resolved"`
	UniqueCustomers int `json:"unique_customers"`
}
