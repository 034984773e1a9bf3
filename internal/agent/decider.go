// Package agent orchestrates the decision core: it turns one inbound
// customer message into a routed, composed, channel-ready decision.
package agent

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/taskflowhq/supportd/internal/composer"
	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/escalation"
	"github.com/taskflowhq/supportd/internal/intent"
	"github.com/taskflowhq/supportd/internal/kb"
	"github.com/taskflowhq/supportd/internal/presenter"
	"github.com/taskflowhq/supportd/internal/sentiment"
)

// Inbound is one customer message entering the pipeline.
type Inbound struct {
	Channel      string `json:"channel"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name,omitempty"`
	CustomerPlan string `json:"customer_plan,omitempty"`
	Priority     string `json:"priority,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Text         string `json:"text"`
	TicketRef    string `json:"ticket_ref,omitempty"`
}

// Decision is the full outcome for one inbound message.
type Decision struct {
	ConversationID string   `json:"conversation_id"`
	ShouldEscalate bool     `json:"should_escalate"`
	Reason         string   `json:"reason,omitempty"`
	EscalationID   string   `json:"escalation_id,omitempty"`
	Intent         string   `json:"intent"`
	Sentiment      float64  `json:"sentiment"`
	Trend          string   `json:"trend"`
	Confidence     float64  `json:"confidence"`
	MatchedDocs    []string `json:"matched_docs,omitempty"`
	Response       string   `json:"response"`
}

// Decider wires the scoring components around the conversation store.
// Inbound messages for the same resolved customer are serialized; different
// customers proceed in parallel.
type Decider struct {
	store   *conversation.Store
	scorer  *sentiment.Scorer
	intents *intent.Classifier
	policy  *escalation.Policy
	index   *kb.Index
	topK    int
	logger  *slog.Logger

	locks sync.Map // resolved customer id -> *sync.Mutex
}

// New assembles a Decider. topK caps doc retrieval per message; values <= 0
// fall back to 3.
func New(store *conversation.Store, scorer *sentiment.Scorer, intents *intent.Classifier, policy *escalation.Policy, index *kb.Index, topK int, logger *slog.Logger) *Decider {
	if topK <= 0 {
		topK = 3
	}
	return &Decider{
		store:   store,
		scorer:  scorer,
		intents: intents,
		policy:  policy,
		index:   index,
		topK:    topK,
		logger:  logger,
	}
}

func (d *Decider) lockCustomer(id string) func() {
	v, _ := d.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Decide runs the whole pipeline for one inbound message: resolve identity,
// get or create the conversation, score sentiment and intent, record the
// message, merge the sentiment trend into the escalation decision, retrieve
// supporting docs, compose and record the reply, and flip conversation state
// on escalation.
func (d *Decider) Decide(in Inbound) (Decision, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return Decision{}, fmt.Errorf("inbound message has no customer identifier")
	}

	customerID := d.store.ResolveCustomer(in.CustomerID)
	unlock := d.lockCustomer(customerID)
	defer unlock()

	conv := d.store.GetOrCreateConversation(in.CustomerID, in.Channel, in.CustomerName, in.CustomerPlan)

	detectedSentiment := d.scorer.Score(in.Text + " " + in.Subject)
	detectedIntent := d.intents.Classify(in.Text)

	if _, err := d.store.AddMessage(conv.ID, conversation.Message{
		Role:      conversation.RoleCustomer,
		Content:   in.Text,
		Channel:   in.Channel,
		Sentiment: detectedSentiment,
		Intent:    detectedIntent,
		TicketRef: in.TicketRef,
	}); err != nil {
		return Decision{}, fmt.Errorf("recording customer message: %w", err)
	}

	trend := d.store.CheckSentimentTrend(conv.ID)
	crossCtx, _ := d.store.CrossChannelContext(in.CustomerID, in.Channel)

	ruling := d.policy.Evaluate(in.Text, in.Subject, detectedSentiment, in.CustomerPlan, in.Priority)
	escalate := ruling.ShouldEscalate
	reason := ruling.Reason()
	penalty := ruling.ConfidencePenalty

	if trend.ShouldEscalate && !escalate {
		escalate = true
		if reason != "" {
			reason += "; "
		}
		reason += "SENTIMENT_TREND: " + trend.Reason
		penalty = max(penalty, 0.3)
	}

	// Spam gets no doc retrieval; nothing will be answered anyway.
	var matches []kb.Match
	if detectedIntent != intent.Spam {
		matches = d.index.Search(in.Subject+" "+in.Text, d.topK)
	}
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, m.Section.Title)
	}

	confidence := confidenceScore(detectedIntent, len(matches), in.Text, penalty, detectedSentiment)

	body := composer.Body(composer.Input{
		Channel:             in.Channel,
		Message:             in.Text,
		TicketRef:           in.TicketRef,
		Plan:                in.CustomerPlan,
		Intent:              detectedIntent,
		Escalate:            escalate,
		Reason:              reason,
		Confidence:          confidence,
		Sections:            matches,
		CrossChannelContext: crossCtx,
	})
	// Spam is never sent, so it skips channel dressing.
	response := body
	if detectedIntent != intent.Spam {
		response = presenter.Render(presenter.Reply{
			Channel:      in.Channel,
			CustomerName: in.CustomerName,
			Body:         body,
			TicketRef:    in.TicketRef,
			Escalated:    escalate,
			Sentiment:    detectedSentiment,
		})
	}

	if _, err := d.store.AddMessage(conv.ID, conversation.Message{
		Role:      conversation.RoleAgent,
		Content:   response,
		Channel:   in.Channel,
		TicketRef: in.TicketRef,
	}); err != nil {
		return Decision{}, fmt.Errorf("recording agent reply: %w", err)
	}

	var escalationID string
	if escalate {
		id, err := d.store.EscalateConversation(conv.ID, reason, "")
		if err != nil {
			return Decision{}, fmt.Errorf("escalating conversation: %w", err)
		}
		escalationID = id
	}

	d.logger.Info("decision",
		"customer", customerID,
		"conversation", conv.ID,
		"channel", in.Channel,
		"intent", detectedIntent,
		"sentiment", detectedSentiment,
		"escalate", escalate,
		"confidence", confidence,
	)

	return Decision{
		ConversationID: conv.ID,
		ShouldEscalate: escalate,
		Reason:         reason,
		EscalationID:   escalationID,
		Intent:         detectedIntent,
		Sentiment:      detectedSentiment,
		Trend:          trend.Trend,
		Confidence:     round2(confidence),
		MatchedDocs:    titles,
		Response:       response,
	}, nil
}

// RecordReply appends an agent-authored message, for boundary layers that
// deliver text the Decider did not compose (human follow-ups, tool output).
func (d *Decider) RecordReply(conversationID, channel, text, ticketRef string) error {
	_, err := d.store.AddMessage(conversationID, conversation.Message{
		Role:      conversation.RoleAgent,
		Content:   text,
		Channel:   channel,
		TicketRef: ticketRef,
	})
	if err != nil {
		return fmt.Errorf("recording reply: %w", err)
	}
	return nil
}

// confidenceScore estimates how safe it is to send the composed answer
// unreviewed: base 0.5, boosted by doc coverage and a clear intent, penalized
// for thin messages, sour sentiment, and the escalation penalty.
func confidenceScore(intentLabel string, matchedDocs int, message string, penalty, sentimentScore float64) float64 {
	score := 0.5

	switch {
	case matchedDocs >= 2:
		score += 0.2
	case matchedDocs == 1:
		score += 0.1
	}

	if !intent.LowValue(intentLabel) {
		score += 0.15
	}
	if intentLabel == "how_to" || intentLabel == "feature_request" {
		score += 0.1
	}

	words := len(strings.Fields(message))
	switch {
	case words < 5:
		score -= 0.15
	case words < 10:
		score -= 0.05
	}

	if sentimentScore < -0.3 {
		score -= 0.1
	}

	score -= penalty
	return min(1.0, max(0.0, score))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
