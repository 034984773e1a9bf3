package agent

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/taskflowhq/supportd/internal/conversation"
	"github.com/taskflowhq/supportd/internal/escalation"
	"github.com/taskflowhq/supportd/internal/identity"
	"github.com/taskflowhq/supportd/internal/intent"
	"github.com/taskflowhq/supportd/internal/kb"
	"github.com/taskflowhq/supportd/internal/sentiment"
)

func newTestDecider(t *testing.T) (*Decider, *conversation.Store) {
	t.Helper()

	index, err := kb.NewIndex([]kb.Section{
		{Title: "Calendar Sync", Body: "Connect Google Calendar from Settings > Integrations. Sync runs every 15 minutes.", Category: "Integrations"},
		{Title: "Billing", Body: "Refund requests are reviewed by the billing team within two business days.", Category: "Billing"},
		{Title: "Boards", Body: "Boards hold lists and cards. Archive a board from its menu.", Category: "Core Features"},
	})
	if err != nil {
		t.Fatalf("building index: %v", err)
	}

	store := conversation.NewStore(identity.NewResolver())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, sentiment.New(), intent.New(), escalation.New(), index, 3, logger), store
}

func TestDecide_AnswersHowToWithoutEscalating(t *testing.T) {
	d, store := newTestDecider(t)

	got, err := d.Decide(Inbound{
		Channel:      "email",
		CustomerID:   "sarah@example.com",
		CustomerName: "Sarah",
		CustomerPlan: "pro",
		Subject:      "Export question",
		Text:         "How do I export my boards to CSV?",
		TicketRef:    "TF-2001",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if got.ShouldEscalate {
		t.Errorf("ShouldEscalate = true, want false; reason %q", got.Reason)
	}
	if got.Intent != "how_to" {
		t.Errorf("Intent = %q, want how_to", got.Intent)
	}
	if got.Confidence <= 0.5 {
		t.Errorf("Confidence = %v, want > 0.5 for a clear question with doc hits", got.Confidence)
	}
	if len(got.MatchedDocs) == 0 || got.MatchedDocs[0] != "Boards" {
		t.Errorf("MatchedDocs = %v, want Boards first", got.MatchedDocs)
	}
	if !strings.Contains(got.Response, "Dear Sarah,") || !strings.Contains(got.Response, "Here's how you can do this") {
		t.Errorf("Response = %q, want an email-dressed how-to answer", got.Response)
	}

	conv, ok := store.GetConversation(got.ConversationID)
	if !ok {
		t.Fatal("conversation missing after Decide")
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want customer + agent", len(conv.Messages))
	}
	if conv.Messages[1].Role != conversation.RoleAgent {
		t.Errorf("second message role = %q, want agent", conv.Messages[1].Role)
	}
	if conv.Status != conversation.StatusActive {
		t.Errorf("Status = %q, want active", conv.Status)
	}
}

func TestDecide_RefundEscalatesAndFlipsState(t *testing.T) {
	d, store := newTestDecider(t)

	got, err := d.Decide(Inbound{
		Channel:    "email",
		CustomerID: "sam@example.com",
		Text:       "I want a refund for this charge",
		TicketRef:  "TF-2002",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if !got.ShouldEscalate {
		t.Fatalf("ShouldEscalate = false, want true; reason %q", got.Reason)
	}
	if !strings.Contains(got.Reason, "ALWAYS_ESCALATE: billing") {
		t.Errorf("Reason = %q, want the mandatory billing entry", got.Reason)
	}
	if !strings.HasPrefix(got.EscalationID, "ESC-") {
		t.Errorf("EscalationID = %q, want an ESC- id", got.EscalationID)
	}
	if !strings.Contains(got.Response, "billing team") {
		t.Errorf("Response = %q, want the billing handoff body", got.Response)
	}

	conv, _ := store.GetConversation(got.ConversationID)
	if conv.Status != conversation.StatusEscalated {
		t.Errorf("Status = %q, want escalated", conv.Status)
	}
	if conv.EscalationID != got.EscalationID {
		t.Errorf("stored escalation id %q != decision id %q", conv.EscalationID, got.EscalationID)
	}
}

func TestDecide_SentimentTrendTriggersEscalation(t *testing.T) {
	d, _ := newTestDecider(t)

	in := Inbound{
		Channel:    "chat",
		CustomerID: "tired@example.com",
		Text:       "the dashboard is slow today",
	}
	for i := 0; i < 2; i++ {
		got, err := d.Decide(in)
		if err != nil {
			t.Fatalf("Decide %d: %v", i, err)
		}
		if got.ShouldEscalate {
			t.Fatalf("message %d escalated early: %q", i, got.Reason)
		}
	}

	got, err := d.Decide(in)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !got.ShouldEscalate {
		t.Fatalf("third consecutive negative message did not escalate; reason %q", got.Reason)
	}
	if !strings.Contains(got.Reason, "SENTIMENT_TREND:") {
		t.Errorf("Reason = %q, want a SENTIMENT_TREND entry", got.Reason)
	}
	if got.Trend != conversation.TrendDeclining {
		t.Errorf("Trend = %q, want declining", got.Trend)
	}
}

func TestDecide_SpamSkipsRetrievalAndAnswer(t *testing.T) {
	d, _ := newTestDecider(t)

	got, err := d.Decide(Inbound{
		Channel:    "web_form",
		CustomerID: "spammer@example.com",
		Text:       "Buy cheap followers click now at www dot biz",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if got.Intent != intent.Spam {
		t.Fatalf("Intent = %q, want spam", got.Intent)
	}
	if len(got.MatchedDocs) != 0 {
		t.Errorf("MatchedDocs = %v, want none for spam", got.MatchedDocs)
	}
	if !strings.Contains(got.Response, "SPAM DETECTED") {
		t.Errorf("Response = %q, want the spam notice", got.Response)
	}
}

func TestDecide_CrossChannelContextInResponse(t *testing.T) {
	d, _ := newTestDecider(t)

	first, err := d.Decide(Inbound{
		Channel:    "email",
		CustomerID: "sarah@example.com",
		Text:       "My calendar sync is not updating",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	second, err := d.Decide(Inbound{
		Channel:    "whatsapp",
		CustomerID: "sarah@example.com",
		Text:       "Any update on the sync?",
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Fatal("follow-up opened a new conversation")
	}
	if !strings.Contains(second.Response, "contacted us earlier via email") {
		t.Errorf("Response = %q, want the cross-channel context sentence", second.Response)
	}
}

func TestDecide_EmptyCustomerIDFails(t *testing.T) {
	d, _ := newTestDecider(t)
	if _, err := d.Decide(Inbound{Channel: "email", Text: "hello"}); err == nil {
		t.Error("Decide with no customer id returned nil error")
	}
}

func TestRecordReply(t *testing.T) {
	d, store := newTestDecider(t)

	got, err := d.Decide(Inbound{Channel: "email", CustomerID: "a@x.com", Text: "How do I export my boards?"})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if err := d.RecordReply(got.ConversationID, "email", "A human will take it from here.", "TF-9"); err != nil {
		t.Fatalf("RecordReply: %v", err)
	}

	conv, _ := store.GetConversation(got.ConversationID)
	last := conv.Messages[len(conv.Messages)-1]
	if last.Role != conversation.RoleAgent || last.Content != "A human will take it from here." {
		t.Errorf("last message = %+v", last)
	}

	if err := d.RecordReply("missing", "email", "x", ""); err == nil {
		t.Error("RecordReply on unknown conversation returned nil error")
	}
}
