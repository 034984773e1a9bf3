package presenter

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate_ShortTextUnchanged(t *testing.T) {
	text := "Short answer."
	if got := Truncate(text, 280); got != text {
		t.Errorf("Truncate = %q, want unchanged", got)
	}
}

func TestTruncate_SentenceBoundaries(t *testing.T) {
	text := "First sentence is here. Second sentence follows it. Third sentence is the one that will not fit in the budget at all."
	got := Truncate(text, 60)

	if !strings.HasSuffix(got, ContinuationPrompt) {
		t.Fatalf("Truncate = %q, want continuation prompt", got)
	}
	kept := strings.TrimSuffix(got, "\n\n"+ContinuationPrompt)
	for _, line := range strings.Split(kept, "\n") {
		if !strings.HasSuffix(line, ".") {
			t.Errorf("kept chunk %q does not end at a sentence boundary", line)
		}
	}
	if strings.Contains(kept, "Third") {
		t.Errorf("Truncate = %q, kept a chunk beyond the budget", got)
	}
}

func TestTruncate_NeverExceedsBudgetPlusSuffix(t *testing.T) {
	texts := []string{
		"One two three four five six seven eight nine ten. " + strings.Repeat("More words here. ", 30),
		strings.Repeat("averyverylongwordwithoutanyspaces", 20),
		"Steps:\n1. Open settings\n2. Pick integrations\n3. Reconnect the calendar and wait for the sync to finish completely",
	}
	for _, text := range texts {
		got := Truncate(text, 100)
		limit := 100 + utf8.RuneCountInString("\n\n"+ContinuationPrompt) + len("...")
		if n := utf8.RuneCountInString(got); n > limit {
			t.Errorf("Truncate output %d runes, limit %d: %q", n, limit, got)
		}
	}
}

func TestTruncate_ListMarkersAreNotBoundaries(t *testing.T) {
	text := "Do this:\n1. Open settings\n2. Pick integrations\n3. Reconnect your calendar account now"
	got := Truncate(text, 50)

	kept := strings.TrimSuffix(got, "\n\n"+ContinuationPrompt)
	for _, line := range strings.Split(kept, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "1." || trimmed == "2." || trimmed == "3." {
			t.Fatalf("Truncate split after a list marker: %q", got)
		}
	}
}

func TestTruncate_WordFallbackForOversizedFirstChunk(t *testing.T) {
	text := "This single sentence has no early boundary and keeps going with many words well past any reasonable chat budget without a single period until the very end."
	got := Truncate(text, 80)

	if !strings.Contains(got, "...") || !strings.HasSuffix(got, ContinuationPrompt) {
		t.Fatalf("Truncate = %q, want word-level fallback with ellipsis and prompt", got)
	}
	if strings.Contains(strings.TrimSuffix(got, "...\n\n"+ContinuationPrompt), "  ") {
		t.Errorf("Truncate = %q, fallback mangled word spacing", got)
	}
}

func TestEmpathyPhrase(t *testing.T) {
	tests := []struct {
		name      string
		channel   string
		escalated bool
		sentiment float64
		want      string
	}{
		{"escalated negative email", ChannelEmail, true, -0.5,
			"I completely understand your frustration, and I'm sorry for the trouble you've been experiencing. "},
		{"escalated neutral web form", ChannelWebForm, true, 0,
			"I've reviewed your request and want to make sure you get the most accurate help. "},
		{"calm positive email", ChannelEmail, false, 0.6, "Thanks for reaching out! "},
		{"neutral email", ChannelEmail, false, 0, "Thanks for contacting TaskFlow Support! "},
		{"whatsapp stays terse", ChannelWhatsApp, false, -0.5, ""},
		{"escalated positive falls back to neutral row", ChannelEmail, true, 0.9,
			"Thanks for contacting TaskFlow Support! "},
		{"boundary -0.2 is neutral", ChannelEmail, false, -0.2, "Thanks for contacting TaskFlow Support! "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EmpathyPhrase(tt.channel, tt.escalated, tt.sentiment); got != tt.want {
				t.Errorf("EmpathyPhrase = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_Email(t *testing.T) {
	got := Render(Reply{
		Channel:      ChannelEmail,
		CustomerName: "Sarah",
		Body:         "Your invoice is attached.",
		TicketRef:    "TF-1001",
		Sentiment:    0.4,
	})
	for _, want := range []string{"Dear Sarah,", "Thanks for reaching out! ", "Reference: TF-1001", "Best regards,"} {
		if !strings.Contains(got, want) {
			t.Errorf("Render missing %q in:\n%s", want, got)
		}
	}
}

func TestRender_UnknownNameBecomesThere(t *testing.T) {
	got := Render(Reply{Channel: ChannelWebForm, CustomerName: "Unknown", Body: "body"})
	if !strings.Contains(got, "Hi there,") {
		t.Errorf("Render = %q, want the 'there' fallback", got)
	}
}

func TestRender_WhatsAppEscalation(t *testing.T) {
	angry := Render(Reply{Channel: ChannelWhatsApp, CustomerName: "Sam", Escalated: true, Sentiment: -0.6})
	if !strings.Contains(angry, "I completely understand your frustration") {
		t.Errorf("Render = %q, want the frustrated-escalation variant", angry)
	}
	calm := Render(Reply{Channel: ChannelWhatsApp, CustomerName: "Sam", Escalated: true, Sentiment: 0})
	if !strings.Contains(calm, "anything quick I can help with") {
		t.Errorf("Render = %q, want the calm-escalation variant", calm)
	}
}

func TestRender_EmpathyDeduplicated(t *testing.T) {
	body := "Thanks for reaching out! Here is the answer."
	got := Render(Reply{Channel: ChannelEmail, CustomerName: "Sam", Body: body, Sentiment: 0.5})
	if strings.Count(got, "Thanks for reaching out") != 1 {
		t.Errorf("Render duplicated the empathy opener:\n%s", got)
	}
}

func TestRender_UnknownChannelPassesBodyThrough(t *testing.T) {
	if got := Render(Reply{Channel: "carrier-pigeon", Body: "body"}); got != "body" {
		t.Errorf("Render = %q, want raw body", got)
	}
}
