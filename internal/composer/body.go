// Package composer assembles reply bodies from classified intent, retrieved
// documentation, and escalation state. It produces the raw body; channel
// dressing (greeting, empathy, signatures) belongs to the presenter.
package composer

import (
	"strings"

	"github.com/taskflowhq/supportd/internal/intent"
	"github.com/taskflowhq/supportd/internal/kb"
)

// Excerpt budgets per channel family. Email can carry longer quotes than
// chat-like channels.
const (
	emailExcerptChars = 600
	chatExcerptChars  = 350
)

// escalationConfidenceFloor switches the body to an escalation
// acknowledgement when the decision is both escalated and low-confidence.
const escalationConfidenceFloor = 0.4

// SpamNotice replaces the reply body for detected spam; nothing is sent.
const SpamNotice = "[SPAM DETECTED — No response sent. Ticket auto-closed.]"

// Input is everything body composition depends on.
type Input struct {
	Channel             string
	Message             string
	TicketRef           string
	Plan                string
	Intent              string
	Escalate            bool
	Reason              string
	Confidence          float64
	Sections            []kb.Match
	CrossChannelContext string
}

// Body builds the reply body for a decision. Spam short-circuits everything;
// low-confidence escalations acknowledge and hand off; greetings and unclear
// messages get fixed prompts; everything else answers from the best matched
// documentation section. A cross-channel context sentence, when present, is
// prepended.
func Body(in Input) string {
	if in.Intent == intent.Spam {
		return SpamNotice
	}

	var body string
	switch {
	case in.Escalate && in.Confidence < escalationConfidenceFloor:
		body = escalationBody(in.Reason, in.Plan, in.TicketRef)
	case in.Intent == intent.Greeting:
		body = greetingBody(in.Channel)
	case in.Intent == intent.Unclear:
		body = unclearBody(in.Message, in.Channel)
	default:
		body = answerBody(in.Intent, in.Sections, in.Channel)
	}

	if in.CrossChannelContext != "" {
		body = in.CrossChannelContext + "\n\n" + body
	}
	return body
}

func greetingBody(channel string) string {
	if channel == "whatsapp" {
		return "How can I help you today? \U0001F44B"
	}
	return "How can I help you today?"
}

func unclearBody(message, channel string) string {
	msg := strings.TrimSpace(message)
	if len(msg) <= 4 || !strings.ContainsFunc(msg, isASCIILetter) {
		if channel == "whatsapp" {
			return "Is there anything I can help you with today? \U0001F60A"
		}
		return "Is there anything I can help you with today?"
	}
	if channel == "whatsapp" {
		return "Could you tell me a bit more about what you need help with?"
	}
	return "Could you tell me a bit more about what you need help with? " +
		"I'm happy to assist with any TaskFlow questions!"
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

func answerBody(intentLabel string, sections []kb.Match, channel string) string {
	if len(sections) == 0 {
		return "I want to make sure I give you the right answer. " +
			"Could you provide a few more details about what you're trying to do? " +
			"In the meantime, you can check our help center at app.taskflow.io/help."
	}

	maxChars := chatExcerptChars
	if channel == "email" {
		maxChars = emailExcerptChars
	}
	excerpt := Excerpt(sections[0].Section.Body, maxChars)

	switch intentLabel {
	case "how_to":
		return "Great question! Here's how you can do this:\n\n" + excerpt +
			"\n\nLet me know if you need any clarification on these steps."
	case "billing_inquiry":
		return "I understand billing questions are important. " +
			"Here's the relevant information:\n\n" + excerpt +
			"\n\nIf you need further assistance with billing, our team at " +
			"billing@techcorp.io can help."
	case "bug_report":
		return "I'm sorry you're running into this issue. Here are some " +
			"troubleshooting steps that may help:\n\n" + excerpt +
			"\n\nIf the problem persists after trying these steps, please " +
			"let me know and I'll look into it further."
	case "sync_problem", "mobile_issue":
		return "I understand how frustrating sync issues can be. " +
			"Let's try these steps:\n\n" + excerpt +
			"\n\nIf the issue continues, please let me know your app version " +
			"and device details so I can investigate further."
	case "integration_issue":
		return "Let me help you with that integration issue. " +
			"Here's what I'd recommend:\n\n" + excerpt +
			"\n\nIf reconnecting doesn't resolve the issue, please let me " +
			"know and I'll dig deeper."
	case "feature_request":
		return "That's a great suggestion — thanks for sharing it! " +
			"I've logged this feedback for our product team. While I can't " +
			"share specific timeline commitments, this is the kind of input " +
			"that helps shape our roadmap. Is there anything else I can help with?"
	case "password_reset":
		return "I understand how frustrating it is to be locked out. " +
			"Here's how to regain access:\n\n" + excerpt +
			"\n\nIf you're still having trouble after these steps, let me " +
			"know and I'll help further."
	case "notification_issue":
		return "Let's get your notifications sorted out. " +
			"Here's what to check:\n\n" + excerpt +
			"\n\nLet me know if any of these steps help!"
	case "data_concern":
		return "I've received your request regarding data handling. " +
			"This is being forwarded to our compliance team who will " +
			"respond within the required timeframe. You'll receive a " +
			"confirmation shortly."
	default:
		return "Thanks for reaching out! Based on your question, here's " +
			"the relevant information:\n\n" + excerpt +
			"\n\nIs there anything else I can help with?"
	}
}

// Excerpt trims a documentation body to roughly maxChars, keeping whole
// lines, dropping blanks and markdown table separator rows.
func Excerpt(body string, maxChars int) string {
	var kept []string
	count := 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isTableSeparator(line) {
			continue
		}
		kept = append(kept, line)
		count += len(line)
		if count > maxChars {
			break
		}
	}
	return strings.Join(kept, "\n")
}

func isTableSeparator(line string) bool {
	if !strings.HasPrefix(line, "|") {
		return false
	}
	rest := strings.TrimSpace(strings.ReplaceAll(line, "|", ""))
	for _, r := range rest {
		if r != '-' && r != ' ' {
			return false
		}
	}
	return true
}

// slaByPlan maps customer plans to the follow-up window quoted in
// escalation acknowledgements.
func slaByPlan(plan string) string {
	switch plan {
	case "enterprise":
		return "1 hour"
	case "pro":
		return "4 hours"
	default:
		return "24 hours"
	}
}

func escalationBody(reason, plan, ticketRef string) string {
	sla := slaByPlan(plan)
	lower := strings.ToLower(reason)

	// Tickets are optional; without one the reference sentence is dropped
	// rather than quoting an empty number.
	ref := ""
	if ticketRef != "" {
		ref = " Your reference number is " + ticketRef + "."
	}

	switch {
	case strings.Contains(lower, "billing") || strings.Contains(lower, "refund"):
		return "I understand how important billing matters are, and I want to " +
			"make sure this is handled properly. I've forwarded your request " +
			"to our billing team, who will review it and get back to you " +
			"within " + sla + "." + ref
	case containsAny(lower, "legal", "gdpr", "compliance", "soc", "dpa"):
		return "I've received your request and it's being forwarded to our " +
			"compliance team immediately. You'll receive a confirmation " +
			"within 72 hours, and the request will be fulfilled within the " +
			"required timeframe." + ref
	case strings.Contains(lower, "human"):
		return "Of course! I'm connecting you with a member of our support " +
			"team right now. They'll follow up within " + sla + "."
	case containsAny(lower, "sentiment", "anger", "all caps"):
		return "I completely understand your frustration, and I'm sorry for " +
			"the trouble you've been experiencing. I want to make sure this " +
			"gets the attention it deserves. I'm connecting you with a " +
			"senior member of our support team who will personally follow " +
			"up within " + sla + "." + ref
	case containsAny(lower, "data_loss", "disappeared"):
		return "I understand how concerning it is when data appears to be " +
			"missing. I'm treating this as a high priority and connecting " +
			"you with our engineering team who will investigate immediately. " +
			"They'll follow up within " + sla + "." + ref
	case containsAny(lower, "lockout", "2fa"):
		return "I understand being locked out of your account is urgent. " +
			"I'm escalating this to our support team who can verify your " +
			"identity and help you regain access. They'll reach out within " +
			sla + "." + ref
	case containsAny(lower, "stuck", "export"):
		return "I can see this operation is taking longer than expected. " +
			"I'm escalating this to our engineering team to investigate " +
			"and resolve the issue. They'll follow up within " + sla + "." + ref
	default:
		return "I want to make sure you get the most accurate help on this. " +
			"I'm connecting you with a specialist on our team who will " +
			"follow up within " + sla + "." + ref
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
