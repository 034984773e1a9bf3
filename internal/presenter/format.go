package presenter

import "strings"

// whatsAppMaxChars is the delivery budget for WhatsApp replies.
const whatsAppMaxChars = 280

// Reply carries everything a channel template needs.
type Reply struct {
	Channel      string
	CustomerName string
	Body         string
	TicketRef    string
	Escalated    bool
	Sentiment    float64
}

// Render formats a reply body for its delivery channel. Unknown channels get
// the body back unchanged.
func Render(r Reply) string {
	name := r.CustomerName
	if name == "" || name == "Unknown" {
		name = "there"
	}

	switch r.Channel {
	case ChannelEmail:
		return renderEmail(r, name)
	case ChannelWhatsApp:
		return renderWhatsApp(r, name)
	case ChannelWebForm:
		return renderWebForm(r, name)
	default:
		return r.Body
	}
}

func renderEmail(r Reply, name string) string {
	empathy := dedupeEmpathy(EmpathyPhrase(ChannelEmail, r.Escalated, r.Sentiment), r.Body)

	ref := ""
	if r.TicketRef != "" {
		ref = "\n\nReference: " + r.TicketRef
	}
	return "Dear " + name + ",\n\n" + empathy + r.Body + ref +
		"\n\nBest regards,\nTaskFlow Support Team\nsupport@techcorp.io"
}

func renderWhatsApp(r Reply, name string) string {
	if r.Escalated {
		if r.Sentiment < -0.3 {
			return "Hi " + name + ", I completely understand your frustration " +
				"and I'm sorry for the trouble. I'm connecting you with our " +
				"support team right now. They'll follow up shortly."
		}
		return "Hi " + name + "! I'm connecting you with our support team " +
			"right now. They'll follow up shortly. Is there anything " +
			"quick I can help with in the meantime?"
	}
	return "Hi " + name + "!\n\n" + Truncate(r.Body, whatsAppMaxChars)
}

func renderWebForm(r Reply, name string) string {
	ticket := ""
	if r.TicketRef != "" {
		ticket = "\n\n**Ticket ID:** " + r.TicketRef
	}
	empathy := dedupeEmpathy(EmpathyPhrase(ChannelWebForm, r.Escalated, r.Sentiment), r.Body)

	return "Hi " + name + ",\n\n" +
		"Thank you for contacting TaskFlow Support. We've received your request." +
		ticket + "\n\n" + empathy + r.Body +
		"\n\nIf you need further assistance, you can reply to this message " +
		"or reach us at support@techcorp.io.\n\n-- TaskFlow Support Team"
}

// dedupeEmpathy drops the opener when the body already says the same thing.
func dedupeEmpathy(phrase, body string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(phrase), ". ")
	if trimmed != "" && strings.Contains(body, trimmed) {
		return ""
	}
	return phrase
}
