package presenter

// Delivery channels the presenter knows how to address.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelWebForm  = "web_form"
)

// Sentiment buckets for empathy selection.
const (
	bucketNegative = "negative"
	bucketPositive = "positive"
	bucketNeutral  = "neutral"
)

type empathyKey struct {
	escalated bool
	bucket    string
}

// empathyMatrix maps (escalated, sentiment bucket) to a per-channel opening
// phrase. Empty phrases are deliberate: WhatsApp stays terse unless the
// situation is escalated and sour.
var empathyMatrix = map[empathyKey]map[string]string{
	{true, bucketNegative}: {
		ChannelEmail:    "I completely understand your frustration, and I'm sorry for the trouble you've been experiencing. ",
		ChannelWhatsApp: "I completely understand your frustration and I'm sorry for the trouble. ",
		ChannelWebForm:  "I understand your concern and I want to make sure this gets the attention it deserves. ",
	},
	{true, bucketNeutral}: {
		ChannelEmail:   "Thanks for reaching out. I want to make sure you get the best help on this. ",
		ChannelWebForm: "I've reviewed your request and want to make sure you get the most accurate help. ",
	},
	{false, bucketNegative}: {
		ChannelEmail: "I understand how frustrating this must be, and I appreciate your patience. ",
	},
	{false, bucketPositive}: {
		ChannelEmail: "Thanks for reaching out! ",
	},
	{false, bucketNeutral}: {
		ChannelEmail: "Thanks for contacting TaskFlow Support! ",
	},
}

func sentimentBucket(score float64) string {
	switch {
	case score < -0.2:
		return bucketNegative
	case score > 0.3:
		return bucketPositive
	default:
		return bucketNeutral
	}
}

// EmpathyPhrase picks the opening phrase for a channel given escalation state
// and detected sentiment. Unknown combinations fall back to the neutral
// non-escalation row; unknown channels get no phrase.
func EmpathyPhrase(channel string, escalated bool, sentiment float64) string {
	phrases, ok := empathyMatrix[empathyKey{escalated, sentimentBucket(sentiment)}]
	if !ok {
		phrases = empathyMatrix[empathyKey{false, bucketNeutral}]
	}
	return phrases[channel]
}
