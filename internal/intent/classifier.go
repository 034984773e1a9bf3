// Package intent classifies inbound support messages into a single intent
// label using ordered tables of compiled patterns.
package intent

import (
	"regexp"
	"strings"
)

// Fallback labels returned when no category (or no clear category) matches.
const (
	GeneralInquiry = "general_inquiry"
	Greeting       = "greeting"
	Unclear        = "unclear"
	Spam           = "spam"
)

// category pairs an intent label with its match patterns. The table order is
// part of the contract: when two categories tie on match count, the one
// declared first wins.
type category struct {
	label    string
	patterns []*regexp.Regexp
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// Classifier matches messages against the intent category table.
// Safe for concurrent use; patterns are compiled once at construction.
type Classifier struct {
	categories []category
}

// New returns a Classifier with the standard support-intent table.
func New() *Classifier {
	return &Classifier{categories: []category{
		{"password_reset", compile(
			`\bpassword\b`, `\blogin\b`, `\blog\s*in\b`, `\blocked\s*out\b`,
			`\b2fa\b`, `\bcredentials\b`, `\bsign\s*in\b`,
		)},
		{"integration_issue", compile(
			`\bslack\b`, `\bgithub\b`, `\bgoogle\s*(drive|calendar)\b`,
			`\bzapier\b`, `\bteams\b`, `\bintegration\b`, `\bokta\b`,
			`\bsaml\b`, `\bsso\b`,
		)},
		{"sync_problem", compile(
			`\bsync\b`, `\bnot\s*(updating|showing|appearing|syncing)\b`,
			`\boffline\b`,
		)},
		{"billing_inquiry", compile(
			`\bbilling\b`, `\bcharged?\b`, `\brefund\b`, `\bpric(e|ing)\b`,
			`\bplan\b`, `\bsubscription\b`, `\binvoice\b`, `\bpayment\b`,
			`\bdiscount\b`, `\bcost\b`,
		)},
		{"how_to", compile(
			`\bhow\s*(do|to|can)\b`, `\bwhere\s*(do|is|can)\b`,
			`\bset\s*up\b`, `\bcreate\b`, `\bimport\b`, `\bexport\b`,
			`\bwalk\s*me\s*through\b`, `\bstep[\s-]*by[\s-]*step\b`,
			`\bconfigure\b`, `\benable\b`,
		)},
		{"bug_report", compile(
			`\bbug\b`, `\bnot\s*working\b`, `\bbroken\b`, `\bcrash(ing|es)?\b`,
			`\berror\b`, `\bfailing\b`, `\bstuck\b`, `\bglitch\b`,
			`\bnon.?functional\b`,
		)},
		{"feature_request", compile(
			`\bfeature\s*request\b`, `\bwould\s*be\s*(great|nice|amazing)\b`,
			`\bcan\s*you\s*add\b`, `\bdark\s*mode\b`, `\bplease\s*add\b`,
			`\bsuggestion\b`,
		)},
		{"data_concern", compile(
			`\bgdpr\b`, `\bdata\s*(deletion|export|residency|retention)\b`,
			`\bsoc\s*2\b`, `\bcompliance\b`, `\bdpa\b`, `\bdata\s*location\b`,
		)},
		{"notification_issue", compile(
			`\bnotification\b`, `\balert\b`, `\bemail\s*notification\b`,
			`\bpush\s*notification\b`,
		)},
		{"mobile_issue", compile(
			`\bapp\b.*\b(crash|not\s*working|slow|crashing)\b`,
			`\bmobile\b`, `\biphone\b`, `\bandroid\b`, `\bios\b`,
		)},
		{Greeting, compile(
			`^[\s]*(hi|hello|hey|good\s*(morning|afternoon|evening))[\s!.,]*$`,
		)},
		{Unclear, compile(
			`^.{0,5}$`,
		)},
		{Spam, compile(
			`(buy\s*cheap|click\s*now|limited\s*time\s*offer|guaranteed.*returns)`,
			`(www\s*dot|\.biz|tempmail)`,
		)},
	}}
}

// Classify returns the intent label whose patterns match the message most
// often. Ties go to the first-declared category. Messages matching nothing
// classify as general_inquiry. If at least two spam patterns match, spam
// overrides any other winner.
func (c *Classifier) Classify(message string) string {
	message = strings.TrimSpace(message)

	best := ""
	bestScore := 0
	spamScore := 0

	for _, cat := range c.categories {
		score := 0
		for _, p := range cat.patterns {
			if p.MatchString(message) {
				score++
			}
		}
		if cat.label == Spam {
			spamScore = score
		}
		if score > bestScore {
			best = cat.label
			bestScore = score
		}
	}

	if bestScore == 0 {
		return GeneralInquiry
	}
	if spamScore >= 2 {
		return Spam
	}
	return best
}

// LowValue reports whether a label carries no topical information worth
// recording in conversation history.
func LowValue(label string) bool {
	switch label {
	case Greeting, Unclear, Spam, GeneralInquiry:
		return true
	}
	return false
}
