// Package escalation decides whether a support message needs a human,
// combining mandatory and advisory rule matches with sentiment and
// customer-context signals into a single decision with a reason trail.
package escalation

import (
	"fmt"
	"strings"
	"unicode"
)

// Sentiment thresholds on the [-1, 1] scale.
const (
	sentimentEscalateThreshold = -0.3 // very negative
	sentimentFlagThreshold     = -0.1 // mildly negative
)

// allCapsMinLetters mirrors the sentiment scorer's anger-signal cutoff.
const allCapsMinLetters = 15

// Decision is the outcome of a policy evaluation. ConfidencePenalty is the
// MAXIMUM across all triggered signals, never a sum, so one strong signal is
// not diluted by several weak ones.
type Decision struct {
	ShouldEscalate    bool
	Reasons           []string
	ConfidencePenalty float64
}

// Reason joins the trail into a single human-readable string in trigger order.
func (d Decision) Reason() string {
	return strings.Join(d.Reasons, "; ")
}

// Policy evaluates escalation rules. Stateless; safe for concurrent use.
type Policy struct{}

// New returns a Policy backed by the package rule tables.
func New() *Policy {
	return &Policy{}
}

// Evaluate combines rule matches on message+subject, the detected sentiment,
// and the customer's plan/priority context. One match per rule category is
// enough; further patterns in the same category are skipped.
func (p *Policy) Evaluate(message, subject string, sentiment float64, plan, priority string) Decision {
	text := message + " " + subject

	var d Decision
	mandatoryMatched := false
	advisoryMatched := false

	for _, group := range mandatoryRules {
		for _, pat := range group.patterns {
			if pat.MatchString(text) {
				d.Reasons = append(d.Reasons, "ALWAYS_ESCALATE: "+group.category)
				d.ConfidencePenalty = max(d.ConfidencePenalty, 0.4)
				mandatoryMatched = true
				break
			}
		}
	}

	for _, group := range advisoryRules {
		for _, pat := range group.patterns {
			if pat.MatchString(text) {
				d.Reasons = append(d.Reasons, "LIKELY_ESCALATE: "+group.category)
				d.ConfidencePenalty = max(d.ConfidencePenalty, 0.25)
				advisoryMatched = true
				break
			}
		}
	}

	switch {
	case sentiment <= sentimentEscalateThreshold:
		d.Reasons = append(d.Reasons, fmt.Sprintf("SENTIMENT: very negative (%.2f)", sentiment))
		d.ConfidencePenalty = max(d.ConfidencePenalty, 0.3)
	case sentiment <= sentimentFlagThreshold:
		d.Reasons = append(d.Reasons, fmt.Sprintf("SENTIMENT: negative (%.2f), flag for review", sentiment))
		d.ConfidencePenalty = max(d.ConfidencePenalty, 0.1)
	}

	// The all-caps check runs on the message alone, not the subject.
	if isAllCaps(message) {
		d.Reasons = append(d.Reasons, "ANGER_SIGNAL: message is ALL CAPS")
		d.ConfidencePenalty = max(d.ConfidencePenalty, 0.35)
	}

	// Enterprise + critical is only a signal when no mandatory rule already
	// fired; otherwise it would double-count the same escalation.
	if plan == "enterprise" && priority == "critical" && !mandatoryMatched {
		d.Reasons = append(d.Reasons, "CONTEXT: enterprise customer + critical priority")
		d.ConfidencePenalty = max(d.ConfidencePenalty, 0.2)
	}

	d.ShouldEscalate = mandatoryMatched ||
		(advisoryMatched && d.ConfidencePenalty >= 0.2) ||
		(len(d.Reasons) >= 2 && d.ConfidencePenalty >= 0.2)

	return d
}

func isAllCaps(text string) bool {
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters > allCapsMinLetters
}
