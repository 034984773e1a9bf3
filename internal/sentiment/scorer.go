// Package sentiment scores free text on a -1.0 (very negative) to 1.0
// (very positive) polarity scale using weighted lexicon lookups with
// negation and intensifier handling.
package sentiment

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

const (
	// allCapsMinLetters is the minimum alphabetic length before an
	// all-uppercase message counts as an anger signal.
	allCapsMinLetters = 15
	// allCapsNegativeBoost is added to the negative accumulator on an
	// all-caps message.
	allCapsNegativeBoost = 5.0
	// negatedPositiveFactor: "not good" reads as mildly negative.
	negatedPositiveFactor = 0.5
	// negatedNegativeFactor: "not broken" reads as mildly positive.
	negatedNegativeFactor = 0.3
)

var wordPattern = regexp.MustCompile(`[a-z']+`)

// Scorer computes lexicon-weighted polarity scores. The zero value is not
// usable; construct with New. A Scorer is stateless and safe for concurrent
// use.
type Scorer struct{}

// New returns a Scorer backed by the package lexicons.
func New() *Scorer {
	return &Scorer{}
}

// Score returns a sentiment score in [-1, 1]. Empty or near-empty input
// scores 0.0 (neutral); malformed input never fails.
func (s *Scorer) Score(text string) float64 {
	if len(strings.TrimSpace(text)) < 2 {
		return 0
	}

	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return 0
	}

	var pos, neg float64
	var prev, prevPrev string

	for _, word := range words {
		multiplier := 1.0
		if factor, ok := intensifiers[prev]; ok {
			multiplier = factor
		}

		// A token is negated when the preceding word (or the one before
		// it) negates, or the preceding word carries a contraction
		// negation like "doesn't".
		_, prevNegates := negationWords[prev]
		_, prevPrevNegates := negationWords[prevPrev]
		negated := prevNegates || strings.HasSuffix(prev, "n't") || prevPrevNegates

		if weight, ok := positiveWords[word]; ok {
			w := weight * multiplier
			if negated {
				neg += w * negatedPositiveFactor
			} else {
				pos += w
			}
		}

		if weight, ok := negativeWords[word]; ok {
			w := weight * multiplier
			if negated {
				pos += w * negatedNegativeFactor
			} else {
				neg += w
			}
		}

		prevPrev = prev
		prev = word
	}

	if isShouting(text) {
		neg += allCapsNegativeBoost
	}

	// Three or more exclamation marks amplify whichever polarity leads.
	if strings.Count(text, "!") >= 3 {
		switch {
		case neg > pos:
			neg *= 1.3
		case pos > neg:
			pos *= 1.2
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}

	raw := (pos - neg) / total
	return math.Round(math.Max(-1, math.Min(1, raw))*100) / 100
}

// isShouting reports whether the alphabetic content of text is long enough
// and entirely uppercase.
func isShouting(text string) bool {
	var letters []rune
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) <= allCapsMinLetters {
		return false
	}
	for _, r := range letters {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}
