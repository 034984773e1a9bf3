// Package presenter renders decision-core output for delivery channels:
// empathy phrasing, channel templates, and length-bounded truncation.
package presenter

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContinuationPrompt is appended whenever a reply had to be shortened.
const ContinuationPrompt = "Want me to explain more?"

// suffixReserve keeps room for the ellipsis and prompt when the word-level
// fallback kicks in.
const suffixReserve = 25

// Truncate shortens text to roughly maxChars without breaking mid-sentence,
// mid-word, or after a numbered list marker like "2.". Chunks are packed
// greedily and joined by newlines; a shortened result carries the
// continuation prompt. Lengths count runes, not bytes.
func Truncate(text string, maxChars int) string {
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	var kept []string
	length := 0
	for _, chunk := range chunks(text) {
		n := length + utf8.RuneCountInString(chunk)
		if length > 0 {
			n++ // joining newline
		}
		if n > maxChars {
			break
		}
		kept = append(kept, chunk)
		length = n
	}
	if len(kept) > 0 {
		out := strings.Join(kept, "\n")
		if out != text {
			out += "\n\n" + ContinuationPrompt
		}
		return out
	}

	// The first chunk alone blows the budget: pack whole words instead,
	// reserving room for the suffix.
	var words []string
	length = 0
	for _, w := range strings.Fields(text) {
		n := length + utf8.RuneCountInString(w)
		if length > 0 {
			n++
		}
		if n > maxChars-suffixReserve {
			break
		}
		words = append(words, w)
		length = n
	}
	if len(words) > 0 {
		return strings.Join(words, " ") + "...\n\n" + ContinuationPrompt
	}

	return string([]rune(text)[:maxChars])
}

// chunks splits text into sentence- and line-sized pieces. A sentence
// boundary is a whitespace run preceded by ".", "!" or "?", except when the
// period terminates a number ("2.", "15."), which keeps list markers glued
// to their items.
func chunks(text string) []string {
	var out []string
	for _, sentence := range splitSentences(text) {
		for _, part := range strings.Split(sentence, "\n") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func splitSentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	i := 0
	for i < len(runes) {
		if !unicode.IsSpace(runes[i]) || i == start {
			i++
			continue
		}
		prev := runes[i-1]
		boundary := prev == '!' || prev == '?' ||
			(prev == '.' && !(i >= 2 && unicode.IsDigit(runes[i-2])))
		if !boundary {
			i++
			continue
		}
		out = append(out, string(runes[start:i]))
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start = i
	}
	if start < len(runes) {
		out = append(out, string(runes[start:]))
	}
	return out
}
