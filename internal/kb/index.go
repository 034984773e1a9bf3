package kb

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// ErrEmptyCorpus is returned when an index is built over zero sections.
// Serving retrieval over nothing silently answers every question with
// "no docs", so construction fails instead.
var ErrEmptyCorpus = errors.New("knowledge base corpus is empty")

var wordRe = regexp.MustCompile(`[a-z][a-z0-9]*`)

// stopwords excluded from both indexing and queries.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "i": {}, "my": {},
	"we": {}, "you": {}, "it": {}, "me": {}, "to": {}, "for": {}, "of": {},
	"in": {}, "on": {}, "and": {}, "or": {}, "but": {}, "not": {}, "how": {},
	"do": {}, "can": {}, "what": {}, "this": {}, "that": {}, "with": {},
	"from": {}, "have": {}, "has": {}, "be": {}, "was": {}, "were": {},
	"been": {}, "does": {}, "did": {}, "will": {}, "would": {}, "if": {},
	"hi": {}, "hello": {}, "hey": {}, "thanks": {}, "thank": {},
	"please": {}, "help": {}, "about": {}, "so": {}, "at": {}, "by": {},
	"as": {}, "our": {}, "your": {}, "its": {}, "all": {}, "any": {},
	"up": {}, "just": {}, "get": {}, "also": {}, "when": {}, "than": {},
	"then": {}, "into": {}, "them": {}, "more": {}, "some": {},
	"could": {}, "should": {}, "there": {}, "their": {},
}

// Tokenize lowercases text and extracts letter-led word runs, dropping
// stopwords and single-character tokens.
func Tokenize(text string) []string {
	var out []string
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

type indexedSection struct {
	section    Section
	termCounts map[string]int
	titleTerms map[string]struct{}
}

// Index is an immutable TF-IDF index over documentation sections. Safe for
// concurrent use once built.
type Index struct {
	sections []indexedSection
	docFreq  map[string]int
}

// Match pairs a section with its retrieval score.
type Match struct {
	Section Section
	Score   float64
}

// NewIndex builds an index over the given sections. Fails on an empty corpus.
func NewIndex(sections []Section) (*Index, error) {
	if len(sections) == 0 {
		return nil, ErrEmptyCorpus
	}

	idx := &Index{
		sections: make([]indexedSection, 0, len(sections)),
		docFreq:  make(map[string]int),
	}
	for _, s := range sections {
		terms := Tokenize(s.Title + " " + s.Body)
		counts := make(map[string]int, len(terms))
		for _, t := range terms {
			counts[t]++
		}
		titleTerms := make(map[string]struct{})
		for _, t := range Tokenize(s.Title) {
			titleTerms[t] = struct{}{}
		}
		for t := range counts {
			idx.docFreq[t]++
		}
		idx.sections = append(idx.sections, indexedSection{
			section:    s,
			termCounts: counts,
			titleTerms: titleTerms,
		})
	}
	return idx, nil
}

// Len reports the number of indexed sections.
func (idx *Index) Len() int { return len(idx.sections) }

// Search scores every section against the query with TF-IDF, where
// idf = ln(N/df) + 1 and a term appearing in the section title counts
// triple, and returns up to topK sections with positive scores in
// descending score order. Ties keep corpus order.
func (idx *Index) Search(query string, topK int) []Match {
	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	queryCounts := make(map[string]int, len(queryTerms))
	order := make([]string, 0, len(queryTerms))
	for _, t := range queryTerms {
		if queryCounts[t] == 0 {
			order = append(order, t)
		}
		queryCounts[t]++
	}

	n := float64(len(idx.sections))
	var matches []Match
	for _, is := range idx.sections {
		score := 0.0
		for _, term := range order {
			tf := is.termCounts[term]
			if tf == 0 {
				continue
			}
			idf := math.Log(n/float64(idx.docFreq[term])) + 1.0
			termScore := float64(tf) * idf * float64(queryCounts[term])
			if _, inTitle := is.titleTerms[term]; inTitle {
				termScore *= 3.0
			}
			score += termScore
		}
		if score > 0 {
			matches = append(matches, Match{Section: is.section, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
