// Package kb loads product documentation into titled sections and serves
// TF-IDF scored retrieval over them.
package kb

import (
	"regexp"
	"strings"
)

// Section is one retrievable unit of documentation: a markdown heading with
// its body, or a whole PDF document.
type Section struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Category     string `json:"category"` // enclosing level-2 heading, or "General"
	Source       string `json:"source"`   // e.g. "product-docs.md#task-management"
	WordCount    int    `json:"word_count"`
	HeadingLevel int    `json:"heading_level"`
}

// Full returns the section as heading plus body, the form handed to answer
// composition.
func (s Section) Full() string {
	prefix := strings.Repeat("#", s.HeadingLevel)
	if prefix == "" {
		prefix = "##"
	}
	return prefix + " " + s.Title + "\n" + s.Body
}

var (
	headingRe = regexp.MustCompile(`^(#{2,3})\s+(.+)$`)
	slugRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// ParseMarkdown splits a markdown document into sections on level-2 and
// level-3 headings. The top-level title, the Table of Contents, and sections
// with empty bodies are dropped. Level-3 sections inherit their enclosing
// level-2 heading as category.
func ParseMarkdown(text, source string) []Section {
	var (
		sections  []Section
		currentH2 string
		title     string
		level     int
		body      []string
	)

	flush := func() {
		if title == "" || title == "Table of Contents" {
			return
		}
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content == "" {
			return
		}
		category := currentH2
		if category == "" {
			category = "General"
		}
		sections = append(sections, Section{
			Title:        title,
			Body:         content,
			Category:     category,
			Source:       source + "#" + slugify(title),
			WordCount:    len(strings.Fields(content)),
			HeadingLevel: level,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		m := headingRe.FindStringSubmatch(line)
		if m == nil {
			body = append(body, line)
			continue
		}
		flush()
		level = len(m[1])
		title = strings.TrimSpace(m[2])
		if level == 2 {
			currentH2 = title
		}
		body = body[:0]
	}
	flush()

	return sections
}

func slugify(title string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
}
