package kb

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// LoadDir reads every .md and .pdf file under dir (non-recursive) and parses
// each into sections. Files parse concurrently with bounded parallelism; the
// returned sections keep a deterministic order by file name.
func LoadDir(ctx context.Context, dir string) ([]Section, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".pdf":
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	perFile := make([][]Section, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency; PDF extraction is the heavy case.

	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			sections, err := loadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", name, err)
			}
			perFile[i] = sections
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Section
	for _, sections := range perFile {
		all = append(all, sections...)
	}
	return all, nil
}

func loadFile(path string) ([]Section, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return loadPDF(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMarkdown(string(raw), filepath.Base(path)), nil
}

// loadPDF extracts a PDF's plain text as a single section. PDFs carry no
// usable heading structure, so the file name stands in as the title.
func loadPDF(path string) ([]Section, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(content); err != nil {
		return nil, fmt.Errorf("reading pdf text: %w", err)
	}

	body := strings.TrimSpace(buf.String())
	if body == "" {
		return nil, nil
	}

	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	return []Section{{
		Title:        title,
		Body:         body,
		Category:     "General",
		Source:       name,
		WordCount:    len(strings.Fields(body)),
		HeadingLevel: 2,
	}}, nil
}
