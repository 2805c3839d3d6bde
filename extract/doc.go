// Package extract turns raw catalog markup into raw item and detail records,
// consulting the selector registry for every field it pulls.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-catalog-sync/selectors"
)

// Document adapts a goquery selection to the registry's Queryable interface.
// A Document may be scoped to a fragment, such as one listing entry.
type Document struct {
	sel *goquery.Selection
}

// NewDocument parses markup into a queryable document.
func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &Document{sel: doc.Selection}, nil
}

// ParseDocument parses a markup string; a convenience for tests and callers
// holding the page in memory.
func ParseDocument(markup string) (*Document, error) {
	return NewDocument(strings.NewReader(markup))
}

// Text returns the trimmed text of the first node matching query.
func (d *Document) Text(query string) string {
	return strings.TrimSpace(d.sel.Find(query).First().Text())
}

// Attr returns an attribute of the first node matching query.
func (d *Document) Attr(query, attr string) (string, bool) {
	return d.sel.Find(query).First().Attr(attr)
}

// Exists reports whether any node matches query.
func (d *Document) Exists(query string) bool {
	return d.sel.Find(query).Length() > 0
}

// Each calls fn with a scoped Document for every node matching query.
func (d *Document) Each(query string, fn func(*Document)) {
	d.sel.Find(query).Each(func(_ int, s *goquery.Selection) {
		fn(&Document{sel: s})
	})
}

// Count returns the number of nodes matching query.
func (d *Document) Count(query string) int {
	return d.sel.Find(query).Length()
}

// Texts returns the trimmed, non-empty texts of all nodes matching query.
func (d *Document) Texts(query string) []string {
	var out []string
	d.sel.Find(query).Each(func(_ int, s *goquery.Selection) {
		if text := selectors.NormalizeWhitespace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// Attrs returns the non-empty values of attr across all nodes matching query.
func (d *Document) Attrs(query, attr string) []string {
	var out []string
	d.sel.Find(query).Each(func(_ int, s *goquery.Selection) {
		if value, ok := s.Attr(attr); ok {
			if value = strings.TrimSpace(value); value != "" {
				out = append(out, value)
			}
		}
	})
	return out
}

var _ selectors.Queryable = (*Document)(nil)
