// Package catalog holds the phrase matcher definitions evaluated against
// transcripts.
//
// A Catalog is immutable once constructed: it is loaded at startup, shared
// process-wide, and read concurrently without locking. The Version string is
// a content hash over every matcher, so audit entries and enrichment rows can
// record exactly which rule set produced them.
package catalog

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Matcher is a named set of phrases evaluated together against turn text.
// A matcher fires on a turn when any one of its phrases is a case-insensitive
// substring of the turn's text.
type Matcher struct {
	ID          string
	DisplayName string
	Phrases     []string
}

// Catalog is an ordered, immutable collection of matchers. Matcher order and
// phrase order are significant: the match engine reports results in
// registration order.
type Catalog struct {
	matchers []Matcher
	version  string
}

// New validates the matcher definitions and builds a catalog.
func New(matchers []Matcher) (*Catalog, error) {
	if len(matchers) == 0 {
		return nil, fmt.Errorf("catalog: at least one matcher is required")
	}
	seen := make(map[string]struct{}, len(matchers))
	cleaned := make([]Matcher, 0, len(matchers))
	for _, m := range matchers {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("catalog: matcher with empty id")
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("catalog: duplicate matcher id %q", id)
		}
		seen[id] = struct{}{}

		display := strings.TrimSpace(m.DisplayName)
		if display == "" {
			return nil, fmt.Errorf("catalog: matcher %q has empty display name", id)
		}
		if len(m.Phrases) == 0 {
			return nil, fmt.Errorf("catalog: matcher %q has no phrases", id)
		}
		phrases := make([]string, 0, len(m.Phrases))
		for _, p := range m.Phrases {
			p = strings.TrimSpace(p)
			if p == "" {
				return nil, fmt.Errorf("catalog: matcher %q has an empty phrase", id)
			}
			phrases = append(phrases, p)
		}
		cleaned = append(cleaned, Matcher{ID: id, DisplayName: display, Phrases: phrases})
	}

	return &Catalog{matchers: cleaned, version: computeVersion(cleaned)}, nil
}

// Matchers returns the matchers in registration order. The returned slice is
// a copy; the catalog itself never changes after construction.
func (c *Catalog) Matchers() []Matcher {
	out := make([]Matcher, len(c.matchers))
	copy(out, c.matchers)
	return out
}

// Len returns the number of matchers.
func (c *Catalog) Len() int {
	return len(c.matchers)
}

// Version returns the content hash identifying this rule set.
func (c *Catalog) Version() string {
	return c.version
}

func computeVersion(matchers []Matcher) string {
	h := fnv.New64a()
	for _, m := range matchers {
		h.Write([]byte(m.ID))
		h.Write([]byte{0})
		h.Write([]byte(m.DisplayName))
		h.Write([]byte{0})
		for _, p := range m.Phrases {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
		h.Write([]byte{1})
	}
	return fmt.Sprintf("v%016x", h.Sum64())
}
