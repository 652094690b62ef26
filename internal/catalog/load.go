package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type matcherFile struct {
	Matchers []matcherEntry `toml:"matcher"`
}

type matcherEntry struct {
	ID          string   `toml:"id"`
	DisplayName string   `toml:"display_name"`
	Phrases     []string `toml:"phrases"`
}

// LoadFile reads a matcher catalog from a TOML file. The file fully replaces
// the built-in catalog; operators who want the defaults plus extras copy the
// defaults into their file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var parsed matcherFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	matchers := make([]Matcher, 0, len(parsed.Matchers))
	for _, entry := range parsed.Matchers {
		matchers = append(matchers, Matcher{
			ID:          entry.ID,
			DisplayName: entry.DisplayName,
			Phrases:     entry.Phrases,
		})
	}
	cat, err := New(matchers)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return cat, nil
}

// Load returns the catalog for the given override path, falling back to the
// built-in catalog when the path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	return LoadFile(path)
}
