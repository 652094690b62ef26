// Package testsupport provides shared fixtures for package tests: temp-dir
// backed configurations, store helpers, and conversation artifact builders.
package testsupport

import (
	"path/filepath"
	"testing"

	"convocoach/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Analysis is disabled by default so tests never touch the network.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ArtifactRoot = filepath.Join(base, "artifacts")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAnalysis enables the analysis provider with the given key and endpoint.
func WithAnalysis(apiKey, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Analysis.Enabled = true
		b.cfg.Analysis.APIKey = apiKey
		b.cfg.Analysis.BaseURL = baseURL
	}
}

// WithCatalogPath points the config at a custom matcher catalog file.
func WithCatalogPath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.Path = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
