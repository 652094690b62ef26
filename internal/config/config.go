package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	ArtifactRoot string `toml:"artifact_root"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Analysis contains connection settings for the analysis provider.
type Analysis struct {
	Enabled        bool   `toml:"enabled"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Catalog contains configuration for the phrase matcher catalog.
type Catalog struct {
	// Path points at an optional TOML file that replaces the built-in
	// matcher set. Empty means the compiled-in catalog is used.
	Path string `toml:"path"`
}

// Config is the root configuration consumed by the CLI and pipeline.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
	Analysis Analysis `toml:"analysis"`
	Catalog  Catalog  `toml:"catalog"`
}

// DefaultConfigPath returns the expected config file location.
func DefaultConfigPath() string {
	return "~/.config/convocoach/config.toml"
}

// Load reads configuration from path, applying defaults for missing values.
// A missing file is not an error; defaults are returned instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	resolved, err := expandPath(strings.TrimSpace(path))
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	if resolved != "" {
		data, readErr := os.ReadFile(resolved)
		switch {
		case readErr == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", resolved, err)
			}
		case errors.Is(readErr, fs.ErrNotExist):
			// fall through to defaults
		default:
			return nil, fmt.Errorf("read config %s: %w", resolved, readErr)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration errors that would break the pipeline.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir is required")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Analysis.Enabled && strings.TrimSpace(c.Analysis.APIKey) == "" {
		return errors.New("analysis.api_key is required when analysis.enabled is true")
	}
	if c.Analysis.TimeoutSeconds < 0 {
		return errors.New("analysis.timeout_seconds must not be negative")
	}
	return nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the annotated sample configuration to path.
func WriteSample(path string) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(resolved); err == nil {
		return fmt.Errorf("config file already exists: %s", resolved)
	}
	return os.WriteFile(resolved, []byte(sampleConfig), 0o644)
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ArtifactRoot, err = expandPath(c.Paths.ArtifactRoot); err != nil {
		return fmt.Errorf("paths.artifact_root: %w", err)
	}
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	if strings.TrimSpace(c.Analysis.APIKey) == "" {
		c.Analysis.APIKey = strings.TrimSpace(os.Getenv("CONVOCOACH_ANALYSIS_API_KEY"))
	}
	c.Analysis.BaseURL = strings.TrimSpace(c.Analysis.BaseURL)
	if c.Analysis.BaseURL == "" {
		c.Analysis.BaseURL = defaultAnalysisBaseURL
	}
	c.Analysis.Model = strings.TrimSpace(c.Analysis.Model)
	if c.Analysis.Model == "" {
		c.Analysis.Model = defaultAnalysisModel
	}
	if c.Analysis.TimeoutSeconds == 0 {
		c.Analysis.TimeoutSeconds = defaultAnalysisTimeoutSeconds
	}
	return nil
}

// ExpandPath resolves a leading tilde against the user's home directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return trimmed, nil
}
