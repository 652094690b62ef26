package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"

	"convocoach/internal/analysis"
	"convocoach/internal/audit"
	"convocoach/internal/catalog"
	"convocoach/internal/config"
	"convocoach/internal/enrichment"
	"convocoach/internal/logging"
	"convocoach/internal/objectstore"
	"convocoach/internal/pipeline"
	"convocoach/internal/registry"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	format := cfg.Logging.Format
	if !stdoutIsTerminal() {
		format = "json"
	}
	return logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           format,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// withPipeline opens every pipeline collaborator, holds the data-directory
// lock for the duration of fn, and tears everything down afterwards. The lock
// serializes pipeline invocations across processes; read-only commands go
// through withRegistry instead and never contend for it.
func (c *commandContext) withPipeline(fn func(*config.Config, *pipeline.Pipeline) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "convocoach.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire data lock: %w", err)
	}
	if !ok {
		return errors.New("another convocoach invocation is already writing; retry once it finishes")
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}

	registryStore, err := registry.Open(cfg)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer registryStore.Close()

	enrichmentStore, err := enrichment.Open(cfg)
	if err != nil {
		return fmt.Errorf("open enrichment store: %w", err)
	}
	defer enrichmentStore.Close()

	artifacts, err := objectstore.NewLocal(cfg.Paths.ArtifactRoot)
	if err != nil {
		return fmt.Errorf("open artifact root: %w", err)
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	sink, err := audit.NewFileSink(filepath.Join(cfg.Paths.LogDir, "audit.log"))
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer sink.Close()

	var provider analysis.Provider = analysis.Noop{}
	if cfg.Analysis.Enabled {
		provider = analysis.NewClient(cfg.Analysis)
	}

	p, err := pipeline.New(pipeline.Deps{
		Registry:   registryStore,
		Enrichment: enrichmentStore,
		Artifacts:  artifacts,
		Provider:   provider,
		Catalog:    cat,
		Audit:      sink,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	return fn(cfg, p)
}

// withRegistry opens just the stores for read-only inspection commands.
func (c *commandContext) withRegistry(fn func(*config.Config, *registry.Store, *enrichment.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	registryStore, err := registry.Open(cfg)
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	defer registryStore.Close()

	enrichmentStore, err := enrichment.Open(cfg)
	if err != nil {
		return fmt.Errorf("open enrichment store: %w", err)
	}
	defer enrichmentStore.Close()

	return fn(cfg, registryStore, enrichmentStore)
}

func (c *commandContext) loadCatalog() (*catalog.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Load(cfg.Catalog.Path)
}
