package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pbaille/notebook/internal/api"
	"github.com/pbaille/notebook/internal/config"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/fetcher"
	"github.com/pbaille/notebook/internal/llm"
	"github.com/pbaille/notebook/internal/logging"
	"github.com/pbaille/notebook/internal/metrics"
	"github.com/pbaille/notebook/internal/search"
	"github.com/pbaille/notebook/internal/store"
)

// commandContext lazily opens what a command needs and closes it afterwards.
type commandContext struct {
	configFlag  *string
	dataDirFlag *string
	jsonFlag    *bool

	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	index   *search.Index
	metrics *metrics.Recorder
	nb      *api.Notebook
}

func newCommandContext(configFlag, dataDirFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, dataDirFlag: dataDirFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dir := strings.TrimSpace(*c.dataDirFlag); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.Paths.DataDir = expanded
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	c.logger = logger
	return cfg, nil
}

// notebook opens the store, search index and enrichment service. A search
// index that cannot be opened is reported and skipped.
func (c *commandContext) notebook() (*api.Notebook, error) {
	if c.nb != nil {
		return c.nb, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	c.store = st
	c.metrics = metrics.New()

	gateway := llm.NewClient(cfg.GatewayConfig(), llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts))
	opts := []enrich.Option{
		enrich.WithLogger(c.logger),
		enrich.WithMetrics(c.metrics),
	}

	nb := &api.Notebook{Store: st, Fetch: fetcher.Fetch, Logger: c.logger}
	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		c.logger.Warn("search index unavailable", logging.Error(err))
	} else {
		c.index = idx
		nb.Index = idx
		opts = append(opts, enrich.WithInvalidator(idx))
	}
	nb.Enricher = enrich.New(st, gateway, cfg.EnrichConfig(), opts...)

	c.nb = nb
	return nb, nil
}

func (c *commandContext) close() {
	if c.index != nil {
		if err := c.index.Close(); err != nil && c.logger != nil {
			c.logger.Warn("close search index", logging.Error(err))
		}
		c.index = nil
	}
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
	c.nb = nil
}
