package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeEnrichment()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if value, ok := os.LookupEnv("NOTEBOOK_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = value
	}
	var err error
	if c.Paths.DataDir, err = ExpandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryAttempts == 0 {
		c.LLM.RetryAttempts = defaultLLMRetryAttempts
	}
}

func (c *Config) normalizeEnrichment() {
	defaults := Default().Enrichment
	if c.Enrichment.CallTimeoutSeconds == 0 {
		c.Enrichment.CallTimeoutSeconds = defaults.CallTimeoutSeconds
	}
	normalizeField(&c.Enrichment.Summary, defaults.Summary)
	normalizeField(&c.Enrichment.Tags, defaults.Tags)
	normalizeField(&c.Enrichment.Category, defaults.Category)
}

func normalizeField(f *FieldVersion, fallback FieldVersion) {
	if f.SchemaVersion == 0 {
		f.SchemaVersion = fallback.SchemaVersion
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
