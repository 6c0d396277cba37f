package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. The API key is checked
// lazily by the gateway so that commands without model calls still work.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateLLM() error {
	u, err := url.Parse(c.LLM.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("llm.base_url %q is not an absolute URL", c.LLM.BaseURL)
	}
	if c.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be positive")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.RetryAttempts < 0 {
		return errors.New("llm.retry_attempts must be positive")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.CallTimeoutSeconds < 0 {
		return errors.New("enrichment.call_timeout_seconds must be positive")
	}
	fields := map[string]FieldVersion{
		"summary":  c.Enrichment.Summary,
		"tags":     c.Enrichment.Tags,
		"category": c.Enrichment.Category,
	}
	for name, f := range fields {
		if f.SchemaVersion < 1 {
			return fmt.Errorf("enrichment.%s.schema_version must be at least 1", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
