package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/pbaille/notebook/internal/classifier"
	"github.com/pbaille/notebook/internal/enrich"
	"github.com/pbaille/notebook/internal/llm"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the data directory and bind address.
type Paths struct {
	DataDir string `toml:"data_dir"`
	APIBind string `toml:"api_bind"`
}

// LLM contains the model gateway connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryAttempts  int    `toml:"retry_attempts"`
}

// FieldVersion is the configurable part of a derived field's provenance.
// Prompt versions follow the prompt text and are not configurable.
type FieldVersion struct {
	SchemaVersion int `toml:"schema_version"`
}

// Enrichment contains per-field provenance and the model call budget.
type Enrichment struct {
	CallTimeoutSeconds int          `toml:"call_timeout_seconds"`
	Summary            FieldVersion `toml:"summary"`
	Tags               FieldVersion `toml:"tags"`
	Category           FieldVersion `toml:"category"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for notebook.
type Config struct {
	Paths      Paths      `toml:"paths"`
	LLM        LLM        `toml:"llm"`
	Enrichment Enrichment `toml:"enrichment"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. A missing file
// is not an error: defaults apply and exists is false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// EnsureDirectories creates the data directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.DataDir, err)
	}
	return nil
}

// DBPath is the SQLite database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.Paths.DataDir, "notebook.db")
}

// IndexPath is the search index directory.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.DataDir, "index.bleve")
}

// GatewayConfig returns the model gateway settings.
func (c *Config) GatewayConfig() llm.Config {
	return llm.Config{
		APIKey:         c.LLM.APIKey,
		BaseURL:        c.LLM.BaseURL,
		Model:          c.LLM.Model,
		MaxTokens:      c.LLM.MaxTokens,
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// EnrichConfig returns the provenance and timeout settings of the
// enrichment service.
func (c *Config) EnrichConfig() enrich.Config {
	field := func(f FieldVersion, promptVersion string) enrich.FieldVersion {
		return enrich.FieldVersion{SchemaVersion: f.SchemaVersion, PromptVersion: promptVersion}
	}
	return enrich.Config{
		Model:       c.LLM.Model,
		Summary:     field(c.Enrichment.Summary, classifier.SummaryPromptVersion),
		Tags:        field(c.Enrichment.Tags, classifier.TagsPromptVersion),
		Category:    field(c.Enrichment.Category, classifier.CategoryPromptVersion),
		CallTimeout: time.Duration(c.Enrichment.CallTimeoutSeconds) * time.Second,
	}
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
