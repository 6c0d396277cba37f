package config

const (
	defaultConfigPath         = "~/.config/notebook/config.toml"
	defaultDataDir            = "~/.local/share/notebook"
	defaultAPIBind            = "127.0.0.1:8080"
	defaultLLMBaseURL         = "https://api.anthropic.com/v1/messages"
	defaultLLMModel           = "claude-sonnet-4-20250514"
	defaultLLMMaxTokens       = 1024
	defaultLLMTimeoutSeconds  = 30
	defaultLLMRetryAttempts   = 3
	defaultCallTimeoutSeconds = 90
	defaultSchemaVersion      = 1
	defaultLogFormat          = "auto"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			APIBind: defaultAPIBind,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryAttempts:  defaultLLMRetryAttempts,
		},
		Enrichment: Enrichment{
			CallTimeoutSeconds: defaultCallTimeoutSeconds,
			Summary:            FieldVersion{SchemaVersion: defaultSchemaVersion},
			Tags:               FieldVersion{SchemaVersion: defaultSchemaVersion},
			Category:           FieldVersion{SchemaVersion: defaultSchemaVersion},
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
