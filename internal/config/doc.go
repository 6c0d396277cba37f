// Package config loads the notebook TOML configuration, applies defaults and
// environment fallbacks, and validates the result.
//
// A missing config file is not an error; every value has a default, and the
// API key may come from ANTHROPIC_API_KEY. Use CreateSample to write an
// annotated starting point.
package config
