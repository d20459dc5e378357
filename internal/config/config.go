// Package config provides centralized configuration for the loader.
// Values come from environment variables with sensible defaults; flags may
// override individual values after loading, so presence checks live in
// Validate rather than in Load.
package config

import "time"

// Config holds all loader configuration.
type Config struct {
	CKAN    CKANConfig
	Loader  LoaderConfig
	Logging LoggingConfig
}

// CKANConfig identifies the CKAN instance and the credential used for
// datastore writes.
type CKANConfig struct {
	// BaseURL is the CKAN root, e.g. "https://demo.ckan.org" (required)
	BaseURL string `env:"CKAN_BASE_URL"`

	// APIKey authorizes datastore modifications (required)
	APIKey string `env:"CKAN_API_KEY" envAlt:"CKAN_APIKEY"`

	// RequestTimeout bounds each action API call (default: 30s)
	RequestTimeout time.Duration `env:"CKAN_REQUEST_TIMEOUT" default:"30s"`
}

// LoaderConfig tunes the resolve and upload pipeline.
type LoaderConfig struct {
	// BatchSize is the number of records per datastore insert (default: 1024)
	BatchSize int `env:"LOADER_BATCH_SIZE" default:"1024"`

	// SampleRows is how many leading rows feed header and type guessing (default: 100)
	SampleRows int `env:"LOADER_SAMPLE_ROWS" default:"100"`

	// FetchTimeout bounds the resource file download (default: 5m)
	FetchTimeout time.Duration `env:"LOADER_FETCH_TIMEOUT" default:"5m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: "info")
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log output format: text or json (default: "text")
	Format string `env:"LOG_FORMAT" default:"text"`
}
