package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// loaderEnvVars is every variable Load consults, for test hygiene.
var loaderEnvVars = []string{
	"CKAN_BASE_URL",
	"CKAN_API_KEY",
	"CKAN_APIKEY",
	"CKAN_REQUEST_TIMEOUT",
	"LOADER_BATCH_SIZE",
	"LOADER_SAMPLE_ROWS",
	"LOADER_FETCH_TIMEOUT",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

func clearEnv() {
	for _, name := range loaderEnvVars {
		os.Unsetenv(name)
	}
}

func validConfig() *Config {
	return &Config{
		CKAN: CKANConfig{
			BaseURL:        "https://demo.ckan.org",
			APIKey:         "test-key",
			RequestTimeout: 30 * time.Second,
		},
		Loader: LoaderConfig{
			BatchSize:    1024,
			SampleRows:   100,
			FetchTimeout: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify defaults
	if cfg.CKAN.RequestTimeout != 30*time.Second {
		t.Errorf("CKAN.RequestTimeout = %v, want %v", cfg.CKAN.RequestTimeout, 30*time.Second)
	}
	if cfg.Loader.BatchSize != 1024 {
		t.Errorf("Loader.BatchSize = %d, want %d", cfg.Loader.BatchSize, 1024)
	}
	if cfg.Loader.SampleRows != 100 {
		t.Errorf("Loader.SampleRows = %d, want %d", cfg.Loader.SampleRows, 100)
	}
	if cfg.Loader.FetchTimeout != 5*time.Minute {
		t.Errorf("Loader.FetchTimeout = %v, want %v", cfg.Loader.FetchTimeout, 5*time.Minute)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "text")
	}

	// Credentials have no defaults; flags may still supply them, so Load
	// does not reject their absence.
	if cfg.CKAN.BaseURL != "" {
		t.Errorf("CKAN.BaseURL = %q, want empty", cfg.CKAN.BaseURL)
	}
	if cfg.CKAN.APIKey != "" {
		t.Errorf("CKAN.APIKey = %q, want empty", cfg.CKAN.APIKey)
	}
}

func TestLoad_OverrideDefaults(t *testing.T) {
	clearEnv()
	os.Setenv("CKAN_BASE_URL", "https://data.example.org")
	os.Setenv("LOADER_BATCH_SIZE", "64")
	os.Setenv("LOG_LEVEL", "debug")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CKAN.BaseURL != "https://data.example.org" {
		t.Errorf("CKAN.BaseURL = %q, want %q", cfg.CKAN.BaseURL, "https://data.example.org")
	}
	if cfg.Loader.BatchSize != 64 {
		t.Errorf("Loader.BatchSize = %d, want %d", cfg.Loader.BatchSize, 64)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoad_AltEnvVar(t *testing.T) {
	// CKAN_APIKEY works as a fallback spelling
	clearEnv()
	os.Setenv("CKAN_APIKEY", "alt-key")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CKAN.APIKey != "alt-key" {
		t.Errorf("CKAN.APIKey = %q, want %q", cfg.CKAN.APIKey, "alt-key")
	}
}

func TestLoad_PrimaryEnvVarWins(t *testing.T) {
	clearEnv()
	os.Setenv("CKAN_API_KEY", "primary-key")
	os.Setenv("CKAN_APIKEY", "alt-key")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CKAN.APIKey != "primary-key" {
		t.Errorf("CKAN.APIKey = %q, want %q", cfg.CKAN.APIKey, "primary-key")
	}
}

func TestLoad_Duration(t *testing.T) {
	clearEnv()
	os.Setenv("CKAN_REQUEST_TIMEOUT", "45s")
	os.Setenv("LOADER_FETCH_TIMEOUT", "1m30s")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.CKAN.RequestTimeout != 45*time.Second {
		t.Errorf("CKAN.RequestTimeout = %v, want %v", cfg.CKAN.RequestTimeout, 45*time.Second)
	}
	if cfg.Loader.FetchTimeout != 90*time.Second {
		t.Errorf("Loader.FetchTimeout = %v, want %v", cfg.Loader.FetchTimeout, 90*time.Second)
	}
}

func TestLoad_InvalidInteger(t *testing.T) {
	clearEnv()
	os.Setenv("LOADER_BATCH_SIZE", "many")
	defer clearEnv()

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for non-integer LOADER_BATCH_SIZE")
	}
	if !contains(err.Error(), "LOADER_BATCH_SIZE") {
		t.Errorf("error should mention LOADER_BATCH_SIZE: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv()
	os.Setenv("CKAN_REQUEST_TIMEOUT", "soon")
	defer clearEnv()

	_, err := Load()
	if err == nil {
		t.Fatal("Load() expected error for malformed CKAN_REQUEST_TIMEOUT")
	}
	if !contains(err.Error(), "CKAN_REQUEST_TIMEOUT") {
		t.Errorf("error should mention CKAN_REQUEST_TIMEOUT: %v", err)
	}
}

func TestValidate_Complete(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_MissingBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.CKAN.BaseURL = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing base URL")
	}
	if !contains(err.Error(), "CKAN_BASE_URL") || !contains(err.Error(), "--base-url") {
		t.Errorf("error should mention CKAN_BASE_URL and the flag alternative: %v", err)
	}
}

func TestValidate_RelativeBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.CKAN.BaseURL = "demo.ckan.org"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for a URL without a scheme")
	}
	if !contains(err.Error(), "absolute URL") {
		t.Errorf("error should mention the absolute URL requirement: %v", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.CKAN.APIKey = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for missing API key")
	}
	if !contains(err.Error(), "CKAN_API_KEY") {
		t.Errorf("error should mention CKAN_API_KEY: %v", err)
	}
}

func TestValidate_NonPositiveBatchSize(t *testing.T) {
	cfg := validConfig()
	cfg.Loader.BatchSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for zero batch size")
	}
	if !contains(err.Error(), "LOADER_BATCH_SIZE") {
		t.Errorf("error should mention LOADER_BATCH_SIZE: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for invalid log level")
	}
	if !contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("error should mention LOG_LEVEL: %v", err)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	err := (&Config{}).Validate()
	if err == nil {
		t.Fatal("Validate() expected errors for the zero config")
	}
	for _, want := range []string{"CKAN_BASE_URL", "CKAN_API_KEY", "LOADER_BATCH_SIZE", "LOG_LEVEL"} {
		if !contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestConfigString_MasksAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.CKAN.APIKey = "super-secret-key"

	str := cfg.String()
	if contains(str, "super-secret-key") {
		t.Error("String() should mask the API key")
	}
	if !contains(str, "MASKED") {
		t.Error("String() should contain MASKED placeholder")
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
