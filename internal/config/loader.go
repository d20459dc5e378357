package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables, applying defaults
// for unset values. It does not validate: the CLI merges flag overrides in
// first and then calls Validate, so a credential passed only as a flag is
// not rejected here.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}
		if value == "" {
			value = defaultVal
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is complete and coherent.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// CKAN validation
	if c.CKAN.BaseURL == "" {
		errs = append(errs, "CKAN_BASE_URL is required (or pass --base-url)")
	} else if u, err := url.Parse(c.CKAN.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("CKAN_BASE_URL (%q) must be an absolute URL", c.CKAN.BaseURL))
	}
	if c.CKAN.APIKey == "" {
		errs = append(errs, "CKAN_API_KEY is required (or pass --api-key)")
	}
	if c.CKAN.RequestTimeout < 0 {
		errs = append(errs, "CKAN_REQUEST_TIMEOUT must be non-negative")
	}

	// Loader validation
	if c.Loader.BatchSize <= 0 {
		errs = append(errs, "LOADER_BATCH_SIZE must be positive")
	}
	if c.Loader.SampleRows <= 0 {
		errs = append(errs, "LOADER_SAMPLE_ROWS must be positive")
	}
	if c.Loader.FetchTimeout < 0 {
		errs = append(errs, "LOADER_FETCH_TIMEOUT must be non-negative")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// The API key is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("CKAN: {BaseURL: %q, APIKey: [MASKED], RequestTimeout: %s}, ",
		c.CKAN.BaseURL, c.CKAN.RequestTimeout))
	b.WriteString(fmt.Sprintf("Loader: {BatchSize: %d, SampleRows: %d, FetchTimeout: %s}, ",
		c.Loader.BatchSize, c.Loader.SampleRows, c.Loader.FetchTimeout))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
