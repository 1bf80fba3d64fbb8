package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LookupFunc resolves a variable name to its value.
type LookupFunc func(name string) (string, bool)

// Load reads configuration from environment variables, applies defaults for
// unset values and validates the result.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), envLookup, true); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// LoadOffline reads configuration through lookup for tools that run without
// the server: required variables may be unset and only the session, column
// and logging settings are validated.
func LoadOffline(lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup, false); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.validate(false); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Defaults returns the configuration with every setting at its default.
func Defaults() *Config {
	cfg, err := LoadOffline(func(string) (string, bool) { return "", false })
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func envLookup(name string) (string, bool) {
	if v := os.Getenv(name); v != "" {
		return v, true
	}
	return "", false
}

// loadStruct recursively populates struct fields through lookup.
func loadStruct(v reflect.Value, lookup LookupFunc, enforceRequired bool) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, lookup, enforceRequired); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookupAny(lookup, envName, field.Tag.Get("envAlt"))
		if !ok {
			if enforceRequired && field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
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

// lookupAny returns the first non-empty value of the primary or alternate name.
func lookupAny(lookup LookupFunc, name, alt string) (string, bool) {
	if v, ok := lookup(name); ok && v != "" {
		return v, true
	}
	if alt != "" {
		if v, ok := lookup(alt); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == durationType {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is usable. Every failure is
// collected so the operator sees all of them at once.
func (c *Config) Validate() error {
	return c.validate(true)
}

// validate checks the domain settings, and the server, database and security
// settings as well when serving is set.
func (c *Config) validate(serving bool) error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if serving {
		c.validateServing(add)
	}

	if strings.TrimSpace(c.Session.StateKey) == "" {
		add("SESSION_STATE_KEY must not be empty")
	}
	if c.Session.AutosaveInterval <= 0 {
		add("SESSION_AUTOSAVE_INTERVAL must be positive")
	}
	if c.Session.SaveTimeout <= 0 {
		add("SESSION_SAVE_TIMEOUT must be positive")
	}
	if c.Session.DiagnosticsCacheTTL <= 0 {
		add("SESSION_DIAGNOSTICS_CACHE_TTL must be positive")
	}

	for env, name := range map[string]string{
		"COLUMN_ION_QUOTIENT":      c.Columns.IonQuotient,
		"COLUMN_ELF_QUOTIENT":      c.Columns.ELFQuotient,
		"COLUMN_THEORETICAL_LF":    c.Columns.TheoreticalLF,
		"COLUMN_CORG":              c.Columns.Corg,
		"COLUMN_LF_PRIMARY":        c.Columns.LFPrimary,
		"COLUMN_LF_FALLBACK":       c.Columns.LFFallback,
		"COLUMN_ALKALINITY_PREFIX": c.Columns.AlkalinityPrefix,
	} {
		if strings.TrimSpace(name) == "" {
			add("%s must not be empty", env)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		add("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		add("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	return result.ErrorOrNil()
}

// validateServing checks the settings only the HTTP server needs.
func (c *Config) validateServing(add func(format string, args ...any)) {
	if c.Database.URL == "" {
		add("DATABASE_URL is required")
	}
	if c.Database.MaxConns <= 0 {
		add("DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		add("DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		add("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		add("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		add("SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		add("UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		add("UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		add("UPLOAD_MAX_WAIT_TIME must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		add("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		add("REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("METRICS_PATH (%q) must start with /", c.Metrics.Path)
	}
}

// String returns a representation of the config safe for logging.
// The database URL and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Session: {StateKey: %q, AutosaveInterval: %s}, ",
		c.Session.StateKey, c.Session.AutosaveInterval)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
