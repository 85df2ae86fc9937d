package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Lookup returns the value of an environment variable and whether it is set.
type Lookup func(key string) (string, bool)

// Load reads configuration from the process environment, applies defaults
// for unset values and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with a custom variable source.
//
// Every leaf field with an `env` tag is read from that variable, then from
// `envAlt`, then from `default`. An empty value counts as unset. A field
// tagged `required:"true"` with no value is an error.
func LoadFrom(lookup Lookup) (*Config, error) {
	cfg := &Config{}

	if err := fill(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func fill(v reflect.Value, lookup Lookup) error {
	t := v.Type()
	for i := range t.NumField() {
		field, dst := t.Field(i), v.Field(i)
		if !dst.CanSet() {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			if err := fill(dst, lookup); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}
		raw := firstSet(lookup, name, field.Tag.Get("envAlt"))
		if raw == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			raw = field.Tag.Get("default")
		}
		if raw == "" {
			continue
		}
		if err := decode(dst, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, raw, err)
		}
	}
	return nil
}

// firstSet returns the first non-empty value among the named variables.
func firstSet(lookup Lookup, names ...string) string {
	for _, name := range names {
		if name == "" {
			continue
		}
		if v, ok := lookup(name); ok && v != "" {
			return v
		}
	}
	return ""
}

// decode parses raw into dst according to the field's type.
func decode(dst reflect.Value, raw string) error {
	if dst.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		dst.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		dst.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		dst.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		dst.SetBool(b)
	case reflect.Slice:
		if dst.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", dst.Type().Elem().Kind())
		}
		dst.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type: %s", dst.Kind())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blank items.
func splitList(raw string) []string {
	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	problems := slices.Concat(
		c.Server.problems(),
		c.Dataset.problems(),
		c.Columns.problems(),
		c.Resolver.problems(c.Database.URL != ""),
		c.Database.problems(),
		c.Cache.problems(),
		c.Clean.problems(),
		c.Rate.problems(),
		c.Security.problems(),
		c.Logging.problems(),
	)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(problems, "\n  - "))
}

func (s ServerConfig) problems() []string {
	var p []string
	if s.Port <= 0 || s.Port > 65535 {
		p = append(p, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", s.Port))
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.RequestTimeout < 0 {
		p = append(p, "SERVER_READ_TIMEOUT, SERVER_WRITE_TIMEOUT and SERVER_REQUEST_TIMEOUT must be non-negative")
	}
	if s.ShutdownTimeout <= 0 {
		p = append(p, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	return p
}

func (d DatasetConfig) problems() []string {
	var p []string
	if strings.TrimSpace(d.Path) == "" {
		p = append(p, "DATASET_PATH must not be empty")
	}
	if utf8.RuneCountInString(d.Delimiter) != 1 {
		p = append(p, fmt.Sprintf("DATASET_DELIMITER (%q) must be a single character", d.Delimiter))
	} else if strings.ContainsAny(d.Delimiter, "\"\r\n") {
		p = append(p, fmt.Sprintf("DATASET_DELIMITER (%q) is not a valid separator", d.Delimiter))
	}
	if d.MaxFileSize <= 0 {
		p = append(p, "DATASET_MAX_FILE_SIZE must be positive")
	}
	return p
}

func (c ColumnsConfig) problems() []string {
	if strings.TrimSpace(c.Country) == "" {
		return []string{"COLUMN_COUNTRY must not be empty"}
	}
	return nil
}

func (r ResolverConfig) problems(haveDatabase bool) []string {
	var p []string
	if r.FuzzyThreshold <= 0 || r.FuzzyThreshold > 1 {
		p = append(p, fmt.Sprintf("RESOLVER_FUZZY_THRESHOLD (%g) must be in (0, 1]", r.FuzzyThreshold))
	}
	switch strings.ToLower(r.Reference) {
	case "embedded":
	case "csv", "sqlite":
		if r.ReferencePath == "" {
			p = append(p, fmt.Sprintf("REFERENCE_PATH is required when REFERENCE_SOURCE is %s", r.Reference))
		}
	case "postgres":
		if !haveDatabase {
			p = append(p, "DATABASE_URL is required when REFERENCE_SOURCE is postgres")
		}
	default:
		p = append(p, fmt.Sprintf("REFERENCE_SOURCE (%q) must be one of: embedded, csv, postgres, sqlite", r.Reference))
	}
	return p
}

func (d DatabaseConfig) problems() []string {
	var p []string
	if d.MaxConns <= 0 {
		p = append(p, "DB_MAX_CONNS must be positive")
	}
	if d.MinConns < 0 {
		p = append(p, "DB_MIN_CONNS must be non-negative")
	}
	if d.MaxConns < d.MinConns {
		p = append(p, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", d.MaxConns, d.MinConns))
	}
	return p
}

func (c CacheConfig) problems() []string {
	var p []string
	if c.Size <= 0 {
		p = append(p, "CACHE_SIZE must be positive")
	}
	if c.TTL < 0 {
		p = append(p, "CACHE_TTL must be non-negative")
	}
	if c.JanitorInterval <= 0 {
		p = append(p, "CACHE_JANITOR_INTERVAL must be positive")
	}
	return p
}

func (c CleanConfig) problems() []string {
	var p []string
	if c.MaxConcurrent <= 0 {
		p = append(p, "CLEAN_MAX_CONCURRENT must be positive")
	}
	if c.MaxWaitTime <= 0 {
		p = append(p, "CLEAN_MAX_WAIT_TIME must be positive")
	}
	return p
}

func (r RateLimitConfig) problems() []string {
	if !r.Enabled {
		return nil
	}
	var p []string
	if r.RequestsPerMinute <= 0 {
		p = append(p, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if r.CleanLimit <= 0 {
		p = append(p, "RATE_LIMIT_CLEAN must be positive when rate limiting is enabled")
	}
	return p
}

func (s SecurityConfig) problems() []string {
	if s.RequireAPIKey && len(s.APIKeys) == 0 {
		return []string{"REQUIRE_API_KEY is true but API_KEYS is empty"}
	}
	return nil
}

func (l LoggingConfig) problems() []string {
	var p []string
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(l.Level)) {
		p = append(p, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", l.Level))
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(l.Format)) {
		p = append(p, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", l.Format))
	}
	return p
}

// DelimiterRune returns the configured field separator.
func (c *Config) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Dataset.Delimiter)
	return r
}

// String returns the configuration for logging. The database URL and API
// keys are never printed.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: %s, Dataset: {Path: %q, Delimiter: %q, MaxFileSize: %d}, "+
		"Resolver: {FuzzyThreshold: %g, Reference: %q, Path: %q}, "+
		"Database: {URL: %s, MaxConns: %d, MinConns: %d}, "+
		"Cache: {Size: %d, TTL: %s}, Clean: {MaxConcurrent: %d, MaxWaitTime: %s}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d, Clean: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d configured}, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Dataset.Path, c.Dataset.Delimiter, c.Dataset.MaxFileSize,
		c.Resolver.FuzzyThreshold, c.Resolver.Reference, c.Resolver.ReferencePath,
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns,
		c.Cache.Size, c.Cache.TTL, c.Clean.MaxConcurrent, c.Clean.MaxWaitTime,
		c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.CleanLimit,
		c.Security.RequireAPIKey, len(c.Security.APIKeys), c.Logging.Level, c.Logging.Format)
}

func mask(secret string) string {
	if secret == "" {
		return "[unset]"
	}
	return "[MASKED]"
}
