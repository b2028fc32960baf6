package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"studioledger/internal/core"
	"studioledger/internal/finance"
)

type Config struct {
	// HTTP Server
	Port            string
	RateLimitPerMin int
	TrustedProxies  []string // extra CIDRs whose forwarding headers are trusted

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection: memory, sqlite or mongodb
	DataBackend    string
	SQLiteDBPath   string
	MemorySeedFile string
	MongoURI       string
	MongoDatabase  string

	// AMQP (optional; empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Summary cache
	RedisURL  string
	CacheSize int
	CacheTTL  time.Duration

	// Google Sheets export (optional)
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Worker
	ExportSchedule    string
	ExportConcurrency int

	// From the optional TOML file
	FilePath          string
	DefaultCategories []string
	Thresholds        finance.Thresholds

	fileErr error
}

// fileConfig is the shape of the TOML file named by STUDIOLEDGER_CONFIG.
type fileConfig struct {
	DefaultCategories []string            `toml:"default_categories"`
	Margins           *finance.Thresholds `toml:"margins"`
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:    getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/studioledger.db"),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),
		MongoURI:       getEnv("MONGODB_URI", ""),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "studioledger"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "studioledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "project_events"),

		RedisURL:  getEnv("REDIS_URL", ""),
		CacheSize: getEnvInt("CACHE_SIZE", 256),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", "Projects"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		ExportSchedule:    getEnv("EXPORT_SCHEDULE", "@hourly"),
		ExportConcurrency: getEnvInt("EXPORT_CONCURRENCY", 4),

		FilePath:          getEnv("STUDIOLEDGER_CONFIG", ""),
		DefaultCategories: append([]string(nil), core.DefaultCategories...),
		Thresholds:        finance.DefaultThresholds,
	}

	if cfg.FilePath != "" {
		cfg.fileErr = cfg.applyFile(cfg.FilePath)
	}
	return cfg
}

// applyFile overlays the TOML file on top of the defaults. Keys absent from
// the file keep their defaults.
func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if len(fc.DefaultCategories) > 0 {
		c.DefaultCategories = core.NormalizeCategories(fc.DefaultCategories)
	}
	if fc.Margins != nil {
		c.Thresholds = *fc.Margins
	}
	return nil
}

// EventsEnabled reports whether an AMQP broker is configured.
func (c *Config) EventsEnabled() bool { return c.AMQPURL != "" }

// ExportEnabled reports whether a spreadsheet is configured for export.
func (c *Config) ExportEnabled() bool { return c.GoogleSpreadsheetID != "" }

// problems collects every validation failure so they can be reported at once.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

// Validate checks the whole configuration and reports every problem found.
// It creates the SQLite directory when missing.
func (c *Config) Validate() error {
	var p problems
	if c.fileErr != nil {
		p.addf("%v", c.fileErr)
	}
	c.checkServer(&p)
	c.checkBackend(&p)
	c.checkEvents(&p)
	c.checkCache(&p)
	c.checkExport(&p)
	if c.Thresholds.Low > c.Thresholds.Healthy {
		p.addf("invalid margin thresholds: low (%d) must not exceed healthy (%d)", c.Thresholds.Low, c.Thresholds.Healthy)
	}
	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
}

func (c *Config) checkServer(p *problems) {
	port, err := strconv.Atoi(c.Port)
	switch {
	case err != nil:
		p.addf("invalid port '%s': must be a number", c.Port)
	case port < 1 || port > 65535:
		p.addf("invalid port %d: must be between 1 and 65535", port)
	}
	if c.RateLimitPerMin < 1 {
		p.addf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMin)
	}
	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			p.addf("invalid trusted proxy '%s': %v", cidr, err)
		}
	}
}

var dataBackends = []string{"memory", "sqlite", "mongodb"}

func (c *Config) checkBackend(p *problems) {
	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			p.addf("SQLite database path cannot be empty when using sqlite backend")
			return
		}
		if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				p.addf("cannot create SQLite database directory '%s': %v", dir, err)
			}
		}
	case "mongodb":
		if c.MongoURI == "" {
			p.addf("MONGODB_URI is required when using mongodb backend")
		} else if !hasScheme(c.MongoURI, "mongodb", "mongodb+srv") {
			p.addf("invalid MongoDB URI '%s': scheme must be 'mongodb' or 'mongodb+srv'", c.MongoURI)
		}
		if c.MongoDatabase == "" {
			p.addf("MongoDB database name cannot be empty when using mongodb backend")
		}
	default:
		p.addf("invalid data backend '%s': must be one of %v", c.DataBackend, dataBackends)
	}
}

func (c *Config) checkEvents(p *problems) {
	if c.AMQPURL == "" {
		return
	}
	if u, err := url.Parse(c.AMQPURL); err != nil {
		p.addf("invalid AMQP URL '%s': %v", c.AMQPURL, err)
	} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
		p.addf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	if c.AMQPExchange == "" {
		p.addf("AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		p.addf("AMQP queue name cannot be empty when AMQP URL is provided")
	}
}

func (c *Config) checkCache(p *problems) {
	if c.RedisURL != "" && !hasScheme(c.RedisURL, "redis", "rediss") {
		p.addf("invalid Redis URL '%s': scheme must be 'redis' or 'rediss'", c.RedisURL)
	}
	if c.CacheSize < 1 {
		p.addf("invalid cache size %d: must be at least 1", c.CacheSize)
	}
	if c.CacheTTL < time.Second {
		p.addf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL)
	}
}

func (c *Config) checkExport(p *problems) {
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			p.addf("Google Sheet name is required when a spreadsheet is configured")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			p.addf("either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheet export")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); errors.Is(err, fs.ErrNotExist) {
				p.addf("Google credentials file does not exist: %s", c.GoogleCredentialsFile)
			}
		}
	}
	if _, err := cron.ParseStandard(c.ExportSchedule); err != nil {
		p.addf("invalid export schedule '%s': %v", c.ExportSchedule, err)
	}
	if c.ExportConcurrency < 1 || c.ExportConcurrency > 64 {
		p.addf("invalid export concurrency %d: must be between 1 and 64", c.ExportConcurrency)
	}
}

func hasScheme(raw string, schemes ...string) bool {
	u, err := url.Parse(raw)
	return err == nil && slices.Contains(schemes, u.Scheme)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt and getEnvDuration fall back on unset or unparsable values.
func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
