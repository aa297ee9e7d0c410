// Package config loads runtime configuration from .env/environment
// variables with an optional YAML file overlay. The resulting Config is
// passed to components explicitly; there is no package-level instance.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for XDG directory paths.
const AppName = "phonehunt"

// Config holds every tunable of the extractor. Defaults suit the public
// people-search target; everything can be overridden per deployment.
type Config struct {
	// SearchURL is the people-search site the client drives.
	SearchURL string `yaml:"search_url"`

	// Headless controls whether the browser runs without a display.
	Headless bool `yaml:"headless"`

	// Timeouts are generous because every request rides a rotating
	// proxy; they stay bounded so a silent failure cannot hang a batch.
	// In the YAML file duration fields are Go duration strings ("18s").
	NavigationTimeout time.Duration `yaml:"-"`
	SelectorTimeout   time.Duration `yaml:"-"`
	ConsentTimeout    time.Duration `yaml:"-"`

	// DefaultCity/DefaultState fill search fields when a record has none.
	// StateAbbrev is the suffix the address normalizer strips.
	DefaultCity  string `yaml:"default_city"`
	DefaultState string `yaml:"default_state"`
	StateAbbrev  string `yaml:"state_abbrev"`

	// Rotating gateway credentials. When no server is set the pool
	// provider takes over; either way a failed acquisition aborts the
	// remaining batch.
	ProxyServer   string `yaml:"proxy_server"`
	ProxyUsername string `yaml:"proxy_username"`
	ProxyPassword string `yaml:"proxy_password"`
	ProxyProbeURL string `yaml:"proxy_probe_url"`

	// Pool files and extra plain-text proxy list sources, used when the
	// pool provider is selected instead of the gateway.
	PoolFile       string   `yaml:"pool_file"`
	UsageFile      string   `yaml:"usage_file"`
	PoolSourceURLs []string `yaml:"pool_source_urls"`

	// Batch pipeline shape. RecordDelay paces individual lookups inside
	// a batch; BatchDelay rests between batches.
	BatchSize   int           `yaml:"batch_size"`
	BatchDelay  time.Duration `yaml:"-"`
	RecordDelay time.Duration `yaml:"-"`
	WorkDir     string        `yaml:"work_dir"`

	// StartRow/EndRow preselect a row range (1-based, 0 means unset).
	// Fanout workers receive their slice through these.
	StartRow int `yaml:"start_row"`
	EndRow   int `yaml:"end_row"`

	// MetricsPort exposes Prometheus metrics when non-zero.
	MetricsPort int `yaml:"metrics_port"`

	// Output surfaces.
	ReportDir  string `yaml:"report_dir"`
	HistoryDir string `yaml:"history_dir"`
	ExportXLSX bool   `yaml:"export_xlsx"`

	// Notification settings. Email stays off unless enabled and
	// credentialed; the webhook fires whenever a URL is set.
	EmailEnabled    bool     `yaml:"email_enabled"`
	SMTPHost        string   `yaml:"smtp_host"`
	SMTPPort        int      `yaml:"smtp_port"`
	EmailSender     string   `yaml:"email_sender"`
	EmailPassword   string   `yaml:"email_password"`
	EmailRecipients []string `yaml:"email_recipients"`
	WebhookURL      string   `yaml:"webhook_url"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Load builds a Config from defaults, an optional YAML file, and the
// environment, in that order of precedence (environment wins). filePath
// may be empty, in which case the XDG config location is tried.
func Load(filePath string) (*Config, error) {
	// A .env next to the binary is a convenience for deployments.
	_ = godotenv.Load()

	cfg := defaults()

	path := filePath
	if path == "" {
		if p, err := xdg.SearchConfigFile(filepath.Join(AppName, AppName+".yaml")); err == nil {
			path = p
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := cfg.applyYAML(data); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyYAML overlays the YAML document on the config. Duration fields
// travel as strings, so they are decoded in a second pass.
func (c *Config) applyYAML(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	var raw struct {
		NavigationTimeout string `yaml:"navigation_timeout"`
		SelectorTimeout   string `yaml:"selector_timeout"`
		ConsentTimeout    string `yaml:"consent_timeout"`
		BatchDelay        string `yaml:"batch_delay"`
		RecordDelay       string `yaml:"record_delay"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	for _, f := range []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"navigation_timeout", raw.NavigationTimeout, &c.NavigationTimeout},
		{"selector_timeout", raw.SelectorTimeout, &c.SelectorTimeout},
		{"consent_timeout", raw.ConsentTimeout, &c.ConsentTimeout},
		{"batch_delay", raw.BatchDelay, &c.BatchDelay},
		{"record_delay", raw.RecordDelay, &c.RecordDelay},
	} {
		if f.val == "" {
			continue
		}
		d, err := time.ParseDuration(f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = d
	}
	return nil
}

func defaults() *Config {
	return &Config{
		SearchURL:         "https://www.zabasearch.com",
		Headless:          true,
		NavigationTimeout: 18 * time.Second,
		SelectorTimeout:   12 * time.Second,
		ConsentTimeout:    18 * time.Second,
		DefaultCity:       "HALLANDALE BEACH",
		DefaultState:      "Florida",
		StateAbbrev:       "FL",
		ProxyProbeURL:     "https://api.ipify.org",
		PoolFile:          "proxies.txt",
		UsageFile:         "ip_usage.json",
		BatchSize:         10,
		BatchDelay:        10 * time.Minute,
		RecordDelay:       3 * time.Second,
		WorkDir:           "batches",
		ReportDir:         "reports",
		HistoryDir:        defaultHistoryDir(),
		SMTPHost:          "smtp.gmail.com",
		SMTPPort:          587,
		LogLevel:          "info",
	}
}

func defaultHistoryDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func (c *Config) applyEnv() {
	c.SearchURL = getEnv("SEARCH_URL", c.SearchURL)
	c.Headless = getEnvAsBool("HEADLESS", c.Headless)

	c.NavigationTimeout = getEnvAsMillis("NAVIGATION_TIMEOUT_MS", c.NavigationTimeout)
	c.SelectorTimeout = getEnvAsMillis("SELECTOR_TIMEOUT_MS", c.SelectorTimeout)
	c.ConsentTimeout = getEnvAsMillis("CONSENT_TIMEOUT_MS", c.ConsentTimeout)

	c.DefaultCity = getEnv("DEFAULT_CITY", c.DefaultCity)
	c.DefaultState = getEnv("DEFAULT_STATE", c.DefaultState)
	c.StateAbbrev = getEnv("STATE_ABBREV", c.StateAbbrev)

	c.ProxyServer = getEnv("PROXY_SERVER", c.ProxyServer)
	c.ProxyUsername = getEnv("PROXY_USERNAME", c.ProxyUsername)
	c.ProxyPassword = getEnv("PROXY_PASSWORD", c.ProxyPassword)
	c.ProxyProbeURL = getEnv("PROXY_PROBE_URL", c.ProxyProbeURL)

	c.PoolFile = getEnv("POOL_FILE", c.PoolFile)
	c.UsageFile = getEnv("USAGE_FILE", c.UsageFile)
	c.PoolSourceURLs = getEnvAsList("POOL_SOURCE_URLS", c.PoolSourceURLs)

	c.BatchSize = getEnvAsInt("BATCH_SIZE", c.BatchSize)
	c.BatchDelay = getEnvAsDuration("BATCH_DELAY", c.BatchDelay)
	c.RecordDelay = getEnvAsDuration("RECORD_DELAY", c.RecordDelay)
	c.WorkDir = getEnv("WORK_DIR", c.WorkDir)
	c.StartRow = getEnvAsInt("START_ROW", c.StartRow)
	c.EndRow = getEnvAsInt("END_ROW", c.EndRow)

	c.MetricsPort = getEnvAsInt("METRICS_PORT", c.MetricsPort)

	c.ReportDir = getEnv("REPORT_DIR", c.ReportDir)
	c.HistoryDir = getEnv("HISTORY_DIR", c.HistoryDir)
	c.ExportXLSX = getEnvAsBool("EXPORT_XLSX", c.ExportXLSX)

	c.EmailEnabled = getEnvAsBool("EMAIL_ENABLED", c.EmailEnabled)
	c.SMTPHost = getEnv("EMAIL_SMTP_SERVER", c.SMTPHost)
	c.SMTPPort = getEnvAsInt("EMAIL_SMTP_PORT", c.SMTPPort)
	c.EmailSender = getEnv("EMAIL_SENDER", c.EmailSender)
	c.EmailPassword = getEnv("EMAIL_PASSWORD", c.EmailPassword)
	c.EmailRecipients = getEnvAsList("EMAIL_RECIPIENTS", c.EmailRecipients)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogJSON = getEnvAsBool("LOG_JSON", c.LogJSON)
}

// Validate rejects configurations that would fail deep inside a batch.
func (c *Config) Validate() error {
	if _, err := url.Parse(c.SearchURL); err != nil {
		return fmt.Errorf("invalid SEARCH_URL %q: %w", c.SearchURL, err)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("BATCH_SIZE must be at least 1, got %d", c.BatchSize)
	}
	if c.NavigationTimeout <= 0 || c.SelectorTimeout <= 0 || c.ConsentTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// SearchHost returns the host of the search URL, used by the bandwidth
// policy as the essential domain.
func (c *Config) SearchHost() string {
	u, err := url.Parse(c.SearchURL)
	if err != nil || u.Host == "" {
		return c.SearchURL
	}
	return u.Host
}

// Helper functions

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valueStr := getEnv(key, "")
	if val, err := strconv.ParseBool(valueStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsMillis(key string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if ms, err := strconv.Atoi(valueStr); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
