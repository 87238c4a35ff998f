package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/investidor10"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/statusinvest"
	"b3fundamentals/internal/yahoo"
)

// Config holds all configuration for the fundamentals pipeline.
type Config struct {
	// Tickers to look up, in output order
	Tickers []string `mapstructure:"tickers"`

	// Base URLs of the sources (configurable for testing)
	YahooBaseURL        string `mapstructure:"yahoo_base_url"`
	YahooConsentURL     string `mapstructure:"yahoo_consent_url"`
	StatusInvestBaseURL string `mapstructure:"statusinvest_base_url"`
	Investidor10BaseURL string `mapstructure:"investidor10_base_url"`

	DisabledSources []string `mapstructure:"disabled_sources"`

	// Outbound HTTP
	UserAgent         string        `mapstructure:"user_agent"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	PacingDelay       time.Duration `mapstructure:"pacing_delay"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute"`

	// Result cache
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	FailureTTL      time.Duration `mapstructure:"failure_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`

	Workers     int    `mapstructure:"workers"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	Output      string `mapstructure:"output"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputCSV   = "csv"
)

var defaults = map[string]any{
	"yahoo_base_url":        yahoo.DefaultBaseURL,
	"yahoo_consent_url":     yahoo.DefaultConsentURL,
	"statusinvest_base_url": statusinvest.DefaultBaseURL,
	"investidor10_base_url": investidor10.DefaultBaseURL,
	"disabled_sources":      []string{},
	"user_agent":            fetcher.DefaultUserAgent,
	"request_timeout":       fetcher.DefaultTimeout,
	"retry_count":           2,
	"pacing_delay":          time.Second,
	"requests_per_minute":   0.0,
	"cache_ttl":             time.Hour,
	"failure_ttl":           5 * time.Minute,
	"cache_max_entries":     0,
	"workers":               1,
	"log_level":             "info",
	"log_format":            "text",
	"output":                OutputTable,
	"metrics_addr":          "",
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"tickers":          "tickers",
	"disabled-sources": "disabled_sources",
	"pacing-delay":     "pacing_delay",
	"workers":          "workers",
	"log-level":        "log_level",
	"log-format":       "log_format",
	"output":           "output",
	"metrics-addr":     "metrics_addr",
}

// Flags returns the command-line flags Load understands.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("b3fundamentals", pflag.ContinueOnError)
	fs.String("config", "", "path to a config file (default: ./config.yaml or $HOME/.b3fundamentals/config.yaml)")
	fs.StringSlice("tickers", nil, "tickers to look up, e.g. PETR4,VALE3")
	fs.StringSlice("disabled-sources", nil, "sources to skip (yahoo, statusinvest, investidor10)")
	fs.Duration("pacing-delay", time.Second, "pause after every request to the same host")
	fs.IntP("workers", "w", 1, "tickers processed at once")
	fs.String("log-level", "info", "debug, info, warn or error")
	fs.String("log-format", "text", "text or json")
	fs.StringP("output", "o", OutputTable, "table, json or csv")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	return fs
}

// Load reads configuration from flags, environment variables and an
// optional config file, in that order of precedence, over built-in defaults.
// Positional arguments left in fs are tickers and replace any configured list.
//
// Every key can be set through its upper-cased environment variable:
//   - TICKERS (comma separated)
//   - YAHOO_BASE_URL, YAHOO_CONSENT_URL, STATUSINVEST_BASE_URL, INVESTIDOR10_BASE_URL
//   - REQUEST_TIMEOUT, PACING_DELAY, CACHE_TTL, FAILURE_TTL (durations, e.g. 30s)
//   - WORKERS, LOG_LEVEL, LOG_FORMAT, OUTPUT, METRICS_ADDR, ...
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Set up environment variable support
	v.AutomaticEnv()
	v.BindEnv("tickers", "TICKERS")
	for key := range defaults {
		v.BindEnv(key, strings.ToUpper(key))
	}

	// Optionally read from config file if it exists
	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.b3fundamentals")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if fs != nil && fs.NArg() > 0 {
		config.Tickers = fs.Args()
	}
	config.LogLevel = strings.ToLower(config.LogLevel)
	config.LogFormat = strings.ToLower(config.LogFormat)
	config.Output = strings.ToLower(config.Output)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	for key, raw := range map[string]string{
		"yahoo_base_url":        c.YahooBaseURL,
		"yahoo_consent_url":     c.YahooConsentURL,
		"statusinvest_base_url": c.StatusInvestBaseURL,
		"investidor10_base_url": c.Investidor10BaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: %q is not an http(s) URL", key, raw))
		}
	}

	for _, s := range c.DisabledSources {
		if !slices.Contains(AllSources, market.Source(strings.ToLower(s))) {
			errs = append(errs, fmt.Errorf("disabled_sources: unknown source %q", s))
		}
	}
	if len(c.Sources()) == 0 {
		errs = append(errs, errors.New("disabled_sources: every source is disabled"))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.RetryCount < 0 {
		errs = append(errs, errors.New("retry_count must not be negative"))
	}
	if c.PacingDelay < 0 {
		errs = append(errs, errors.New("pacing_delay must not be negative"))
	}
	if c.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests_per_minute must not be negative"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache_ttl must be positive"))
	}
	if c.FailureTTL <= 0 {
		errs = append(errs, errors.New("failure_ttl must be positive"))
	} else if c.CacheTTL > 0 && c.FailureTTL > c.CacheTTL {
		errs = append(errs, errors.New("failure_ttl must not exceed cache_ttl"))
	}
	if c.CacheMaxEntries < 0 {
		errs = append(errs, errors.New("cache_max_entries must not be negative"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("workers must be at least 1"))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format: %q is not text or json", c.LogFormat))
	}
	switch c.Output {
	case OutputTable, OutputJSON, OutputCSV:
	default:
		errs = append(errs, fmt.Errorf("output: %q is not table, json or csv", c.Output))
	}

	return errors.Join(errs...)
}

// AllSources lists every source in merge priority order, lowest first: the
// structured API, then the scraped sites.
var AllSources = []market.Source{
	market.SourceYahoo,
	market.SourceStatusInvest,
	market.SourceInvestidor10,
}

// Sources returns the enabled sources in merge priority order.
func (c *Config) Sources() []market.Source {
	var out []market.Source
	for _, s := range AllSources {
		disabled := slices.ContainsFunc(c.DisabledSources, func(d string) bool {
			return strings.EqualFold(d, string(s))
		})
		if !disabled {
			out = append(out, s)
		}
	}
	return out
}

// ParseLevel converts a log_level setting to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %q is not debug, info, warn or error", s)
	}
	return level, nil
}
