// Package config loads and validates prober configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names accepted by the store, notify and report sections.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	NotifyWebhook = "webhook"
	NotifyPubSub  = "pubsub"
	NotifyLog     = "log"

	ReportNone  = "none"
	ReportLocal = "local"
	ReportGCS   = "gcs"
)

// DefaultUserAgent is sent when no user agents are configured.
const DefaultUserAgent = "github.com/rtunazzz/pid-scrapers"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Report  ReportConfig  `mapstructure:"report"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScrapeConfig governs the probing run.
type ScrapeConfig struct {
	Target    string `mapstructure:"target"`
	Workers   int    `mapstructure:"workers"`
	PerWorker int    `mapstructure:"per_worker"`
	// Start and Stop are raw ids; targets may accept their formatted form.
	Start                string   `mapstructure:"start"`
	Stop                 string   `mapstructure:"stop"`
	DelaySeconds         float64  `mapstructure:"delay_seconds"`
	DrainIntervalSeconds int      `mapstructure:"drain_interval_seconds"`
	UseProxies           bool     `mapstructure:"use_proxies"`
	ProxyFile            string   `mapstructure:"proxy_file"`
	UserAgents           []string `mapstructure:"user_agents"`
}

// HTTPConfig configures the probing client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// StoreConfig selects and configures the id store.
type StoreConfig struct {
	Provider    string `mapstructure:"provider"`
	DSN         string `mapstructure:"dsn"`
	MaxConns    int32  `mapstructure:"max_conns"`
	TablePrefix string `mapstructure:"table_prefix"`
}

// NotifyConfig selects the notification sink.
type NotifyConfig struct {
	Provider string            `mapstructure:"provider"`
	Webhooks map[string]string `mapstructure:"webhooks"`
	Embed    EmbedConfig       `mapstructure:"embed"`
	PubSub   PubSubConfig      `mapstructure:"pubsub"`
}

// EmbedConfig styles webhook embeds.
type EmbedConfig struct {
	Color  string `mapstructure:"color"`
	Footer string `mapstructure:"footer"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ReportConfig controls where run summaries are written.
type ReportConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// ServerConfig controls the status server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
	// APIKey, when set, is required on every request except the probes.
	APIKey string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
	Debug       bool `mapstructure:"debug"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROBER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scrape.target", "")
	v.SetDefault("scrape.workers", 10)
	v.SetDefault("scrape.per_worker", 0)
	v.SetDefault("scrape.start", "1")
	v.SetDefault("scrape.stop", "-1")
	v.SetDefault("scrape.delay_seconds", 1)
	v.SetDefault("scrape.drain_interval_seconds", 10)
	v.SetDefault("scrape.use_proxies", false)
	v.SetDefault("scrape.proxy_file", "proxies.txt")
	v.SetDefault("scrape.user_agents", []string{DefaultUserAgent})
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("store.provider", StorePostgres)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.table_prefix", "")
	v.SetDefault("notify.provider", NotifyWebhook)
	v.SetDefault("notify.embed.color", "#ffada2")
	v.SetDefault("notify.embed.footer", "@rtunazzz")
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic", "")
	v.SetDefault("report.provider", ReportNone)
	v.SetDefault("report.base_dir", "reports")
	v.SetDefault("report.bucket", "")
	v.SetDefault("report.prefix", "runs")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.debug", false)
}

// Validate enforces required values and reasonable limits. Id ranges are
// checked once the target is known, since only the target can parse them.
func (c Config) Validate() error {
	if c.Scrape.Workers <= 0 {
		return fmt.Errorf("scrape.workers must be > 0")
	}
	if c.Scrape.PerWorker < 0 {
		return fmt.Errorf("scrape.per_worker must be >= 0")
	}
	if c.Scrape.DelaySeconds < 0 {
		return fmt.Errorf("scrape.delay_seconds must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Store.Provider {
	case StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("store.provider %q is not supported", c.Store.Provider)
	}
	switch c.Notify.Provider {
	case NotifyWebhook, NotifyLog:
	case NotifyPubSub:
		if c.Notify.PubSub.ProjectID == "" || c.Notify.PubSub.Topic == "" {
			return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic must be set for pubsub")
		}
	default:
		return fmt.Errorf("notify.provider %q is not supported", c.Notify.Provider)
	}
	switch c.Report.Provider {
	case ReportNone, ReportLocal:
	case ReportGCS:
		if c.Report.Bucket == "" {
			return fmt.Errorf("report.bucket must be set for gcs reports")
		}
	default:
		return fmt.Errorf("report.provider %q is not supported", c.Report.Provider)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// BaseDelay converts the configured delay into a duration.
func (c Config) BaseDelay() time.Duration {
	return time.Duration(c.Scrape.DelaySeconds * float64(time.Second))
}

// DrainInterval is the dispatcher's drain period.
func (c Config) DrainInterval() time.Duration {
	return time.Duration(c.Scrape.DrainIntervalSeconds) * time.Second
}

// ProbeTimeout bounds a single HEAD request.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
