package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
scrape:
  target: solebox
  workers: 6
  per_worker: 50
  start: "DW0001000"
  stop: "2000"
  delay_seconds: 0.5
  use_proxies: true
  proxy_file: /etc/prober/proxies.txt
  user_agents: ["agent-a", "agent-b"]
http:
  timeout_seconds: 45
store:
  provider: memory
notify:
  provider: webhook
  webhooks:
    solebox: https://discord.test/hooks/solebox
    rest: https://discord.test/hooks/rest
  embed:
    color: "#00ff00"
report:
  provider: local
  base_dir: /tmp/reports
server:
  enabled: true
  port: 9090
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scrape.Target != "solebox" || cfg.Scrape.Workers != 6 || cfg.Scrape.PerWorker != 50 {
		t.Fatalf("expected scrape overrides to apply: %+v", cfg.Scrape)
	}
	if cfg.Scrape.Start != "DW0001000" || cfg.Scrape.Stop != "2000" {
		t.Fatalf("expected raw id bounds to be preserved: %+v", cfg.Scrape)
	}
	if got := cfg.BaseDelay(); got != 500*time.Millisecond {
		t.Fatalf("expected base delay 500ms, got %v", got)
	}
	if len(cfg.Scrape.UserAgents) != 2 || cfg.Scrape.UserAgents[1] != "agent-b" {
		t.Fatalf("expected user agents to be loaded: %v", cfg.Scrape.UserAgents)
	}
	if got := cfg.ProbeTimeout(); got != 45*time.Second {
		t.Fatalf("expected probe timeout 45s, got %v", got)
	}
	if cfg.Notify.Webhooks["rest"] != "https://discord.test/hooks/rest" {
		t.Fatalf("expected webhooks map to be loaded: %v", cfg.Notify.Webhooks)
	}
	if cfg.Notify.Embed.Color != "#00ff00" || cfg.Notify.Embed.Footer != "@rtunazzz" {
		t.Fatalf("expected embed override with default footer: %+v", cfg.Notify.Embed)
	}
	if !cfg.Server.Enabled || cfg.Server.Port != 9090 {
		t.Fatalf("expected server overrides: %+v", cfg.Server)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scrape.Workers != 10 || cfg.Scrape.Start != "1" || cfg.Scrape.Stop != "-1" {
		t.Fatalf("unexpected scrape defaults: %+v", cfg.Scrape)
	}
	if cfg.BaseDelay() != time.Second || cfg.DrainInterval() != 10*time.Second {
		t.Fatalf("unexpected timing defaults: delay=%v drain=%v", cfg.BaseDelay(), cfg.DrainInterval())
	}
	if len(cfg.Scrape.UserAgents) != 1 || cfg.Scrape.UserAgents[0] != DefaultUserAgent {
		t.Fatalf("unexpected user agent default: %v", cfg.Scrape.UserAgents)
	}
	if cfg.Store.Provider != StorePostgres || cfg.Notify.Provider != NotifyWebhook || cfg.Report.Provider != ReportNone {
		t.Fatalf("unexpected provider defaults: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PROBER_SCRAPE_WORKERS", "25")
	t.Setenv("PROBER_STORE_DSN", "postgres://prober@localhost/pids")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scrape.Workers != 25 {
		t.Fatalf("expected env workers 25, got %d", cfg.Scrape.Workers)
	}
	if cfg.Store.DSN != "postgres://prober@localhost/pids" {
		t.Fatalf("expected env dsn, got %q", cfg.Store.DSN)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Scrape: ScrapeConfig{Workers: 1},
		HTTP:   HTTPConfig{TimeoutSeconds: 10},
		Store:  StoreConfig{Provider: StoreMemory},
		Notify: NotifyConfig{Provider: NotifyLog},
		Report: ReportConfig{Provider: ReportNone},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  func(c Config) Config
		want string
	}{
		{
			name: "invalid workers",
			cfg:  func(c Config) Config { c.Scrape.Workers = 0; return c },
			want: "scrape.workers",
		},
		{
			name: "negative per worker",
			cfg:  func(c Config) Config { c.Scrape.PerWorker = -1; return c },
			want: "scrape.per_worker",
		},
		{
			name: "negative delay",
			cfg:  func(c Config) Config { c.Scrape.DelaySeconds = -1; return c },
			want: "scrape.delay_seconds",
		},
		{
			name: "invalid timeout",
			cfg:  func(c Config) Config { c.HTTP.TimeoutSeconds = 0; return c },
			want: "http.timeout_seconds",
		},
		{
			name: "unknown store",
			cfg:  func(c Config) Config { c.Store.Provider = "sqlite"; return c },
			want: "store.provider",
		},
		{
			name: "unknown notifier",
			cfg:  func(c Config) Config { c.Notify.Provider = "sms"; return c },
			want: "notify.provider",
		},
		{
			name: "pubsub missing topic",
			cfg: func(c Config) Config {
				c.Notify.Provider = NotifyPubSub
				c.Notify.PubSub.ProjectID = "proj"
				return c
			},
			want: "notify.pubsub",
		},
		{
			name: "gcs missing bucket",
			cfg:  func(c Config) Config { c.Report.Provider = ReportGCS; return c },
			want: "report.bucket",
		},
		{
			name: "server missing port",
			cfg:  func(c Config) Config { c.Server.Enabled = true; return c },
			want: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg(base).Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
