package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watcher.ini")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTestConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogConf.Level != "info" {
		t.Errorf("default log level: got %q, want info", cfg.LogConf.Level)
	}
	if cfg.SchedulerConf.IntervalSeconds != 30 {
		t.Errorf("default interval: got %d, want 30", cfg.SchedulerConf.IntervalSeconds)
	}
	if cfg.ScraperConf.MinDelaySeconds != 2 {
		t.Errorf("default min delay: got %d, want 2", cfg.ScraperConf.MinDelaySeconds)
	}
	if cfg.ProxyPoolConf.SweepCooldownMinutes != 10 {
		t.Errorf("default sweep cooldown: got %d, want 10", cfg.ProxyPoolConf.SweepCooldownMinutes)
	}
	if cfg.ProxyPoolConf.BreakerMargin != 3 {
		t.Errorf("default breaker margin: got %d, want 3", cfg.ProxyPoolConf.BreakerMargin)
	}
	if cfg.StoreConf.Path != "watcher.db" {
		t.Errorf("default store path: got %q, want watcher.db", cfg.StoreConf.Path)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeTestConfig(t, `
[log]
level = debug

[scheduler]
interval_seconds = 60

[proxypool]
breaker_margin = 5
proxy_list = socks5://10.0.0.1:1080
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogConf.Level != "debug" {
		t.Errorf("log level: got %q, want debug", cfg.LogConf.Level)
	}
	if cfg.SchedulerConf.IntervalSeconds != 60 {
		t.Errorf("interval: got %d, want 60", cfg.SchedulerConf.IntervalSeconds)
	}
	if cfg.ProxyPoolConf.BreakerMargin != 5 {
		t.Errorf("breaker margin: got %d, want 5", cfg.ProxyPoolConf.BreakerMargin)
	}
	if cfg.ProxyPoolConf.ProxyList != "socks5://10.0.0.1:1080" {
		t.Errorf("proxy list: got %q", cfg.ProxyPoolConf.ProxyList)
	}
	// Untouched sections keep their defaults.
	if cfg.ScraperConf.RequestTimeoutSeconds != 30 {
		t.Errorf("request timeout: got %d, want 30", cfg.ScraperConf.RequestTimeoutSeconds)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTestConfig(t, `
[notify]
webhook_url = https://file.example/hook
`)

	t.Setenv("WEBHOOK_URL", "https://env.example/hook")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.NotifyConf.WebhookURL != "https://env.example/hook" {
		t.Errorf("webhook url: got %q, want the env value", cfg.NotifyConf.WebhookURL)
	}
	if cfg.LogConf.Level != "warn" {
		t.Errorf("log level: got %q, want warn", cfg.LogConf.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Fatal("a missing configuration file must be an error")
	}
}
