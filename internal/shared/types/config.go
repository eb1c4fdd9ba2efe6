package types

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// SchedulerConf drives the monitor tick loop.
type SchedulerConf struct {
	IntervalSeconds       int `ini:"interval_seconds"`
	ShutdownGraceSeconds  int `ini:"shutdown_grace_seconds"`
	NotifiedRetentionDays int `ini:"notified_retention_days"`
}

// ScraperConf controls the fetch-and-parse engine.
type ScraperConf struct {
	MinDelaySeconds       int  `ini:"min_delay_seconds"`
	RequestTimeoutSeconds int  `ini:"request_timeout_seconds"`
	ConnectTimeoutSeconds int  `ini:"connect_timeout_seconds"`
	InsecureTLS           bool `ini:"insecure_tls"`
	MaxImages             int  `ini:"max_images"`
}

// ProxyPoolConf controls proxy selection and the health sweep.
type ProxyPoolConf struct {
	// ProxyList is a comma-separated list of proxy URLs
	// (http://, https://, socks4:// or socks5://).
	ProxyList                  string `ini:"proxy_list"`
	SweepCooldownMinutes       int    `ini:"sweep_cooldown_minutes"`
	ProbeURL                   string `ini:"probe_url"`
	ProbeConnectTimeoutSeconds int    `ini:"probe_connect_timeout_seconds"`
	ProbeTimeoutSeconds        int    `ini:"probe_timeout_seconds"`
	ProbeConcurrency           int    `ini:"probe_concurrency"`
	BreakerMargin              int    `ini:"breaker_margin"`
}

// StoreConf points at the sqlite database file.
type StoreConf struct {
	Path string `ini:"path"`
}

// NotifyConf configures the webhook notification sink.
type NotifyConf struct {
	WebhookURL            string `ini:"webhook_url"`
	RequestTimeoutSeconds int    `ini:"request_timeout_seconds"`
}

// Config is the unified behavior configuration loaded from watcher.ini.
type Config struct {
	LogConf       `ini:"log"`
	SchedulerConf `ini:"scheduler"`
	ScraperConf   `ini:"scraper"`
	ProxyPoolConf `ini:"proxypool"`
	StoreConf     `ini:"store"`
	NotifyConf    `ini:"notify"`
}
