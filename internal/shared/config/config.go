package config

import (
	"os"

	"gopkg.in/ini.v1"

	"vintedwatch/internal/shared/types"
)

// Load reads the behavior configuration file, fills in defaults and applies
// environment overrides for values that are deployment-specific.
func Load(fileName string) (*types.Config, error) {
	cfg := defaults()

	iniFile, err := ini.Load(fileName)
	if err != nil {
		return nil, err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return nil, err
	}

	overrideFromEnv(&cfg.LogConf.Level, "LOG_LEVEL")
	overrideFromEnv(&cfg.ProxyPoolConf.ProxyList, "PROXY_LIST")
	overrideFromEnv(&cfg.NotifyConf.WebhookURL, "WEBHOOK_URL")
	overrideFromEnv(&cfg.StoreConf.Path, "DATABASE_PATH")

	return cfg, nil
}

func defaults() *types.Config {
	return &types.Config{
		LogConf: types.LogConf{
			Level: "info",
		},
		SchedulerConf: types.SchedulerConf{
			IntervalSeconds:       30,
			ShutdownGraceSeconds:  20,
			NotifiedRetentionDays: 7,
		},
		ScraperConf: types.ScraperConf{
			MinDelaySeconds:       2,
			RequestTimeoutSeconds: 30,
			ConnectTimeoutSeconds: 10,
			MaxImages:             4,
		},
		ProxyPoolConf: types.ProxyPoolConf{
			SweepCooldownMinutes:       10,
			ProbeURL:                   "http://httpbin.org/ip",
			ProbeConnectTimeoutSeconds: 5,
			ProbeTimeoutSeconds:        10,
			ProbeConcurrency:           5,
			BreakerMargin:              3,
		},
		StoreConf: types.StoreConf{
			Path: "watcher.db",
		},
		NotifyConf: types.NotifyConf{
			RequestTimeoutSeconds: 15,
		},
	}
}

func overrideFromEnv(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}
