package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vintedwatch/internal/monitor"
	"vintedwatch/internal/notify"
	"vintedwatch/internal/scraper"
	"vintedwatch/internal/shared/config"
	"vintedwatch/internal/shared/logger"
	"vintedwatch/internal/store"
	"vintedwatch/proxypool"
	"vintedwatch/proxypool/checker"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "watcher.ini", "path to the behavior configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	l := logger.WithComponent("Main")

	st, err := store.Open(cfg.StoreConf.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.StoreConf.Path).Msg("Failed to open store.")
	}
	defer st.Close()

	pool := proxypool.New(proxypool.Config{
		SweepCooldown: time.Duration(cfg.ProxyPoolConf.SweepCooldownMinutes) * time.Minute,
		BreakerMargin: cfg.ProxyPoolConf.BreakerMargin,
	})
	for _, raw := range splitProxyList(cfg.ProxyPoolConf.ProxyList) {
		if err := pool.Add(raw); err != nil {
			l.Warn().Err(err).Str("proxy", raw).Msg("Rejected proxy URL.")
		}
	}
	l.Info().Int("proxies", pool.Len()).Msg("Proxy pool loaded.")

	chk := checker.New(pool, checker.Config{
		ProbeURL:       cfg.ProxyPoolConf.ProbeURL,
		ConnectTimeout: time.Duration(cfg.ProxyPoolConf.ProbeConnectTimeoutSeconds) * time.Second,
		Timeout:        time.Duration(cfg.ProxyPoolConf.ProbeTimeoutSeconds) * time.Second,
		Concurrency:    cfg.ProxyPoolConf.ProbeConcurrency,
	})
	pool.SetSweeper(chk.Sweep)

	engine := scraper.New(scraper.Config{
		MinDelay:       time.Duration(cfg.ScraperConf.MinDelaySeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.ScraperConf.RequestTimeoutSeconds) * time.Second,
		ConnectTimeout: time.Duration(cfg.ScraperConf.ConnectTimeoutSeconds) * time.Second,
		InsecureTLS:    cfg.ScraperConf.InsecureTLS,
		MaxImages:      cfg.ScraperConf.MaxImages,
	}, pool)

	sink, err := notify.NewWebhook(
		cfg.NotifyConf.WebhookURL,
		time.Duration(cfg.NotifyConf.RequestTimeoutSeconds)*time.Second,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Notification sink misconfigured.")
	}

	mon := monitor.New(monitor.Config{
		Interval:          time.Duration(cfg.SchedulerConf.IntervalSeconds) * time.Second,
		NotifiedRetention: time.Duration(cfg.SchedulerConf.NotifiedRetentionDays) * 24 * time.Hour,
	}, st, engine, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Start(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("Shutting down...")
	cancel()

	grace := time.Duration(cfg.SchedulerConf.ShutdownGraceSeconds) * time.Second
	select {
	case <-done:
	case <-time.After(grace):
		l.Warn().Msg("Shutdown grace elapsed before the current cycle finished.")
	}

	l.Info().Msg("Watcher stopped.")
}

func splitProxyList(raw string) []string {
	var proxies []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			proxies = append(proxies, trimmed)
		}
	}
	return proxies
}
