package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"scanguard/internal/alert"
	"scanguard/internal/api"
	"scanguard/internal/config"
	"scanguard/internal/detector"
	"scanguard/internal/display"
	"scanguard/internal/listener"
	"scanguard/internal/logging"
	"scanguard/internal/metrics"
	"scanguard/internal/model"
	"scanguard/internal/parser"
	"scanguard/internal/storage"
)

func main() {
	var (
		configFile = flag.String("config", "configs/scanguard.yaml", "Configuration file path (YAML)")
	)
	flag.Parse()

	console := display.NewStdout()

	cfg, err := config.Load(*configFile)
	if err != nil {
		console.Warning(fmt.Sprintf("Failed to load config %s: %v", *configFile, err))
		console.Warning("Using default configuration")
		cfg = config.Default()
	}

	logger := logging.New(cfg.Logging.Level)

	console.Banner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		console.Info("Shutting down...")
		cancel()
	}()

	m := metrics.New()
	if cfg.Metrics.Enabled {
		exporter, err := metrics.NewExporter(cfg.Metrics.Port, logger)
		if err != nil {
			console.Error(fmt.Sprintf("Failed to start metrics exporter: %v", err))
			os.Exit(1)
		}
		m = exporter.GetMetrics()
		go func() {
			if err := exporter.Start(ctx); err != nil {
				logger.Errorf("metrics exporter error: %v", err)
			}
		}()
		console.Info(fmt.Sprintf("Metrics exporter listening on :%s", cfg.Metrics.Port))
	}

	store := storage.NewStorage(logger)
	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API.Listen, store, logger)
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				logger.Errorf("API server error: %v", err)
			}
		}()
		console.Info(fmt.Sprintf("API listening on %s", cfg.API.Listen))
	}

	dispatcher := alert.NewDispatcher(logger)
	dispatcher.Register(alert.NewConsoleNotifier(console))
	dispatcher.Register(store)
	dispatcher.Register(alert.NotifierFunc(func(a *model.Alert) error {
		m.AlertsTotal.WithLabelValues(a.ScanType.String()).Inc()
		return nil
	}))
	if cfg.Alerting.SIEM.Enabled {
		dispatcher.Register(alert.NewSIEMNotifier(cfg.Alerting.SIEM, logger))
		console.Info(fmt.Sprintf("SIEM forwarding enabled (%s %s:%d)",
			cfg.Alerting.SIEM.Protocol, cfg.Alerting.SIEM.Host, cfg.Alerting.SIEM.Port))
	}
	if cfg.Alerting.Email.Enabled {
		dispatcher.Register(alert.NewEmailNotifier(cfg.Alerting.Email, logger))
		console.Info(fmt.Sprintf("Email alerting enabled (%d recipients)", len(cfg.Alerting.Email.To)))
	}

	tracker := detector.NewTracker(cfg.Detection, logger, dispatcher.Dispatch)

	p, err := parser.New(cfg.Network.Parser)
	if err != nil {
		console.Error(fmt.Sprintf("Failed to create parser: %v", err))
		os.Exit(1)
	}

	srv, err := listener.New(cfg.Network.ListenPort, p, tracker, m, logger)
	if err != nil {
		console.Error(fmt.Sprintf("Failed to start listener: %v", err))
		os.Exit(1)
	}
	console.Info(fmt.Sprintf("Listening for %s logs on UDP/%d", strings.ToUpper(p.Name()), srv.LocalPort()))

	go runCleanup(ctx, cfg, tracker, console, m, store)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		console.Error(fmt.Sprintf("Listener failed: %v", err))
		os.Exit(1)
	}

	console.Info("Shutdown complete")
}

// runCleanup periodically evicts idle sources and renders the stats line.
func runCleanup(ctx context.Context, cfg *config.Config, tracker *detector.Tracker,
	console *display.Console, m *metrics.Metrics, store *storage.Storage) {

	interval := time.Duration(cfg.Detection.Cleanup.IntervalSecs) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := tracker.Cleanup()
			console.Stats(stats.TrackedIPs, stats.CleanedIPs)
			m.TrackedIPs.Set(float64(stats.TrackedIPs))
			m.CleanedIPs.Add(float64(stats.CleanedIPs))
			store.SetStats(stats)
		case <-ctx.Done():
			return
		}
	}
}
