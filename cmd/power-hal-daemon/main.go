package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
	"github.com/cptspacemanspiff/shamu-power/internal/config"
	dbussvc "github.com/cptspacemanspiff/shamu-power/internal/dbus"
	"github.com/cptspacemanspiff/shamu-power/internal/metrics"
	"github.com/cptspacemanspiff/shamu-power/internal/power"
	"github.com/cptspacemanspiff/shamu-power/internal/storage"
)

func main() {
	verbose := flag.Bool("verbose", false, "enable all verbose logging (equivalent to -log=all)")
	logFlag := flag.String("log", "", "comma-separated log topics: "+strings.Join(logTopics, ",")+" (or 'all')")
	configPath := flag.String("config", config.DefaultPath, "path to the TOML config file")
	resetDB := flag.Bool("reset-db", false, "delete the database and start fresh")
	flag.Parse()

	logger := newLogger(parseTopics(*verbose, *logFlag))
	statsLog := logger.With("topic", "stats")
	storageLog := logger.With("topic", "storage")

	cfg, err := loadConfig(*configPath, logger)
	if err != nil {
		logger.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	dbPath := cfg.Storage.DBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("create data dir", "err", err)
		os.Exit(1)
	}

	if *resetDB {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
				logger.Error("delete database", "err", err)
				os.Exit(1)
			}
		}
		logger.Info("database deleted", "path", dbPath)
		return
	}

	hal, err := power.Open(power.ModuleID, power.Options{
		BoostSocket:        cfg.Paths.BoostSocket,
		WakeGesturePath:    cfg.Paths.WakeGesture,
		RPMStatsPath:       cfg.Paths.RPMStats,
		RPMMasterStatsPath: cfg.Paths.RPMMasterStats,
	}, logger)
	if err != nil {
		logger.Error("open power HAL", "err", err)
		os.Exit(1)
	}
	hal.Init()
	defer hal.Close()

	store, err := storage.Open(dbPath)
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := dbussvc.NewService(hal, store, storageLog)
	conn, err := svc.Export(cfg.DBus.Bus)
	if err != nil {
		logger.Error("export dbus service", "err", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Info("D-Bus service registered", "name", dbussvc.BusName, "bus", cfg.DBus.Bus)

	// Suspend and resume drive the interactive state.
	sleepMon, err := collector.NewSleepMonitor(logger.With("topic", "sleep"))
	var interactiveCh <-chan bool
	if err != nil {
		logger.Warn("sleep monitor unavailable", "err", err)
	} else {
		interactiveCh = sleepMon.Interactive()
		defer sleepMon.Close()
	}

	var metricsSrv *http.Server
	if cfg.Metrics.ListenAddr != "" {
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.ListenAddr,
			Handler:           metrics.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		logger.Info("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)
	}

	retention := time.Duration(cfg.Cleanup.RetentionDays) * 24 * time.Hour
	cleanup(store, retention, storageLog)
	record(svc, statsLog)

	interval := time.Duration(cfg.Collection.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	cleanupTicker := time.NewTicker(time.Duration(cfg.Cleanup.IntervalHours) * time.Hour)
	defer cleanupTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("power-hal-daemon started", "interval", interval)
	for {
		select {
		case <-ticker.C:
			record(svc, statsLog)
		case <-cleanupTicker.C:
			cleanup(store, retention, storageLog)
		case on := <-interactiveCh:
			_ = svc.SetInteractive(on)
		case <-sigCh:
			logger.Info("shutting down")
			if metricsSrv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = metricsSrv.Shutdown(ctx)
				cancel()
			}
			return
		}
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("config file not found, using defaults", "path", path)
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

func record(svc *dbussvc.Service, logger *slog.Logger) {
	states, err := svc.Record()
	if err != nil {
		logger.Error("record platform stats", "err", err)
		return
	}
	for _, s := range states {
		logger.Info("sample",
			"state", s.Name,
			"transitions", s.TotalTransitions,
			"residency_ms", s.ResidencyMsSinceBoot)
		for _, v := range s.Voters {
			logger.Debug("voter", "state", s.Name, "voter", v.Name, "time_ms", v.TimeVotedMs, "count", v.TimesVotedCount)
		}
	}
}

func cleanup(store *storage.DB, retention time.Duration, logger *slog.Logger) {
	before := time.Now().Add(-retention).Unix()
	n, err := store.DeleteOlderThan(before)
	if err != nil {
		logger.Error("cleanup history", "err", err)
		return
	}
	logger.Info("cleanup history", "deleted", n, "before", before)
}
