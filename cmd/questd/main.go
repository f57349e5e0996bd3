package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lawnchairsociety/questforge/internal/config"
	"github.com/lawnchairsociety/questforge/internal/gateway"
	"github.com/lawnchairsociety/questforge/internal/logger"
	"github.com/lawnchairsociety/questforge/internal/player"
	"github.com/lawnchairsociety/questforge/internal/quest"
	"github.com/lawnchairsociety/questforge/internal/store"
)

func main() {
	configFile := flag.String("config", "data/questforge.yaml", "Path to engine config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	logger.Info("Starting QuestForge engine")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load config", "path", *configFile, "error", err)
		os.Exit(1)
	}

	content, contentErrs, err := quest.LoadContentDir(cfg.ContentDir)
	if err != nil {
		logger.Error("Failed to load quest content", "dir", cfg.ContentDir, "error", err)
		os.Exit(1)
	}
	for _, cerr := range contentErrs {
		logger.Warning("Content error", "error", cerr)
	}

	catalog, catalogErrs := quest.BuildCatalog(content)
	for _, cerr := range catalogErrs {
		logger.Warning("Content error", "error", cerr)
	}
	if catalog.Len() == 0 {
		logger.Error("No valid quests loaded, refusing to start")
		os.Exit(1)
	}

	db, err := store.Open(store.DialectType(cfg.Database.Driver), databaseSource(cfg))
	if err != nil {
		logger.Error("Failed to open quest log store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Player stats and reward application live in the surrounding game;
	// this daemon wires in the world-service adapters.
	players := player.NewService()
	engine := quest.New(catalog, players, players, quest.WithPersister(db))

	gw := gateway.New(engine, cfg.Gateway)
	mux := http.NewServeMux()
	mux.Handle("/quests", gw.Handler())

	server := &http.Server{Addr: cfg.Gateway.Addr, Handler: mux}
	go func() {
		logger.Info("Gateway listening", "addr", cfg.Gateway.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Gateway server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Periodic expiry sweep; expiry latency is bounded by this interval.
	sweep := time.NewTicker(cfg.SweepInterval)
	defer sweep.Stop()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case now := <-sweep.C:
				if expired := engine.Tick(now); len(expired) > 0 {
					logger.Info("Expiry sweep", "failed_instances", len(expired))
				}
			case <-done:
				return
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down")
	close(done)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Gateway shutdown failed", "error", err)
	}
}

// databaseSource picks the data source for the configured driver.
func databaseSource(cfg *config.Config) string {
	if store.DialectType(cfg.Database.Driver) == store.DialectPostgres {
		return cfg.Database.DSN
	}
	return cfg.Database.Path
}
