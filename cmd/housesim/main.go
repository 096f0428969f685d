// Command housesim runs the agent-based housing market simulation.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/housesim/internal/api"
	"github.com/talgya/housesim/internal/config"
	"github.com/talgya/housesim/internal/engine"
	"github.com/talgya/housesim/internal/persistence"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (built-in defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("housesim starting",
		"seed", cfg.Simulation.Seed,
		"months", cfg.Simulation.Months,
		"regions", cfg.Simulation.Regions,
		"population", cfg.Simulation.TargetPopulation,
	)

	// ── Micro-data recorder ───────────────────────────────────────────
	var recorder engine.Recorder
	var db *persistence.DB
	if cfg.Recording.Enabled {
		os.MkdirAll(filepath.Dir(cfg.Recording.DBPath), 0755)
		db, err = persistence.Open(cfg.Recording.DBPath, cfg)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		recorder = db
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim := engine.New(cfg, recorder)
	slog.Info("simulation built",
		"households", sim.Stats.Population,
		"houses", sim.Stats.Houses,
	)

	if !cfg.Server.Enabled {
		sim.Run()
		slog.Info("run complete", "months", sim.CurrentMonth())
		return
	}

	// ── Interactive mode: runner + status API ─────────────────────────
	runner := engine.NewRunner(sim, time.Second)
	server := &api.Server{
		Runner:   runner,
		Port:     cfg.Server.Port,
		AdminKey: cfg.Server.AdminKey,
	}
	server.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		runner.Stop()
	}()

	runner.Run()
	slog.Info("run complete", "months", sim.CurrentMonth())
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
