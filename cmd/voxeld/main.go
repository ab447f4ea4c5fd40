package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/voxel-terrain/internal/server"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/config"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/storage"
)

func main() {
	cfg := config.DefaultConfig()

	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port for viewers")
	flag.IntVar(&cfg.ViewDistance, "view-distance", cfg.ViewDistance, "view distance in chunks")
	flag.IntVar(&cfg.MaxViewDistance, "max-view-distance", cfg.MaxViewDistance, "largest view distance viewers may request")
	flag.DurationVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "scheduler tick interval")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker goroutines (0 = GOMAXPROCS)")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "data directory")
	flag.StringVar(&cfg.BlockPack, "pack", cfg.BlockPack, "block pack under data/packs (empty = built-in)")
	flag.StringVar(&cfg.GeneratorType, "generator", cfg.GeneratorType, "terrain generator: default or flat")
	flag.Int64Var(&cfg.Terrain.Seed, "seed", cfg.Terrain.Seed, "terrain seed")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		log.Error("open data directory", "error", err)
		os.Exit(1)
	}

	fromFile, ok, err := store.LoadConfig()
	if err != nil {
		log.Error("load config", "path", store.ConfigPath(), "error", err)
		os.Exit(1)
	}
	if ok {
		config.Merge(cfg, fromFile, explicit)
		log.Info("config loaded", "path", store.ConfigPath())
	} else if err := store.SaveConfig(cfg); err != nil {
		log.Warn("save default config", "path", store.ConfigPath(), "error", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(cfg, store, log)
	if err != nil {
		log.Error("create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Start(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
