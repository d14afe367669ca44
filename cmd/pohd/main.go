package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poh/server/internal/api"
	"github.com/poh/server/internal/config"
	"github.com/poh/server/internal/data"
	"github.com/poh/server/internal/persist"
	"github.com/poh/server/internal/scripting"
	"github.com/poh/server/internal/sim"
	"github.com/poh/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("POH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log.Info("starting", zap.String("server", cfg.Server.Name), zap.String("version", cfg.Server.Version))

	// 3. Static reference data
	registry, err := data.Load(cfg.Data.TypesDir)
	if err != nil {
		return fmt.Errorf("load static data: %w", err)
	}
	log.Info("static data loaded",
		zap.Int("types", registry.TypeCount()),
		zap.Int("categories", registry.CategoryCount()))

	// 4. Save store
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := persist.NewDB(ctx, cfg.Database, log)
	cancel()
	if err != nil {
		return fmt.Errorf("connect save store: %w", err)
	}
	defer db.Close()

	migCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = persist.RunMigrations(migCtx, db.Pool)
	cancel()
	if err != nil {
		return fmt.Errorf("migrate save store: %w", err)
	}
	saves := persist.NewSaveRepo(db)

	// 5. World bucket, scripting, simulation
	schemas, err := world.DefaultSchemas()
	if err != nil {
		return fmt.Errorf("build schemas: %w", err)
	}
	bucket := world.NewBucket(registry, schemas)
	if cfg.Simulation.Seed != 0 {
		bucket.SetRNG(world.NewRNG(cfg.Simulation.Seed))
	}

	scripts, err := scripting.NewEngine(cfg.Data.ScriptsDir, bucket, log)
	if err != nil {
		return fmt.Errorf("init scripting: %w", err)
	}
	defer scripts.Close()

	deps := &sim.Deps{
		Bucket:  bucket,
		Store:   world.NewStore(bucket, log),
		Scripts: scripts,
		Log:     log,
	}
	reg := sim.NewRegistry()
	sim.RegisterAll(reg)
	simulation := sim.New(deps, reg)

	// 6. Resume the latest save, or bootstrap a fresh world.
	if err := resumeOrBootstrap(deps, saves, cfg, log); err != nil {
		return err
	}

	// 7. Serve the action gateway until a shutdown signal.
	serveCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(simulation, cfg.Network, log)
	log.Info("action gateway listening", zap.String("addr", cfg.Network.BindAddress))
	if err := server.ListenAndServe(serveCtx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	// 8. Autosave on shutdown.
	sd, err := bucket.SaveData("autosave", cfg.Server.Version)
	if err != nil {
		return fmt.Errorf("snapshot for autosave: %w", err)
	}
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := saves.Put(saveCtx, sd); err != nil {
		return fmt.Errorf("write autosave: %w", err)
	}
	log.Info("autosave written", zap.Int("turn", bucket.World().Turn))
	return nil
}

func resumeOrBootstrap(deps *sim.Deps, saves *persist.SaveRepo, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	metas, err := saves.List(ctx)
	if err != nil {
		return fmt.Errorf("list saves: %w", err)
	}
	if len(metas) > 0 {
		sd, err := saves.Get(ctx, metas[0].Name)
		if err != nil {
			return err
		}
		if err := deps.Bucket.Restore(sd); err != nil {
			return err
		}
		log.Info("resumed save",
			zap.String("name", sd.Name),
			zap.Int("turn", deps.Bucket.World().Turn),
			zap.Int("objects", deps.Bucket.Count()))
		return nil
	}

	err = sim.Bootstrap(deps, sim.BootstrapConfig{
		Width:   cfg.Simulation.MapWidth,
		Height:  cfg.Simulation.MapHeight,
		Players: []string{"Player One"},
	})
	if err != nil {
		return err
	}
	log.Info("new world generated",
		zap.Int("width", cfg.Simulation.MapWidth),
		zap.Int("height", cfg.Simulation.MapHeight),
		zap.Int("objects", deps.Bucket.Count()))
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
