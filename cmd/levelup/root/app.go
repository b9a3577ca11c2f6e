package root

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"levelup/internal/backend"
	"levelup/internal/config"
	"levelup/internal/engine"
	"levelup/internal/logging"
	"levelup/internal/storage"
)

// app is everything a command needs, opened from config.
type app struct {
	cfg *config.Config
	log *zap.Logger
	db  *sql.DB
	svc *engine.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// openApp wires config, logger, database, backend and service. Commands
// other than serve keep the console quiet unless --verbose is given.
func openApp(ctx context.Context, server bool) (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logCfg := cfg.Log
	if !server && !verbose && (logCfg.Level == "" || strings.EqualFold(logCfg.Level, "info")) {
		logCfg.Level = "warn"
	}
	if verbose {
		logCfg.Level = "debug"
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, nil, err
	}

	path, err := storage.ResolveDBPath(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = db.Close()
		_ = log.Sync()
	}

	gen, err := backend.New(cfg, log.Named("backend"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	svc, err := engine.NewService(ctx, db,
		engine.WithGenerator(gen),
		engine.WithLogger(log.Named("engine")),
		engine.WithLocation(loc),
		engine.WithGeneratorTimeout(cfg.Backend.Timeout),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("load state from %s: %w", path, err)
	}
	log.Debug("app ready", zap.String("db", path), zap.String("backend", cfg.Backend.Kind))
	return &app{cfg: cfg, log: log, db: db, svc: svc}, cleanup, nil
}

func openService(ctx context.Context) (*engine.Service, func(), error) {
	a, cleanup, err := openApp(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	return a.svc, cleanup, nil
}
