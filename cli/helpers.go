package cli

import (
	"context"
	"fmt"
	"os"

	"carprice/config"
	"carprice/db"
	"carprice/logger"
	"carprice/ml"
	"carprice/plot"
	"carprice/service"
	"go.uber.org/zap"
)

// runtime bundles everything a command needs. close releases the database
// and flushes the logger.
type runtime struct {
	cfg   *config.Config
	log   *zap.Logger
	level zap.AtomicLevel
	store *db.Store
	app   *service.App
}

func (r *runtime) close() {
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.log.Warn("close database", zap.Error(err))
		}
	}
	_ = r.log.Sync()
}

// setup loads the config and builds the logger.
func setup() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, level, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtime{cfg: cfg, log: log, level: level}, nil
}

// openApp opens the stores and loads the dataset and model once.
func (r *runtime) openApp(ctx context.Context, notifier service.Notifier) error {
	if err := os.MkdirAll(r.cfg.Storage.StaticDir, 0o755); err != nil {
		return fmt.Errorf("create static dir: %w", err)
	}

	store, err := db.Open(r.cfg.Storage.DatasetPath)
	if err != nil {
		return err
	}
	r.log.Info("database initialized", zap.String("path", store.Path()))

	models := ml.NewFileStore(r.cfg.Storage.ModelPath)
	renderer := plot.NewRenderer(plot.Options{Width: r.cfg.Plot.Width, Height: r.cfg.Plot.Height})
	app, err := service.New(ctx, store, models, renderer, service.Options{
		PlotPath:  r.cfg.PlotPath(),
		CacheSize: r.cfg.Cache.PredictionSize,
		Logger:    r.log,
		Notifier:  notifier,
		Recorder:  store,
	})
	if err != nil {
		store.Close()
		return err
	}

	r.log.Info("application ready",
		zap.String("model", models.Path()),
		zap.String("plot", app.PlotPath()))

	r.store = store
	r.app = app
	return nil
}
