// Package service owns the in-memory dataset and model and runs the
// submit/retrain/render/predict workflow against the persistent stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"carprice/dataset"
	"carprice/db"
	"carprice/ml"
	"carprice/plot"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var ErrTrainingFailed = errors.New("training failed")

type DatasetStore interface {
	Load(ctx context.Context) (dataset.Dataset, error)
	Persist(ctx context.Context, ds dataset.Dataset) error
}

type ModelStore interface {
	LoadOrInit() (*ml.LinearRegression, error)
	Save(model *ml.LinearRegression) error
}

// TrainingRecorder receives one entry per successful refit. Optional.
type TrainingRecorder interface {
	SaveTrainingLog(ctx context.Context, entry db.TrainingLog) error
}

type Renderer interface {
	Render(ds dataset.Dataset, model plot.Predictor, outputPath string) error
}

// Notifier is told about every accepted submission. Optional.
type Notifier interface {
	Notify(event Event)
}

type Event struct {
	Type    string `json:"type"`
	Rows    int    `json:"rows"`
	Trained bool   `json:"trained"`
}

const EventDatasetUpdated = "dataset_updated"

type Options struct {
	PlotPath  string
	CacheSize int
	Logger    *zap.Logger
	Notifier  Notifier
	Recorder  TrainingRecorder
}

type featureKey struct {
	year, hand int
}

// App is the process-wide state: the dataset and model, loaded once and
// written back after every mutation. All access goes through mu.
type App struct {
	mu       sync.Mutex
	data     dataset.Dataset
	model    *ml.LinearRegression
	datasets DatasetStore
	models   ModelStore
	renderer Renderer
	cache    *lru.Cache[featureKey, float64]
	opts     Options
	log      *zap.Logger
}

// New loads the dataset and model once. Missing stores are initialized by
// the stores themselves.
func New(ctx context.Context, datasets DatasetStore, models ModelStore, renderer Renderer, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.PlotPath == "" {
		opts.PlotPath = "static/plot.png"
	}

	data, err := datasets.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	model, err := models.LoadOrInit()
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	cache, err := lru.New[featureKey, float64](opts.CacheSize)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("state loaded",
		zap.Int("rows", data.Len()),
		zap.Bool("trained", model.Trained()))

	return &App{
		data:     data,
		model:    model,
		datasets: datasets,
		models:   models,
		renderer: renderer,
		cache:    cache,
		opts:     opts,
		log:      opts.Logger,
	}, nil
}

type SubmitResult struct {
	Rows      int
	Retrained bool
}

// Submit appends obs, persists the dataset and refits the model when enough
// rows exist. If the dataset cannot be persisted nothing changes in memory.
// A failed fit is reported wrapped in ErrTrainingFailed; the appended row is
// kept and the previous model stays in place.
func (a *App) Submit(ctx context.Context, obs dataset.Observation) (SubmitResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.data.Append(obs)
	if err := a.datasets.Persist(ctx, next); err != nil {
		return SubmitResult{Rows: a.data.Len()}, fmt.Errorf("persist dataset: %w", err)
	}
	a.data = next

	result := SubmitResult{Rows: next.Len()}
	retrained, err := a.retrainLocked(ctx)
	result.Retrained = retrained
	a.notify(result)
	return result, err
}

// Retrain refits the model on the current dataset without appending.
func (a *App) Retrain(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retrainLocked(ctx)
}

func (a *App) retrainLocked(ctx context.Context) (bool, error) {
	// fit a copy so a failed save leaves the live model untouched
	candidate := ml.NewLinearRegression()
	fitted, err := ml.MaybeRetrain(a.data, candidate)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTrainingFailed, err)
	}
	if !fitted {
		return false, nil
	}
	if err := a.models.Save(candidate); err != nil {
		return false, fmt.Errorf("%w: save model: %v", ErrTrainingFailed, err)
	}
	a.model = candidate
	a.cache.Purge()

	score, err := candidate.Score(a.data.Features(), a.data.Targets())
	if err != nil {
		a.log.Warn("score model", zap.Error(err))
	}
	a.log.Info("model retrained",
		zap.Int("rows", a.data.Len()),
		zap.Float64("intercept", candidate.Intercept()),
		zap.Float64s("coefficients", candidate.Coefficients()),
		zap.Float64("r_squared", score))

	if a.opts.Recorder != nil {
		entry := db.TrainingLog{ModelName: "linear_regression", RSquared: score, DataPoints: a.data.Len()}
		if err := a.opts.Recorder.SaveTrainingLog(ctx, entry); err != nil {
			a.log.Warn("record training run", zap.Error(err))
		}
	}
	return true, nil
}

// Predict evaluates the current model. It returns ml.ErrNotTrained until a
// fit has happened.
func (a *App) Predict(year, hand int) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := featureKey{year: year, hand: hand}
	if price, ok := a.cache.Get(key); ok {
		return price, nil
	}
	price, err := a.model.Predict([]float64{float64(year), float64(hand)})
	if err != nil {
		return 0, err
	}
	a.cache.Add(key, price)
	return price, nil
}

// RenderPlot redraws the plot image for the current state.
func (a *App) RenderPlot() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renderer.Render(a.data, a.model, a.opts.PlotPath)
}

func (a *App) PlotPath() string {
	return a.opts.PlotPath
}

type ModelState struct {
	Trained      bool      `json:"trained"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Samples      int       `json:"samples"`
	Features     []string  `json:"features"`
}

type Snapshot struct {
	Observations []dataset.Observation `json:"observations"`
	Model        ModelState            `json:"model"`
}

func (a *App) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Observations: a.data.Rows(),
		Model: ModelState{
			Trained:      a.model.Trained(),
			Intercept:    a.model.Intercept(),
			Coefficients: a.model.Coefficients(),
			Samples:      a.model.Samples(),
			Features:     dataset.FeatureNames,
		},
	}
}

func (a *App) notify(result SubmitResult) {
	if a.opts.Notifier == nil {
		return
	}
	a.opts.Notifier.Notify(Event{
		Type:    EventDatasetUpdated,
		Rows:    result.Rows,
		Trained: a.model.Trained(),
	})
}

// RoundPrice rounds to cents, half away from zero.
func RoundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}
