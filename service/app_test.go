package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"carprice/dataset"
	"carprice/db"
	"carprice/ml"
	"carprice/plot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDatasets struct {
	stored     dataset.Dataset
	persistErr error
}

func (m *memoryDatasets) Load(context.Context) (dataset.Dataset, error) { return m.stored, nil }
func (m *memoryDatasets) Persist(_ context.Context, ds dataset.Dataset) error {
	if m.persistErr != nil {
		return m.persistErr
	}
	m.stored = ds
	return nil
}

type memoryModels struct {
	saved   *ml.LinearRegression
	saveErr error
}

func (m *memoryModels) LoadOrInit() (*ml.LinearRegression, error) { return ml.NewLinearRegression(), nil }
func (m *memoryModels) Save(model *ml.LinearRegression) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = model
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingNotifier) Notify(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

type nopRenderer struct{ calls int }

func (n *nopRenderer) Render(dataset.Dataset, plot.Predictor, string) error {
	n.calls++
	return nil
}

func obs(year, hand int, price int64) dataset.Observation {
	return dataset.NewObservation(year, hand, decimal.NewFromInt(price))
}

func TestSubmitScenario(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	models := &memoryModels{}
	app, err := New(ctx, &memoryDatasets{}, models, &nopRenderer{}, Options{Notifier: notifier})
	require.NoError(t, err)

	result, err := app.Submit(ctx, obs(2015, 50000, 12000))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.False(t, result.Retrained)

	_, err = app.Predict(2015, 50000)
	require.ErrorIs(t, err, ml.ErrNotTrained)

	result, err = app.Submit(ctx, obs(2018, 30000, 15000))
	require.NoError(t, err)
	assert.True(t, result.Retrained)
	require.NotNil(t, models.saved)

	price, err := app.Predict(2018, 30000)
	require.NoError(t, err)
	assert.InDelta(t, 15000, price, 1e-6)

	again, err := app.Predict(2018, 30000)
	require.NoError(t, err)
	assert.Equal(t, price, again)

	require.Len(t, notifier.events, 2)
	assert.Equal(t, EventDatasetUpdated, notifier.events[1].Type)
	assert.True(t, notifier.events[1].Trained)
}

func TestSubmitPersistFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	datasets := &memoryDatasets{}
	app, err := New(ctx, datasets, &memoryModels{}, &nopRenderer{}, Options{})
	require.NoError(t, err)

	datasets.persistErr = errors.New("disk full")
	_, err = app.Submit(ctx, obs(2015, 50000, 12000))
	require.Error(t, err)
	assert.Empty(t, app.Snapshot().Observations)
}

func TestSubmitModelSaveFailureKeepsOldModel(t *testing.T) {
	ctx := context.Background()
	models := &memoryModels{}
	app, err := New(ctx, &memoryDatasets{}, models, &nopRenderer{}, Options{})
	require.NoError(t, err)

	_, err = app.Submit(ctx, obs(2015, 50000, 12000))
	require.NoError(t, err)

	models.saveErr = errors.New("read-only")
	_, err = app.Submit(ctx, obs(2018, 30000, 15000))
	require.ErrorIs(t, err, ErrTrainingFailed)

	snap := app.Snapshot()
	assert.Len(t, snap.Observations, 2)
	assert.False(t, snap.Model.Trained)
}

func TestRetrainPurgesPredictionCache(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, &memoryDatasets{}, &memoryModels{}, &nopRenderer{}, Options{CacheSize: 4})
	require.NoError(t, err)

	_, _ = app.Submit(ctx, obs(2015, 50000, 12000))
	_, _ = app.Submit(ctx, obs(2018, 30000, 15000))
	before, err := app.Predict(2016, 40000)
	require.NoError(t, err)

	_, err = app.Submit(ctx, obs(2016, 40000, 20000))
	require.NoError(t, err)
	after, err := app.Predict(2016, 40000)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestAppWithPersistentStores(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := db.Open(filepath.Join(dir, "model", "car_data.db"))
	require.NoError(t, err)
	defer store.Close()
	models := ml.NewFileStore(filepath.Join(dir, "model", "model.json"))
	plotPath := filepath.Join(dir, "static", "plot.png")

	app, err := New(ctx, store, models, plot.NewRenderer(plot.Options{Width: 320, Height: 240}), Options{PlotPath: plotPath, Recorder: store})
	require.NoError(t, err)
	assert.Equal(t, plotPath, app.PlotPath())
	require.NoError(t, app.RenderPlot())

	for _, o := range []dataset.Observation{obs(2015, 50000, 12000), obs(2018, 30000, 15000), obs(2012, 90000, 7000)} {
		_, err := app.Submit(ctx, o)
		require.NoError(t, err)
	}
	require.NoError(t, app.RenderPlot())

	// a second process sees the same state
	reloaded, err := New(ctx, store, models, &nopRenderer{}, Options{})
	require.NoError(t, err)
	snap := reloaded.Snapshot()
	require.Len(t, snap.Observations, 3)
	assert.Equal(t, 2012, snap.Observations[2].Year)
	assert.True(t, snap.Model.Trained)
	assert.Equal(t, 3, snap.Model.Samples)

	logs, err := store.LoadTrainingLog(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 12345.68, RoundPrice(12345.678))
	assert.Equal(t, 0.0, RoundPrice(0.004))
}
