package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"carprice/dataset"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model", "car_data.db")
	store, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestLoadFreshStoreIsEmpty(t *testing.T) {
	store, path := openTemp(t)
	assert.Equal(t, path, store.Path())

	ds, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
}

func TestPersistThenReloadKeepsOrder(t *testing.T) {
	ctx := context.Background()
	store, path := openTemp(t)

	ds := dataset.Dataset{}
	for i := 0; i < 5; i++ {
		ds = ds.Append(dataset.NewObservation(2020-i, 10000*i, decimal.RequireFromString("999.95").Add(decimal.NewFromInt(int64(i)))))
		require.NoError(t, store.Persist(ctx, ds))
	}
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, loaded.Len())
	for i, obs := range loaded.Rows() {
		assert.Equal(t, 2020-i, obs.Year)
		assert.Equal(t, 10000*i, obs.Hand)
		assert.True(t, obs.Price.Equal(ds.Rows()[i].Price), "row %d price %s", i, obs.Price)
	}
}

func TestPersistOverwritesPreviousContent(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)

	long := dataset.New(
		dataset.NewObservation(2015, 1, decimal.NewFromInt(1)),
		dataset.NewObservation(2016, 2, decimal.NewFromInt(2)),
	)
	require.NoError(t, store.Persist(ctx, long))
	require.NoError(t, store.Persist(ctx, dataset.New(dataset.NewObservation(2017, 3, decimal.NewFromInt(3)))))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, 2017, loaded.Rows()[0].Year)
}

func TestTrainingLog(t *testing.T) {
	ctx := context.Background()
	store, _ := openTemp(t)

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTrainingLog(ctx, TrainingLog{ModelName: "linear_regression", RSquared: 0.5, TrainedAt: first, DataPoints: 2}))
	require.NoError(t, store.SaveTrainingLog(ctx, TrainingLog{ModelName: "linear_regression", RSquared: 0.9, TrainedAt: first.Add(time.Hour), DataPoints: 3}))

	logs, err := store.LoadTrainingLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 3, logs[0].DataPoints)
	assert.InDelta(t, 0.9, logs[0].RSquared, 1e-12)
}
