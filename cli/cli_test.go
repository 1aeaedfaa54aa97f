package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"carprice/dataset"
	"carprice/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`storage:
  dataset_path: %s
  model_path: %s
  static_dir: %s
  plot_file: plot.png
log:
  level: error
`, filepath.Join(dir, "model", "car_data.db"), filepath.Join(dir, "model", "model.json"), filepath.Join(dir, "static"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dir
}

func seed(t *testing.T, dir string, rows ...dataset.Observation) {
	t.Helper()
	store, err := db.Open(filepath.Join(dir, "model", "car_data.db"))
	require.NoError(t, err)
	require.NoError(t, store.Persist(context.Background(), dataset.New(rows...)))
	require.NoError(t, store.Close())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRetrainThenPredict(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	seed(t, dir,
		dataset.NewObservation(2015, 50000, decimal.NewFromInt(12000)),
		dataset.NewObservation(2018, 30000, decimal.NewFromInt(15000)),
	)

	out, err := run(t, "--config", cfgPath, "retrain")
	require.NoError(t, err)
	assert.Contains(t, out, "trained on 2 rows")
	assert.FileExists(t, filepath.Join(dir, "model", "model.json"))
	assert.FileExists(t, filepath.Join(dir, "static", "plot.png"))

	out, err = run(t, "--config", cfgPath, "predict", "--year", "2018", "--hand", "30000")
	require.NoError(t, err)
	assert.Equal(t, "15,000.00\n", out)
}

func TestRetrainWithTooFewRows(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	seed(t, dir, dataset.NewObservation(2015, 50000, decimal.NewFromInt(12000)))

	out, err := run(t, "--config", cfgPath, "retrain")
	require.NoError(t, err)
	assert.Contains(t, out, "not enough data")
}

func TestPredictBeforeTraining(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "predict", "--year", "2018", "--hand", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trained model")
}

func TestHandFlagDescribesMileage(t *testing.T) {
	flag := predictCmd.Flags().Lookup("hand")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "Mileage")
}
