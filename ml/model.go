package ml

import "errors"

var ErrNotTrained = errors.New("model not trained")

// Regressor maps a feature vector to a continuous value.
type Regressor interface {
	Fit(features [][]float64, targets []float64) error
	Predict(features []float64) (float64, error)
	Trained() bool
}
