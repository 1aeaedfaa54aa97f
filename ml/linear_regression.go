package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the singular value cutoff, relative to the largest one.
const rankTolerance = 1e-10

// LinearRegression is an ordinary least squares model with an intercept.
// Fit replaces the coefficients wholesale; a failed Fit keeps the old ones.
type LinearRegression struct {
	intercept    float64
	coefficients []float64
	samples      int
	trained      bool
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Fit solves min |y - Xb - c| over the full data set. Columns are centered
// first and the centered system is solved through an SVD, which yields the
// minimum-norm solution when there are fewer independent rows than features.
func (lr *LinearRegression) Fit(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return errors.New("features and targets size mismatch")
	}
	n, p := len(features), len(features[0])
	if p == 0 {
		return errors.New("features have no columns")
	}

	xMean := make([]float64, p)
	var yMean float64
	for i, row := range features {
		if len(row) != p {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), p)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("row %d feature %d is not finite", i, j)
			}
			xMean[j] += v
		}
		if math.IsNaN(targets[i]) || math.IsInf(targets[i], 0) {
			return fmt.Errorf("target %d is not finite", i)
		}
		yMean += targets[i]
	}
	floats.Scale(1/float64(n), xMean)
	yMean /= float64(n)

	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, row := range features {
		for j, v := range row {
			x.Set(i, j, v-xMean[j])
		}
		y.SetVec(i, targets[i]-yMean)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return errors.New("svd factorization failed")
	}

	coefficients := make([]float64, p)
	rank := svd.Rank(rankTolerance)
	if rank > 0 {
		var beta mat.VecDense
		svd.SolveVecTo(&beta, y, rank)
		for j := range coefficients {
			coefficients[j] = beta.AtVec(j)
		}
	}

	lr.coefficients = coefficients
	lr.intercept = yMean - floats.Dot(coefficients, xMean)
	lr.samples = n
	lr.trained = true
	return nil
}

func (lr *LinearRegression) Predict(features []float64) (float64, error) {
	if !lr.trained {
		return 0, ErrNotTrained
	}
	if len(features) != len(lr.coefficients) {
		return 0, fmt.Errorf("got %d features, model expects %d", len(features), len(lr.coefficients))
	}
	return lr.intercept + floats.Dot(lr.coefficients, features), nil
}

func (lr *LinearRegression) Trained() bool {
	return lr.trained
}

func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.coefficients...)
}

func (lr *LinearRegression) Samples() int {
	return lr.samples
}

// Score returns the coefficient of determination R² on the given data.
func (lr *LinearRegression) Score(features [][]float64, targets []float64) (float64, error) {
	if len(features) != len(targets) || len(targets) == 0 {
		return 0, errors.New("features and targets size mismatch")
	}
	mean := floats.Sum(targets) / float64(len(targets))
	var ssRes, ssTot float64
	for i, row := range features {
		pred, err := lr.Predict(row)
		if err != nil {
			return 0, err
		}
		ssRes += (targets[i] - pred) * (targets[i] - pred)
		ssTot += (targets[i] - mean) * (targets[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1, nil
		}
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

type linearRegressionState struct {
	Trained      bool      `json:"trained"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Samples      int       `json:"samples"`
}

func (lr *LinearRegression) MarshalJSON() ([]byte, error) {
	return json.Marshal(linearRegressionState{
		Trained:      lr.trained,
		Intercept:    lr.intercept,
		Coefficients: lr.coefficients,
		Samples:      lr.samples,
	})
}

func (lr *LinearRegression) UnmarshalJSON(payload []byte) error {
	var state linearRegressionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return err
	}
	if state.Trained && len(state.Coefficients) == 0 {
		return errors.New("trained model without coefficients")
	}
	lr.trained = state.Trained
	lr.intercept = state.Intercept
	lr.coefficients = state.Coefficients
	lr.samples = state.Samples
	return nil
}
