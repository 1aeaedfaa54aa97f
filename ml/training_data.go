package ml

import (
	"fmt"

	"carprice/dataset"
)

// MinTrainingRows is the smallest dataset a refit is attempted on.
const MinTrainingRows = 2

// MaybeRetrain refits model on the whole dataset once it holds more than one
// row. It reports whether a fit happened; on error the model is unchanged.
func MaybeRetrain(ds dataset.Dataset, model Regressor) (bool, error) {
	if ds.Len() < MinTrainingRows {
		return false, nil
	}
	if err := model.Fit(ds.Features(), ds.Targets()); err != nil {
		return false, fmt.Errorf("fit on %d rows: %w", ds.Len(), err)
	}
	return true, nil
}
