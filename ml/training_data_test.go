package ml

import (
	"testing"

	"carprice/dataset"
	"github.com/shopspring/decimal"
)

func TestMaybeRetrain(t *testing.T) {
	model := NewLinearRegression()
	ds := dataset.New(dataset.NewObservation(2015, 50000, decimal.NewFromInt(12000)))

	fitted, err := MaybeRetrain(ds, model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fitted || model.Trained() {
		t.Fatal("a single row must not train the model")
	}

	ds = ds.Append(dataset.NewObservation(2018, 30000, decimal.NewFromInt(15000)))
	fitted, err = MaybeRetrain(ds, model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fitted || !model.Trained() {
		t.Fatal("expected model to be trained on two rows")
	}
	if model.Samples() != 2 {
		t.Fatalf("expected 2 samples, got %d", model.Samples())
	}
}
