package ml

import (
	"math"
	"testing"
)

func TestEvaluatePerfectFit(t *testing.T) {
	y := []float64{100, 200, 300, 400}
	m := Evaluate(y, y)
	if m["mae"] != 0 || m["rmse"] != 0 {
		t.Errorf("perfect fit should have zero error, got mae=%f rmse=%f", m["mae"], m["rmse"])
	}
	if m["r2_score"] != 1 {
		t.Errorf("perfect fit should have r2=1, got %f", m["r2_score"])
	}
	if m["mape"] != 0 {
		t.Errorf("perfect fit should have mape=0, got %f", m["mape"])
	}
}

func TestMAPEExcludesZeroTrueValues(t *testing.T) {
	yTrue := []float64{100, 0, 200}
	yPred := []float64{110, 50, 180}

	mape, excluded := MAPE(yTrue, yPred)
	if excluded != 1 {
		t.Fatalf("expected 1 excluded row, got %d", excluded)
	}
	// (10/100 + 20/200) / 2 * 100
	want := 10.0
	if math.Abs(mape-want) > 1e-9 {
		t.Errorf("mape = %f, want %f", mape, want)
	}
}

func TestMAPEAllZeros(t *testing.T) {
	mape, excluded := MAPE([]float64{0, 0}, []float64{1, 2})
	if !math.IsNaN(mape) {
		t.Errorf("expected NaN when every row is excluded, got %f", mape)
	}
	if excluded != 2 {
		t.Errorf("expected 2 excluded rows, got %d", excluded)
	}
}

func TestR2ConstantTarget(t *testing.T) {
	if r2 := R2([]float64{5, 5, 5}, []float64{5, 5, 5}); r2 != 0 {
		t.Errorf("constant target has no variance to explain, got r2=%f", r2)
	}
}
