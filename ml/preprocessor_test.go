package ml

import (
	"math"
	"testing"
)

func trainingDataset() *Dataset {
	return &Dataset{
		Columns: []string{"airline", "duration", "price"},
		Rows: []Record{
			{"airline": "AirGo", "duration": 2.0, "price": 5000.0},
			{"airline": "SkyJet", "duration": 3.0, "price": 7000.0},
			{"airline": "AirGo", "duration": 4.0, "price": 6000.0},
			{"airline": "SkyJet", "price": 8000.0}, // missing duration
		},
	}
}

func TestFitTransformSchema(t *testing.T) {
	pre := NewPreprocessor("price", []string{"duration"}, false, "standard")
	X, y, err := pre.FitTransform(trainingDataset())
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	if len(X) != 4 || len(y) != 4 {
		t.Fatalf("expected 4 rows, got %d features and %d targets", len(X), len(y))
	}
	if len(pre.FeatureNames) != 2 {
		t.Fatalf("expected 2 feature names, got %v", pre.FeatureNames)
	}
	if pre.FeatureNames[0] != "airline" || pre.FeatureNames[1] != "duration" {
		t.Fatalf("unexpected feature order: %v", pre.FeatureNames)
	}
	if y[0] != 5000 || y[3] != 8000 {
		t.Errorf("target extraction wrong: %v", y)
	}
}

func TestMedianImputation(t *testing.T) {
	pre := NewPreprocessor("price", []string{"duration"}, false, "standard")
	X, _, err := pre.FitTransform(trainingDataset())
	if err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}
	// Median of 2, 3, 4 fills the missing fourth duration.
	if got := X[3][1]; math.Abs(got-3) > 1e-9 {
		t.Errorf("imputed duration = %f, want 3", got)
	}
}

func TestTransformUnseenCategory(t *testing.T) {
	pre := NewPreprocessor("price", []string{"duration"}, false, "standard")
	if _, _, err := pre.FitTransform(trainingDataset()); err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	unseen := &Dataset{
		Columns: []string{"airline", "duration"},
		Rows:    []Record{{"airline": "NewWings", "duration": 2.5}},
	}
	X, _, err := pre.Transform(unseen)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if got := X[0][0]; got != UnseenCategory {
		t.Errorf("unseen airline encoded as %f, want %d", got, UnseenCategory)
	}
}

func TestTransformMissingColumnZeroFilled(t *testing.T) {
	pre := NewPreprocessor("price", []string{"duration"}, false, "standard")
	if _, _, err := pre.FitTransform(trainingDataset()); err != nil {
		t.Fatalf("FitTransform failed: %v", err)
	}

	partial := &Dataset{
		Columns: []string{"airline"},
		Rows:    []Record{{"airline": "AirGo"}},
	}
	X, _, err := pre.Transform(partial)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if len(X[0]) != 2 {
		t.Fatalf("expected vector padded to schema width 2, got %d", len(X[0]))
	}
	if X[0][1] != 0 {
		t.Errorf("missing duration should zero-fill, got %f", X[0][1])
	}
}

func TestTransformBeforeFit(t *testing.T) {
	pre := NewPreprocessor("price", nil, false, "standard")
	if _, _, err := pre.Transform(trainingDataset()); err == nil {
		t.Fatal("expected error transforming with unfitted preprocessor")
	}
}

func TestSplitProportionsAndDeterminism(t *testing.T) {
	n := 100
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		X[i] = []float64{float64(i)}
		y[i] = float64(i)
	}

	trainX, trainY, testX, testY := Split(X, y, 0.2, 42)
	if len(trainX) != 80 || len(testX) != 20 {
		t.Fatalf("split sizes: train=%d test=%d", len(trainX), len(testX))
	}
	if len(trainY) != 80 || len(testY) != 20 {
		t.Fatalf("target sizes: train=%d test=%d", len(trainY), len(testY))
	}

	_, _, testX2, _ := Split(X, y, 0.2, 42)
	for i := range testX {
		if testX[i][0] != testX2[i][0] {
			t.Fatal("same seed should produce the same split")
		}
	}
}
