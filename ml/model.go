package ml

// Regressor is one member of the ensemble.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
	// FeatureImportances returns the native per-feature importance
	// array, or nil when the model does not expose one or is untrained.
	FeatureImportances() []float64
	Kind() string
}
