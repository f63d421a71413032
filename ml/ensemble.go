package ml

import (
	"errors"
	"fmt"
	"sort"

	"flightprice/config"
)

// ErrModelNotReady is returned by Predict before the ensemble has been
// trained or loaded from an artifact.
var ErrModelNotReady = errors.New("model not ready")

// Ensemble holds three independently trained regressors and a fixed
// per-model weight table. Prediction is the weighted sum of member
// outputs; weights come from configuration and are not required to sum
// to one.
type Ensemble struct {
	Members map[string]Regressor
	Weights map[string]float64
	// Pre is the training-time preprocessor, attached so serving can
	// apply the exact transformation the model was fitted on.
	Pre *Preprocessor

	trained bool
}

// BuildEnsemble instantiates the three regressors with hyperparameters
// taken verbatim from configuration. A member without a configured
// weight is a configuration error, fatal at startup.
func BuildEnsemble(cfg *config.Config) (*Ensemble, error) {
	rf := cfg.Models.RandomForest
	gb := cfg.Models.GradientBoost
	et := cfg.Models.ExtraTrees

	ens := &Ensemble{
		Members: map[string]Regressor{
			"random_forest":  NewRandomForest(rf.NEstimators, rf.MaxDepth, rf.MinSplit, rf.SubSample, rf.RandomState),
			"gradient_boost": NewGradientBoost(gb.NEstimators, gb.MaxDepth, gb.MinSplit, gb.LearningRate, gb.SubSample, gb.RandomState),
			"extra_trees":    NewExtraTrees(et.NEstimators, et.MaxDepth, et.MinSplit, et.RandomState),
		},
		Weights: make(map[string]float64),
	}
	for name := range ens.Members {
		weight, ok := cfg.Ensemble.Weights[name]
		if !ok {
			return nil, fmt.Errorf("config: missing ensemble weight for %s", name)
		}
		ens.Weights[name] = weight
	}
	return ens, nil
}

// MemberNames returns member names in stable order.
func (e *Ensemble) MemberNames() []string {
	names := make([]string, 0, len(e.Members))
	for name := range e.Members {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Train fits each member independently and sequentially. Any member's
// failure aborts the whole operation.
func (e *Ensemble) Train(X [][]float64, y []float64) error {
	for _, name := range e.MemberNames() {
		if err := e.Members[name].Fit(X, y); err != nil {
			return fmt.Errorf("train %s: %w", name, err)
		}
	}
	e.trained = true
	return nil
}

// Predict computes the fixed weighted sum over member predictions.
func (e *Ensemble) Predict(x []float64) (float64, error) {
	if !e.trained {
		return 0, ErrModelNotReady
	}
	sum := 0.0
	for _, name := range e.MemberNames() {
		v, err := e.Members[name].Predict(x)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		sum += e.Weights[name] * v
	}
	return sum, nil
}

// PredictBatch runs Predict row by row.
func (e *Ensemble) PredictBatch(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, row := range X {
		v, err := e.Predict(row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FeatureImportance returns the native importance array per member that
// exposes one.
func (e *Ensemble) FeatureImportance() map[string][]float64 {
	out := make(map[string][]float64)
	for _, name := range e.MemberNames() {
		if imp := e.Members[name].FeatureImportances(); imp != nil {
			out[name] = imp
		}
	}
	return out
}

// Ready reports whether the ensemble can serve predictions.
func (e *Ensemble) Ready() bool { return e.trained }
