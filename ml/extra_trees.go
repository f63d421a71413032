package ml

import (
	"errors"
	"math/rand"
)

// ExtraTrees is an extremely-randomized trees regressor: every tree
// sees the full sample, and split thresholds are drawn uniformly
// between the column bounds instead of scanned.
type ExtraTrees struct {
	NEstimators int               `json:"n_estimators"`
	MaxDepth    int               `json:"max_depth"`
	MinSplit    int               `json:"min_samples_split"`
	Seed        int64             `json:"seed"`
	Trees       []*RegressionTree `json:"trees"`
}

func NewExtraTrees(nEstimators, maxDepth, minSplit int, seed int64) *ExtraTrees {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	return &ExtraTrees{
		NEstimators: nEstimators,
		MaxDepth:    maxDepth,
		MinSplit:    minSplit,
		Seed:        seed,
	}
}

func (e *ExtraTrees) Kind() string { return "extra_trees" }

func (e *ExtraTrees) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("invalid training data")
	}
	nFeatures := len(X[0])
	maxFeatures := nFeatures / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	e.Trees = make([]*RegressionTree, 0, e.NEstimators)
	for i := 0; i < e.NEstimators; i++ {
		tree := &RegressionTree{}
		opts := treeOptions{
			MaxDepth:         e.MaxDepth,
			MinSamplesSplit:  e.MinSplit,
			MaxFeatures:      maxFeatures,
			RandomThresholds: true,
			Rng:              rand.New(rand.NewSource(e.Seed + int64(i) + 1)),
		}
		if err := tree.fit(X, y, opts); err != nil {
			return err
		}
		e.Trees = append(e.Trees, tree)
	}
	return nil
}

func (e *ExtraTrees) Predict(x []float64) (float64, error) {
	if len(e.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := 0.0
	for _, tree := range e.Trees {
		v, err := tree.Predict(x)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(e.Trees)), nil
}

func (e *ExtraTrees) FeatureImportances() []float64 {
	return averageTreeImportances(e.Trees)
}
