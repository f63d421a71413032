package ml

import (
	"errors"
	"math/rand"
)

// GradientBoost fits shallow regression trees to the running residual
// with a shrinkage factor, starting from the target mean.
type GradientBoost struct {
	NEstimators  int               `json:"n_estimators"`
	MaxDepth     int               `json:"max_depth"`
	MinSplit     int               `json:"min_samples_split"`
	LearningRate float64           `json:"learning_rate"`
	SubSample    float64           `json:"subsample"`
	Seed         int64             `json:"seed"`
	InitValue    float64           `json:"init_value"`
	Trees        []*RegressionTree `json:"trees"`
}

func NewGradientBoost(nEstimators, maxDepth, minSplit int, learningRate, subSample float64, seed int64) *GradientBoost {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	if subSample <= 0 || subSample > 1 {
		subSample = 1
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return &GradientBoost{
		NEstimators:  nEstimators,
		MaxDepth:     maxDepth,
		MinSplit:     minSplit,
		LearningRate: learningRate,
		SubSample:    subSample,
		Seed:         seed,
	}
}

func (g *GradientBoost) Kind() string { return "gradient_boost" }

func (g *GradientBoost) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("invalid training data")
	}
	rng := rand.New(rand.NewSource(g.Seed))

	g.InitValue = meanOf(y)
	preds := make([]float64, len(y))
	for i := range preds {
		preds[i] = g.InitValue
	}

	sampleSize := int(float64(len(X)) * g.SubSample)
	if sampleSize < 1 {
		sampleSize = len(X)
	}

	g.Trees = make([]*RegressionTree, 0, g.NEstimators)
	for round := 0; round < g.NEstimators; round++ {
		residuals := make([]float64, len(y))
		for i := range y {
			residuals[i] = y[i] - preds[i]
		}

		fitX, fitY := X, residuals
		if sampleSize < len(X) {
			// Stochastic boosting: sample rows without replacement.
			perm := rng.Perm(len(X))[:sampleSize]
			fitX = make([][]float64, sampleSize)
			fitY = make([]float64, sampleSize)
			for j, idx := range perm {
				fitX[j] = X[idx]
				fitY[j] = residuals[idx]
			}
		}

		tree := &RegressionTree{}
		opts := treeOptions{
			MaxDepth:        g.MaxDepth,
			MinSamplesSplit: g.MinSplit,
			Rng:             rand.New(rand.NewSource(g.Seed + int64(round) + 1)),
		}
		if err := tree.fit(fitX, fitY, opts); err != nil {
			return err
		}
		g.Trees = append(g.Trees, tree)

		for i, row := range X {
			v, err := tree.Predict(row)
			if err != nil {
				return err
			}
			preds[i] += g.LearningRate * v
		}
	}
	return nil
}

func (g *GradientBoost) Predict(x []float64) (float64, error) {
	if len(g.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := g.InitValue
	for _, tree := range g.Trees {
		v, err := tree.Predict(x)
		if err != nil {
			return 0, err
		}
		sum += g.LearningRate * v
	}
	return sum, nil
}

// FeatureImportances sums impurity-decrease shares across boosting
// rounds.
func (g *GradientBoost) FeatureImportances() []float64 {
	return averageTreeImportances(g.Trees)
}
