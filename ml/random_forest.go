package ml

import (
	"errors"
	"math/rand"
)

// RandomForest is a bagged ensemble of regression trees. Each tree is
// fitted on a bootstrap sample with a random feature subset per split.
type RandomForest struct {
	NEstimators int               `json:"n_estimators"`
	MaxDepth    int               `json:"max_depth"`
	MinSplit    int               `json:"min_samples_split"`
	SubSample   float64           `json:"subsample"`
	Seed        int64             `json:"seed"`
	Trees       []*RegressionTree `json:"trees"`
}

func NewRandomForest(nEstimators, maxDepth, minSplit int, subSample float64, seed int64) *RandomForest {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	if subSample <= 0 || subSample > 1 {
		subSample = 1
	}
	return &RandomForest{
		NEstimators: nEstimators,
		MaxDepth:    maxDepth,
		MinSplit:    minSplit,
		SubSample:   subSample,
		Seed:        seed,
	}
}

func (f *RandomForest) Kind() string { return "random_forest" }

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("invalid training data")
	}
	rng := rand.New(rand.NewSource(f.Seed))
	nFeatures := len(X[0])
	maxFeatures := nFeatures / 3
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	sampleSize := int(float64(len(X)) * f.SubSample)
	if sampleSize < 1 {
		sampleSize = len(X)
	}

	f.Trees = make([]*RegressionTree, 0, f.NEstimators)
	for i := 0; i < f.NEstimators; i++ {
		sampleX := make([][]float64, sampleSize)
		sampleY := make([]float64, sampleSize)
		for j := 0; j < sampleSize; j++ {
			idx := rng.Intn(len(X))
			sampleX[j] = X[idx]
			sampleY[j] = y[idx]
		}
		tree := &RegressionTree{}
		opts := treeOptions{
			MaxDepth:        f.MaxDepth,
			MinSamplesSplit: f.MinSplit,
			MaxFeatures:     maxFeatures,
			Rng:             rand.New(rand.NewSource(f.Seed + int64(i) + 1)),
		}
		if err := tree.fit(sampleX, sampleY, opts); err != nil {
			return err
		}
		f.Trees = append(f.Trees, tree)
	}
	return nil
}

func (f *RandomForest) Predict(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := 0.0
	for _, tree := range f.Trees {
		v, err := tree.Predict(x)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(f.Trees)), nil
}

// FeatureImportances averages the per-tree impurity-decrease shares.
// Returns nil before training.
func (f *RandomForest) FeatureImportances() []float64 {
	return averageTreeImportances(f.Trees)
}

func averageTreeImportances(trees []*RegressionTree) []float64 {
	if len(trees) == 0 {
		return nil
	}
	importances := make([]float64, trees[0].NFeatures)
	for _, tree := range trees {
		for i, v := range tree.Importances {
			if i < len(importances) {
				importances[i] += v
			}
		}
	}
	for i := range importances {
		importances[i] /= float64(len(trees))
	}
	normalizeImportances(importances)
	return importances
}
