package ml

import (
	"errors"
	"math"
	"math/rand"
)

// RegNode is one node of a regression tree stored in a flat array.
type RegNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// RegressionTree is a CART regression tree splitting on variance
// reduction. Nodes are stored in a flat array with child indexes, the
// same layout used for JSON round-tripping of model artifacts.
type RegressionTree struct {
	Nodes       []RegNode `json:"nodes"`
	NFeatures   int       `json:"n_features"`
	Importances []float64 `json:"importances,omitempty"`
}

// treeOptions steer the split search. RandomThresholds switches from
// quantile candidate scanning to a single uniform draw per feature,
// which is what the extra-trees variant wants.
type treeOptions struct {
	MaxDepth         int
	MinSamplesSplit  int
	MaxFeatures      int
	RandomThresholds bool
	Rng              *rand.Rand
}

func (o *treeOptions) normalize(nFeatures int) {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 6
	}
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MaxFeatures <= 0 || o.MaxFeatures > nFeatures {
		o.MaxFeatures = nFeatures
	}
	if o.Rng == nil {
		o.Rng = rand.New(rand.NewSource(1))
	}
}

func (t *RegressionTree) fit(X [][]float64, y []float64, opts treeOptions) error {
	if len(X) == 0 || len(y) == 0 {
		return errors.New("features or target empty")
	}
	if len(X) != len(y) {
		return errors.New("features and target size mismatch")
	}
	t.NFeatures = len(X[0])
	opts.normalize(t.NFeatures)

	t.Importances = make([]float64, t.NFeatures)
	t.Nodes = nil
	t.buildNode(X, y, 0, opts)
	normalizeImportances(t.Importances)
	return nil
}

// Predict walks the flat node array from the root.
func (t *RegressionTree) Predict(x []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("tree not trained")
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(x) {
			return 0, errors.New("feature index out of range")
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// buildNode appends the subtree for this sample set to t.Nodes and
// returns the index of its root. Appending before recursing keeps every
// child index global, so no rebasing is needed when subtrees meet.
func (t *RegressionTree) buildNode(X [][]float64, y []float64, depth int, opts treeOptions) int {
	idx := len(t.Nodes)
	value := meanOf(y)
	t.Nodes = append(t.Nodes, RegNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: value, IsLeaf: true})

	if depth >= opts.MaxDepth || len(y) < opts.MinSamplesSplit || isConstant(y) {
		return idx
	}

	feature, threshold, gain, ok := t.findBestSplit(X, y, opts)
	if !ok {
		return idx
	}

	leftX, leftY, rightX, rightY := partition(X, y, feature, threshold)
	if len(leftY) == 0 || len(rightY) == 0 {
		return idx
	}

	t.Importances[feature] += gain

	left := t.buildNode(leftX, leftY, depth+1, opts)
	right := t.buildNode(rightX, rightY, depth+1, opts)

	t.Nodes[idx] = RegNode{
		FeatureIdx: feature,
		Threshold:  threshold,
		LeftChild:  left,
		RightChild: right,
		Value:      value,
		IsLeaf:     false,
	}
	return idx
}

func (t *RegressionTree) findBestSplit(X [][]float64, y []float64, opts treeOptions) (int, float64, float64, bool) {
	parentSSE := sumSquaredError(y)
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	for _, featureIdx := range candidateFeatures(t.NFeatures, opts) {
		values := make([]float64, len(X))
		for i := range X {
			values[i] = X[i][featureIdx]
		}
		for _, threshold := range candidateThresholds(values, opts) {
			leftY, rightY := splitTarget(X, y, featureIdx, threshold)
			if len(leftY) == 0 || len(rightY) == 0 {
				continue
			}
			gain := parentSSE - sumSquaredError(leftY) - sumSquaredError(rightY)
			if gain > bestGain {
				bestGain = gain
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

func candidateFeatures(nFeatures int, opts treeOptions) []int {
	if opts.MaxFeatures >= nFeatures {
		all := make([]int, nFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return opts.Rng.Perm(nFeatures)[:opts.MaxFeatures]
}

func candidateThresholds(values []float64, opts treeOptions) []float64 {
	min, max := minMaxOf(values)
	if min == max {
		return nil
	}
	if opts.RandomThresholds {
		return []float64{min + opts.Rng.Float64()*(max-min)}
	}
	// Quantile cuts keep the scan cheap on wide columns.
	const cuts = 12
	thresholds := make([]float64, 0, cuts)
	for i := 1; i <= cuts; i++ {
		thresholds = append(thresholds, quantileOf(values, float64(i)/float64(cuts+1)))
	}
	return dedupeFloats(thresholds)
}

func partition(X [][]float64, y []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	var leftX, rightX [][]float64
	var leftY, rightY []float64
	for i, row := range X {
		if row[featureIdx] <= threshold {
			leftX = append(leftX, row)
			leftY = append(leftY, y[i])
		} else {
			rightX = append(rightX, row)
			rightY = append(rightY, y[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

func splitTarget(X [][]float64, y []float64, featureIdx int, threshold float64) ([]float64, []float64) {
	var left, right []float64
	for i, row := range X {
		if row[featureIdx] <= threshold {
			left = append(left, y[i])
		} else {
			right = append(right, y[i])
		}
	}
	return left, right
}

func sumSquaredError(y []float64) float64 {
	mean := meanOf(y)
	sse := 0.0
	for _, v := range y {
		sse += (v - mean) * (v - mean)
	}
	return sse
}

func isConstant(y []float64) bool {
	if len(y) == 0 {
		return true
	}
	first := y[0]
	for _, v := range y[1:] {
		if v != first {
			return false
		}
	}
	return true
}

func dedupeFloats(values []float64) []float64 {
	out := values[:0]
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func normalizeImportances(importances []float64) {
	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total == 0 || math.IsNaN(total) {
		return
	}
	for i := range importances {
		importances[i] /= total
	}
}
