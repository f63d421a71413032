package ml

import "math"

// MAE is the mean absolute error.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	sum := 0.0
	for i := range yTrue {
		sum += math.Abs(yTrue[i] - yPred[i])
	}
	return sum / float64(len(yTrue))
}

// RMSE is the root mean squared error.
func RMSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	sum := 0.0
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(yTrue)))
}

// R2 is the coefficient of determination.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	mean := meanOf(yTrue)
	ssRes, ssTot := 0.0, 0.0
	for i := range yTrue {
		ssRes += (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
		ssTot += (yTrue[i] - mean) * (yTrue[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// MAPE is the mean absolute percentage error, mean(|y-ŷ|/y)×100.
// The metric is undefined where a true value is zero; such rows are
// excluded from the mean and reported via the second return value.
// When every row is excluded the metric is NaN.
func MAPE(yTrue, yPred []float64) (float64, int) {
	sum := 0.0
	used := 0
	excluded := 0
	for i := range yTrue {
		if yTrue[i] == 0 {
			excluded++
			continue
		}
		sum += math.Abs((yTrue[i] - yPred[i]) / yTrue[i])
		used++
	}
	if used == 0 {
		return math.NaN(), excluded
	}
	return sum / float64(used) * 100, excluded
}

// Evaluate computes the standard regression metric set.
func Evaluate(yTrue, yPred []float64) map[string]float64 {
	mape, _ := MAPE(yTrue, yPred)
	return map[string]float64{
		"mae":      MAE(yTrue, yPred),
		"rmse":     RMSE(yTrue, yPred),
		"r2_score": R2(yTrue, yPred),
		"mape":     mape,
	}
}
