package pipeline

import (
	"context"
	"fmt"

	"flightprice/config"
	"flightprice/registry"
)

// Check is one threshold comparison over a recorded metric.
type Check struct {
	Metric    string
	Value     float64
	Threshold float64
	Passed    bool
}

// ValidationResult collects every gate decision for a model version.
// All configured gates are evaluated even after the first failure, so
// the reasons list is complete.
type ValidationResult struct {
	ModelName string
	Version   string
	Passed    bool
	Checks    []Check
	Reasons   []string
}

// Validate compares the metrics recorded at version creation time
// against the configured promotion gates. A gate whose metric was never
// recorded is skipped rather than failed; a gate left at zero in
// configuration is disabled.
func Validate(ctx context.Context, client registry.Client, name, version string, thresholds config.Thresholds) (*ValidationResult, error) {
	if _, err := client.GetModelVersion(ctx, name, version); err != nil {
		return nil, fmt.Errorf("resolve %s version %s: %w", name, version, err)
	}
	run, err := client.GetRunData(ctx, name, version)
	if err != nil {
		return nil, fmt.Errorf("fetch run data for %s version %s: %w", name, version, err)
	}

	result := &ValidationResult{ModelName: name, Version: version, Passed: true}
	result.gate(run.Metrics, "r2_score", thresholds.MinR2, false)
	result.gate(run.Metrics, "rmse", thresholds.MaxRMSE, true)
	result.gate(run.Metrics, "mape", thresholds.MaxMAPE, true)
	return result, nil
}

// gate records one comparison. upperBound picks the direction: true
// means the metric must stay at or below the threshold.
func (r *ValidationResult) gate(metrics map[string]float64, metric string, threshold float64, upperBound bool) {
	if threshold == 0 {
		return
	}
	value, ok := metrics[metric]
	if !ok {
		return
	}
	passed := value >= threshold
	if upperBound {
		passed = value <= threshold
	}
	r.Checks = append(r.Checks, Check{Metric: metric, Value: value, Threshold: threshold, Passed: passed})
	if !passed {
		r.Passed = false
		direction := "below minimum"
		if upperBound {
			direction = "above maximum"
		}
		r.Reasons = append(r.Reasons,
			fmt.Sprintf("%s %.4f is %s %.4f", metric, value, direction, threshold))
	}
}
