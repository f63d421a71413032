package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"flightprice/config"
	"flightprice/db"
	"flightprice/ml"
	"flightprice/registry"
)

// logTraining is swappable for tests.
var logTraining = db.LogTraining

// TrainResult summarizes one training run.
type TrainResult struct {
	Version       string
	Metrics       map[string]float64
	MemberMetrics map[string]map[string]float64
	ArtifactPath  string
}

// Train runs the model stage: load processed partitions, fit the
// ensemble, evaluate it and every member on the held-out partition,
// persist the artifact locally, and register the version with its run
// metadata. A nil registry client skips registration, leaving only the
// local artifact.
func Train(ctx context.Context, cfg *config.Config, client registry.Client, logger *zap.SugaredLogger) (*TrainResult, error) {
	dir := cfg.Data.ProcessedDir
	pre, err := LoadPreprocessor(filepath.Join(dir, "preprocessor.json"))
	if err != nil {
		return nil, fmt.Errorf("load preprocessor: %w", err)
	}
	trainX, trainY, err := LoadProcessed(filepath.Join(dir, "train.csv"), pre)
	if err != nil {
		return nil, fmt.Errorf("load train partition: %w", err)
	}
	testX, testY, err := LoadProcessed(filepath.Join(dir, "test.csv"), pre)
	if err != nil {
		return nil, fmt.Errorf("load test partition: %w", err)
	}

	ens, err := ml.BuildEnsemble(cfg)
	if err != nil {
		return nil, err
	}
	ens.Pre = pre

	start := time.Now()
	if err := ens.Train(trainX, trainY); err != nil {
		return nil, err
	}
	logger.Infow("ensemble trained", "rows", len(trainX), "features", len(pre.FeatureNames),
		"duration", time.Since(start).Round(time.Millisecond))

	preds, err := ens.PredictBatch(testX)
	if err != nil {
		return nil, err
	}
	result := &TrainResult{
		Metrics:       ml.Evaluate(testY, preds),
		MemberMetrics: make(map[string]map[string]float64),
		ArtifactPath:  cfg.Model.LocalPath,
	}
	for _, name := range ens.MemberNames() {
		memberPreds := make([]float64, len(testX))
		for i, row := range testX {
			v, err := ens.Members[name].Predict(row)
			if err != nil {
				return nil, fmt.Errorf("evaluate %s: %w", name, err)
			}
			memberPreds[i] = v
		}
		result.MemberMetrics[name] = ml.Evaluate(testY, memberPreds)
		logger.Infow("member evaluated", "model", name,
			"r2", result.MemberMetrics[name]["r2_score"], "rmse", result.MemberMetrics[name]["rmse"])
	}
	logger.Infow("ensemble evaluated",
		"r2", result.Metrics["r2_score"], "rmse", result.Metrics["rmse"],
		"mae", result.Metrics["mae"], "mape", result.Metrics["mape"])

	if err := ens.Save(cfg.Model.LocalPath); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	if client != nil {
		art, err := ens.Artifact()
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(art)
		if err != nil {
			return nil, err
		}
		version, err := client.CreateVersion(ctx, cfg.Registry.ModelName,
			registry.RunData{Params: runParams(cfg), Metrics: result.Metrics}, payload)
		if err != nil {
			return nil, fmt.Errorf("register model version: %w", err)
		}
		result.Version = version.Version
		logger.Infow("model version registered",
			"model", cfg.Registry.ModelName, "version", version.Version)
	}

	if err := logTraining(db.TrainingRecord{
		ModelName:  cfg.Registry.ModelName,
		MAE:        result.Metrics["mae"],
		RMSE:       result.Metrics["rmse"],
		R2:         result.Metrics["r2_score"],
		MAPE:       result.Metrics["mape"],
		DataPoints: len(trainX),
	}); err != nil {
		logger.Warnw("training log write failed", "error", err)
	}

	return result, nil
}

// runParams flattens the hyperparameters into the registry's string
// parameter table.
func runParams(cfg *config.Config) map[string]string {
	params := map[string]string{
		"ensemble.strategy":    cfg.Ensemble.Strategy,
		"preprocessing.scaler": cfg.Preprocessing.Scaler,
		"data.test_size":       strconv.FormatFloat(cfg.Data.TestSize, 'g', -1, 64),
	}
	addTreeParams(params, "random_forest", cfg.Models.RandomForest)
	addTreeParams(params, "gradient_boost", cfg.Models.GradientBoost)
	addTreeParams(params, "extra_trees", cfg.Models.ExtraTrees)
	for name, weight := range cfg.Ensemble.Weights {
		params["ensemble.weight."+name] = strconv.FormatFloat(weight, 'g', -1, 64)
	}
	return params
}

func addTreeParams(params map[string]string, prefix string, tp config.TreeParams) {
	params[prefix+".n_estimators"] = strconv.Itoa(tp.NEstimators)
	params[prefix+".max_depth"] = strconv.Itoa(tp.MaxDepth)
	params[prefix+".min_samples_split"] = strconv.Itoa(tp.MinSplit)
	if tp.LearningRate > 0 {
		params[prefix+".learning_rate"] = strconv.FormatFloat(tp.LearningRate, 'g', -1, 64)
	}
	if tp.SubSample > 0 {
		params[prefix+".subsample"] = strconv.FormatFloat(tp.SubSample, 'g', -1, 64)
	}
}
