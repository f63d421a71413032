// Package pipeline holds the offline stages: data preparation, model
// training, validation against promotion gates, and alias promotion.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"flightprice/config"
	"flightprice/ml"
)

// referenceSampleSize caps the drift reference snapshot written during
// preparation.
const referenceSampleSize = 1000

// currentSampleSize caps the synthetic current sample used to smoke-test
// drift detection before real traffic exists.
const currentSampleSize = 200

// Prepare runs the data stage: load the raw dataset, engineer features,
// fit the preprocessor, split, and write the processed partitions plus
// the fitted preprocessor state and a drift reference sample into the
// processed directory.
func Prepare(cfg *config.Config, logger *zap.SugaredLogger) error {
	ds, err := ml.LoadRecords(cfg.Data.RawPath)
	if err != nil {
		return fmt.Errorf("load raw data: %w", err)
	}
	logger.Infow("raw data loaded", "path", cfg.Data.RawPath, "rows", len(ds.Rows))

	ds = ml.EngineerFeatures(ds)

	pre := ml.NewPreprocessor(cfg.Data.Target, cfg.Data.Numerical,
		cfg.Preprocessing.ScaleNumerical, cfg.Preprocessing.Scaler)
	X, y, err := pre.FitTransform(ds)
	if err != nil {
		return fmt.Errorf("fit preprocessor: %w", err)
	}
	if len(y) != len(X) {
		return fmt.Errorf("target column %q missing from raw data", cfg.Data.Target)
	}

	trainX, trainY, testX, testY := ml.Split(X, y, cfg.Data.TestSize, cfg.Data.RandomState)
	logger.Infow("dataset split", "train_rows", len(trainX), "test_rows", len(testX))

	dir := cfg.Data.ProcessedDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeMatrixCSV(filepath.Join(dir, "train.csv"), pre.FeatureNames, cfg.Data.Target, trainX, trainY); err != nil {
		return fmt.Errorf("write train partition: %w", err)
	}
	if err := writeMatrixCSV(filepath.Join(dir, "test.csv"), pre.FeatureNames, cfg.Data.Target, testX, testY); err != nil {
		return fmt.Errorf("write test partition: %w", err)
	}
	if err := savePreprocessor(filepath.Join(dir, "preprocessor.json"), pre); err != nil {
		return fmt.Errorf("save preprocessor: %w", err)
	}

	// The drift reference keeps the engineered but unencoded rows, the
	// same shape the serving layer logs for incoming requests.
	reference := sampleDataset(ds, referenceSampleSize, cfg.Data.RandomState)
	refPath := cfg.Drift.ReferencePath
	if refPath == "" {
		refPath = filepath.Join(dir, "reference.csv")
	}
	if err := writeDatasetCSV(refPath, reference); err != nil {
		return fmt.Errorf("write drift reference: %w", err)
	}
	current := sampleDataset(ds, currentSampleSize, cfg.Data.RandomState+1)
	if err := writeDatasetCSV(filepath.Join(dir, "current.csv"), current); err != nil {
		return fmt.Errorf("write current sample: %w", err)
	}

	logger.Infow("data preparation complete", "processed_dir", dir, "reference", refPath)
	return nil
}

// LoadProcessed reads one processed partition back into feature vectors
// ordered by the preprocessor's stored schema.
func LoadProcessed(path string, pre *ml.Preprocessor) ([][]float64, []float64, error) {
	ds, err := ml.LoadRecords(path)
	if err != nil {
		return nil, nil, err
	}
	X := make([][]float64, len(ds.Rows))
	y := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		vec := make([]float64, len(pre.FeatureNames))
		for j, name := range pre.FeatureNames {
			if v, ok := row[name].(float64); ok {
				vec[j] = v
			}
		}
		X[i] = vec
		target, ok := row[pre.Target].(float64)
		if !ok {
			return nil, nil, fmt.Errorf("row %d: target %q missing or non-numeric", i, pre.Target)
		}
		y[i] = target
	}
	return X, y, nil
}

// LoadPreprocessor reads fitted preprocessor state saved by Prepare.
func LoadPreprocessor(path string) (*ml.Preprocessor, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pre ml.Preprocessor
	if err := json.Unmarshal(payload, &pre); err != nil {
		return nil, fmt.Errorf("parse preprocessor state: %w", err)
	}
	return &pre, nil
}

func savePreprocessor(path string, pre *ml.Preprocessor) error {
	payload, err := json.MarshalIndent(pre, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func writeMatrixCSV(path string, features []string, target string, X [][]float64, y []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append(append([]string(nil), features...), target)
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := range X {
		for j, v := range X[i] {
			row[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		row[len(row)-1] = strconv.FormatFloat(y[i], 'g', -1, 64)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeDatasetCSV(path string, ds *ml.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(ds.Columns); err != nil {
		return err
	}
	row := make([]string, len(ds.Columns))
	for _, record := range ds.Rows {
		for j, col := range ds.Columns {
			switch v := record[col].(type) {
			case float64:
				row[j] = strconv.FormatFloat(v, 'g', -1, 64)
			case string:
				row[j] = v
			default:
				row[j] = ""
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func sampleDataset(ds *ml.Dataset, n int, seed int64) *ml.Dataset {
	if len(ds.Rows) <= n {
		return ds
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(ds.Rows))
	out := &ml.Dataset{Columns: ds.Columns, Rows: make([]ml.Record, n)}
	for i := 0; i < n; i++ {
		out.Rows[i] = ds.Rows[perm[i]]
	}
	return out
}
