package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// UnseenCategory is the sentinel code assigned to categorical values
// never observed during fitting.
const UnseenCategory = -1

// LabelEncoder maps category strings to integer codes. Classes are
// sorted at fit time so codes are stable across runs.
type LabelEncoder struct {
	Classes []string       `json:"classes"`
	index   map[string]int `json:"-"`
}

func fitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]bool)
	for _, v := range values {
		seen[v] = true
	}
	classes := make([]string, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	le := &LabelEncoder{Classes: classes}
	le.buildIndex()
	return le
}

func (le *LabelEncoder) buildIndex() {
	le.index = make(map[string]int, len(le.Classes))
	for i, class := range le.Classes {
		le.index[class] = i
	}
}

// Encode returns the class code, or UnseenCategory for a value not in
// the fitted classes.
func (le *LabelEncoder) Encode(value string) int {
	if le.index == nil {
		le.buildIndex()
	}
	if code, ok := le.index[value]; ok {
		return code
	}
	return UnseenCategory
}

// Scaler scales feature columns. Kind selects the statistics captured
// at fit time: standard (mean/stddev), minmax (min/max spread) or
// robust (median/IQR).
type Scaler struct {
	Kind   string    `json:"kind"`
	Center []float64 `json:"center"`
	Scale  []float64 `json:"scale"`
}

func fitScaler(kind string, X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, errors.New("no rows to fit scaler")
	}
	cols := len(X[0])
	s := &Scaler{Kind: kind, Center: make([]float64, cols), Scale: make([]float64, cols)}

	for j := 0; j < cols; j++ {
		column := make([]float64, len(X))
		for i := range X {
			column[i] = X[i][j]
		}
		switch kind {
		case "standard":
			mean := meanOf(column)
			s.Center[j] = mean
			s.Scale[j] = stddevOf(column, mean)
		case "minmax":
			min, max := minMaxOf(column)
			s.Center[j] = min
			s.Scale[j] = max - min
		case "robust":
			s.Center[j] = quantileOf(column, 0.5)
			s.Scale[j] = quantileOf(column, 0.75) - quantileOf(column, 0.25)
		default:
			return nil, fmt.Errorf("unknown scaler kind %q", kind)
		}
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return s, nil
}

// Transform scales in place and returns X.
func (s *Scaler) Transform(X [][]float64) ([][]float64, error) {
	for i := range X {
		if len(X[i]) != len(s.Center) {
			return nil, fmt.Errorf("scaler expects %d columns, got %d", len(s.Center), len(X[i]))
		}
		for j := range X[i] {
			X[i][j] = (X[i][j] - s.Center[j]) / s.Scale[j]
		}
	}
	return X, nil
}

// Preprocessor owns the fitted encoders, imputation medians, scaler and
// the canonical feature schema captured at fit time. It is serialized
// inside the model artifact so serving applies the training-time
// transformation.
type Preprocessor struct {
	Target         string                   `json:"target"`
	NumericalCols  []string                 `json:"numerical_cols"`
	ScaleNumerical bool                     `json:"scale_numerical"`
	ScalerKind     string                   `json:"scaler_kind"`
	Encoders       map[string]*LabelEncoder `json:"encoders"`
	Medians        map[string]float64       `json:"medians"`
	Scaler         *Scaler                  `json:"scaler,omitempty"`
	FeatureNames   []string                 `json:"feature_names"`
}

// NewPreprocessor configures an unfitted preprocessor.
func NewPreprocessor(target string, numericalCols []string, scaleNumerical bool, scalerKind string) *Preprocessor {
	return &Preprocessor{
		Target:         target,
		NumericalCols:  numericalCols,
		ScaleNumerical: scaleNumerical,
		ScalerKind:     scalerKind,
		Encoders:       make(map[string]*LabelEncoder),
		Medians:        make(map[string]float64),
	}
}

// FitTransform fits encoders, medians and the scaler on the dataset and
// returns feature vectors plus the target column when present. The
// resulting column order becomes the canonical feature schema.
func (p *Preprocessor) FitTransform(ds *Dataset) ([][]float64, []float64, error) {
	return p.run(ds, true)
}

// Transform reuses the fitted state. Columns are reordered and padded
// to the stored schema; missing columns are zero-filled and unseen
// categorical values map to the sentinel code rather than failing.
func (p *Preprocessor) Transform(ds *Dataset) ([][]float64, []float64, error) {
	if p.FeatureNames == nil {
		return nil, nil, errors.New("preprocessor not fitted")
	}
	return p.run(ds, false)
}

func (p *Preprocessor) run(ds *Dataset, fit bool) ([][]float64, []float64, error) {
	if len(ds.Rows) == 0 {
		return nil, nil, errors.New("dataset is empty")
	}

	var target []float64
	columns := make([]string, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		if col == p.Target {
			target = ds.NumericColumn(col)
			continue
		}
		columns = append(columns, col)
	}

	// Median imputation for configured numeric columns, medians fixed
	// at fit time.
	for _, col := range p.NumericalCols {
		if !ds.HasColumn(col) {
			continue
		}
		if fit {
			present := make([]float64, 0, len(ds.Rows))
			for _, row := range ds.Rows {
				if v, ok := row[col].(float64); ok {
					present = append(present, v)
				}
			}
			if len(present) > 0 {
				p.Medians[col] = quantileOf(present, 0.5)
			}
		}
		median := p.Medians[col]
		for _, row := range ds.Rows {
			if _, ok := row[col].(float64); !ok {
				row[col] = median
			}
		}
	}

	// Label-encode every object-typed column.
	encoded := make(map[string][]float64)
	for _, col := range columns {
		if !ds.IsObjectColumn(col) {
			continue
		}
		values := make([]string, len(ds.Rows))
		for i, row := range ds.Rows {
			switch v := row[col].(type) {
			case string:
				values[i] = v
			case float64:
				values[i] = fmt.Sprint(v)
			}
		}
		if fit {
			p.Encoders[col] = fitLabelEncoder(values)
		}
		codes := make([]float64, len(values))
		encoder, ok := p.Encoders[col]
		for i, v := range values {
			if !ok {
				codes[i] = 0
				continue
			}
			codes[i] = float64(encoder.Encode(v))
		}
		encoded[col] = codes
	}

	if fit {
		p.FeatureNames = append([]string(nil), columns...)
	}

	X := make([][]float64, len(ds.Rows))
	for i := range X {
		X[i] = make([]float64, len(p.FeatureNames))
	}
	for j, name := range p.FeatureNames {
		if codes, ok := encoded[name]; ok {
			for i := range ds.Rows {
				X[i][j] = codes[i]
			}
			continue
		}
		if !ds.HasColumn(name) {
			continue // zero-fill
		}
		for i, row := range ds.Rows {
			if v, ok := row[name].(float64); ok {
				X[i][j] = v
			}
		}
	}

	if p.ScaleNumerical {
		if fit {
			scaler, err := fitScaler(p.ScalerKind, X)
			if err != nil {
				return nil, nil, err
			}
			p.Scaler = scaler
		}
		if p.Scaler == nil {
			return nil, nil, errors.New("scaler not fitted")
		}
		if _, err := p.Scaler.Transform(X); err != nil {
			return nil, nil, err
		}
	}

	return X, target, nil
}

// Split partitions vectors and target into train and test sets with a
// single seeded random shuffle. No cross-validation.
func Split(X [][]float64, y []float64, testSize float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) {
	if testSize <= 0 || testSize >= 1 {
		testSize = 0.2
	}
	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(len(X))

	split := int(math.Round(float64(len(X)) * (1 - testSize)))
	for i, idx := range indices {
		if i < split {
			trainX = append(trainX, X[idx])
			trainY = append(trainY, y[idx])
		} else {
			testX = append(testX, X[idx])
			testY = append(testY, y[idx])
		}
	}
	return trainX, trainY, testX, testY
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddevOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)))
}

func minMaxOf(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

func quantileOf(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
