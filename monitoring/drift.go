// Package monitoring compares production data against the training
// reference to detect distribution drift.
package monitoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"flightprice/ml"
)

var (
	// ErrNoCommonColumns means reference and current datasets share no
	// column names.
	ErrNoCommonColumns = errors.New("no common columns between reference and current data")
	// ErrInsufficientSamples means the current sample is below the
	// minimum size for a meaningful report.
	ErrInsufficientSamples = errors.New("insufficient current samples for drift detection")
)

// DefaultMinSamples is the minimum current-sample floor.
const DefaultMinSamples = 100

// ksDriftPValue flags a numeric column as drifted below this p-value.
const ksDriftPValue = 0.05

// psiDriftThreshold flags a categorical column as drifted above this
// population-stability-index value.
const psiDriftThreshold = 0.2

// ColumnDrift is the per-column comparison result.
type ColumnDrift struct {
	Column    string  `json:"column"`
	Kind      string  `json:"kind"` // numeric or categorical
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value,omitempty"`
	Drifted   bool    `json:"drifted"`
}

// Report is the full drift comparison output.
type Report struct {
	Timestamp    time.Time     `json:"timestamp"`
	NReference   int           `json:"n_reference"`
	NCurrent     int           `json:"n_current"`
	Columns      []ColumnDrift `json:"columns"`
	DriftShare   float64       `json:"drift_share"`
	DatasetDrift bool          `json:"dataset_drift"`
}

// Detector compares a fixed reference dataset against rolling current
// samples.
type Detector struct {
	Reference  *ml.Dataset
	MinSamples int
}

// NewDetector loads the reference dataset from path.
func NewDetector(referencePath string, minSamples int) (*Detector, error) {
	reference, err := ml.LoadRecords(referencePath)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Detector{Reference: reference, MinSamples: minSamples}, nil
}

// Detect compares the current dataset against the reference. The
// comparison is restricted to the intersection of column names; mixed
// column types are coerced to a common representation before the
// statistical tests run.
func (d *Detector) Detect(current *ml.Dataset) (*Report, error) {
	if len(current.Rows) < d.MinSamples {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientSamples, len(current.Rows), d.MinSamples)
	}

	common := commonColumns(d.Reference, current)
	if len(common) == 0 {
		return nil, ErrNoCommonColumns
	}

	report := &Report{
		Timestamp:  time.Now().UTC(),
		NReference: len(d.Reference.Rows),
		NCurrent:   len(current.Rows),
	}

	drifted := 0
	for _, column := range common {
		result := compareColumn(d.Reference, current, column)
		if result.Drifted {
			drifted++
		}
		report.Columns = append(report.Columns, result)
	}
	report.DriftShare = float64(drifted) / float64(len(common))
	report.DatasetDrift = report.DriftShare > 0.5
	return report, nil
}

// Save writes the report as JSON into dir with a timestamped name and
// returns the path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("drift_report_%s.json", r.Timestamp.Format("20060102_150405")))
	payload, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func commonColumns(a, b *ml.Dataset) []string {
	inB := make(map[string]bool, len(b.Columns))
	for _, col := range b.Columns {
		inB[col] = true
	}
	var common []string
	for _, col := range a.Columns {
		if inB[col] {
			common = append(common, col)
		}
	}
	return common
}

// compareColumn coerces both sides to a shared representation. When
// both sides parse as numeric the two-sample Kolmogorov-Smirnov test
// is used; otherwise both sides are treated as text and scored with
// the population stability index.
func compareColumn(reference, current *ml.Dataset, column string) ColumnDrift {
	refNums, refNumeric := numericValues(reference, column)
	curNums, curNumeric := numericValues(current, column)

	if refNumeric && curNumeric {
		stat, p := ksTest(refNums, curNums)
		return ColumnDrift{
			Column:    column,
			Kind:      "numeric",
			Statistic: stat,
			PValue:    p,
			Drifted:   p < ksDriftPValue,
		}
	}

	psi := populationStabilityIndex(textValues(reference, column), textValues(current, column))
	return ColumnDrift{
		Column:    column,
		Kind:      "categorical",
		Statistic: psi,
		Drifted:   psi > psiDriftThreshold,
	}
}

func numericValues(ds *ml.Dataset, column string) ([]float64, bool) {
	values := make([]float64, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		v, ok := row[column]
		if !ok {
			continue
		}
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		values = append(values, f)
	}
	return values, len(values) > 0
}

func textValues(ds *ml.Dataset, column string) []string {
	values := make([]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if v, ok := row[column]; ok {
			values = append(values, fmt.Sprint(v))
		}
	}
	return values
}

// ksTest computes the two-sample Kolmogorov-Smirnov statistic and its
// asymptotic p-value.
func ksTest(a, b []float64) (float64, float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 1
	}
	as := append([]float64(nil), a...)
	bs := append([]float64(nil), b...)
	sort.Float64s(as)
	sort.Float64s(bs)

	stat := 0.0
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		// Step both cursors past runs of equal values so the CDF gap is
		// never measured mid-tie.
		a, b := as[i], bs[j]
		if a <= b {
			for i < len(as) && as[i] == a {
				i++
			}
		}
		if b <= a {
			for j < len(bs) && bs[j] == b {
				j++
			}
		}
		diff := math.Abs(float64(i)/float64(len(as)) - float64(j)/float64(len(bs)))
		if diff > stat {
			stat = diff
		}
	}

	n := float64(len(as)) * float64(len(bs)) / float64(len(as)+len(bs))
	lambda := (math.Sqrt(n) + 0.12 + 0.11/math.Sqrt(n)) * stat
	return stat, ksProbability(lambda)
}

// ksProbability is the Kolmogorov distribution tail sum.
func ksProbability(lambda float64) float64 {
	if lambda <= 0 {
		return 1
	}
	sum := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k)*float64(k)*lambda*lambda)
		sum += term
		sign = -sign
		if math.Abs(term) < 1e-10 {
			break
		}
	}
	p := 2 * sum
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// populationStabilityIndex scores categorical frequency shift over the
// union of observed categories.
func populationStabilityIndex(reference, current []string) float64 {
	if len(reference) == 0 || len(current) == 0 {
		return 0
	}
	refCounts := make(map[string]int)
	curCounts := make(map[string]int)
	for _, v := range reference {
		refCounts[v]++
	}
	for _, v := range current {
		curCounts[v]++
	}

	categories := make(map[string]bool)
	for v := range refCounts {
		categories[v] = true
	}
	for v := range curCounts {
		categories[v] = true
	}

	// Small epsilon keeps absent categories from blowing up the log.
	const eps = 1e-4
	psi := 0.0
	for category := range categories {
		refShare := float64(refCounts[category]) / float64(len(reference))
		curShare := float64(curCounts[category]) / float64(len(current))
		if refShare == 0 {
			refShare = eps
		}
		if curShare == 0 {
			curShare = eps
		}
		psi += (curShare - refShare) * math.Log(curShare/refShare)
	}
	return psi
}

// DatasetFromRecords converts logged prediction feature snapshots into
// a dataset for comparison.
func DatasetFromRecords(features []map[string]interface{}) *ml.Dataset {
	ds := &ml.Dataset{}
	seen := make(map[string]bool)
	for _, snapshot := range features {
		record := make(ml.Record, len(snapshot))
		for key, value := range snapshot {
			if !seen[key] {
				seen[key] = true
				ds.Columns = append(ds.Columns, key)
			}
			switch v := value.(type) {
			case float64:
				record[key] = v
			case string:
				record[key] = v
			case json.Number:
				if f, err := v.Float64(); err == nil {
					record[key] = f
				}
			default:
				record[key] = fmt.Sprint(v)
			}
		}
		ds.Rows = append(ds.Rows, record)
	}
	return ds
}
