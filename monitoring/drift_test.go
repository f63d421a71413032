package monitoring

import (
	"errors"
	"testing"

	"flightprice/ml"
)

func numericDataset(column string, values []float64) *ml.Dataset {
	ds := &ml.Dataset{Columns: []string{column}}
	for _, v := range values {
		ds.Rows = append(ds.Rows, ml.Record{column: v})
	}
	return ds
}

func categoricalDataset(column string, values []string) *ml.Dataset {
	ds := &ml.Dataset{Columns: []string{column}}
	for _, v := range values {
		ds.Rows = append(ds.Rows, ml.Record{column: v})
	}
	return ds
}

func sequence(start, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(start + i)
	}
	return out
}

func TestDetectInsufficientSamples(t *testing.T) {
	detector := &Detector{Reference: numericDataset("price", sequence(0, 200)), MinSamples: 100}
	_, err := detector.Detect(numericDataset("price", sequence(0, 50)))
	if !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("expected ErrInsufficientSamples, got %v", err)
	}
}

func TestDetectNoCommonColumns(t *testing.T) {
	detector := &Detector{Reference: numericDataset("price", sequence(0, 200)), MinSamples: 10}
	_, err := detector.Detect(numericDataset("fare", sequence(0, 200)))
	if !errors.Is(err, ErrNoCommonColumns) {
		t.Fatalf("expected ErrNoCommonColumns, got %v", err)
	}
}

func TestDetectNumericShift(t *testing.T) {
	detector := &Detector{Reference: numericDataset("price", sequence(0, 200)), MinSamples: 10}

	report, err := detector.Detect(numericDataset("price", sequence(500, 200)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(report.Columns) != 1 {
		t.Fatalf("expected 1 compared column, got %d", len(report.Columns))
	}
	col := report.Columns[0]
	if col.Kind != "numeric" {
		t.Errorf("expected numeric comparison, got %s", col.Kind)
	}
	if !col.Drifted {
		t.Errorf("disjoint distributions should drift, stat=%f p=%f", col.Statistic, col.PValue)
	}
	if !report.DatasetDrift {
		t.Error("single drifted column of one should flag dataset drift")
	}
}

func TestDetectStableDistribution(t *testing.T) {
	detector := &Detector{Reference: numericDataset("price", sequence(0, 200)), MinSamples: 10}

	report, err := detector.Detect(numericDataset("price", sequence(0, 200)))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if report.Columns[0].Drifted {
		t.Errorf("identical distributions should not drift, p=%f", report.Columns[0].PValue)
	}
	if report.DatasetDrift {
		t.Error("no dataset drift expected")
	}
}

func TestKSTestTiedValues(t *testing.T) {
	// Heavily duplicated but identical samples: the statistic must be
	// exactly zero, not inflated by mid-tie CDF gaps.
	tied := make([]float64, 0, 120)
	for i := 0; i < 40; i++ {
		tied = append(tied, 1, 2, 3)
	}
	stat, p := ksTest(tied, tied)
	if stat != 0 {
		t.Fatalf("identical tied samples should have stat 0, got %f", stat)
	}
	if p != 1 {
		t.Errorf("identical tied samples should have p 1, got %f", p)
	}

	shifted := make([]float64, len(tied))
	for i, v := range tied {
		shifted[i] = v + 10
	}
	if stat, _ := ksTest(tied, shifted); stat != 1 {
		t.Errorf("disjoint tied samples should have stat 1, got %f", stat)
	}
}

func TestDetectCategoricalShift(t *testing.T) {
	reference := make([]string, 200)
	current := make([]string, 200)
	for i := range reference {
		reference[i] = "Economy"
		current[i] = "Business"
	}
	// Keep a sliver of overlap on each side.
	reference[0], current[0] = "Business", "Economy"

	detector := &Detector{Reference: categoricalDataset("class", reference), MinSamples: 10}
	report, err := detector.Detect(categoricalDataset("class", current))
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	col := report.Columns[0]
	if col.Kind != "categorical" {
		t.Errorf("expected categorical comparison, got %s", col.Kind)
	}
	if !col.Drifted {
		t.Errorf("inverted category mix should drift, psi=%f", col.Statistic)
	}
}

func TestDatasetFromRecords(t *testing.T) {
	ds := DatasetFromRecords([]map[string]interface{}{
		{"airline": "AirGo", "days_left": 12.0},
		{"airline": "SkyJet", "days_left": 3.0, "stops": "one"},
	})
	if len(ds.Columns) != 3 {
		t.Fatalf("expected union of 3 columns, got %v", ds.Columns)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ds.Rows))
	}
	if _, ok := ds.Rows[0]["days_left"].(float64); !ok {
		t.Error("numeric snapshot value should stay float64")
	}
}
