package ml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRecordsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flights.csv")
	content := "Unnamed: 0,airline,price\n0,AirGo,5000\n1,SkyJet,not-a-number\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("LoadRecords failed: %v", err)
	}
	if ds.HasColumn("Unnamed: 0") {
		t.Fatal("index column should be dropped")
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ds.Rows))
	}
	if _, ok := ds.Rows[0]["price"].(float64); !ok {
		t.Error("numeric cell should parse as float64")
	}
	if _, ok := ds.Rows[1]["price"].(string); !ok {
		t.Error("non-numeric cell should stay a string")
	}
}

func TestLoadRecordsUnsupportedFormat(t *testing.T) {
	_, err := LoadRecords("flights.parquet")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
