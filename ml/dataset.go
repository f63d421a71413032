package ml

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned for dataset files with an
// unrecognized extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Record is one raw tabular row. Cells are float64 for numeric values
// and string for everything else; a missing cell has no key.
type Record map[string]interface{}

// Dataset is an ordered set of columns over records.
type Dataset struct {
	Columns []string
	Rows    []Record
}

// LoadRecords reads a tabular dataset from a .csv or .json file.
// The bookkeeping column "Unnamed: 0" left behind by exports is dropped.
func LoadRecords(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".json":
		return loadJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func loadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	ds := &Dataset{}
	keep := make([]bool, len(header))
	for i, name := range header {
		if name == "Unnamed: 0" {
			continue
		}
		keep[i] = true
		ds.Columns = append(ds.Columns, name)
	}

	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		record := make(Record, len(ds.Columns))
		for i, cell := range row {
			if i >= len(header) || !keep[i] {
				continue
			}
			if cell == "" {
				continue
			}
			record[header[i]] = parseCell(cell)
		}
		ds.Rows = append(ds.Rows, record)
	}
	return ds, nil
}

func loadJSON(path string) (*Dataset, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	ds := &Dataset{}
	seen := make(map[string]bool)
	for _, obj := range raw {
		record := make(Record, len(obj))
		for key, value := range obj {
			if key == "Unnamed: 0" {
				continue
			}
			if !seen[key] {
				seen[key] = true
				ds.Columns = append(ds.Columns, key)
			}
			switch v := value.(type) {
			case float64:
				record[key] = v
			case string:
				record[key] = parseCell(v)
			case bool:
				if v {
					record[key] = 1.0
				} else {
					record[key] = 0.0
				}
			case nil:
				// missing cell
			default:
				record[key] = fmt.Sprint(v)
			}
		}
		ds.Rows = append(ds.Rows, record)
	}
	return ds, nil
}

func parseCell(cell string) interface{} {
	if value, err := strconv.ParseFloat(cell, 64); err == nil {
		return value
	}
	return cell
}

// HasColumn reports whether any record carries the named column.
func (ds *Dataset) HasColumn(name string) bool {
	for _, col := range ds.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// IsObjectColumn reports whether the column holds at least one string
// cell, mirroring an object-typed column in tabular tooling.
func (ds *Dataset) IsObjectColumn(name string) bool {
	for _, row := range ds.Rows {
		if _, ok := row[name].(string); ok {
			return true
		}
	}
	return false
}

// AddColumn appends a column name preserving order. No-op if present.
func (ds *Dataset) AddColumn(name string) {
	if !ds.HasColumn(name) {
		ds.Columns = append(ds.Columns, name)
	}
}

// NumericColumn extracts the column as floats. Non-numeric or missing
// cells come back as zero.
func (ds *Dataset) NumericColumn(name string) []float64 {
	values := make([]float64, len(ds.Rows))
	for i, row := range ds.Rows {
		if v, ok := row[name].(float64); ok {
			values[i] = v
		}
	}
	return values
}
