package ml

import (
	"math"
	"testing"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]float64{
		"2h 30m": 2.5,
		"1h":     1,
		"45m":    0,
		"3.5":    3.5,
		"":       0,
		"bad":    0,
	}
	for input, want := range cases {
		if got := ParseDuration(input); math.Abs(got-want) > 1e-9 {
			t.Errorf("ParseDuration(%q) = %f, want %f", input, got, want)
		}
	}
}

func TestBookingUrgency(t *testing.T) {
	cases := map[float64]int{
		3:  4,
		7:  4,
		10: 3,
		20: 2,
		45: 1,
		90: 0,
		0:  0,
	}
	for days, want := range cases {
		if got := BookingUrgency(days); got != want {
			t.Errorf("BookingUrgency(%v) = %d, want %d", days, got, want)
		}
	}
}

func TestEngineerFeatures(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"duration", "price", "days_left", "departure_time"},
		Rows: []Record{
			{"duration": "2h 30m", "price": 7000.0, "days_left": 5.0, "departure_time": "Late_Night"},
			{"duration": "1h", "price": 3000.0, "days_left": 40.0, "departure_time": "Morning"},
		},
	}
	ds = EngineerFeatures(ds)

	for _, col := range []string{"duration_hours", "price_per_hour", "booking_urgency", "is_weekend"} {
		if !ds.HasColumn(col) {
			t.Fatalf("expected derived column %s", col)
		}
	}
	if got := ds.Rows[0]["duration_hours"].(float64); math.Abs(got-2.5) > 1e-9 {
		t.Errorf("duration_hours = %f, want 2.5", got)
	}
	if got := ds.Rows[0]["price_per_hour"].(float64); math.Abs(got-2000) > 1e-9 {
		t.Errorf("price_per_hour = %f, want 2000", got)
	}
	if got := ds.Rows[0]["booking_urgency"].(float64); got != 4 {
		t.Errorf("booking_urgency = %v, want 4", got)
	}
	if got := ds.Rows[0]["is_weekend"].(float64); got != 1 {
		t.Errorf("is_weekend = %v, want 1", got)
	}
	if got := ds.Rows[1]["is_weekend"].(float64); got != 0 {
		t.Errorf("is_weekend = %v, want 0", got)
	}
}

func TestEngineerFeaturesMissingSources(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"airline"},
		Rows:    []Record{{"airline": "AirGo"}},
	}
	ds = EngineerFeatures(ds)
	if ds.HasColumn("duration_hours") || ds.HasColumn("price_per_hour") {
		t.Fatalf("derived columns should not appear without their sources")
	}
}
