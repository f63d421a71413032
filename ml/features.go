package ml

import (
	"strconv"
	"strings"
)

// weekendTimes are the departure_time buckets treated as weekend-like
// departures when deriving the is_weekend flag.
var weekendTimes = map[string]bool{
	"Late_Night": true,
}

// EngineerFeatures adds derived columns to the dataset. Each derived
// column is only added when its source columns are present; otherwise
// the derivation is a no-op, not an error.
func EngineerFeatures(ds *Dataset) *Dataset {
	if ds.HasColumn("duration") && ds.IsObjectColumn("duration") {
		ds.AddColumn("duration_hours")
		for _, row := range ds.Rows {
			if s, ok := row["duration"].(string); ok {
				row["duration_hours"] = ParseDuration(s)
			} else if v, ok := row["duration"].(float64); ok {
				row["duration_hours"] = v
			}
		}
	}

	if ds.HasColumn("duration_hours") && ds.HasColumn("price") {
		ds.AddColumn("price_per_hour")
		for _, row := range ds.Rows {
			price, okPrice := row["price"].(float64)
			hours, okHours := row["duration_hours"].(float64)
			if okPrice && okHours {
				// +1 guards against zero-duration rows
				row["price_per_hour"] = price / (hours + 1)
			}
		}
	}

	if ds.HasColumn("days_left") {
		ds.AddColumn("booking_urgency")
		for _, row := range ds.Rows {
			if days, ok := row["days_left"].(float64); ok {
				row["booking_urgency"] = float64(BookingUrgency(days))
			} else {
				row["booking_urgency"] = 0.0
			}
		}
	}

	if ds.HasColumn("departure_time") {
		ds.AddColumn("is_weekend")
		for _, row := range ds.Rows {
			flag := 0.0
			if s, ok := row["departure_time"].(string); ok && weekendTimes[s] {
				flag = 1.0
			}
			row["is_weekend"] = flag
		}
	}

	return ds
}

// BookingUrgency bins days-until-departure into an urgency score where
// a higher number means a more urgent booking. Values at or below zero
// fall outside the bins and score zero.
func BookingUrgency(daysLeft float64) int {
	switch {
	case daysLeft > 0 && daysLeft <= 7:
		return 4
	case daysLeft > 7 && daysLeft <= 14:
		return 3
	case daysLeft > 14 && daysLeft <= 30:
		return 2
	case daysLeft > 30 && daysLeft <= 60:
		return 1
	default:
		return 0
	}
}

// ParseDuration converts a "2h 30m" style duration string to hours.
// Unparseable input yields zero.
func ParseDuration(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, "h") {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
		return 0
	}

	parts := strings.SplitN(strings.ReplaceAll(s, "m", ""), "h", 2)
	hours, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0
	}
	if len(parts) > 1 {
		if rest := strings.TrimSpace(parts[1]); rest != "" {
			if minutes, err := strconv.ParseFloat(rest, 64); err == nil {
				hours += minutes / 60
			}
		}
	}
	return hours
}
