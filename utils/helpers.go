package utils

import (
	"fmt"
	"time"
)

// DefaultStatsWindow is used when a stats request omits its start time.
const DefaultStatsWindow = 7 * 24 * time.Hour

// IsValidInterval reports whether interval names a ClickHouse toStartOf<Interval> bucket.
func IsValidInterval(interval string) bool {
	switch interval {
	case "Minute", "Hour", "Day", "Week", "Month", "Quarter", "Year":
		return true
	default:
		return false
	}
}

// ParseTimeRange parses optional RFC3339 start and end query values. A missing
// end defaults to now and a missing start to DefaultStatsWindow before end.
func ParseTimeRange(startParam, endParam string, now time.Time) (time.Time, time.Time, error) {
	end := now.UTC()
	if endParam != "" {
		t, err := time.Parse(time.RFC3339, endParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'end' timestamp format, use RFC3339 (e.g., 2006-01-02T15:04:05Z)")
		}
		end = t
	}

	start := end.Add(-DefaultStatsWindow)
	if startParam != "" {
		t, err := time.Parse(time.RFC3339, startParam)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'start' timestamp format, use RFC3339 (e.g., 2006-01-02T15:04:05Z)")
		}
		start = t
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("'start' must not be after 'end'")
	}
	return start, end, nil
}
