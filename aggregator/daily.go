package aggregator

import (
	"sort"
	"strings"
	"time"

	"surveypulse/api/models"
)

// DateSelector extracts a record timestamp. The zero time means the timestamp
// was missing or could not be parsed.
type DateSelector func(models.SurveyResponse) time.Time

const dayLayout = "2006-01-02"

// DayCount is one point of the daily submissions series.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	dayLayout,
}

// ParseTimestamp parses the timestamp formats produced by the backends,
// returning the zero time when none match.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DayKey is the calendar date of t as recorded, without timezone conversion.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// BucketByDay counts records per calendar day, skipping unknown timestamps.
func BucketByDay(records []models.SurveyResponse, sel DateSelector) Distribution {
	dist := make(Distribution)
	for _, r := range records {
		t := sel(r)
		if t.IsZero() {
			continue
		}
		dist[DayKey(t)]++
	}
	return dist
}

// ComputeTodayCount counts records whose day matches now's calendar date.
func ComputeTodayCount(records []models.SurveyResponse, sel DateSelector, now time.Time) int {
	today := DayKey(now)
	count := 0
	for _, r := range records {
		t := sel(r)
		if t.IsZero() {
			continue
		}
		if DayKey(t) == today {
			count++
		}
	}
	return count
}

// DailySeries returns the day buckets in chronological order for charting.
func DailySeries(daily Distribution) []DayCount {
	series := make([]DayCount, 0, len(daily))
	for day, c := range daily {
		series = append(series, DayCount{Day: day, Count: c})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Day < series[j].Day })
	return series
}
