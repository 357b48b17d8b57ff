// Package aggregator reduces raw survey responses into the distributions,
// rankings, word frequencies and daily series shown on the admin dashboard.
//
// Every function here is a pure pass over an in-memory snapshot. Absent or
// malformed values are skipped, never reported as errors.
package aggregator

import (
	"math"
	"sort"

	"surveypulse/api/models"
)

// Distribution maps a category value to the number of times it occurred.
type Distribution map[string]int

// Selector extracts a single categorical answer; nil means the answer is absent.
type Selector func(models.SurveyResponse) *string

// ListSelector extracts a multi-valued answer such as the tools a respondent uses.
type ListSelector func(models.SurveyResponse) []string

// RankedEntry is one row of a ranking.
type RankedEntry struct {
	Key        string `json:"key"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// DefaultTopN is used when a ranking is requested with a non-positive limit.
const DefaultTopN = 10

// ComputeDistribution counts each non-empty value returned by sel.
func ComputeDistribution(records []models.SurveyResponse, sel Selector) Distribution {
	dist := make(Distribution)
	for _, r := range records {
		v := sel(r)
		if v == nil || *v == "" {
			continue
		}
		dist[*v]++
	}
	return dist
}

// ComputeMultiValueDistribution counts every non-empty element of every list,
// so one record can contribute to several keys.
func ComputeMultiValueDistribution(records []models.SurveyResponse, sel ListSelector) Distribution {
	dist := make(Distribution)
	for _, r := range records {
		for _, v := range sel(r) {
			if v == "" {
				continue
			}
			dist[v]++
		}
	}
	return dist
}

// Total returns the sum of all counts.
func (d Distribution) Total() int {
	total := 0
	for _, c := range d {
		total += c
	}
	return total
}

// RankDistribution orders the distribution by count descending, breaking ties
// by key ascending, and keeps the first topN entries. Percentages are relative
// to the whole distribution, not just the kept entries.
func RankDistribution(dist Distribution, topN int) []RankedEntry {
	if topN <= 0 {
		topN = DefaultTopN
	}

	entries := make([]RankedEntry, 0, len(dist))
	for k, c := range dist {
		entries = append(entries, RankedEntry{Key: k, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Key < entries[j].Key
	})

	assignPercentages(entries, dist.Total())

	if len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

// assignPercentages rounds each share to the nearest whole percent. When
// half-up rounding pushes the sum past 100, the entries that were rounded up
// the most give the extra points back, lowest ranked first.
func assignPercentages(entries []RankedEntry, total int) {
	if total == 0 {
		return
	}

	exact := make([]float64, len(entries))
	sum := 0
	for i := range entries {
		exact[i] = float64(entries[i].Count) * 100 / float64(total)
		entries[i].Percentage = int(math.Round(exact[i]))
		sum += entries[i].Percentage
	}

	for sum > 100 {
		worst := -1
		worstDelta := 0.0
		for i := range entries {
			delta := float64(entries[i].Percentage) - exact[i]
			if delta > 0 && delta >= worstDelta {
				worst, worstDelta = i, delta
			}
		}
		if worst < 0 {
			return
		}
		entries[worst].Percentage--
		sum--
	}
}

// MostFrequent returns the value that occurs most often. Ties go to the value
// encountered first. The boolean is false for an empty input.
func MostFrequent(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}

	counts := make(map[string]int, len(values))
	order := make([]string, 0, len(values))
	for _, v := range values {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}

	best := order[0]
	for _, v := range order[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}
