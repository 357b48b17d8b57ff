package aggregator

import (
	"time"

	"surveypulse/api/models"
)

// Report is the full dashboard bundle computed from one response snapshot.
type Report struct {
	TotalResponses int                      `json:"total_responses"`
	TodayCount     int                      `json:"today_count"`
	Distributions  map[string]Distribution  `json:"distributions"`
	Rankings       map[string][]RankedEntry `json:"rankings"`
	TermFrequency  TermFrequency            `json:"term_frequency"`
	TopTerms       []RankedEntry            `json:"top_terms"`
	DailyCounts    Distribution             `json:"daily_counts"`
	DailySeries    []DayCount               `json:"daily_series"`
	Highlights     map[string]string        `json:"highlights"`
}

type singleField struct {
	name string
	sel  Selector
}

type multiField struct {
	name string
	sel  ListSelector
}

var singleFields = []singleField{
	{"role", func(r models.SurveyResponse) *string { return r.Role }},
	{"seniority", func(r models.SurveyResponse) *string { return r.Seniority }},
	{"company_size", func(r models.SurveyResponse) *string { return r.CompanySize }},
	{"company_type", func(r models.SurveyResponse) *string { return r.CompanyType }},
	{"industry", func(r models.SurveyResponse) *string { return r.Industry }},
	{"product_type", func(r models.SurveyResponse) *string { return r.ProductType }},
	{"customer_segment", func(r models.SurveyResponse) *string { return r.CustomerSegment }},
}

var multiFields = []multiField{
	{"daily_tools", func(r models.SurveyResponse) []string { return r.DailyTools }},
	{"learning_methods", func(r models.SurveyResponse) []string { return r.LearningMethods }},
}

func mainChallenge(r models.SurveyResponse) *string { return r.MainChallenge }

func createdAt(r models.SurveyResponse) time.Time { return r.CreatedAt }

// Fields returns the names of every aggregated field, single-valued first.
func Fields() []string {
	names := make([]string, 0, len(singleFields)+len(multiFields))
	for _, f := range singleFields {
		names = append(names, f.name)
	}
	for _, f := range multiFields {
		names = append(names, f.name)
	}
	return names
}

// Aggregator computes Reports. It keeps no state between calls; the zero
// value is usable and falls back to the package defaults.
type Aggregator struct {
	TopN          int
	MinTermLength int
	TermLimit     int
	Now           func() time.Time
	Location      *time.Location
}

// New returns an Aggregator with the given ranking size and term length.
func New(topN, minTermLength int, loc *time.Location) *Aggregator {
	return &Aggregator{
		TopN:          topN,
		MinTermLength: minTermLength,
		TermLimit:     50,
		Now:           time.Now,
		Location:      loc,
	}
}

func (a *Aggregator) now() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	if a.Location != nil {
		return now().In(a.Location)
	}
	return now().UTC()
}

// localized converts timestamps into the configured Location so that day
// buckets and "today" agree.
func (a *Aggregator) localized(sel DateSelector) DateSelector {
	if a.Location == nil {
		return sel
	}
	return func(r models.SurveyResponse) time.Time {
		t := sel(r)
		if t.IsZero() {
			return t
		}
		return t.In(a.Location)
	}
}

// Aggregate reduces records into a Report. Records are not modified.
func (a *Aggregator) Aggregate(records []models.SurveyResponse) Report {
	report := Report{
		TotalResponses: len(records),
		Distributions:  make(map[string]Distribution, len(singleFields)+len(multiFields)),
		Rankings:       make(map[string][]RankedEntry, len(singleFields)+len(multiFields)),
		Highlights:     make(map[string]string),
	}

	for _, f := range singleFields {
		dist := ComputeDistribution(records, f.sel)
		report.Distributions[f.name] = dist
		report.Rankings[f.name] = RankDistribution(dist, a.TopN)
	}
	for _, f := range multiFields {
		dist := ComputeMultiValueDistribution(records, f.sel)
		report.Distributions[f.name] = dist
		report.Rankings[f.name] = RankDistribution(dist, a.TopN)
	}

	report.TermFrequency = ComputeTermFrequency(records, mainChallenge, a.MinTermLength)
	termLimit := a.TermLimit
	if termLimit <= 0 {
		termLimit = 50
	}
	report.TopTerms = RankDistribution(Distribution(report.TermFrequency), termLimit)

	localCreatedAt := a.localized(createdAt)
	report.DailyCounts = BucketByDay(records, localCreatedAt)
	report.DailySeries = DailySeries(report.DailyCounts)
	report.TodayCount = ComputeTodayCount(records, localCreatedAt, a.now())

	if role, ok := MostFrequent(presentValues(records, singleFields[0].sel)); ok {
		report.Highlights["most_common_role"] = role
	}
	if tool, ok := MostFrequent(flatten(records, multiFields[0].sel)); ok {
		report.Highlights["most_used_tool"] = tool
	}

	return report
}

func presentValues(records []models.SurveyResponse, sel Selector) []string {
	var out []string
	for _, r := range records {
		if v := sel(r); v != nil && *v != "" {
			out = append(out, *v)
		}
	}
	return out
}

func flatten(records []models.SurveyResponse, sel ListSelector) []string {
	var out []string
	for _, r := range records {
		for _, v := range sel(r) {
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
