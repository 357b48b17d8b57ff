// Package datasource fetches survey responses for the dashboard and reports
// whether they could be loaded at all.
package datasource

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"surveypulse/api/cache"
	"surveypulse/api/logger"
	"surveypulse/api/models"
)

// State distinguishes a usable fetch from a failed one.
type State string

const (
	StateFetched     State = "fetched"
	StateUnavailable State = "data_unavailable"
)

// Result is the outcome of a fetch. Records and FetchedAt are set only when
// State is StateFetched; Reason only when it is StateUnavailable.
type Result struct {
	State     State
	Records   []models.SurveyResponse
	FetchedAt time.Time
	Reason    string
}

// Fetched wraps a successful read. A nil slice is normalized to empty.
func Fetched(records []models.SurveyResponse, fetchedAt time.Time) Result {
	if records == nil {
		records = []models.SurveyResponse{}
	}
	return Result{State: StateFetched, Records: records, FetchedAt: fetchedAt}
}

// Unavailable reports that no data could be read.
func Unavailable(reason string) Result {
	return Result{State: StateUnavailable, Reason: reason}
}

func (r Result) Available() bool {
	return r.State == StateFetched
}

// ResponseReader is implemented by store.ResponseStore and
// restclient.ResponseRepository.
type ResponseReader interface {
	ListResponses(ctx context.Context, filter models.ResponseFilter) ([]models.SurveyResponse, error)
}

// Fetcher reads responses through an optional TTL cache. Failed reads are
// never cached and never retried.
type Fetcher struct {
	reader ResponseReader
	cache  *cache.TTL[models.ResponseFilter, []models.SurveyResponse]
	now    func() time.Time
	log    *logrus.Entry
}

// NewFetcher creates a Fetcher. A nil cache disables caching.
func NewFetcher(reader ResponseReader, c *cache.TTL[models.ResponseFilter, []models.SurveyResponse]) *Fetcher {
	return &Fetcher{
		reader: reader,
		cache:  c,
		now:    time.Now,
		log:    logger.Component("datasource"),
	}
}

// Fetch returns the responses matching filter.
func (f *Fetcher) Fetch(ctx context.Context, filter models.ResponseFilter) Result {
	if f.cache != nil {
		if records, ok := f.cache.Get(filter); ok {
			storedAt, _ := f.cache.StoredAt(filter)
			return Fetched(records, storedAt)
		}
	}

	records, err := f.reader.ListResponses(ctx, filter)
	if err != nil {
		f.log.WithError(err).Warn("Survey responses unavailable")
		return Unavailable(err.Error())
	}

	if records == nil {
		records = []models.SurveyResponse{}
	}
	if f.cache != nil {
		f.cache.Set(filter, records)
	}
	return Fetched(records, f.now())
}

// Invalidate drops the cached result for filter.
func (f *Fetcher) Invalidate(filter models.ResponseFilter) {
	if f.cache != nil {
		f.cache.Invalidate(filter)
	}
}

// Reset drops every cached result, for example after a response is deleted.
func (f *Fetcher) Reset() {
	if f.cache != nil {
		f.cache.Clear()
	}
}
