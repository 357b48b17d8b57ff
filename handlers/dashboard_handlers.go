package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/aggregator"
	"surveypulse/api/datasource"
	"surveypulse/api/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxTopN          = 100
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DashboardHandlers serve the admin dashboard: aggregated reports, exports
// and the raw response list.
type DashboardHandlers struct {
	Fetcher    *datasource.Fetcher
	Aggregator *aggregator.Aggregator
	now        func() time.Time
}

func NewDashboardHandlers(fetcher *datasource.Fetcher, agg *aggregator.Aggregator) *DashboardHandlers {
	return &DashboardHandlers{Fetcher: fetcher, Aggregator: agg, now: time.Now}
}

func (h *DashboardHandlers) location() *time.Location {
	if h.Aggregator != nil && h.Aggregator.Location != nil {
		return h.Aggregator.Location
	}
	return time.UTC
}

// parseFilter reads since, until and role. Dates may be RFC3339 timestamps or
// plain YYYY-MM-DD days; a plain until day includes the whole day.
func (h *DashboardHandlers) parseFilter(c *gin.Context) (models.ResponseFilter, error) {
	var filter models.ResponseFilter
	if v := c.Query("since"); v != "" {
		t, err := h.parseBound(v, false)
		if err != nil {
			return filter, fmt.Errorf("invalid 'since': %w", err)
		}
		filter.Since = t
	}
	if v := c.Query("until"); v != "" {
		t, err := h.parseBound(v, true)
		if err != nil {
			return filter, fmt.Errorf("invalid 'until': %w", err)
		}
		filter.Until = t
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && filter.Since.After(filter.Until) {
		return filter, fmt.Errorf("'since' must not be after 'until'")
	}
	filter.Role = c.Query("role")
	return filter, nil
}

func (h *DashboardHandlers) parseBound(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	day, err := time.ParseInLocation("2006-01-02", v, h.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("use RFC3339 or YYYY-MM-DD")
	}
	if endOfDay {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return day.UTC(), nil
}

func (h *DashboardHandlers) aggregatorFor(c *gin.Context) (*aggregator.Aggregator, error) {
	agg := aggregator.Aggregator{}
	if h.Aggregator != nil {
		agg = *h.Aggregator
	}
	if v := c.Query("top"); v != "" {
		top, err := strconv.Atoi(v)
		if err != nil || top < 1 || top > maxTopN {
			return nil, fmt.Errorf("'top' must be an integer between 1 and %d", maxTopN)
		}
		agg.TopN = top
	}
	return &agg, nil
}

// fetch loads responses or writes the unavailable response and returns false.
func (h *DashboardHandlers) fetch(c *gin.Context, filter models.ResponseFilter) (datasource.Result, bool) {
	res := h.Fetcher.Fetch(c.Request.Context(), filter)
	if !res.Available() {
		log.WithField("reason", res.Reason).Warn("Dashboard data unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"state": string(datasource.StateUnavailable),
			"error": "Survey data is currently unavailable, please retry",
		})
		return res, false
	}
	return res, true
}

// Dashboard returns the aggregated report for the requested window.
func (h *DashboardHandlers) Dashboard(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agg, err := h.aggregatorFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, ok := h.fetch(c, filter)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":      string(datasource.StateFetched),
		"fetched_at": res.FetchedAt.UTC(),
		"report":     agg.Aggregate(res.Records),
	})
}

// Export downloads the report as an indented JSON document.
func (h *DashboardHandlers) Export(c *gin.Context) {
	report, generatedAt, ok := h.reportForExport(c)
	if !ok {
		return
	}

	data, err := aggregator.Export(report, generatedAt)
	if err != nil {
		log.Printf("Error encoding report export: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(generatedAt, "json")))
	c.Data(http.StatusOK, "application/json", data)
}

// ExportXLSX downloads the report as a spreadsheet.
func (h *DashboardHandlers) ExportXLSX(c *gin.Context) {
	report, generatedAt, ok := h.reportForExport(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := aggregator.WriteWorkbook(&buf, report, generatedAt); err != nil {
		log.Printf("Error writing report workbook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export report"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(generatedAt, "xlsx")))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *DashboardHandlers) reportForExport(c *gin.Context) (aggregator.Report, time.Time, bool) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return aggregator.Report{}, time.Time{}, false
	}
	agg, err := h.aggregatorFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return aggregator.Report{}, time.Time{}, false
	}
	res, ok := h.fetch(c, filter)
	if !ok {
		return aggregator.Report{}, time.Time{}, false
	}
	return agg.Aggregate(res.Records), h.now().In(h.location()), true
}

func exportFilename(generatedAt time.Time, ext string) string {
	return fmt.Sprintf("survey-report-%s.%s", generatedAt.Format("2006-01-02"), ext)
}

// ListResponses returns raw responses, newest first.
func (h *DashboardHandlers) ListResponses(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter.Limit = defaultListLimit
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("'limit' must be an integer between 1 and %d", maxListLimit)})
			return
		}
		filter.Limit = limit
	}

	res, ok := h.fetch(c, filter)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fetched_at": res.FetchedAt.UTC(),
		"count":      len(res.Records),
		"responses":  res.Records,
	})
}
