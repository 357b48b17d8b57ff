package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"surveypulse/api/aggregator"
	"surveypulse/api/cache"
	"surveypulse/api/datasource"
	"surveypulse/api/models"
)

var dashboardNow = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func newDashboardRouter(responses *fakeResponses) *gin.Engine {
	fetcher := datasource.NewFetcher(responses, cache.New[models.ResponseFilter, []models.SurveyResponse](time.Minute))
	agg := aggregator.New(10, 4, time.UTC)
	agg.Now = func() time.Time { return dashboardNow }

	h := NewDashboardHandlers(fetcher, agg)
	h.now = func() time.Time { return dashboardNow }

	r := gin.New()
	r.GET("/api/admin/dashboard", h.Dashboard)
	r.GET("/api/admin/export", h.Export)
	r.GET("/api/admin/export.xlsx", h.ExportXLSX)
	r.GET("/api/admin/responses", h.ListResponses)
	return r
}

func dashboardRecords() []models.SurveyResponse {
	return []models.SurveyResponse{
		{ID: "r1", CreatedAt: dashboardNow.Add(-time.Hour), Role: models.StringPtr("PM"), DailyTools: []string{"Jira"}},
		{ID: "r2", CreatedAt: dashboardNow.Add(-2 * time.Hour), Role: models.StringPtr("PM"), DailyTools: []string{"Figma"}},
		{ID: "r3", CreatedAt: dashboardNow.Add(-26 * time.Hour), Role: models.StringPtr("Designer"), DailyTools: []string{"Figma"}},
	}
}

func TestDashboard(t *testing.T) {
	responses := &fakeResponses{records: dashboardRecords()}
	r := newDashboardRouter(responses)

	w := performRequest(r, http.MethodGet, "/api/admin/dashboard", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		State  string            `json:"state"`
		Report aggregator.Report `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != "fetched" {
		t.Errorf("expected fetched state, got %q", body.State)
	}
	if body.Report.TotalResponses != 3 || body.Report.TodayCount != 2 {
		t.Errorf("unexpected totals %d/%d", body.Report.TotalResponses, body.Report.TodayCount)
	}
	roles := body.Report.Rankings["role"]
	if len(roles) != 2 || roles[0].Key != "PM" || roles[0].Percentage != 67 {
		t.Errorf("unexpected role ranking %+v", roles)
	}

	performRequest(r, http.MethodGet, "/api/admin/dashboard", "", nil)
	if responses.listCalls != 1 {
		t.Errorf("expected second request to be served from cache, got %d fetches", responses.listCalls)
	}
}

func TestDashboard_Unavailable(t *testing.T) {
	r := newDashboardRouter(&fakeResponses{listErr: errors.New("upstream 502")})

	for _, path := range []string{"/api/admin/dashboard", "/api/admin/export", "/api/admin/responses"} {
		w := performRequest(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: expected 503, got %d", path, w.Code)
		}
		var body map[string]string
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["state"] != "data_unavailable" {
			t.Errorf("%s: expected data_unavailable state, got %v", path, body)
		}
	}
}

func TestDashboard_Filters(t *testing.T) {
	responses := &fakeResponses{records: dashboardRecords()}
	r := newDashboardRouter(responses)

	w := performRequest(r, http.MethodGet, "/api/admin/dashboard?since=2025-03-01&until=2025-03-14&role=PM&top=1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	want := models.ResponseFilter{
		Since: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2025, 3, 14, 23, 59, 59, 999999999, time.UTC),
		Role:  "PM",
	}
	got := responses.lastList
	if !got.Since.Equal(want.Since) || !got.Until.Equal(want.Until) || got.Role != want.Role {
		t.Errorf("unexpected filter %+v", got)
	}

	var body struct {
		Report aggregator.Report `json:"report"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Report.Rankings["daily_tools"]) != 1 {
		t.Errorf("expected top=1 to truncate rankings, got %+v", body.Report.Rankings["daily_tools"])
	}
}

func TestDashboard_BadParams(t *testing.T) {
	r := newDashboardRouter(&fakeResponses{})

	tests := []string{
		"/api/admin/dashboard?since=yesterday",
		"/api/admin/dashboard?since=2025-03-10&until=2025-03-01",
		"/api/admin/dashboard?top=0",
		"/api/admin/dashboard?top=abc",
		"/api/admin/responses?limit=5000",
	}
	for _, path := range tests {
		w := performRequest(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestExport(t *testing.T) {
	r := newDashboardRouter(&fakeResponses{records: dashboardRecords()})

	w := performRequest(r, http.MethodGet, "/api/admin/export", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="survey-report-2025-03-14.json"` {
		t.Errorf("unexpected Content-Disposition %q", got)
	}
	if !strings.Contains(w.Body.String(), "\n  \"generated_at\"") {
		t.Errorf("expected indented JSON document, got %s", w.Body.String())
	}
}

func TestExportXLSX(t *testing.T) {
	r := newDashboardRouter(&fakeResponses{records: dashboardRecords()})

	w := performRequest(r, http.MethodGet, "/api/admin/export.xlsx", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != xlsxContentType {
		t.Errorf("unexpected Content-Type %q", got)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer f.Close()
	if idx, err := f.GetSheetIndex("Rankings"); err != nil || idx < 0 {
		t.Errorf("expected Rankings sheet, got %d %v", idx, err)
	}
}

func TestListResponses(t *testing.T) {
	responses := &fakeResponses{records: dashboardRecords()}
	r := newDashboardRouter(responses)

	w := performRequest(r, http.MethodGet, "/api/admin/responses", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if responses.lastList.Limit != defaultListLimit {
		t.Errorf("expected default limit %d, got %d", defaultListLimit, responses.lastList.Limit)
	}

	var body struct {
		Count     int                     `json:"count"`
		Responses []models.SurveyResponse `json:"responses"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Count != 3 || len(body.Responses) != 3 {
		t.Errorf("unexpected listing %+v", body)
	}

	performRequest(r, http.MethodGet, "/api/admin/responses?limit=2", "", nil)
	if responses.lastList.Limit != 2 {
		t.Errorf("expected limit 2, got %d", responses.lastList.Limit)
	}
}
