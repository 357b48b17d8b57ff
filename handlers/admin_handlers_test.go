package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"surveypulse/api/cache"
	"surveypulse/api/datasource"
	"surveypulse/api/models"
)

type adminFixture struct {
	router    *gin.Engine
	questions *fakeQuestions
	settings  *fakeSettings
	responses *fakeResponses
	cache     *SettingsCache
	fetcher   *datasource.Fetcher
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		questions: &fakeQuestions{questions: []models.Question{
			{ID: "q1", Step: 1, FieldKey: "role", Label: "Your role", Kind: models.QuestionSingle, Options: []string{"PM"}, Active: false},
		}},
		settings:  &fakeSettings{settings: models.DefaultSettings()},
		responses: &fakeResponses{records: []models.SurveyResponse{{ID: "r1"}, {ID: "r2"}}},
		cache:     cache.New[string, models.SurveySettings](time.Hour),
	}
	f.fetcher = datasource.NewFetcher(f.responses, cache.New[models.ResponseFilter, []models.SurveyResponse](time.Hour))

	h := NewAdminHandlers(f.questions, f.settings, f.responses, f.fetcher, f.cache)
	f.router = gin.New()
	f.router.GET("/api/admin/questions", h.ListQuestions)
	f.router.POST("/api/admin/questions", h.CreateQuestion)
	f.router.PUT("/api/admin/questions/:id", h.UpdateQuestion)
	f.router.DELETE("/api/admin/questions/:id", h.DeleteQuestion)
	f.router.GET("/api/admin/settings", h.GetSettings)
	f.router.PUT("/api/admin/settings", h.UpdateSettings)
	f.router.DELETE("/api/admin/responses/:id", h.DeleteResponse)
	return f
}

func TestCreateQuestion(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"single choice", `{"step":1,"field_key":"seniority","label":"Seniority","kind":"single","options":["Junior","Senior","senior"]}`, http.StatusCreated},
		{"free text drops options", `{"step":3,"field_key":"main_challenge","label":"Biggest challenge?","kind":"text","options":["x"]}`, http.StatusCreated},
		{"unknown field", `{"step":1,"field_key":"salary","label":"Salary","kind":"single","options":["a"]}`, http.StatusBadRequest},
		{"kind mismatch", `{"step":1,"field_key":"daily_tools","label":"Tools","kind":"single","options":["a"]}`, http.StatusBadRequest},
		{"choice without options", `{"step":1,"field_key":"industry","label":"Industry","kind":"single"}`, http.StatusBadRequest},
		{"step out of range", `{"step":0,"field_key":"role","label":"Role","kind":"single","options":["PM"]}`, http.StatusBadRequest},
		{"blank label", `{"step":1,"field_key":"role","label":"   ","kind":"single","options":["PM"]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAdminFixture()
			w := performRequest(f.router, http.MethodPost, "/api/admin/questions", tt.body, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusCreated {
				return
			}
			var q models.Question
			json.Unmarshal(w.Body.Bytes(), &q)
			if q.ID == "" || !q.Active {
				t.Errorf("expected stored active question, got %+v", q)
			}
			if q.Kind == models.QuestionText && len(q.Options) != 0 {
				t.Errorf("text question kept options %v", q.Options)
			}
			if q.FieldKey == "seniority" && len(q.Options) != 2 {
				t.Errorf("expected deduplicated options, got %v", q.Options)
			}
		})
	}
}

func TestUpdateQuestion(t *testing.T) {
	f := newAdminFixture()

	w := performRequest(f.router, http.MethodPut, "/api/admin/questions/q1",
		`{"step":2,"field_key":"role","label":"Current role","kind":"single","options":["PM","Designer"]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := f.questions.questions[0]
	if got.Label != "Current role" || got.Step != 2 || len(got.Options) != 2 {
		t.Errorf("unexpected update %+v", got)
	}
	if got.Active {
		t.Errorf("omitted active flag should keep the stored value")
	}

	w = performRequest(f.router, http.MethodPut, "/api/admin/questions/missing",
		`{"step":1,"field_key":"role","label":"Role","kind":"single","options":["PM"]}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteQuestion(t *testing.T) {
	f := newAdminFixture()

	if w := performRequest(f.router, http.MethodDelete, "/api/admin/questions/q1", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w := performRequest(f.router, http.MethodDelete, "/api/admin/questions/q1", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestUpdateSettings_InvalidatesCache(t *testing.T) {
	f := newAdminFixture()
	f.cache.Set(settingsCacheKey, models.DefaultSettings())

	w := performRequest(f.router, http.MethodPut, "/api/admin/settings",
		`{"title":"  PM Survey 2025 ","intro":"Hi","thank_you":"Thanks","is_open":false}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if f.settings.settings.Title != "PM Survey 2025" || f.settings.settings.IsOpen {
		t.Errorf("unexpected saved settings %+v", f.settings.settings)
	}
	if _, ok := f.cache.Get(settingsCacheKey); ok {
		t.Errorf("expected settings cache to be invalidated")
	}
}

func TestUpdateSettings_Errors(t *testing.T) {
	f := newAdminFixture()
	if w := performRequest(f.router, http.MethodPut, "/api/admin/settings", `{"title":""}`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty title, got %d", w.Code)
	}

	f.settings.saveErr = errors.New("disk full")
	f.cache.Set(settingsCacheKey, models.DefaultSettings())
	if w := performRequest(f.router, http.MethodPut, "/api/admin/settings", `{"title":"T"}`, nil); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when save fails, got %d", w.Code)
	}
	if _, ok := f.cache.Get(settingsCacheKey); !ok {
		t.Errorf("failed save must not invalidate the cache")
	}
}

func TestDeleteResponse(t *testing.T) {
	f := newAdminFixture()
	f.fetcher.Fetch(context.Background(), models.ResponseFilter{})

	if w := performRequest(f.router, http.MethodDelete, "/api/admin/responses/r1", "", nil); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	res := f.fetcher.Fetch(context.Background(), models.ResponseFilter{})
	if len(res.Records) != 1 || f.responses.listCalls != 2 {
		t.Errorf("expected fresh fetch after delete, got %d records after %d fetches", len(res.Records), f.responses.listCalls)
	}

	if w := performRequest(f.router, http.MethodDelete, "/api/admin/responses/r1", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
