package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"surveypulse/api/models"
	"surveypulse/api/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*models.User{}}
}

func (f *fakeUsers) CreateUser(ctx context.Context, email string, hashedPassword []byte, role string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.users[email]; ok {
		return nil, fmt.Errorf("user with email '%s': %w", email, store.ErrUserExists)
	}
	u := &models.User{ID: fmt.Sprintf("u%d", len(f.users)+1), Email: email, HashedPassword: hashedPassword, Role: role}
	f.users[email] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, fmt.Errorf("user with email '%s': %w", email, store.ErrNotFound)
	}
	return u, nil
}

type fakeResponses struct {
	mu        sync.Mutex
	records   []models.SurveyResponse
	listErr   error
	listCalls int
	lastList  models.ResponseFilter
}

func (f *fakeResponses) InsertResponse(ctx context.Context, resp *models.SurveyResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp.ID = fmt.Sprintf("r%d", len(f.records)+1)
	resp.CreatedAt = time.Now().UTC()
	f.records = append(f.records, *resp)
	return nil
}

func (f *fakeResponses) ListResponses(ctx context.Context, filter models.ResponseFilter) ([]models.SurveyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	f.lastList = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.SurveyResponse, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeResponses) DeleteResponse(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.records {
		if r.ID == id {
			f.records = append(f.records[:i], f.records[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("survey response '%s': %w", id, store.ErrNotFound)
}

type fakeQuestions struct {
	questions  []models.Question
	activeOnly []bool
}

func (f *fakeQuestions) ListQuestions(ctx context.Context, activeOnly bool) ([]models.Question, error) {
	f.activeOnly = append(f.activeOnly, activeOnly)
	out := []models.Question{}
	for _, q := range f.questions {
		if activeOnly && !q.Active {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuestions) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	for i := range f.questions {
		if f.questions[i].ID == id {
			q := f.questions[i]
			return &q, nil
		}
	}
	return nil, fmt.Errorf("survey question '%s': %w", id, store.ErrNotFound)
}

func (f *fakeQuestions) CreateQuestion(ctx context.Context, q *models.Question) error {
	q.ID = fmt.Sprintf("q%d", len(f.questions)+1)
	f.questions = append(f.questions, *q)
	return nil
}

func (f *fakeQuestions) UpdateQuestion(ctx context.Context, q *models.Question) error {
	for i := range f.questions {
		if f.questions[i].ID == q.ID {
			f.questions[i] = *q
			return nil
		}
	}
	return fmt.Errorf("survey question '%s': %w", q.ID, store.ErrNotFound)
}

func (f *fakeQuestions) DeleteQuestion(ctx context.Context, id string) error {
	for i := range f.questions {
		if f.questions[i].ID == id {
			f.questions = append(f.questions[:i], f.questions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("survey question '%s': %w", id, store.ErrNotFound)
}

type fakeSettings struct {
	settings models.SurveySettings
	getCalls int
	saveErr  error
}

func (f *fakeSettings) GetSettings(ctx context.Context) (models.SurveySettings, error) {
	f.getCalls++
	return f.settings, nil
}

func (f *fakeSettings) SaveSettings(ctx context.Context, settings models.SurveySettings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.settings = settings
	return nil
}

type fakeEvents struct {
	inserted  []models.FormEvent
	insertErr error
	steps     []models.StepCount
	avg       float64
	lastStep  uint8
	lastRange [2]time.Time
}

func (f *fakeEvents) InsertFormEvents(ctx context.Context, events []models.FormEvent) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, events...)
	return nil
}

func (f *fakeEvents) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]store.EventTypeCountByTime, error) {
	f.lastRange = [2]time.Time{start, end}
	return []store.EventTypeCountByTime{{Time: start, Count: 3}}, nil
}

func (f *fakeEvents) GetAverageStepDuration(ctx context.Context, step uint8, start, end time.Time) (float64, error) {
	f.lastStep = step
	f.lastRange = [2]time.Time{start, end}
	return f.avg, nil
}

func (f *fakeEvents) GetStepCounts(ctx context.Context, start, end time.Time) ([]models.StepCount, error) {
	if f.steps == nil {
		return nil, errors.New("clickhouse down")
	}
	return f.steps, nil
}
