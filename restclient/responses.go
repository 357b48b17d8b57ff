package restclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"surveypulse/api/aggregator"
	"surveypulse/api/models"
	"surveypulse/api/store"
)

// ResponseRepository stores survey responses in a table exposed through the
// REST backend. It offers the same operations as store.ResponseStore.
type ResponseRepository struct {
	client *Client
	path   string
}

// NewResponseRepository serves responses from /rest/v1/<table>.
func NewResponseRepository(client *Client, table string) *ResponseRepository {
	return &ResponseRepository{client: client, path: "/rest/v1/" + table}
}

// responseRow is the wire shape of a response row. Timestamps arrive as
// strings in whatever format the backend emits.
type responseRow struct {
	ID              string   `json:"id"`
	CreatedAt       string   `json:"created_at"`
	Role            *string  `json:"role"`
	Seniority       *string  `json:"seniority"`
	CompanySize     *string  `json:"company_size"`
	CompanyType     *string  `json:"company_type"`
	Industry        *string  `json:"industry"`
	ProductType     *string  `json:"product_type"`
	CustomerSegment *string  `json:"customer_segment"`
	DailyTools      []string `json:"daily_tools"`
	LearningMethods []string `json:"learning_methods"`
	MainChallenge   *string  `json:"main_challenge"`
	Email           *string  `json:"email,omitempty"`
}

func (r responseRow) toModel() models.SurveyResponse {
	resp := models.SurveyResponse{
		ID:              r.ID,
		CreatedAt:       aggregator.ParseTimestamp(r.CreatedAt),
		Role:            blankToNil(r.Role),
		Seniority:       blankToNil(r.Seniority),
		CompanySize:     blankToNil(r.CompanySize),
		CompanyType:     blankToNil(r.CompanyType),
		Industry:        blankToNil(r.Industry),
		ProductType:     blankToNil(r.ProductType),
		CustomerSegment: blankToNil(r.CustomerSegment),
		DailyTools:      r.DailyTools,
		LearningMethods: r.LearningMethods,
		MainChallenge:   blankToNil(r.MainChallenge),
		Email:           blankToNil(r.Email),
	}
	if resp.DailyTools == nil {
		resp.DailyTools = []string{}
	}
	if resp.LearningMethods == nil {
		resp.LearningMethods = []string{}
	}
	return resp
}

func fromModel(resp *models.SurveyResponse) responseRow {
	return responseRow{
		ID:              resp.ID,
		CreatedAt:       resp.CreatedAt.UTC().Format(time.RFC3339Nano),
		Role:            resp.Role,
		Seniority:       resp.Seniority,
		CompanySize:     resp.CompanySize,
		CompanyType:     resp.CompanyType,
		Industry:        resp.Industry,
		ProductType:     resp.ProductType,
		CustomerSegment: resp.CustomerSegment,
		DailyTools:      nonNil(resp.DailyTools),
		LearningMethods: nonNil(resp.LearningMethods),
		MainChallenge:   resp.MainChallenge,
		Email:           resp.Email,
	}
}

// InsertResponse stores resp, assigning an ID and creation time when unset.
func (r *ResponseRepository) InsertResponse(ctx context.Context, resp *models.SurveyResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}
	if err := r.client.PostJSON(ctx, r.path, fromModel(resp)); err != nil {
		return fmt.Errorf("rest backend: insert survey response: %w", err)
	}
	return nil
}

// ListResponses returns responses matching filter, newest first.
func (r *ResponseRepository) ListResponses(ctx context.Context, filter models.ResponseFilter) ([]models.SurveyResponse, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if !filter.Since.IsZero() {
		q.Add("created_at", "gte."+filter.Since.UTC().Format(time.RFC3339))
	}
	if !filter.Until.IsZero() {
		q.Add("created_at", "lte."+filter.Until.UTC().Format(time.RFC3339))
	}
	if filter.Role != "" {
		q.Set("role", "eq."+filter.Role)
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	var rows []responseRow
	if err := r.client.GetJSON(ctx, r.path, q, &rows); err != nil {
		return nil, fmt.Errorf("rest backend: list survey responses: %w", err)
	}

	results := make([]models.SurveyResponse, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toModel())
	}
	return results, nil
}

func (r *ResponseRepository) GetResponse(ctx context.Context, id string) (*models.SurveyResponse, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id)

	var rows []responseRow
	if err := r.client.GetJSON(ctx, r.path, q, &rows); err != nil {
		return nil, fmt.Errorf("rest backend: get survey response: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("survey response '%s': %w", id, store.ErrNotFound)
	}
	resp := rows[0].toModel()
	return &resp, nil
}

func (r *ResponseRepository) DeleteResponse(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	var deleted []responseRow
	if err := r.client.Delete(ctx, r.path, q, &deleted); err != nil {
		return fmt.Errorf("rest backend: delete survey response: %w", err)
	}
	if len(deleted) == 0 {
		return fmt.Errorf("survey response '%s': %w", id, store.ErrNotFound)
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
