package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/models"
)

// ResponseStore persists survey responses in the SQL database.
type ResponseStore struct {
	db *sql.DB
}

func NewResponseStore(db *sql.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

const responseColumns = `id, created_at, role, seniority, company_size, company_type, industry,
	product_type, customer_segment, daily_tools, learning_methods, main_challenge, email`

// InsertResponse stores resp, assigning an ID and creation time when unset.
func (s *ResponseStore) InsertResponse(ctx context.Context, resp *models.SurveyResponse) error {
	if resp.ID == "" {
		resp.ID = uuid.New().String()
	}
	if resp.CreatedAt.IsZero() {
		resp.CreatedAt = time.Now().UTC()
	}

	tools, err := encodeList(resp.DailyTools)
	if err != nil {
		return err
	}
	methods, err := encodeList(resp.LearningMethods)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO survey_responses (`+responseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		resp.ID,
		resp.CreatedAt,
		nullable(resp.Role),
		nullable(resp.Seniority),
		nullable(resp.CompanySize),
		nullable(resp.CompanyType),
		nullable(resp.Industry),
		nullable(resp.ProductType),
		nullable(resp.CustomerSegment),
		tools,
		methods,
		nullable(resp.MainChallenge),
		nullable(resp.Email),
	)
	if err != nil {
		return fmt.Errorf("failed to insert survey response: %w", err)
	}

	log.WithField("response_id", resp.ID).Debug("Survey response stored")
	return nil
}

// ListResponses returns responses matching filter, newest first.
func (s *ResponseStore) ListResponses(ctx context.Context, filter models.ResponseFilter) ([]models.SurveyResponse, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.Since.IsZero() {
		args = append(args, filter.Since.UTC())
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until.UTC())
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}

	query := "SELECT " + responseColumns + " FROM survey_responses"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query survey responses: %w", err)
	}
	defer rows.Close()

	results := []models.SurveyResponse{}
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating survey responses: %w", err)
	}

	return results, nil
}

func (s *ResponseStore) GetResponse(ctx context.Context, id string) (*models.SurveyResponse, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+responseColumns+" FROM survey_responses WHERE id = $1", id)
	resp, err := scanResponse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("survey response '%s': %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &resp, nil
}

func (s *ResponseStore) DeleteResponse(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey_responses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete survey response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete survey response: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("survey response '%s': %w", id, ErrNotFound)
	}
	return nil
}

func (s *ResponseStore) CountResponses(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count survey responses: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanResponse(row rowScanner) (models.SurveyResponse, error) {
	var resp models.SurveyResponse
	var role, seniority, companySize, companyType sql.NullString
	var industry, productType, customerSegment, challenge, email sql.NullString
	var tools, methods string

	err := row.Scan(
		&resp.ID,
		&resp.CreatedAt,
		&role,
		&seniority,
		&companySize,
		&companyType,
		&industry,
		&productType,
		&customerSegment,
		&tools,
		&methods,
		&challenge,
		&email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resp, err
		}
		return resp, fmt.Errorf("failed to scan survey response: %w", err)
	}

	resp.Role = fromNull(role)
	resp.Seniority = fromNull(seniority)
	resp.CompanySize = fromNull(companySize)
	resp.CompanyType = fromNull(companyType)
	resp.Industry = fromNull(industry)
	resp.ProductType = fromNull(productType)
	resp.CustomerSegment = fromNull(customerSegment)
	resp.MainChallenge = fromNull(challenge)
	resp.Email = fromNull(email)
	resp.DailyTools = decodeList(tools)
	resp.LearningMethods = decodeList(methods)
	return resp, nil
}

func nullable(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	return &s
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

// decodeList treats unreadable list columns as empty.
func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return []string{}
	}
	if values == nil {
		return []string{}
	}
	return values
}
