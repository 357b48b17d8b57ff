package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"surveypulse/api/models"
)

// QuestionStore holds the admin-configured survey questions.
type QuestionStore struct {
	db *sql.DB
}

func NewQuestionStore(db *sql.DB) *QuestionStore {
	return &QuestionStore{db: db}
}

const questionColumns = `id, step, field_key, label, kind, options, position, active, created_at, updated_at`

// ListQuestions returns questions ordered by step then position.
func (s *QuestionStore) ListQuestions(ctx context.Context, activeOnly bool) ([]models.Question, error) {
	query := "SELECT " + questionColumns + " FROM survey_questions"
	if activeOnly {
		query += " WHERE active = TRUE"
	}
	query += " ORDER BY step ASC, position ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query survey questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating survey questions: %w", err)
	}
	return questions, nil
}

func (s *QuestionStore) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+questionColumns+" FROM survey_questions WHERE id = $1", id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("survey question '%s': %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &q, nil
}

func (s *QuestionStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	now := time.Now().UTC()
	q.ID = uuid.New().String()
	q.CreatedAt = now
	q.UpdatedAt = now

	options, err := encodeList(q.Options)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO survey_questions (`+questionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, q.ID, q.Step, q.FieldKey, q.Label, q.Kind, options, q.Position, q.Active, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create survey question: %w", err)
	}
	return nil
}

func (s *QuestionStore) UpdateQuestion(ctx context.Context, q *models.Question) error {
	q.UpdatedAt = time.Now().UTC()

	options, err := encodeList(q.Options)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE survey_questions
		SET step = $1, field_key = $2, label = $3, kind = $4, options = $5, position = $6, active = $7, updated_at = $8
		WHERE id = $9
	`, q.Step, q.FieldKey, q.Label, q.Kind, options, q.Position, q.Active, q.UpdatedAt, q.ID)
	if err != nil {
		return fmt.Errorf("failed to update survey question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("survey question '%s': %w", q.ID, ErrNotFound)
	}
	return nil
}

func (s *QuestionStore) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM survey_questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete survey question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("survey question '%s': %w", id, ErrNotFound)
	}
	return nil
}

func scanQuestion(row rowScanner) (models.Question, error) {
	var q models.Question
	var options string
	err := row.Scan(&q.ID, &q.Step, &q.FieldKey, &q.Label, &q.Kind, &options, &q.Position, &q.Active, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return q, err
		}
		return q, fmt.Errorf("failed to scan survey question: %w", err)
	}
	q.Options = decodeList(options)
	return q, nil
}
