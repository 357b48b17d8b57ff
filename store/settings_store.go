package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"surveypulse/api/models"
)

// SettingsStore keeps survey settings as name/value rows.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetSettings overlays stored values on the defaults.
func (s *SettingsStore) GetSettings(ctx context.Context) (models.SurveySettings, error) {
	settings := models.DefaultSettings()

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM survey_settings`)
	if err != nil {
		return settings, fmt.Errorf("failed to query survey settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return settings, fmt.Errorf("failed to scan survey setting: %w", err)
		}
		switch name {
		case "title":
			settings.Title = value
		case "intro":
			settings.Intro = value
		case "thank_you":
			settings.ThankYou = value
		case "is_open":
			if b, err := strconv.ParseBool(value); err == nil {
				settings.IsOpen = b
			}
		}
	}
	if err := rows.Err(); err != nil {
		return settings, fmt.Errorf("error iterating survey settings: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts every setting in a single transaction.
func (s *SettingsStore) SaveSettings(ctx context.Context, settings models.SurveySettings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	values := map[string]string{
		"title":     settings.Title,
		"intro":     settings.Intro,
		"thank_you": settings.ThankYou,
		"is_open":   strconv.FormatBool(settings.IsOpen),
	}
	for name, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO survey_settings (name, value, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, name, value, now)
		if err != nil {
			return fmt.Errorf("failed to save setting %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit survey settings: %w", err)
	}
	return nil
}
