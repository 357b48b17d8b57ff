package store

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"surveypulse/api/database"
	"surveypulse/api/models"
	"surveypulse/api/utils"
)

// EventStore records survey form funnel events in ClickHouse and answers
// the funnel statistics queries shown next to the dashboard.
type EventStore struct {
	DB *database.ClickHouseClient
}

type EventTypeCountByTime struct {
	Time      time.Time `json:"time"`
	EventType *string   `json:"eventType,omitempty"`
	Count     uint64    `json:"count"`
}

func NewEventStore(chClient *database.ClickHouseClient) *EventStore {
	return &EventStore{
		DB: chClient,
	}
}

func (s *EventStore) InsertFormEvents(ctx context.Context, events []models.FormEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO form_events (
			event_id, event_type, session_id, step, timestamp, duration_ms,
			user_agent, ip_address, referrer, event_data
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	appended := 0
	for _, event := range events {
		err := batch.Append(
			event.EventID,
			event.EventType,
			event.SessionID,
			event.Step,
			event.Timestamp,
			event.DurationMs,
			event.UserAgent,
			event.IPAddress,
			event.Referrer,
			string(event.EventData),
		)
		if err != nil {
			log.WithError(err).WithField("event_id", event.EventID).Warn("Error appending form event to batch")
			continue
		}
		appended++
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.WithField("count", appended).Debug("Inserted form events")
	return nil
}

func (s *EventStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]EventTypeCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []interface{}{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	isFilteringByType := eventTypeFilter != ""

	if isFilteringByType {
		selectCols += ", event_type"
		groupByCols += ", event_type"
		whereClause += " AND event_type = ?"
		args = append(args, eventTypeFilter)
		orderByCols += ", event_type ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM form_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	results := []EventTypeCountByTime{}
	for rows.Next() {
		var (
			timeBucket    time.Time
			count         uint64
			eventTypeDB   string
			currentResult EventTypeCountByTime
		)

		if isFilteringByType {
			if err := rows.Scan(&timeBucket, &count, &eventTypeDB); err != nil {
				log.WithError(err).Warn("Error scanning row for event counts over time")
				continue
			}
			currentResult.EventType = &eventTypeDB
		} else {
			if err := rows.Scan(&timeBucket, &count); err != nil {
				log.WithError(err).Warn("Error scanning row for event counts over time")
				continue
			}
		}

		currentResult.Time = timeBucket
		currentResult.Count = count
		results = append(results, currentResult)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}

	return results, nil
}

// GetAverageStepDuration returns the mean time spent on a form step, or on
// all steps when step is 0.
func (s *EventStore) GetAverageStepDuration(ctx context.Context, step uint8, start, end time.Time) (float64, error) {
	query := `SELECT avg(duration_ms) FROM form_events WHERE event_type = ? AND timestamp >= ? AND timestamp <= ?`
	args := []interface{}{models.EventStepCompleted, start, end}

	if step > 0 {
		query += ` AND step = ?`
		args = append(args, step)
	}

	var avgDuration float64
	if err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&avgDuration); err != nil {
		return 0.0, fmt.Errorf("failed to query average step duration: %w", err)
	}

	// avg() over no rows yields NaN, which JSON cannot encode.
	if math.IsNaN(avgDuration) {
		return 0.0, nil
	}
	return avgDuration, nil
}

// GetStepCounts returns how many distinct sessions completed each step.
func (s *EventStore) GetStepCounts(ctx context.Context, start, end time.Time) ([]models.StepCount, error) {
	query := `
		SELECT step, uniq(session_id) AS sessions
		FROM form_events
		WHERE event_type = ? AND timestamp >= ? AND timestamp <= ?
		GROUP BY step
		ORDER BY step ASC
	`
	rows, err := s.DB.Conn.Query(ctx, query, models.EventStepCompleted, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query step counts: %w", err)
	}
	defer rows.Close()

	results := []models.StepCount{}
	for rows.Next() {
		var sc models.StepCount
		if err := rows.Scan(&sc.Step, &sc.Count); err != nil {
			log.WithError(err).Warn("Error scanning row for step counts")
			continue
		}
		results = append(results, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for step counts: %w", err)
	}

	return results, nil
}
