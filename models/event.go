package models

import (
	"encoding/json"
	"time"
)

// Form funnel event types emitted by the multi-step survey form.
const (
	EventFormStarted   = "form_started"
	EventStepViewed    = "step_viewed"
	EventStepCompleted = "step_completed"
	EventFormSubmitted = "form_submitted"
)

// FormEvent is a single interaction with the multi-step survey form.
type FormEvent struct {
	EventID    string          `json:"eventId"`
	EventType  string          `json:"eventType" binding:"required,oneof=form_started step_viewed step_completed form_submitted"`
	SessionID  string          `json:"sessionId" binding:"required,max=128"`
	Step       uint8           `json:"step"`
	Timestamp  time.Time       `json:"timestamp"`
	DurationMs int64           `json:"durationMs" binding:"gte=0"`
	UserAgent  string          `json:"userAgent"`
	IPAddress  string          `json:"ipAddress"`
	Referrer   string          `json:"referrer"`
	EventData  json.RawMessage `json:"eventData,omitempty"`
}

type StepCount struct {
	Step  uint8  `json:"step"`
	Count uint64 `json:"count"`
}
