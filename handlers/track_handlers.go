package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/models"
	"surveypulse/api/store"
	"surveypulse/api/utils"
)

const maxEventBatch = 100

// EventRepository is implemented by store.EventStore.
type EventRepository interface {
	InsertFormEvents(ctx context.Context, events []models.FormEvent) error
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventTypeFilter string) ([]store.EventTypeCountByTime, error)
	GetAverageStepDuration(ctx context.Context, step uint8, start, end time.Time) (float64, error)
	GetStepCounts(ctx context.Context, start, end time.Time) ([]models.StepCount, error)
}

// FunnelHandlers record how respondents move through the multi-step form and
// report drop-off statistics.
type FunnelHandlers struct {
	Events EventRepository
	now    func() time.Time
}

func NewFunnelHandlers(events EventRepository) *FunnelHandlers {
	return &FunnelHandlers{Events: events, now: time.Now}
}

func (h *FunnelHandlers) TrackEvents(c *gin.Context) {
	// The form sends a batch of FormEvent objects.
	var incomingEvents []models.FormEvent
	if err := c.ShouldBindJSON(&incomingEvents); err != nil {
		log.Printf("Error binding incoming form events JSON: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(incomingEvents) == 0 {
		c.Status(http.StatusOK)
		return
	}
	if len(incomingEvents) > maxEventBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many events in one batch"})
		return
	}

	now := h.now().UTC()
	eventsToInsert := make([]models.FormEvent, 0, len(incomingEvents))
	for _, event := range incomingEvents {
		event.EventID = uuid.New().String()
		event.IPAddress = c.ClientIP()
		if event.UserAgent == "" {
			event.UserAgent = c.Request.UserAgent()
		}
		// Client clocks are untrusted beyond "not in the future".
		if event.Timestamp.IsZero() || event.Timestamp.After(now) {
			event.Timestamp = now
		}
		eventsToInsert = append(eventsToInsert, event)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Events.InsertFormEvents(ctx, eventsToInsert); err != nil {
		log.Printf("Error inserting form events into ClickHouse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record form events"})
		return
	}

	c.Status(http.StatusOK)
}

func (h *FunnelHandlers) timeRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), h.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return start, end, false
	}
	return start, end, true
}

func (h *FunnelHandlers) GetEventCountsOverTime(c *gin.Context) {
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	eventTypeFilter := c.Query("eventType")

	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Events.GetEventCountsOverTime(ctx, interval, start, end, eventTypeFilter)
	if err != nil {
		log.Printf("Error getting event counts over time: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetAverageStepDuration reports time spent per step; step=0 or absent means all steps.
func (h *FunnelHandlers) GetAverageStepDuration(c *gin.Context) {
	var step uint8
	if v := c.Query("step"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'step' parameter. Must be an integer between 0 and 255."})
			return
		}
		step = uint8(parsed)
	}

	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	avgDuration, err := h.Events.GetAverageStepDuration(ctx, step, start, end)
	if err != nil {
		log.Printf("Error getting average step duration: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve step duration statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"step":              step,
		"startDate":         start.Format(time.RFC3339),
		"endDate":           end.Format(time.RFC3339),
		"averageDurationMs": avgDuration,
	})
}

// GetFunnel returns distinct sessions completing each step, with the share
// of sessions that reached the first step.
func (h *FunnelHandlers) GetFunnel(c *gin.Context) {
	start, end, ok := h.timeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	counts, err := h.Events.GetStepCounts(ctx, start, end)
	if err != nil {
		log.Printf("Error getting step counts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve funnel statistics"})
		return
	}

	type funnelStep struct {
		models.StepCount
		Retention int `json:"retention"`
	}
	steps := make([]funnelStep, 0, len(counts))
	for _, sc := range counts {
		retention := 0
		if first := counts[0].Count; first > 0 {
			retention = int((sc.Count*100 + first/2) / first)
		}
		steps = append(steps, funnelStep{StepCount: sc, Retention: retention})
	}

	c.JSON(http.StatusOK, gin.H{
		"startDate": start.Format(time.RFC3339),
		"endDate":   end.Format(time.RFC3339),
		"steps":     steps,
	})
}
