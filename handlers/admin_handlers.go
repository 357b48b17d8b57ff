package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/datasource"
	"surveypulse/api/models"
	"surveypulse/api/store"
	"surveypulse/api/utils"
)

const (
	maxLabelRunes  = 300
	maxOptionItems = 50
	maxTitleRunes  = 200
	maxTextRunes   = 2000
)

type QuestionRepository interface {
	ListQuestions(ctx context.Context, activeOnly bool) ([]models.Question, error)
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) error
	UpdateQuestion(ctx context.Context, q *models.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

type SettingsRepository interface {
	GetSettings(ctx context.Context) (models.SurveySettings, error)
	SaveSettings(ctx context.Context, settings models.SurveySettings) error
}

type ResponseDeleter interface {
	DeleteResponse(ctx context.Context, id string) error
}

// AdminHandlers manage the survey itself: questions, settings and responses.
type AdminHandlers struct {
	Questions     QuestionRepository
	Settings      SettingsRepository
	Responses     ResponseDeleter
	Fetcher       *datasource.Fetcher
	settingsCache *SettingsCache
}

func NewAdminHandlers(questions QuestionRepository, settings SettingsRepository, responses ResponseDeleter, fetcher *datasource.Fetcher, settingsCache *SettingsCache) *AdminHandlers {
	return &AdminHandlers{
		Questions:     questions,
		Settings:      settings,
		Responses:     responses,
		Fetcher:       fetcher,
		settingsCache: settingsCache,
	}
}

func (h *AdminHandlers) ListQuestions(c *gin.Context) {
	questions, err := h.Questions.ListQuestions(c.Request.Context(), false)
	if err != nil {
		log.Printf("Error listing survey questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve questions"})
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *AdminHandlers) CreateQuestion(c *gin.Context) {
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	q, err := questionFromRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question", "details": err.Error()})
		return
	}
	if req.Active == nil {
		q.Active = true
	}

	if err := h.Questions.CreateQuestion(c.Request.Context(), &q); err != nil {
		log.Printf("Error creating survey question: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create question"})
		return
	}

	log.WithFields(log.Fields{"question_id": q.ID, "field_key": q.FieldKey}).Info("Survey question created")
	c.JSON(http.StatusCreated, q)
}

func (h *AdminHandlers) UpdateQuestion(c *gin.Context) {
	id := c.Param("id")
	var req models.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	existing, err := h.Questions.GetQuestion(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		log.Printf("Error loading survey question %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update question"})
		return
	}

	q, err := questionFromRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question", "details": err.Error()})
		return
	}
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt
	if req.Active == nil {
		q.Active = existing.Active
	}

	if err := h.Questions.UpdateQuestion(c.Request.Context(), &q); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		log.Printf("Error updating survey question %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update question"})
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *AdminHandlers) DeleteQuestion(c *gin.Context) {
	id := c.Param("id")
	if err := h.Questions.DeleteQuestion(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
			return
		}
		log.Printf("Error deleting survey question %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete question"})
		return
	}
	c.Status(http.StatusNoContent)
}

// questionFromRequest checks that the question targets a known response field
// with a matching answer kind and cleans its texts.
func questionFromRequest(req models.QuestionRequest) (models.Question, error) {
	kind, ok := models.ResponseFields[req.FieldKey]
	if !ok {
		return models.Question{}, fmt.Errorf("unknown field_key %q", req.FieldKey)
	}
	if kind != req.Kind {
		return models.Question{}, fmt.Errorf("field_key %q takes %s answers, not %s", req.FieldKey, kind, req.Kind)
	}

	q := models.Question{
		Step:     req.Step,
		FieldKey: req.FieldKey,
		Label:    utils.SanitizeText(req.Label, maxLabelRunes, false),
		Kind:     req.Kind,
		Options:  utils.SanitizeList(req.Options, maxAnswerRunes, maxOptionItems),
		Position: req.Position,
	}
	if req.Active != nil {
		q.Active = *req.Active
	}
	if q.Label == "" {
		return models.Question{}, fmt.Errorf("label is empty")
	}
	if q.Kind == models.QuestionText {
		q.Options = []string{}
	} else if len(q.Options) == 0 {
		return models.Question{}, fmt.Errorf("%s questions need at least one option", q.Kind)
	}
	return q, nil
}

func (h *AdminHandlers) GetSettings(c *gin.Context) {
	settings, err := h.Settings.GetSettings(c.Request.Context())
	if err != nil {
		log.Printf("Error loading survey settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSettings saves the survey texts and open flag. The public settings
// cache is invalidated so the form sees the change on its next load.
func (h *AdminHandlers) UpdateSettings(c *gin.Context) {
	var req models.SurveySettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	settings := models.SurveySettings{
		Title:    utils.SanitizeText(req.Title, maxTitleRunes, false),
		Intro:    utils.SanitizeText(req.Intro, maxTextRunes, true),
		ThankYou: utils.SanitizeText(req.ThankYou, maxTextRunes, true),
		IsOpen:   req.IsOpen,
	}
	if settings.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings", "details": "title is empty"})
		return
	}

	if err := h.Settings.SaveSettings(c.Request.Context(), settings); err != nil {
		log.Printf("Error saving survey settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	if h.settingsCache != nil {
		h.settingsCache.Invalidate(settingsCacheKey)
	}

	log.WithFields(log.Fields{"is_open": settings.IsOpen, "by": c.GetString("user_id")}).Info("Survey settings updated")
	c.JSON(http.StatusOK, settings)
}

// DeleteResponse removes one response, e.g. spam or a withdrawal request.
func (h *AdminHandlers) DeleteResponse(c *gin.Context) {
	id := c.Param("id")
	if err := h.Responses.DeleteResponse(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
			return
		}
		log.Printf("Error deleting survey response %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete response"})
		return
	}
	if h.Fetcher != nil {
		h.Fetcher.Reset()
	}

	log.WithFields(log.Fields{"response_id": id, "by": c.GetString("user_id")}).Info("Survey response deleted")
	c.Status(http.StatusNoContent)
}
