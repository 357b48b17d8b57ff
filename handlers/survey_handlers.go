package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"surveypulse/api/cache"
	"surveypulse/api/models"
	"surveypulse/api/utils"
)

const (
	maxAnswerRunes    = 120
	maxChallengeRunes = 4000
	maxListItems      = 30
	maxEmailRunes     = 254
)

// SettingsCache memoizes the public survey settings. Admin writes invalidate it.
type SettingsCache = cache.TTL[string, models.SurveySettings]

const settingsCacheKey = "survey"

type ResponseInserter interface {
	InsertResponse(ctx context.Context, resp *models.SurveyResponse) error
}

type QuestionLister interface {
	ListQuestions(ctx context.Context, activeOnly bool) ([]models.Question, error)
}

type SettingsReader interface {
	GetSettings(ctx context.Context) (models.SurveySettings, error)
}

// SurveyHandlers serve the public multi-step form.
type SurveyHandlers struct {
	Responses     ResponseInserter
	Questions     QuestionLister
	Settings      SettingsReader
	settingsCache *SettingsCache
}

func NewSurveyHandlers(responses ResponseInserter, questions QuestionLister, settings SettingsReader, settingsCache *SettingsCache) *SurveyHandlers {
	return &SurveyHandlers{
		Responses:     responses,
		Questions:     questions,
		Settings:      settings,
		settingsCache: settingsCache,
	}
}

func (h *SurveyHandlers) currentSettings(ctx context.Context) (models.SurveySettings, error) {
	if h.settingsCache != nil {
		if s, ok := h.settingsCache.Get(settingsCacheKey); ok {
			return s, nil
		}
	}
	s, err := h.Settings.GetSettings(ctx)
	if err != nil {
		return s, err
	}
	if h.settingsCache != nil {
		h.settingsCache.Set(settingsCacheKey, s)
	}
	return s, nil
}

// GetConfig returns the survey texts and the active questions in form order.
func (h *SurveyHandlers) GetConfig(c *gin.Context) {
	settings, err := h.currentSettings(c.Request.Context())
	if err != nil {
		log.Printf("Error loading survey settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load survey configuration"})
		return
	}

	questions, err := h.Questions.ListQuestions(c.Request.Context(), true)
	if err != nil {
		log.Printf("Error loading survey questions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load survey configuration"})
		return
	}

	c.JSON(http.StatusOK, models.SurveyConfig{Settings: settings, Questions: questions})
}

// SubmitResponse stores one completed form.
func (h *SurveyHandlers) SubmitResponse(c *gin.Context) {
	var req models.SubmitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	settings, err := h.currentSettings(c.Request.Context())
	if err != nil {
		log.Printf("Error loading survey settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record survey response"})
		return
	}
	if !settings.IsOpen {
		c.JSON(http.StatusForbidden, gin.H{"error": "The survey is closed"})
		return
	}

	resp := sanitizeSubmission(req)
	if isEmptySubmission(resp) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Response has no answers"})
		return
	}

	if err := h.Responses.InsertResponse(c.Request.Context(), &resp); err != nil {
		log.Printf("Error storing survey response: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record survey response"})
		return
	}

	log.WithField("response_id", resp.ID).Info("Survey response recorded")
	c.JSON(http.StatusCreated, gin.H{"id": resp.ID})
}

func sanitizeSubmission(req models.SubmitResponseRequest) models.SurveyResponse {
	answer := func(s string) *string {
		return models.StringPtr(utils.SanitizeText(s, maxAnswerRunes, false))
	}
	return models.SurveyResponse{
		Role:            answer(req.Role),
		Seniority:       answer(req.Seniority),
		CompanySize:     answer(req.CompanySize),
		CompanyType:     answer(req.CompanyType),
		Industry:        answer(req.Industry),
		ProductType:     answer(req.ProductType),
		CustomerSegment: answer(req.CustomerSegment),
		DailyTools:      utils.SanitizeList(req.DailyTools, maxAnswerRunes, maxListItems),
		LearningMethods: utils.SanitizeList(req.LearningMethods, maxAnswerRunes, maxListItems),
		MainChallenge:   models.StringPtr(utils.SanitizeText(req.MainChallenge, maxChallengeRunes, true)),
		Email:           models.StringPtr(utils.SanitizeText(req.Email, maxEmailRunes, false)),
	}
}

func isEmptySubmission(r models.SurveyResponse) bool {
	for _, p := range []*string{r.Role, r.Seniority, r.CompanySize, r.CompanyType, r.Industry, r.ProductType, r.CustomerSegment, r.MainChallenge} {
		if p != nil {
			return false
		}
	}
	return len(r.DailyTools) == 0 && len(r.LearningMethods) == 0
}
