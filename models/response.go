package models

import "time"

// SurveyResponse is one completed survey submission. Optional answers are nil
// when the respondent skipped them. Responses are never modified after insert.
type SurveyResponse struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Role            *string   `json:"role"`
	Seniority       *string   `json:"seniority"`
	CompanySize     *string   `json:"company_size"`
	CompanyType     *string   `json:"company_type"`
	Industry        *string   `json:"industry"`
	ProductType     *string   `json:"product_type"`
	CustomerSegment *string   `json:"customer_segment"`
	DailyTools      []string  `json:"daily_tools"`
	LearningMethods []string  `json:"learning_methods"`
	MainChallenge   *string   `json:"main_challenge"`
	Email           *string   `json:"email,omitempty"`
}

// SubmitResponseRequest is the payload posted by the survey form's final step.
type SubmitResponseRequest struct {
	Role            string   `json:"role" binding:"max=120"`
	Seniority       string   `json:"seniority" binding:"max=120"`
	CompanySize     string   `json:"company_size" binding:"max=120"`
	CompanyType     string   `json:"company_type" binding:"max=120"`
	Industry        string   `json:"industry" binding:"max=120"`
	ProductType     string   `json:"product_type" binding:"max=120"`
	CustomerSegment string   `json:"customer_segment" binding:"max=120"`
	DailyTools      []string `json:"daily_tools" binding:"max=30,dive,max=120"`
	LearningMethods []string `json:"learning_methods" binding:"max=30,dive,max=120"`
	MainChallenge   string   `json:"main_challenge" binding:"max=4000"`
	Email           string   `json:"email" binding:"omitempty,email,max=254"`
}

// ResponseFilter narrows a response listing. Zero values mean "no constraint".
// It is comparable so it can key the fetch cache.
type ResponseFilter struct {
	Since time.Time
	Until time.Time
	Role  string
	Limit int
}

// StringPtr returns nil for an empty string so skipped answers stay absent.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
