package models

// SurveySettings are the admin-editable texts and the open/closed switch of the survey.
type SurveySettings struct {
	Title    string `json:"title" binding:"max=200"`
	Intro    string `json:"intro" binding:"max=2000"`
	ThankYou string `json:"thank_you" binding:"max=2000"`
	IsOpen   bool   `json:"is_open"`
}

// DefaultSettings is served until an admin saves settings for the first time.
func DefaultSettings() SurveySettings {
	return SurveySettings{
		Title:    "Product Career Survey",
		Intro:    "Tell us about your role, your team and the tools you use every day.",
		ThankYou: "Thanks for taking part!",
		IsOpen:   true,
	}
}

// SurveyConfig is what the public form loads before rendering its steps.
type SurveyConfig struct {
	Settings  SurveySettings `json:"settings"`
	Questions []Question     `json:"questions"`
}
