package models

import "time"

const (
	QuestionSingle = "single"
	QuestionMulti  = "multi"
	QuestionText   = "text"
)

// ResponseFields lists the response attributes a question can populate,
// mapped to the kind of answer each one stores.
var ResponseFields = map[string]string{
	"role":             QuestionSingle,
	"seniority":        QuestionSingle,
	"company_size":     QuestionSingle,
	"company_type":     QuestionSingle,
	"industry":         QuestionSingle,
	"product_type":     QuestionSingle,
	"customer_segment": QuestionSingle,
	"daily_tools":      QuestionMulti,
	"learning_methods": QuestionMulti,
	"main_challenge":   QuestionText,
	"email":            QuestionText,
}

// Question is an admin-configured prompt shown on one step of the survey form.
type Question struct {
	ID        string    `json:"id"`
	Step      int       `json:"step"`
	FieldKey  string    `json:"field_key"`
	Label     string    `json:"label"`
	Kind      string    `json:"kind"`
	Options   []string  `json:"options"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuestionRequest struct {
	Step     int      `json:"step" binding:"gte=1,lte=20"`
	FieldKey string   `json:"field_key" binding:"required"`
	Label    string   `json:"label" binding:"required,max=300"`
	Kind     string   `json:"kind" binding:"required,oneof=single multi text"`
	Options  []string `json:"options" binding:"max=50,dive,max=120"`
	Position int      `json:"position" binding:"gte=0"`
	Active   *bool    `json:"active"`
}
