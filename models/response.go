package models

import (
	"time"

	"gorm.io/datatypes"
)

// SurveyResponse is one submitted survey. Metadata is an open map (surveyor
// name, notes, submission receipt). Responses are immutable after creation
// except for bulk administrative deletion.
type SurveyResponse struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	VersionID uint              `gorm:"not null;index" json:"version_id"`
	CreatedAt time.Time         `json:"created_at"`
	Metadata  datatypes.JSONMap `json:"metadata"`
}

// TableName specifies the table name for SurveyResponse model
func (SurveyResponse) TableName() string {
	return "survey_responses"
}

// MetaString returns the metadata string stored under key, or "".
func (r *SurveyResponse) MetaString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if s, ok := r.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// SurveyAnswer is one answer row. Exactly one of the four typed value columns
// is populated, chosen by the question's qtype at save time; a blank answer
// keeps all four null. A row is written even for blank answers so the export
// stays structurally stable.
type SurveyAnswer struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	ResponseID  uint      `gorm:"not null;index" json:"response_id"`
	QuestionID  uint      `gorm:"not null;index" json:"question_id"`
	CreatedAt   time.Time `json:"created_at"`
	ValueText   *string   `json:"value_text,omitempty"`
	ValueBool   *bool     `json:"value_bool,omitempty"`
	ValueNumber *float64  `json:"value_number,omitempty"`
	ValueJSON   *string   `gorm:"type:text" json:"value_json,omitempty"`
}

// TableName specifies the table name for SurveyAnswer model
func (SurveyAnswer) TableName() string {
	return "survey_answers"
}

// IsBlank reports whether no typed value is populated.
func (a *SurveyAnswer) IsBlank() bool {
	return a.ValueText == nil && a.ValueBool == nil && a.ValueNumber == nil && a.ValueJSON == nil
}
