package models

import "time"

// SurveyVersion is one full snapshot of the question schema. Exactly one
// version is active at a time; activating a new one deactivates the rest.
// Versions are never mutated after creation except for the active flag, and
// never deleted while responses reference them.
type SurveyVersion struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for SurveyVersion model
func (SurveyVersion) TableName() string {
	return "survey_versions"
}
