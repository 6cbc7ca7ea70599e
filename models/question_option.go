package models

import "gorm.io/datatypes"

// QuestionOption is one selectable choice of a question. Meta is an open
// key-value map used by dependency filtering (e.g. each municipality option
// carries the province it belongs to under meta["province"]).
type QuestionOption struct {
	ID         uint              `gorm:"primarykey" json:"id"`
	QuestionID uint              `gorm:"not null;index" json:"question_id"`
	Label      string            `gorm:"not null" json:"label"`
	Value      string            `gorm:"not null" json:"value"`
	SortOrder  int               `gorm:"not null;default:1" json:"sort_order"`
	Meta       datatypes.JSONMap `json:"meta,omitempty"`
}

// TableName specifies the table name for QuestionOption model
func (QuestionOption) TableName() string {
	return "question_options"
}

// MetaValue returns the string stored under key, or "" when absent or not a
// string.
func (o *QuestionOption) MetaValue(key string) string {
	if o.Meta == nil {
		return ""
	}
	if s, ok := o.Meta[key].(string); ok {
		return s
	}
	return ""
}
