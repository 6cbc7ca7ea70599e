package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Question type constants
const (
	QTypeYesNo        = "yes_no"
	QTypeText         = "text"
	QTypeNumber       = "number"
	QTypeSingleChoice = "single_choice"
	QTypeMultiChoice  = "multi_choice"
)

// Labels stored for the ternary yes/no domain
const (
	AnswerAffirmative = "Sí"
	AnswerNegative    = "No"
)

// QuestionConfig is the typed per-question configuration. It replaces the
// open key-value bag the admin used to edit: unknown keys are rejected at the
// edit boundary instead of surfacing as missing-key errors at render time.
type QuestionConfig struct {
	// DependsOn is the code of the controlling question. While that question
	// has no answer in the session, this question stays hidden.
	DependsOn string `json:"depends_on,omitempty"`
	// FilterOptionMetaKey is the option-meta key matched against the
	// controlling answer. Empty means "use DependsOn as the key".
	FilterOptionMetaKey string `json:"filter_option_meta_key,omitempty"`
	// Free-text escape for choice answers ("OTRA: ...")
	HasOther        bool   `json:"has_other,omitempty"`
	OtherLabel      string `json:"other_label,omitempty"`
	OtherTextPrompt string `json:"other_text_prompt,omitempty"`
}

// IsZero reports whether no configuration key is set.
func (c QuestionConfig) IsZero() bool {
	return c == QuestionConfig{}
}

// ParseQuestionConfig decodes a config JSON document strictly: unknown keys
// are an error so typos never reach the store.
func ParseQuestionConfig(raw []byte) (QuestionConfig, error) {
	var cfg QuestionConfig
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return QuestionConfig{}, fmt.Errorf("invalid question config: %w", err)
	}
	return cfg, nil
}

// Question is one prompt inside a group. Code is the optional stable semantic
// identifier (unique per version among non-null codes); Label is what the
// respondent sees and falls back to Text when absent.
type Question struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	VersionID uint           `gorm:"not null;index;uniqueIndex:uq_questions_code" json:"version_id"`
	GroupID   uint           `gorm:"not null;index" json:"group_id"`
	Code      *string        `gorm:"uniqueIndex:uq_questions_code" json:"code,omitempty"`
	Label     *string        `json:"label,omitempty"`
	Text      string         `gorm:"type:text;not null" json:"text"`
	HelpText  *string        `json:"help_text,omitempty"`
	QType     string         `gorm:"column:qtype;not null" json:"qtype"`
	Required  bool           `gorm:"not null;default:false" json:"required"`
	SortOrder int            `gorm:"not null;default:1" json:"sort_order"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	Config    QuestionConfig `gorm:"serializer:json" json:"config"`

	Options []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
}

// TableName specifies the table name for Question model
func (Question) TableName() string {
	return "questions"
}

// DisplayLabel returns the respondent-facing prompt (Label, or Text when the
// label was never set).
func (q *Question) DisplayLabel() string {
	if q.Label != nil && *q.Label != "" {
		return *q.Label
	}
	return q.Text
}

// IsValidQType checks if the question type is one of the supported kinds
func IsValidQType(qtype string) bool {
	switch qtype {
	case QTypeYesNo, QTypeText, QTypeNumber, QTypeSingleChoice, QTypeMultiChoice:
		return true
	}
	return false
}
