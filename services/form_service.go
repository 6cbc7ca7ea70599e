package services

import (
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"pic_survey_go/models"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// promptPolicy strips any markup an editor pastes into prompts or help text.
var promptPolicy = bluemonday.StrictPolicy()

func sanitizePrompt(s string) string {
	return strings.TrimSpace(html.UnescapeString(promptPolicy.Sanitize(s)))
}

// GetActiveVersion returns the active survey version, or nil when none exists.
func GetActiveVersion(db *gorm.DB) (*models.SurveyVersion, error) {
	var v models.SurveyVersion
	err := db.Where("is_active = ?", true).Order("id DESC").First(&v).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active version: %w", err)
	}
	return &v, nil
}

// FormSection is a section with its active groups, as served to the renderer.
type FormSection struct {
	models.Section
	Groups []FormGroup `json:"groups"`
}

// FormGroup is a group with its active questions (options included).
type FormGroup struct {
	models.QuestionGroup
	Questions []models.Question `json:"questions"`
}

// GetForm returns the ordered tree of active sections, groups and questions
// for a version. An inactive node hides its whole subtree regardless of the
// descendants' own flags. Ordering is sort_order then id at every level.
func GetForm(db *gorm.DB, versionID uint) ([]FormSection, error) {
	var sections []models.Section
	if err := db.Where("version_id = ? AND is_active = ?", versionID, true).
		Order("sort_order, id").Find(&sections).Error; err != nil {
		return nil, fmt.Errorf("failed to load sections: %w", err)
	}
	if len(sections) == 0 {
		return []FormSection{}, nil
	}

	sectionIDs := make([]uint, 0, len(sections))
	for _, s := range sections {
		sectionIDs = append(sectionIDs, s.ID)
	}

	var groups []models.QuestionGroup
	if err := db.Where("version_id = ? AND is_active = ? AND section_id IN ?", versionID, true, sectionIDs).
		Order("section_id, sort_order, id").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}

	groupIDs := make([]uint, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	var questions []models.Question
	if len(groupIDs) > 0 {
		if err := db.Where("version_id = ? AND is_active = ? AND group_id IN ?", versionID, true, groupIDs).
			Order("group_id, sort_order, id").Find(&questions).Error; err != nil {
			return nil, fmt.Errorf("failed to load questions: %w", err)
		}
	}

	questionIDs := make([]uint, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}

	var options []models.QuestionOption
	if len(questionIDs) > 0 {
		if err := db.Where("question_id IN ?", questionIDs).
			Order("question_id, sort_order, id").Find(&options).Error; err != nil {
			return nil, fmt.Errorf("failed to load options: %w", err)
		}
	}

	optsByQuestion := make(map[uint][]models.QuestionOption)
	for _, o := range options {
		optsByQuestion[o.QuestionID] = append(optsByQuestion[o.QuestionID], o)
	}

	questionsByGroup := make(map[uint][]models.Question)
	for _, q := range questions {
		q.Options = optsByQuestion[q.ID]
		questionsByGroup[q.GroupID] = append(questionsByGroup[q.GroupID], q)
	}

	groupsBySection := make(map[uint][]FormGroup)
	for _, g := range groups {
		groupsBySection[g.SectionID] = append(groupsBySection[g.SectionID], FormGroup{
			QuestionGroup: g,
			Questions:     questionsByGroup[g.ID],
		})
	}

	form := make([]FormSection, 0, len(sections))
	for _, s := range sections {
		form = append(form, FormSection{Section: s, Groups: groupsBySection[s.ID]})
	}
	return form, nil
}

// UpsertSection creates a section or, when sectionID is set, rewrites all of
// its mutable fields.
func UpsertSection(db *gorm.DB, versionID uint, sectionID *uint, name string, sortOrder int, isActive bool) (uint, error) {
	name = sanitizePrompt(name)
	if name == "" {
		return 0, fmt.Errorf("section name is required")
	}

	if sectionID != nil {
		res := db.Model(&models.Section{}).
			Where("id = ? AND version_id = ?", *sectionID, versionID).
			Updates(map[string]interface{}{"name": name, "sort_order": sortOrder, "is_active": isActive})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to update section: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return 0, fmt.Errorf("section %d not found in version %d", *sectionID, versionID)
		}
		return *sectionID, nil
	}

	section := models.Section{VersionID: versionID, Name: name, SortOrder: sortOrder, IsActive: isActive}
	if err := db.Create(&section).Error; err != nil {
		return 0, fmt.Errorf("failed to create section: %w", err)
	}
	return section.ID, nil
}

// UpsertGroup creates a group or rewrites an existing one.
func UpsertGroup(db *gorm.DB, versionID uint, groupID *uint, sectionID uint, title string, sortOrder int, isActive bool) (uint, error) {
	title = sanitizePrompt(title)
	if title == "" {
		return 0, fmt.Errorf("group title is required")
	}

	if groupID != nil {
		res := db.Model(&models.QuestionGroup{}).
			Where("id = ? AND version_id = ?", *groupID, versionID).
			Updates(map[string]interface{}{"section_id": sectionID, "title": title, "sort_order": sortOrder, "is_active": isActive})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to update group: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return 0, fmt.Errorf("group %d not found in version %d", *groupID, versionID)
		}
		return *groupID, nil
	}

	group := models.QuestionGroup{VersionID: versionID, SectionID: sectionID, Title: title, SortOrder: sortOrder, IsActive: isActive}
	if err := db.Create(&group).Error; err != nil {
		return 0, fmt.Errorf("failed to create group: %w", err)
	}
	return group.ID, nil
}

// QuestionInput carries the editable fields of a question through the admin
// boundary. Config arrives already parsed (strict decoding happens at the
// handler), so no raw JSON reaches this layer.
type QuestionInput struct {
	GroupID   uint
	Code      *string
	Label     string
	Text      string
	HelpText  *string
	QType     string
	Required  bool
	SortOrder int
	IsActive  bool
	Config    models.QuestionConfig
}

// UpsertQuestion creates or rewrites a question. Prompts are sanitized, the
// label falls back to the text so it is never empty, and the per-version code
// uniqueness invariant is enforced here before the write.
func UpsertQuestion(db *gorm.DB, versionID uint, questionID *uint, in QuestionInput) (uint, error) {
	in.Text = sanitizePrompt(in.Text)
	in.Label = sanitizePrompt(in.Label)
	if in.Text == "" {
		return 0, fmt.Errorf("question text is required")
	}
	if !models.IsValidQType(in.QType) {
		return 0, fmt.Errorf("unknown question type %q", in.QType)
	}
	if in.Label == "" {
		in.Label = in.Text
	}
	if in.Code != nil {
		code := strings.TrimSpace(*in.Code)
		if code == "" {
			in.Code = nil
		} else {
			in.Code = &code
		}
	}
	if in.HelpText != nil {
		help := sanitizePrompt(*in.HelpText)
		if help == "" {
			in.HelpText = nil
		} else {
			in.HelpText = &help
		}
	}

	if in.Code != nil {
		var excludeID uint
		if questionID != nil {
			excludeID = *questionID
		}
		var count int64
		if err := db.Model(&models.Question{}).
			Where("version_id = ? AND code = ? AND id <> ?", versionID, *in.Code, excludeID).
			Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if count > 0 {
			return 0, fmt.Errorf("code %q is already assigned to another question in version %d", *in.Code, versionID)
		}
	}

	if questionID != nil {
		res := db.Model(&models.Question{}).
			Where("id = ? AND version_id = ?", *questionID, versionID).
			Updates(map[string]interface{}{
				"group_id":   in.GroupID,
				"code":       in.Code,
				"label":      in.Label,
				"text":       in.Text,
				"help_text":  in.HelpText,
				"qtype":      in.QType,
				"required":   in.Required,
				"sort_order": in.SortOrder,
				"is_active":  in.IsActive,
				"config":     jsonConfig(in.Config),
			})
		if res.Error != nil {
			return 0, fmt.Errorf("failed to update question: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return 0, fmt.Errorf("question %d not found in version %d", *questionID, versionID)
		}
		return *questionID, nil
	}

	label := in.Label
	question := models.Question{
		VersionID: versionID,
		GroupID:   in.GroupID,
		Code:      in.Code,
		Label:     &label,
		Text:      in.Text,
		HelpText:  in.HelpText,
		QType:     in.QType,
		Required:  in.Required,
		SortOrder: in.SortOrder,
		IsActive:  in.IsActive,
		Config:    in.Config,
	}
	if err := db.Create(&question).Error; err != nil {
		return 0, fmt.Errorf("failed to create question: %w", err)
	}
	return question.ID, nil
}

// jsonConfig serializes a config for a map-based Updates call, which bypasses
// the model's field serializer.
func jsonConfig(cfg models.QuestionConfig) string {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// OptionInput is one option row for ReplaceOptions. Value defaults to Label
// and SortOrder to the list position.
type OptionInput struct {
	Label     string
	Value     string
	SortOrder int
	Meta      map[string]interface{}
}

// ReplaceOptions swaps a question's full option set in one transaction.
// Options are replaced wholesale, never merged.
func ReplaceOptions(db *gorm.DB, questionID uint, opts []OptionInput) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.QuestionOption{}).Error; err != nil {
			return fmt.Errorf("failed to delete options: %w", err)
		}
		for i, in := range opts {
			label := strings.TrimSpace(in.Label)
			if label == "" {
				continue
			}
			value := in.Value
			if value == "" {
				value = label
			}
			sortOrder := in.SortOrder
			if sortOrder == 0 {
				sortOrder = i + 1
			}
			opt := models.QuestionOption{
				QuestionID: questionID,
				Label:      label,
				Value:      value,
				SortOrder:  sortOrder,
				Meta:       datatypes.JSONMap(in.Meta),
			}
			if err := tx.Create(&opt).Error; err != nil {
				return fmt.Errorf("failed to create option %q: %w", label, err)
			}
		}
		return nil
	})
}

// CreateResponse records a new submission shell and returns its id. A receipt
// identifier is stamped into the metadata so the respondent gets a stable
// reference independent of the row id.
func CreateResponse(db *gorm.DB, versionID uint, metadata map[string]interface{}) (uint, error) {
	meta := datatypes.JSONMap{}
	for k, v := range metadata {
		meta[k] = v
	}
	meta["receipt"] = uuid.New().String()

	response := models.SurveyResponse{VersionID: versionID, Metadata: meta}
	if err := db.Create(&response).Error; err != nil {
		return 0, fmt.Errorf("failed to create response: %w", err)
	}
	return response.ID, nil
}

// BuildAnswer converts a raw submitted value into the typed answer row for a
// question. The conversion never rejects: an unparseable number degrades to
// its text, unknown shapes degrade to JSON, and nil leaves all values null.
func BuildAnswer(responseID uint, q *models.Question, raw interface{}) models.SurveyAnswer {
	answer := models.SurveyAnswer{ResponseID: responseID, QuestionID: q.ID}
	if raw == nil {
		return answer
	}

	switch q.QType {
	case models.QTypeYesNo:
		s := fmt.Sprint(raw)
		switch s {
		case models.AnswerAffirmative:
			v := true
			answer.ValueBool = &v
		case models.AnswerNegative:
			v := false
			answer.ValueBool = &v
		}
		answer.ValueText = &s
	case models.QTypeText, models.QTypeSingleChoice:
		s := fmt.Sprint(raw)
		answer.ValueText = &s
	case models.QTypeNumber:
		if n, ok := toNumber(raw); ok {
			answer.ValueNumber = &n
		} else {
			s := fmt.Sprint(raw)
			answer.ValueText = &s
		}
	case models.QTypeMultiChoice:
		answer.ValueJSON = marshalList(raw)
	default:
		if b, err := json.Marshal(raw); err == nil {
			s := string(b)
			answer.ValueJSON = &s
		}
	}
	return answer
}

func toNumber(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		n, err := v.Float64()
		return n, err == nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// marshalList serializes a multi-choice selection as an ordered JSON list of
// labels. A lone string becomes a one-element list.
func marshalList(raw interface{}) *string {
	var labels []string
	switch v := raw.(type) {
	case []string:
		labels = v
	case []interface{}:
		for _, item := range v {
			labels = append(labels, fmt.Sprint(item))
		}
	default:
		labels = []string{fmt.Sprint(raw)}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// SaveAnswer persists one answer row for a question. Blank answers are stored
// too: the row keeps the export shape stable.
func SaveAnswer(db *gorm.DB, responseID uint, q *models.Question, raw interface{}) error {
	answer := BuildAnswer(responseID, q, raw)
	if err := db.Create(&answer).Error; err != nil {
		return fmt.Errorf("failed to save answer for question %d: %w", q.ID, err)
	}
	return nil
}

// CountResponses returns the number of responses recorded for a version.
func CountResponses(db *gorm.DB, versionID uint) (int64, error) {
	var count int64
	if err := db.Model(&models.SurveyResponse{}).Where("version_id = ?", versionID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count responses: %w", err)
	}
	return count, nil
}

// DeleteResponses removes all responses of a version together with their
// answers, inside one transaction so a midway failure leaves everything
// intact.
func DeleteResponses(db *gorm.DB, versionID uint) (int64, error) {
	var deleted int64
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("response_id IN (?)",
			tx.Model(&models.SurveyResponse{}).Select("id").Where("version_id = ?", versionID),
		).Delete(&models.SurveyAnswer{}).Error; err != nil {
			return fmt.Errorf("failed to delete answers: %w", err)
		}
		res := tx.Where("version_id = ?", versionID).Delete(&models.SurveyResponse{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete responses: %w", res.Error)
		}
		deleted = res.RowsAffected
		return nil
	})
	return deleted, err
}
