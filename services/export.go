package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pic_survey_go/models"

	"gorm.io/gorm"
)

// identityColumnTitles maps identity codes to the fixed human-named export
// columns.
var identityColumnTitles = map[string]string{
	"province":     "Provincia",
	"municipality": "Municipio",
	"full_name":    "Nombre completo",
	"doc_type":     "Tipo de documento",
	"doc_number":   "Número de documento",
	"phone":        "Número de celular",
	"email":        "Correo electrónico",
	"role":         "Cargo o rol",
}

// responseColumnTitles are the per-response metadata columns placed between
// the identity block and the question columns.
var responseColumnTitles = []string{"ID", "Fecha", "Encuestador", "Observaciones"}

// fallbackRule recovers an identity column from answers recorded before
// reconciliation assigned the code: it matches normalized section/group/text
// substrings inside the initial section.
type fallbackRule struct {
	Code          string
	SecContains   string
	GroupContains string
	TextContains  string
}

var fallbackRules = []fallbackRule{
	{"province", "preguntas iniciales", "ubic", "provincia"},
	{"municipality", "preguntas iniciales", "ubic", "municip"},
	{"full_name", "preguntas iniciales", "ident", "nombre"},
	{"doc_type", "preguntas iniciales", "ident", "tipodedocument"},
	{"doc_number", "preguntas iniciales", "ident", "numerodedocument"},
	{"phone", "preguntas iniciales", "ident", "celular"},
	{"email", "preguntas iniciales", "ident", "correo"},
	{"role", "preguntas iniciales", "ident", "cargo"},
}

// WideTable is the analysis-ready export shape: one row per response, one
// column per question, preceded by the fixed identity and metadata columns.
type WideTable struct {
	Headers []string
	Rows    [][]string
}

// answerRecord is one joined Response × Answer × Question row.
type answerRecord struct {
	ResponseID   uint
	QuestionID   uint
	Code         *string
	QuestionText string
	QType        string
	SectionName  string
	GroupTitle   string
	ValueText    *string
	ValueBool    *bool
	ValueNumber  *float64
	ValueJSON    *string
}

// displayValue coerces a typed answer back to its display form: yes/no
// booleans map to their original labels, then text, number, JSON in that
// order of preference.
func displayValue(r answerRecord) string {
	if r.QType == models.QTypeYesNo && r.ValueBool != nil {
		if *r.ValueBool {
			return models.AnswerAffirmative
		}
		return models.AnswerNegative
	}
	if r.ValueText != nil {
		return *r.ValueText
	}
	if r.ValueNumber != nil {
		return strconv.FormatFloat(*r.ValueNumber, 'f', -1, 64)
	}
	if r.ValueJSON != nil {
		return displayJSON(*r.ValueJSON)
	}
	return ""
}

func displayJSON(raw string) string {
	var decoded interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return raw
	}
	if list, ok := decoded.([]interface{}); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	}
	return raw
}

// questionColumn is one schema-derived column in form order.
type questionColumn struct {
	SectionName  string
	GroupTitle   string
	QuestionText string
}

func (c questionColumn) header() string {
	return fmt.Sprintf("%s | %s | %s", c.SectionName, c.GroupTitle, c.QuestionText)
}

// BuildWideExport produces the wide table for a version. Question columns are
// identified by their full "Section | Group | QuestionText" path, so uncoded
// questions appear too; every currently active question gets a column in
// schema order even when no response ever answered it, and the identity
// columns are always present. Rows are ordered by response id.
func BuildWideExport(db *gorm.DB, versionID uint) (*WideTable, error) {
	var responses []models.SurveyResponse
	if err := db.Where("version_id = ?", versionID).Order("id").Find(&responses).Error; err != nil {
		return nil, fmt.Errorf("failed to load responses: %w", err)
	}

	var records []answerRecord
	if err := db.Table("survey_answers AS a").
		Select(`r.id AS response_id, a.question_id, q.code,
			COALESCE(q.label, q.text) AS question_text, q.qtype,
			s.name AS section_name, g.title AS group_title,
			a.value_text, a.value_bool, a.value_number, a.value_json`).
		Joins("JOIN survey_responses r ON r.id = a.response_id").
		Joins("JOIN questions q ON q.id = a.question_id").
		Joins("JOIN question_groups g ON g.id = q.group_id").
		Joins("JOIN sections s ON s.id = g.section_id").
		Where("r.version_id = ?", versionID).
		Order("r.id, q.id").
		Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load answers: %w", err)
	}

	// Identity pivot by code, first answer wins.
	identity := make(map[uint]map[string]string)
	for _, r := range records {
		if r.Code == nil {
			continue
		}
		if _, known := identityColumnTitles[*r.Code]; !known {
			continue
		}
		byCode, ok := identity[r.ResponseID]
		if !ok {
			byCode = make(map[string]string)
			identity[r.ResponseID] = byCode
		}
		if _, exists := byCode[*r.Code]; !exists {
			byCode[*r.Code] = displayValue(r)
		}
	}

	fillIdentityFallback(identity, responses, records)

	// General pivot by column path, first answer wins.
	pivot := make(map[uint]map[string]string)
	for _, r := range records {
		header := questionColumn{r.SectionName, r.GroupTitle, r.QuestionText}.header()
		byHeader, ok := pivot[r.ResponseID]
		if !ok {
			byHeader = make(map[string]string)
			pivot[r.ResponseID] = byHeader
		}
		if _, exists := byHeader[header]; !exists {
			byHeader[header] = displayValue(r)
		}
	}

	columns, err := activeQuestionColumns(db, versionID)
	if err != nil {
		return nil, err
	}

	headers := make([]string, 0, len(IdentityRegistry)+len(responseColumnTitles)+len(columns))
	for _, field := range IdentityRegistry {
		headers = append(headers, identityColumnTitles[field.Code])
	}
	headers = append(headers, responseColumnTitles...)
	for _, col := range columns {
		headers = append(headers, col.header())
	}

	rows := make([][]string, 0, len(responses))
	for _, resp := range responses {
		row := make([]string, 0, len(headers))
		for _, field := range IdentityRegistry {
			row = append(row, identity[resp.ID][field.Code])
		}
		row = append(row,
			strconv.FormatUint(uint64(resp.ID), 10),
			resp.CreatedAt.Format(time.DateTime),
			resp.MetaString("encuestador"),
			resp.MetaString("observaciones"),
		)
		for _, col := range columns {
			row = append(row, pivot[resp.ID][col.header()])
		}
		rows = append(rows, row)
	}

	return &WideTable{Headers: headers, Rows: rows}, nil
}

// fillIdentityFallback completes identity cells still empty after the code
// pivot by scanning answers whose normalized section/group/question texts
// contain the expected substrings. This recovers data answered before
// reconciliation assigned the right code.
func fillIdentityFallback(identity map[uint]map[string]string, responses []models.SurveyResponse, records []answerRecord) {
	type normRecord struct {
		rec  answerRecord
		sec  string
		grp  string
		text string
	}
	normed := make([]normRecord, 0, len(records))
	for _, r := range records {
		normed = append(normed, normRecord{
			rec:  r,
			sec:  NormalizeText(r.SectionName),
			grp:  NormalizeText(r.GroupTitle),
			text: NormalizeText(r.QuestionText),
		})
	}

	for _, rule := range fallbackRules {
		secNeedle := NormalizeText(rule.SecContains)
		grpNeedle := NormalizeText(rule.GroupContains)
		textNeedle := NormalizeText(rule.TextContains)

		for _, resp := range responses {
			if identity[resp.ID][rule.Code] != "" {
				continue
			}
			for _, nr := range normed {
				if nr.rec.ResponseID != resp.ID {
					continue
				}
				if !strings.Contains(nr.sec, secNeedle) ||
					!strings.Contains(nr.grp, grpNeedle) ||
					!strings.Contains(nr.text, textNeedle) {
					continue
				}
				value := displayValue(nr.rec)
				if value == "" {
					continue
				}
				byCode, ok := identity[resp.ID]
				if !ok {
					byCode = make(map[string]string)
					identity[resp.ID] = byCode
				}
				byCode[rule.Code] = value
				break
			}
		}
	}
}

// activeQuestionColumns enumerates the columns the export must contain: every
// active question under an active group and section, in schema order.
func activeQuestionColumns(db *gorm.DB, versionID uint) ([]questionColumn, error) {
	var columns []questionColumn
	err := db.Table("questions AS q").
		Select(`s.name AS section_name, g.title AS group_title,
			COALESCE(q.label, q.text) AS question_text`).
		Joins("JOIN question_groups g ON g.id = q.group_id").
		Joins("JOIN sections s ON s.id = g.section_id").
		Where("q.version_id = ? AND q.is_active = ? AND g.is_active = ? AND s.is_active = ?",
			versionID, true, true, true).
		Order("s.sort_order, g.sort_order, q.sort_order, q.id").
		Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate question columns: %w", err)
	}
	return columns, nil
}
