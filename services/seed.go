package services

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"pic_survey_go/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedDocument is the declarative import format for a full survey tree.
type SeedDocument struct {
	Survey SeedSurvey `json:"survey"`
}

type SeedSurvey struct {
	VersionName string        `json:"version_name"`
	Sections    []SeedSection `json:"sections"`
}

type SeedSection struct {
	Name   string      `json:"name"`
	Order  int         `json:"order"`
	Groups []SeedGroup `json:"groups"`
}

type SeedGroup struct {
	Title     string         `json:"title"`
	Order     int            `json:"order"`
	Questions []SeedQuestion `json:"questions"`
}

type SeedQuestion struct {
	Code        *string                `json:"code"`
	Label       *string                `json:"label"`
	Text        string                 `json:"text"`
	HelpText    *string                `json:"help_text"`
	Help        *string                `json:"help"`
	Description *string                `json:"description"`
	Type        string                 `json:"type"`
	Required    bool                   `json:"required"`
	Order       int                    `json:"order"`
	Config      *models.QuestionConfig `json:"config"`
	Options     []SeedOption           `json:"options"`
}

type SeedOption struct {
	Label string                 `json:"label"`
	Value *string                `json:"value"`
	Order int                    `json:"order"`
	Meta  map[string]interface{} `json:"meta"`
}

// LoadSeedFile reads and parses the seed document. A missing or malformed
// file is fatal for the operator to fix; there is nothing to degrade to.
func LoadSeedFile(path string) (*SeedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var doc SeedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("malformed seed document %s: %w", path, err)
	}
	return &doc, nil
}

// EnsureSeed creates the active version with its full section/group/question
// tree when the database is empty. It is a no-op when the active version
// already has sections. The whole import runs in one transaction: a failure
// midway leaves the prior state intact.
func EnsureSeed(db *gorm.DB, doc *SeedDocument) (uint, error) {
	active, err := GetActiveVersion(db)
	if err != nil {
		return 0, err
	}
	if active != nil {
		var count int64
		if err := db.Model(&models.Section{}).Where("version_id = ?", active.ID).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("failed to check existing sections: %w", err)
		}
		if count > 0 {
			return active.ID, nil
		}
	}

	versionName := doc.Survey.VersionName
	if versionName == "" {
		versionName = "v1"
	}

	var versionID uint
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SurveyVersion{}).Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate previous versions: %w", err)
		}

		version := models.SurveyVersion{Name: versionName, IsActive: true}
		if err := tx.Create(&version).Error; err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		versionID = version.ID

		for _, sec := range doc.Survey.Sections {
			section := models.Section{
				VersionID: versionID,
				Name:      sec.Name,
				SortOrder: orderOrDefault(sec.Order, 1),
				IsActive:  true,
			}
			if err := tx.Create(&section).Error; err != nil {
				return fmt.Errorf("failed to create section %q: %w", sec.Name, err)
			}

			for _, grp := range sec.Groups {
				group := models.QuestionGroup{
					VersionID: versionID,
					SectionID: section.ID,
					Title:     grp.Title,
					SortOrder: orderOrDefault(grp.Order, 1),
					IsActive:  true,
				}
				if err := tx.Create(&group).Error; err != nil {
					return fmt.Errorf("failed to create group %q: %w", grp.Title, err)
				}

				for _, sq := range grp.Questions {
					if !models.IsValidQType(sq.Type) {
						return fmt.Errorf("question %q has unknown type %q", sq.Text, sq.Type)
					}
					label := sq.Text
					if sq.Label != nil && *sq.Label != "" {
						label = *sq.Label
					}
					config := models.QuestionConfig{}
					if sq.Config != nil {
						config = *sq.Config
					}
					question := models.Question{
						VersionID: versionID,
						GroupID:   group.ID,
						Code:      sq.Code,
						Label:     &label,
						Text:      sq.Text,
						HelpText:  seedHelp(sq),
						QType:     sq.Type,
						Required:  sq.Required,
						SortOrder: orderOrDefault(sq.Order, 1),
						IsActive:  true,
						Config:    config,
					}
					if err := tx.Create(&question).Error; err != nil {
						return fmt.Errorf("failed to create question %q: %w", sq.Text, err)
					}

					for i, opt := range sq.Options {
						value := opt.Label
						if opt.Value != nil && *opt.Value != "" {
							value = *opt.Value
						}
						option := models.QuestionOption{
							QuestionID: question.ID,
							Label:      opt.Label,
							Value:      value,
							SortOrder:  orderOrDefault(opt.Order, i+1),
							Meta:       datatypes.JSONMap(opt.Meta),
						}
						if err := tx.Create(&option).Error; err != nil {
							return fmt.Errorf("failed to create option %q: %w", opt.Label, err)
						}
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[SEED] Created version %q (id=%d) from seed document", versionName, versionID)
	return versionID, nil
}

func orderOrDefault(order, def int) int {
	if order <= 0 {
		return def
	}
	return order
}

// seedHelp resolves the help text aliases the seed format accepts.
func seedHelp(sq SeedQuestion) *string {
	for _, candidate := range []*string{sq.HelpText, sq.Help, sq.Description} {
		if candidate != nil && *candidate != "" {
			return candidate
		}
	}
	return nil
}

// identityQuestionDefs is the fixed Identificación block backfilled into
// already-seeded databases that predate it.
var identityQuestionDefs = []struct {
	Code      string
	Text      string
	QType     string
	SortOrder int
	Options   []OptionInput
}{
	{Code: "full_name", Text: "NOMBRE COMPLETO", QType: models.QTypeText, SortOrder: 1},
	{Code: "doc_type", Text: "TIPO DE DOCUMENTO", QType: models.QTypeSingleChoice, SortOrder: 2, Options: []OptionInput{
		{Label: "RC - REGISTRO CIVIL", Value: "RC", SortOrder: 1},
		{Label: "TI - TARJETA DE IDENTIDAD", Value: "TI", SortOrder: 2},
		{Label: "CC - CÉDULA DE CIUDADANÍA", Value: "CC", SortOrder: 3},
		{Label: "CE - CÉDULA DE EXTRANJERÍA", Value: "CE", SortOrder: 4},
		{Label: "PEP - PERMISO ESPECIAL DE PERMANENCIA", Value: "PEP", SortOrder: 5},
		{Label: "DNI - DOCUMENTO NACIONAL DE IDENTIDAD", Value: "DNI", SortOrder: 6},
		{Label: "PA - PASAPORTE", Value: "PA", SortOrder: 7},
	}},
	{Code: "doc_number", Text: "NÚMERO DE DOCUMENTO", QType: models.QTypeText, SortOrder: 3},
	{Code: "phone", Text: "NÚMERO DE CELULAR", QType: models.QTypeText, SortOrder: 4},
	{Code: "email", Text: "CORREO ELECTRÓNICO", QType: models.QTypeText, SortOrder: 5},
	{Code: "role", Text: "¿CUÁL ES SU CARGO O ROL?", QType: models.QTypeText, SortOrder: 6},
}

// EnsureIdentityQuestions backfills the Identificación group inside PREGUNTAS
// INICIALES for databases seeded before the identity block existed. Questions
// are matched by code, so the pass is idempotent and survives prompt edits.
func EnsureIdentityQuestions(db *gorm.DB, versionID uint) error {
	var sections []models.Section
	if err := db.Where("version_id = ?", versionID).Find(&sections).Error; err != nil {
		return fmt.Errorf("failed to load sections: %w", err)
	}

	var sectionID uint
	for _, s := range sections {
		if NormalizeText(s.Name) == NormalizeText(initialSectionName) {
			sectionID = s.ID
			break
		}
	}
	if sectionID == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		groupID, err := ensureIdentityGroup(tx, versionID, sectionID)
		if err != nil {
			return err
		}

		for _, def := range identityQuestionDefs {
			var existing models.Question
			err := tx.Where("version_id = ? AND code = ?", versionID, def.Code).First(&existing).Error
			switch {
			case err == gorm.ErrRecordNotFound:
				label := def.Text
				question := models.Question{
					VersionID: versionID,
					GroupID:   groupID,
					Code:      &def.Code,
					Label:     &label,
					Text:      def.Text,
					QType:     def.QType,
					SortOrder: def.SortOrder,
					IsActive:  true,
				}
				if err := tx.Create(&question).Error; err != nil {
					return fmt.Errorf("failed to create identity question %s: %w", def.Code, err)
				}
				existing = question
			case err != nil:
				return fmt.Errorf("failed to look up identity question %s: %w", def.Code, err)
			default:
				if err := tx.Model(&models.Question{}).Where("id = ?", existing.ID).
					Updates(map[string]interface{}{
						"group_id":   groupID,
						"label":      def.Text,
						"text":       def.Text,
						"qtype":      def.QType,
						"required":   false,
						"sort_order": def.SortOrder,
						"is_active":  true,
					}).Error; err != nil {
					return fmt.Errorf("failed to update identity question %s: %w", def.Code, err)
				}
			}

			if len(def.Options) > 0 {
				if err := replaceOptionsTx(tx, existing.ID, def.Options); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ensureIdentityGroup finds or creates the Identificación group at slot 2 and
// shifts the group that historically occupied that slot down to 3.
func ensureIdentityGroup(tx *gorm.DB, versionID, sectionID uint) (uint, error) {
	const groupTitle = "Identificación"

	var group models.QuestionGroup
	err := tx.Where("version_id = ? AND section_id = ? AND lower(title) = lower(?)", versionID, sectionID, groupTitle).
		First(&group).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		group = models.QuestionGroup{
			VersionID: versionID,
			SectionID: sectionID,
			Title:     groupTitle,
			SortOrder: 2,
			IsActive:  true,
		}
		if err := tx.Create(&group).Error; err != nil {
			return 0, fmt.Errorf("failed to create identity group: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("failed to look up identity group: %w", err)
	default:
		if err := tx.Model(&models.QuestionGroup{}).Where("id = ?", group.ID).
			Updates(map[string]interface{}{"sort_order": 2, "is_active": true}).Error; err != nil {
			return 0, fmt.Errorf("failed to update identity group: %w", err)
		}
	}

	if err := tx.Model(&models.QuestionGroup{}).
		Where("version_id = ? AND section_id = ? AND lower(title) = lower(?) AND sort_order = ?",
			versionID, sectionID, "Conocimiento y participación PIC", 2).
		Update("sort_order", 3).Error; err != nil {
		return 0, fmt.Errorf("failed to shift displaced group: %w", err)
	}

	return group.ID, nil
}

func replaceOptionsTx(tx *gorm.DB, questionID uint, opts []OptionInput) error {
	if err := tx.Where("question_id = ?", questionID).Delete(&models.QuestionOption{}).Error; err != nil {
		return fmt.Errorf("failed to clear options for question %d: %w", questionID, err)
	}
	for i, in := range opts {
		value := in.Value
		if value == "" {
			value = in.Label
		}
		sortOrder := in.SortOrder
		if sortOrder == 0 {
			sortOrder = i + 1
		}
		opt := models.QuestionOption{
			QuestionID: questionID,
			Label:      in.Label,
			Value:      value,
			SortOrder:  sortOrder,
			Meta:       datatypes.JSONMap(in.Meta),
		}
		if err := tx.Create(&opt).Error; err != nil {
			return fmt.Errorf("failed to create option %q: %w", in.Label, err)
		}
	}
	return nil
}

// SetRequiredForSections flips the required flag on every question of the
// named sections. Section names match tolerantly (accents, dashes and spacing
// are ignored) so "PREGUNTAS - INICIALES" still matches.
func SetRequiredForSections(db *gorm.DB, versionID uint, sectionNames []string, required bool) error {
	if len(sectionNames) == 0 {
		return nil
	}

	var sections []models.Section
	if err := db.Where("version_id = ?", versionID).Find(&sections).Error; err != nil {
		return fmt.Errorf("failed to load sections: %w", err)
	}

	wanted := make(map[string]bool, len(sectionNames))
	for _, name := range sectionNames {
		wanted[NormalizeText(name)] = true
	}

	var sectionIDs []uint
	for _, s := range sections {
		if wanted[NormalizeText(s.Name)] {
			sectionIDs = append(sectionIDs, s.ID)
		}
	}
	if len(sectionIDs) == 0 {
		return nil
	}

	if err := db.Model(&models.Question{}).
		Where("version_id = ? AND group_id IN (?)", versionID,
			db.Model(&models.QuestionGroup{}).Select("id").Where("section_id IN ?", sectionIDs)).
		Update("required", required).Error; err != nil {
		return fmt.Errorf("failed to update required flags: %w", err)
	}
	return nil
}
