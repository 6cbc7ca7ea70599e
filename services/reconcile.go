package services

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"pic_survey_go/models"

	"gorm.io/gorm"
)

// initialSectionName is the section holding the identity fields. Matching
// against it is always done through NormalizeText.
const initialSectionName = "PREGUNTAS INICIALES"

// IdentityField pairs a stable code with the canonical prompt used for
// matching. The registry is fixed: these are the fields the export names
// explicitly, by meaning rather than by exact text.
type IdentityField struct {
	Code          string
	CanonicalText string
}

// IdentityRegistry lists the identity fields in export column order.
var IdentityRegistry = []IdentityField{
	{Code: "province", CanonicalText: "Provincia a la cual pertenece"},
	{Code: "municipality", CanonicalText: "Municipio al que pertenece"},
	{Code: "full_name", CanonicalText: "NOMBRE COMPLETO"},
	{Code: "doc_type", CanonicalText: "TIPO DE DOCUMENTO"},
	{Code: "doc_number", CanonicalText: "NÚMERO DE DOCUMENTO"},
	{Code: "phone", CanonicalText: "NÚMERO DE CELULAR"},
	{Code: "email", CanonicalText: "CORREO ELECTRÓNICO"},
	{Code: "role", CanonicalText: "¿CUÁL ES SU CARGO O ROL?"},
}

// PositionHint locates a question by fixed position inside a group of the
// initial section when its prompt was retyped beyond textual recognition.
type PositionHint struct {
	GroupContains string
	Position      int // 1-based
}

// positionHints: Ubicación holds province then municipality; Identificación
// has a fixed 6-slot order.
var positionHints = map[string]*PositionHint{
	"province":     {GroupContains: "Ubic", Position: 1},
	"municipality": {GroupContains: "Ubic", Position: 2},
	"full_name":    {GroupContains: "Ident", Position: 1},
	"doc_type":     {GroupContains: "Ident", Position: 2},
	"doc_number":   {GroupContains: "Ident", Position: 3},
	"phone":        {GroupContains: "Ident", Position: 4},
	"email":        {GroupContains: "Ident", Position: 5},
	"role":         {GroupContains: "Ident", Position: 6},
}

// Candidate is the flattened view of a question the reconciler matches
// against: prompt texts plus structural placement.
type Candidate struct {
	ID           uint
	GroupID      uint
	Code         *string
	Label        *string
	Text         string
	SectionName  string
	GroupTitle   string
	GroupSort    int
	QuestionSort int
}

func loadCandidates(db *gorm.DB, versionID uint) ([]Candidate, error) {
	var cands []Candidate
	err := db.Table("questions AS q").
		Select(`q.id, q.group_id, q.code, q.label, q.text, q.sort_order AS question_sort,
			s.name AS section_name, g.title AS group_title, g.sort_order AS group_sort`).
		Joins("JOIN question_groups g ON g.id = q.group_id").
		Joins("JOIN sections s ON s.id = g.section_id").
		Where("q.version_id = ? AND q.is_active = ?", versionID, true).
		Order("q.id").
		Scan(&cands).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reconciliation candidates: %w", err)
	}
	return cands, nil
}

func (c Candidate) normLabel() string {
	if c.Label == nil {
		return ""
	}
	return NormalizeText(*c.Label)
}

// ChooseCandidate picks the question that should hold a code. Primary pass:
// normalized label/text equality with the canonical prompt, scored +10 for
// sitting in the hinted section and +5 for currently having no code, ties
// broken by lowest id. When no text matches (the prompt was retyped), the
// position hint locates the question by fixed slot inside its group.
func ChooseCandidate(cands []Candidate, canonicalText, sectionHint string, pos *PositionHint) (uint, bool) {
	nt := NormalizeText(canonicalText)
	sectionNorm := NormalizeText(sectionHint)

	bestID := uint(0)
	bestScore := -1
	for _, c := range cands {
		if c.normLabel() != nt && NormalizeText(c.Text) != nt {
			continue
		}
		score := 0
		if NormalizeText(c.SectionName) == sectionNorm {
			score += 10
		}
		if c.Code == nil {
			score += 5
		}
		if score > bestScore || (score == bestScore && c.ID < bestID) {
			bestScore = score
			bestID = c.ID
		}
	}
	if bestScore >= 0 {
		return bestID, true
	}

	if pos != nil {
		return findByGroupOrder(cands, sectionHint, pos.GroupContains, pos.Position, nt)
	}
	return 0, false
}

// canonicalNorms holds the normalized canonical prompts of every identity
// field. Slot matching uses it to avoid claiming a question that textually
// belongs to a different field.
var canonicalNorms = func() map[string]bool {
	m := make(map[string]bool, len(IdentityRegistry))
	for _, f := range IdentityRegistry {
		m[NormalizeText(f.CanonicalText)] = true
	}
	return m
}()

// findByGroupOrder picks the N-th question of a group inside a section,
// ordered by group order, question order, then id for determinism. The picked
// question is rejected when its prompt matches a different identity field's
// canonical text: a duplicate NOMBRE COMPLETO sitting in the doc_type slot
// must never receive the doc_type code. The check runs on the pick, not while
// collecting, so slot numbering still counts every question in the group.
func findByGroupOrder(cands []Candidate, sectionName, groupContains string, position int, selfNorm string) (uint, bool) {
	sectionNorm := NormalizeText(sectionName)
	groupNorm := NormalizeText(groupContains)

	var bucket []Candidate
	for _, c := range cands {
		if NormalizeText(c.SectionName) != sectionNorm {
			continue
		}
		if !strings.Contains(NormalizeText(c.GroupTitle), groupNorm) {
			continue
		}
		bucket = append(bucket, c)
	}
	if len(bucket) == 0 {
		return 0, false
	}

	sort.Slice(bucket, func(i, j int) bool {
		if bucket[i].GroupSort != bucket[j].GroupSort {
			return bucket[i].GroupSort < bucket[j].GroupSort
		}
		if bucket[i].QuestionSort != bucket[j].QuestionSort {
			return bucket[i].QuestionSort < bucket[j].QuestionSort
		}
		return bucket[i].ID < bucket[j].ID
	})

	idx := position - 1
	if idx < 0 || idx >= len(bucket) {
		return 0, false
	}

	pick := bucket[idx]
	if n := NormalizeText(pick.Text); n != selfNorm && canonicalNorms[n] {
		return 0, false
	}
	if l := pick.normLabel(); l != "" && l != selfNorm && canonicalNorms[l] {
		return 0, false
	}
	return pick.ID, true
}

// ReconcileCodes re-establishes the code → question mapping for every
// identity field of a version: moves each code to its best candidate
// (clear-then-set, so the per-version uniqueness invariant never breaks),
// deactivates duplicate prompts in the initial section, and repairs the
// municipality dependency config. The whole pass runs inside one transaction
// and is idempotent: a second run with no intervening edits writes nothing.
// A field with no candidate is logged and skipped; partial reconciliation is
// better than none.
func ReconcileCodes(db *gorm.DB, versionID uint) error {
	cands, err := loadCandidates(db, versionID)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, field := range IdentityRegistry {
			candID, ok := ChooseCandidate(cands, field.CanonicalText, initialSectionName, positionHints[field.Code])
			if !ok {
				log.Printf("[RECONCILE] no candidate found for %s, skipping", field.Code)
				continue
			}

			var holder models.Question
			err := tx.Where("version_id = ? AND code = ?", versionID, field.Code).First(&holder).Error
			switch {
			case err == nil && holder.ID == candID:
				continue
			case err == nil:
				// Free the code before attaching it elsewhere
				if err := tx.Model(&models.Question{}).
					Where("id = ? AND version_id = ?", holder.ID, versionID).
					Update("code", nil).Error; err != nil {
					return fmt.Errorf("failed to clear code %s from question %d: %w", field.Code, holder.ID, err)
				}
				log.Printf("[RECONCILE] moved code %s from question %d to %d", field.Code, holder.ID, candID)
			case err != gorm.ErrRecordNotFound:
				return fmt.Errorf("failed to look up holder of code %s: %w", field.Code, err)
			default:
				log.Printf("[RECONCILE] assigned code %s to question %d", field.Code, candID)
			}

			if err := tx.Model(&models.Question{}).
				Where("id = ? AND version_id = ?", candID, versionID).
				Update("code", field.Code).Error; err != nil {
				return fmt.Errorf("failed to set code %s on question %d: %w", field.Code, candID, err)
			}
		}

		if err := deactivateDuplicates(tx, versionID, cands); err != nil {
			return err
		}

		return repairMunicipalityConfig(tx, versionID)
	})
}

// deactivateDuplicates hides questions in the initial section whose prompt
// matches a canonical identity text but that did not end up holding the code,
// so respondents never see two near-identical prompts for the same field.
func deactivateDuplicates(tx *gorm.DB, versionID uint, cands []Candidate) error {
	sectionNorm := NormalizeText(initialSectionName)

	for _, field := range IdentityRegistry {
		var coded models.Question
		err := tx.Where("version_id = ? AND code = ?", versionID, field.Code).First(&coded).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to look up coded question for %s: %w", field.Code, err)
		}

		nt := NormalizeText(field.CanonicalText)
		for _, c := range cands {
			if c.ID == coded.ID || NormalizeText(c.SectionName) != sectionNorm {
				continue
			}
			if c.normLabel() != nt && NormalizeText(c.Text) != nt {
				continue
			}
			// The code is cleared too: the export pivots identity columns by
			// code, so a stray code on a hidden duplicate would attribute its
			// answers to the wrong column.
			res := tx.Model(&models.Question{}).
				Where("id = ? AND version_id = ? AND is_active = ?", c.ID, versionID, true).
				Updates(map[string]interface{}{"is_active": false, "code": nil})
			if res.Error != nil {
				return fmt.Errorf("failed to deactivate duplicate question %d: %w", c.ID, res.Error)
			}
			if res.RowsAffected > 0 {
				log.Printf("[RECONCILE] deactivated duplicate of %s: question %d", field.Code, c.ID)
			}
		}
	}
	return nil
}

// repairMunicipalityConfig makes sure the municipality question declares its
// dependency on province regardless of how the field was created.
func repairMunicipalityConfig(tx *gorm.DB, versionID uint) error {
	var mun models.Question
	err := tx.Where("version_id = ? AND code = ?", versionID, "municipality").First(&mun).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up municipality question: %w", err)
	}

	cfg := mun.Config
	changed := false
	if cfg.DependsOn != "province" {
		cfg.DependsOn = "province"
		changed = true
	}
	if cfg.FilterOptionMetaKey != "province" {
		cfg.FilterOptionMetaKey = "province"
		changed = true
	}
	if !changed {
		return nil
	}

	if err := tx.Model(&models.Question{}).Where("id = ?", mun.ID).
		Update("config", jsonConfig(cfg)).Error; err != nil {
		return fmt.Errorf("failed to repair municipality config: %w", err)
	}
	log.Printf("[RECONCILE] repaired municipality dependency config (question %d)", mun.ID)
	return nil
}
