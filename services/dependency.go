package services

import (
	"fmt"

	"pic_survey_go/models"
)

// SessionState carries the in-progress answers of one rendering session: the
// current answer per question code (for dependency gating) and the current
// selection per question id. It replaces ambient UI state so the resolver and
// the submission flow are deterministic without a rendering harness.
type SessionState struct {
	answersByCode  map[string]string
	selectionsByID map[uint]string
}

func NewSessionState() *SessionState {
	return &SessionState{
		answersByCode:  make(map[string]string),
		selectionsByID: make(map[uint]string),
	}
}

// SetAnswer records the current answer of a coded question.
func (s *SessionState) SetAnswer(code, value string) {
	s.answersByCode[code] = value
}

// Answer returns the current answer of a coded question.
func (s *SessionState) Answer(code string) (string, bool) {
	v, ok := s.answersByCode[code]
	return v, ok
}

// ClearAnswer drops the recorded answer of a coded question.
func (s *SessionState) ClearAnswer(code string) {
	delete(s.answersByCode, code)
}

// SetSelection records the chosen option label of a question.
func (s *SessionState) SetSelection(questionID uint, label string) {
	s.selectionsByID[questionID] = label
}

// Selection returns the chosen option label of a question.
func (s *SessionState) Selection(questionID uint) (string, bool) {
	v, ok := s.selectionsByID[questionID]
	return v, ok
}

// ClearSelection drops the chosen option of a question.
func (s *SessionState) ClearSelection(questionID uint) {
	delete(s.selectionsByID, questionID)
}

// DependencyState is the rendering state of a dependent question.
type DependencyState string

const (
	// DependencyVisible: the question renders with the options in Resolution.
	DependencyVisible DependencyState = "visible"
	// DependencyHidden: the controlling question has no answer yet; the
	// question is not rendered at all.
	DependencyHidden DependencyState = "hidden"
	// DependencyBlocked: no option matches the controlling answer. The
	// question renders as blocked with a warning, never with the full list.
	DependencyBlocked DependencyState = "blocked"
)

// Resolution is the outcome of resolving a question against a session.
type Resolution struct {
	State   DependencyState
	Options []models.QuestionOption
	Message string
}

// Allows reports whether label is a currently selectable option.
func (r Resolution) Allows(label string) bool {
	if r.State != DependencyVisible {
		return false
	}
	for _, o := range r.Options {
		if o.Label == label {
			return true
		}
	}
	return false
}

// ResolveDependent computes the visibility gate and filtered option set of a
// question whose config declares depends_on. Questions without a dependency
// resolve visible with their full option set.
//
// Option meta values are matched against the controlling answer by exact,
// case-sensitive string equality: both sides originate from the same seed
// document, so case is controlled by the editor, and a looser match would
// silently merge meta keys that differ only by case.
func ResolveDependent(q *models.Question, session *SessionState) Resolution {
	cfg := q.Config
	if cfg.DependsOn == "" {
		return Resolution{State: DependencyVisible, Options: q.Options}
	}

	controlling, ok := session.Answer(cfg.DependsOn)
	if !ok || controlling == "" {
		return Resolution{
			State:   DependencyHidden,
			Message: fmt.Sprintf("Responda primero la pregunta %q para ver las opciones.", cfg.DependsOn),
		}
	}

	metaKey := cfg.FilterOptionMetaKey
	if metaKey == "" {
		metaKey = cfg.DependsOn
	}

	var filtered []models.QuestionOption
	for _, opt := range q.Options {
		if opt.MetaValue(metaKey) == controlling {
			filtered = append(filtered, opt)
		}
	}

	if len(filtered) == 0 {
		return Resolution{
			State:   DependencyBlocked,
			Message: fmt.Sprintf("No hay opciones configuradas para %q.", controlling),
		}
	}

	return Resolution{State: DependencyVisible, Options: filtered}
}

// ApplySelection keeps a session's stored selection for a question consistent
// with its current resolution: when the controlling answer changed and the
// previous choice is no longer in the filtered set, the selection is cleared.
func ApplySelection(q *models.Question, session *SessionState) Resolution {
	res := ResolveDependent(q, session)
	if prev, ok := session.Selection(q.ID); ok {
		if q.Config.DependsOn != "" && !res.Allows(prev) {
			session.ClearSelection(q.ID)
			if q.Code != nil {
				session.ClearAnswer(*q.Code)
			}
		}
	}
	return res
}
