package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"pic_survey_go/db"
	"pic_survey_go/models"
	"pic_survey_go/services"

	"github.com/labstack/echo/v4"
)

func activeVersionOr404(c echo.Context) (*models.SurveyVersion, error) {
	version, err := services.GetActiveVersion(db.DB)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load active version")
	}
	if version == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "No active survey version")
	}
	return version, nil
}

type sectionRequest struct {
	ID        *uint  `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// UpsertSectionHandler creates or rewrites a section
// POST /api/admin/sections
func UpsertSectionHandler(c echo.Context) error {
	version, err := activeVersionOr404(c)
	if err != nil {
		return err
	}

	var req sectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	id, err := services.UpsertSection(db.DB, version.ID, req.ID, req.Name, req.SortOrder, req.IsActive)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id})
}

type groupRequest struct {
	ID        *uint  `json:"id"`
	SectionID uint   `json:"section_id"`
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

// UpsertGroupHandler creates or rewrites a question group
// POST /api/admin/groups
func UpsertGroupHandler(c echo.Context) error {
	version, err := activeVersionOr404(c)
	if err != nil {
		return err
	}

	var req groupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	id, err := services.UpsertGroup(db.DB, version.ID, req.ID, req.SectionID, req.Title, req.SortOrder, req.IsActive)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id})
}

type questionRequest struct {
	ID        *uint           `json:"id"`
	GroupID   uint            `json:"group_id"`
	Code      *string         `json:"code"`
	Label     string          `json:"label"`
	Text      string          `json:"text"`
	HelpText  *string         `json:"help_text"`
	QType     string          `json:"qtype"`
	Required  bool            `json:"required"`
	SortOrder int             `json:"sort_order"`
	IsActive  bool            `json:"is_active"`
	Config    json.RawMessage `json:"config"`
}

// UpsertQuestionHandler creates or rewrites a question. The config document
// is decoded strictly here so malformed or unknown keys never reach the
// store.
// POST /api/admin/questions
func UpsertQuestionHandler(c echo.Context) error {
	version, err := activeVersionOr404(c)
	if err != nil {
		return err
	}

	var req questionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	cfg, err := models.ParseQuestionConfig(req.Config)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id, err := services.UpsertQuestion(db.DB, version.ID, req.ID, services.QuestionInput{
		GroupID:   req.GroupID,
		Code:      req.Code,
		Label:     req.Label,
		Text:      req.Text,
		HelpText:  req.HelpText,
		QType:     req.QType,
		Required:  req.Required,
		SortOrder: req.SortOrder,
		IsActive:  req.IsActive,
		Config:    cfg,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"id": id})
}

type optionsRequest struct {
	Options []struct {
		Label     string                 `json:"label"`
		Value     string                 `json:"value"`
		SortOrder int                    `json:"sort_order"`
		Meta      map[string]interface{} `json:"meta"`
	} `json:"options"`
}

// ReplaceOptionsHandler swaps a question's full option set
// PUT /api/admin/questions/:id/options
func ReplaceOptionsHandler(c echo.Context) error {
	questionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid question id")
	}

	var req optionsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	opts := make([]services.OptionInput, 0, len(req.Options))
	for _, o := range req.Options {
		opts = append(opts, services.OptionInput{
			Label:     o.Label,
			Value:     o.Value,
			SortOrder: o.SortOrder,
			Meta:      o.Meta,
		})
	}

	if err := services.ReplaceOptions(db.DB, uint(questionID), opts); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to replace options")
	}
	return c.NoContent(http.StatusNoContent)
}

// ReconcileHandler runs the code reconciliation maintenance pass for the
// active version
// POST /api/admin/reconcile
func ReconcileHandler(c echo.Context) error {
	version, err := activeVersionOr404(c)
	if err != nil {
		return err
	}

	if err := services.ReconcileCodes(db.DB, version.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Reconciliation failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteResponsesHandler removes all responses of the active version
// DELETE /api/admin/responses
func DeleteResponsesHandler(c echo.Context) error {
	version, err := activeVersionOr404(c)
	if err != nil {
		return err
	}

	deleted, err := services.DeleteResponses(db.DB, version.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete responses")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"deleted": deleted})
}
