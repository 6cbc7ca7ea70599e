package handlers

import (
	"net/http"
	"strconv"

	"pic_survey_go/config"
	"pic_survey_go/db"
	"pic_survey_go/models"
	"pic_survey_go/services"

	"github.com/labstack/echo/v4"
)

// GetFormHandler returns the active version's question tree
// GET /api/form
func GetFormHandler(c echo.Context) error {
	version, err := services.GetActiveVersion(db.DB)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load active version")
	}
	if version == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No active survey version")
	}

	form, err := services.GetForm(db.DB, version.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load form")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version": version,
		"form":    form,
	})
}

// submitRequest is a full submission: open metadata plus raw answers keyed by
// question id. Missing keys are recorded as blank answers.
type submitRequest struct {
	Metadata map[string]interface{} `json:"metadata"`
	Answers  map[string]interface{} `json:"answers"`
}

// SubmitResponseHandler records one response with an answer row per active
// question
// POST /api/responses
func SubmitResponseHandler(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	version, err := services.GetActiveVersion(db.DB)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load active version")
	}
	if version == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No active survey version")
	}

	form, err := services.GetForm(db.DB, version.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load form")
	}

	var questions []models.Question
	for _, section := range form {
		for _, group := range section.Groups {
			questions = append(questions, group.Questions...)
		}
	}

	if cfg, ok := c.Get("config").(*config.Config); ok && cfg.EnforceRequired {
		var missing []string
		for _, q := range questions {
			if !q.Required {
				continue
			}
			raw, ok := req.Answers[strconv.FormatUint(uint64(q.ID), 10)]
			if !ok || raw == nil || raw == "" {
				missing = append(missing, q.DisplayLabel())
			}
		}
		if len(missing) > 0 {
			return echo.NewHTTPError(http.StatusBadRequest, map[string]interface{}{
				"error":   "Missing required answers",
				"missing": missing,
			})
		}
	}

	responseID, err := services.CreateResponse(db.DB, version.ID, req.Metadata)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create response")
	}

	for i := range questions {
		raw := req.Answers[strconv.FormatUint(uint64(questions[i].ID), 10)]
		if err := services.SaveAnswer(db.DB, responseID, &questions[i], raw); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save answers")
		}
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{"id": responseID})
}
