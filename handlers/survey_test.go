package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"pic_survey_go/config"
	"pic_survey_go/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetFormHandler(t *testing.T) {
	database := setupTestDB(t)

	t.Run("404 without an active version", func(t *testing.T) {
		c, _ := setupEcho(http.MethodGet, "/api/form", nil)
		err := GetFormHandler(c)
		if assert.Error(t, err) {
			he, ok := err.(*echo.HTTPError)
			assert.True(t, ok)
			assert.Equal(t, http.StatusNotFound, he.Code)
		}
	})

	t.Run("returns the active tree", func(t *testing.T) {
		seedMinimalForm(t, database)

		c, rec := setupEcho(http.MethodGet, "/api/form", nil)
		assert.NoError(t, GetFormHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Version models.SurveyVersion `json:"version"`
			Form    []struct {
				Name   string `json:"name"`
				Groups []struct {
					Title     string            `json:"title"`
					Questions []models.Question `json:"questions"`
				} `json:"groups"`
			} `json:"form"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "v1", payload.Version.Name)
		if assert.Len(t, payload.Form, 1) {
			assert.Equal(t, "PREGUNTAS INICIALES", payload.Form[0].Name)
			assert.Len(t, payload.Form[0].Groups[0].Questions, 2)
		}
	})
}

func TestSubmitResponseHandler(t *testing.T) {
	database := setupTestDB(t)
	_, questions := seedMinimalForm(t, database)

	body := fmt.Sprintf(`{
		"metadata": {"encuestador": "Ana"},
		"answers": {"%d": "Sabana Centro", "%d": "Sí"}
	}`, questions[0].ID, questions[1].ID)

	c, rec := setupEcho(http.MethodPost, "/api/responses", strings.NewReader(body))
	assert.NoError(t, SubmitResponseHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var payload struct {
		ID uint `json:"id"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotZero(t, payload.ID)

	var resp models.SurveyResponse
	assert.NoError(t, database.First(&resp, payload.ID).Error)
	assert.Equal(t, "Ana", resp.MetaString("encuestador"))
	assert.NotEmpty(t, resp.MetaString("receipt"))

	var answers []models.SurveyAnswer
	assert.NoError(t, database.Where("response_id = ?", payload.ID).Order("question_id").Find(&answers).Error)
	// One answer row per active question, even for unanswered ones
	assert.Len(t, answers, 2)
	if assert.NotNil(t, answers[0].ValueText) {
		assert.Equal(t, "Sabana Centro", *answers[0].ValueText)
	}
	if assert.NotNil(t, answers[1].ValueBool) {
		assert.True(t, *answers[1].ValueBool)
	}
}

func TestSubmitResponseHandlerBlankAnswers(t *testing.T) {
	database := setupTestDB(t)
	_, questions := seedMinimalForm(t, database)

	c, rec := setupEcho(http.MethodPost, "/api/responses", strings.NewReader(`{"metadata": {}, "answers": {}}`))
	assert.NoError(t, SubmitResponseHandler(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var answers []models.SurveyAnswer
	assert.NoError(t, database.Find(&answers).Error)
	assert.Len(t, answers, len(questions))
	for _, a := range answers {
		assert.True(t, a.IsBlank())
	}
}

func TestSubmitResponseHandlerEnforcesRequired(t *testing.T) {
	database := setupTestDB(t)
	_, questions := seedMinimalForm(t, database)
	assert.NoError(t, database.Model(&models.Question{}).
		Where("id = ?", questions[0].ID).Update("required", true).Error)

	c, _ := setupEcho(http.MethodPost, "/api/responses", strings.NewReader(`{"answers": {}}`))
	c.Set("config", &config.Config{EnforceRequired: true})

	err := SubmitResponseHandler(c)
	if assert.Error(t, err) {
		he, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	}

	var count int64
	assert.NoError(t, database.Model(&models.SurveyResponse{}).Count(&count).Error)
	assert.Zero(t, count)
}
