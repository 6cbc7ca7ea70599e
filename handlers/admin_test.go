package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"pic_survey_go/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestUpsertQuestionHandler(t *testing.T) {
	database := setupTestDB(t)
	versionID, questions := seedMinimalForm(t, database)
	_ = versionID

	t.Run("creates a question with a typed config", func(t *testing.T) {
		body := fmt.Sprintf(`{
			"group_id": %d,
			"text": "Municipio al que pertenece",
			"qtype": "single_choice",
			"is_active": true,
			"config": {"depends_on": "province", "filter_option_meta_key": "province"}
		}`, questions[0].GroupID)

		c, rec := setupEcho(http.MethodPost, "/api/admin/questions", strings.NewReader(body))
		assert.NoError(t, UpsertQuestionHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			ID uint `json:"id"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

		var q models.Question
		assert.NoError(t, database.First(&q, payload.ID).Error)
		assert.Equal(t, "province", q.Config.DependsOn)
	})

	t.Run("rejects unknown config keys", func(t *testing.T) {
		body := fmt.Sprintf(`{
			"group_id": %d,
			"text": "Otra",
			"qtype": "text",
			"config": {"depends_onn": "province"}
		}`, questions[0].GroupID)

		c, _ := setupEcho(http.MethodPost, "/api/admin/questions", strings.NewReader(body))
		err := UpsertQuestionHandler(c)
		if assert.Error(t, err) {
			he, ok := err.(*echo.HTTPError)
			assert.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, he.Code)
		}
	})

	t.Run("rejects a duplicate code", func(t *testing.T) {
		body := fmt.Sprintf(`{
			"group_id": %d,
			"code": "province",
			"text": "Provincia duplicada",
			"qtype": "text"
		}`, questions[0].GroupID)

		c, _ := setupEcho(http.MethodPost, "/api/admin/questions", strings.NewReader(body))
		err := UpsertQuestionHandler(c)
		if assert.Error(t, err) {
			he, ok := err.(*echo.HTTPError)
			assert.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, he.Code)
		}
	})
}

func TestReplaceOptionsHandler(t *testing.T) {
	database := setupTestDB(t)
	_, questions := seedMinimalForm(t, database)

	body := `{"options": [
		{"label": "Cajicá", "meta": {"province": "Sabana Centro"}},
		{"label": "Funza", "meta": {"province": "Sabana Occidente"}}
	]}`

	c, rec := setupEcho(http.MethodPut, "/api/admin/questions/:id/options", strings.NewReader(body))
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(questions[0].ID))

	assert.NoError(t, ReplaceOptionsHandler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var opts []models.QuestionOption
	assert.NoError(t, database.Where("question_id = ?", questions[0].ID).Order("sort_order").Find(&opts).Error)
	assert.Len(t, opts, 2)
	assert.Equal(t, "Sabana Centro", opts[0].MetaValue("province"))
}

func TestReconcileHandler(t *testing.T) {
	database := setupTestDB(t)
	versionID, questions := seedMinimalForm(t, database)

	// An uncoded retyped copy of an identity prompt
	q := models.Question{
		VersionID: versionID, GroupID: questions[0].GroupID,
		Text: "NOMBRE COMPLETO", QType: models.QTypeText, SortOrder: 3, IsActive: true,
	}
	assert.NoError(t, database.Create(&q).Error)

	c, rec := setupEcho(http.MethodPost, "/api/admin/reconcile", nil)
	assert.NoError(t, ReconcileHandler(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	var reloaded models.Question
	assert.NoError(t, database.First(&reloaded, q.ID).Error)
	if assert.NotNil(t, reloaded.Code) {
		assert.Equal(t, "full_name", *reloaded.Code)
	}
}

func TestDeleteResponsesHandler(t *testing.T) {
	database := setupTestDB(t)
	versionID, _ := seedMinimalForm(t, database)

	for i := 0; i < 3; i++ {
		assert.NoError(t, database.Create(&models.SurveyResponse{VersionID: versionID}).Error)
	}

	c, rec := setupEcho(http.MethodDelete, "/api/admin/responses", nil)
	assert.NoError(t, DeleteResponsesHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Deleted int64 `json:"deleted"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, int64(3), payload.Deleted)

	var count int64
	assert.NoError(t, database.Model(&models.SurveyResponse{}).Count(&count).Error)
	assert.Zero(t, count)
}
