package db

import (
	"path/filepath"
	"testing"

	"pic_survey_go/models"

	"github.com/stretchr/testify/assert"
)

func TestInitialize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survey.db")

	err := Initialize(path, "production", &models.SurveyVersion{}, &models.Section{})
	assert.NoError(t, err)
	assert.NotNil(t, DB)

	assert.True(t, DB.Migrator().HasTable(&models.SurveyVersion{}))
	assert.True(t, DB.Migrator().HasTable(&models.Section{}))

	var mode string
	assert.NoError(t, DB.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	assert.NoError(t, Close())
}

func TestInitializeBadPath(t *testing.T) {
	err := Initialize(filepath.Join(t.TempDir(), "missing", "nested", "survey.db"), "development")
	assert.Error(t, err)
}
