package handlers

import (
	"io"
	"net/http/httptest"
	"testing"

	"pic_survey_go/config"
	"pic_survey_go/db"
	"pic_survey_go/models"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := testDB.AutoMigrate(
		&models.SurveyVersion{},
		&models.Section{},
		&models.QuestionGroup{},
		&models.Question{},
		&models.QuestionOption{},
		&models.SurveyResponse{},
		&models.SurveyAnswer{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	// Set global DB
	db.DB = testDB
	return testDB
}

func setupEcho(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("config", &config.Config{EnforceRequired: false})
	return c, rec
}

// seedMinimalForm builds one active version with a single section, group and
// two questions, returning the questions for answer wiring.
func seedMinimalForm(t *testing.T, database *gorm.DB) (uint, []models.Question) {
	t.Helper()
	version := models.SurveyVersion{Name: "v1", IsActive: true}
	if err := database.Create(&version).Error; err != nil {
		t.Fatalf("failed to create version: %v", err)
	}
	section := models.Section{VersionID: version.ID, Name: "PREGUNTAS INICIALES", SortOrder: 1, IsActive: true}
	if err := database.Create(&section).Error; err != nil {
		t.Fatalf("failed to create section: %v", err)
	}
	group := models.QuestionGroup{VersionID: version.ID, SectionID: section.ID, Title: "Ubicación", SortOrder: 1, IsActive: true}
	if err := database.Create(&group).Error; err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	code := "province"
	questions := []models.Question{
		{VersionID: version.ID, GroupID: group.ID, Code: &code,
			Text: "Provincia a la cual pertenece", QType: models.QTypeSingleChoice, SortOrder: 1, IsActive: true},
		{VersionID: version.ID, GroupID: group.ID,
			Text: "¿Conoce el PIC?", QType: models.QTypeYesNo, SortOrder: 2, IsActive: true},
	}
	for i := range questions {
		if err := database.Create(&questions[i]).Error; err != nil {
			t.Fatalf("failed to create question: %v", err)
		}
	}
	return version.ID, questions
}
