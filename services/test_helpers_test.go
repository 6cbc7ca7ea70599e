package services

import (
	"testing"

	"pic_survey_go/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(
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
	return db
}

func strPtr(s string) *string {
	return &s
}

func uintPtr(v uint) *uint {
	return &v
}

// createTestVersion creates an active version for tests that build their own
// tree by hand.
func createTestVersion(t *testing.T, db *gorm.DB, name string) uint {
	t.Helper()
	v := models.SurveyVersion{Name: name, IsActive: true}
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("failed to create version: %v", err)
	}
	return v.ID
}

func createTestSection(t *testing.T, db *gorm.DB, versionID uint, name string, sortOrder int) models.Section {
	t.Helper()
	s := models.Section{VersionID: versionID, Name: name, SortOrder: sortOrder, IsActive: true}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("failed to create section %q: %v", name, err)
	}
	return s
}

func createTestGroup(t *testing.T, db *gorm.DB, versionID, sectionID uint, title string, sortOrder int) models.QuestionGroup {
	t.Helper()
	g := models.QuestionGroup{VersionID: versionID, SectionID: sectionID, Title: title, SortOrder: sortOrder, IsActive: true}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("failed to create group %q: %v", title, err)
	}
	return g
}

func createTestQuestion(t *testing.T, db *gorm.DB, q models.Question) models.Question {
	t.Helper()
	if q.SortOrder == 0 {
		q.SortOrder = 1
	}
	q.IsActive = true
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("failed to create question %q: %v", q.Text, err)
	}
	return q
}

// deactivate flips is_active via Update because Create would apply the
// column's default over a zero-valued field.
func deactivate(t *testing.T, db *gorm.DB, model interface{}, id uint) {
	t.Helper()
	if err := db.Model(model).Where("id = ?", id).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate row %d: %v", id, err)
	}
}
