package main

import (
	"log"

	"pic_survey_go/config"
	"pic_survey_go/db"
	"pic_survey_go/handlers"
	"pic_survey_go/models"
	"pic_survey_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Open the database and migrate the schema
	if err := db.Initialize(cfg.DBPath, cfg.Environment,
		&models.SurveyVersion{},
		&models.Section{},
		&models.QuestionGroup{},
		&models.Question{},
		&models.QuestionOption{},
		&models.SurveyResponse{},
		&models.SurveyAnswer{},
	); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Seed the survey tree. A missing or malformed seed document is fatal:
	// the operator has to fix it, there is nothing sensible to start with.
	seed, err := services.LoadSeedFile(cfg.SeedPath)
	if err != nil {
		log.Fatalf("Failed to load seed document: %v", err)
	}
	versionID, err := services.EnsureSeed(db.DB, seed)
	if err != nil {
		log.Fatalf("Failed to seed survey: %v", err)
	}

	// Maintenance passes for databases seeded by older versions. Both are
	// idempotent; failures here are logged, not fatal, since a partially
	// reconciled schema still serves.
	if err := services.EnsureIdentityQuestions(db.DB, versionID); err != nil {
		log.Printf("[STARTUP] identity question backfill failed: %v", err)
	}
	if err := services.ReconcileCodes(db.DB, versionID); err != nil {
		log.Printf("[STARTUP] code reconciliation failed: %v", err)
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	// Public routes
	e.GET("/api/form", handlers.GetFormHandler)
	e.POST("/api/responses", handlers.SubmitResponseHandler)

	// Admin routes. Authentication is handled by the fronting layer; this
	// service only exposes the schema and export operations.
	admin := e.Group("/api/admin")
	{
		admin.POST("/sections", handlers.UpsertSectionHandler)
		admin.POST("/groups", handlers.UpsertGroupHandler)
		admin.POST("/questions", handlers.UpsertQuestionHandler)
		admin.PUT("/questions/:id/options", handlers.ReplaceOptionsHandler)
		admin.POST("/reconcile", handlers.ReconcileHandler)
		admin.DELETE("/responses", handlers.DeleteResponsesHandler)
		admin.GET("/export", handlers.ExportHandler)
	}

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
