package handlers

import (
	"fmt"
	"net/http"
	"time"

	"pic_survey_go/db"
	"pic_survey_go/services"

	"github.com/labstack/echo/v4"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler streams the wide export of the active version as an xlsx
// workbook
// GET /api/admin/export
func ExportHandler(c echo.Context) error {
	version, err := activeVersionOr404(c)
	if err != nil {
		return err
	}

	table, err := services.BuildWideExport(db.DB, version.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to build export")
	}

	buf, err := services.WriteExcel(table)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate workbook")
	}

	filename := fmt.Sprintf("respuestas_encuesta_%s.xlsx", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}
