package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"timetrack/internal/auth"
	"timetrack/internal/service"
)

// ReportHandler handles the reporting endpoints.
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Summary godoc
// @Summary Aggregate task statistics
// @Description Computes counts, total and average durations, and task
// @Description counts grouped by day and by user over the caller's visible
// @Description tasks. Accepts the same filters as the task listing.
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "Inclusive lower bound on start time (RFC 3339 or YYYY-MM-DD)"
// @Param endDate query string false "Inclusive upper bound on start time (RFC 3339 or YYYY-MM-DD)"
// @Param clientId query string false "Client ID"
// @Param userId query string false "User ID (admin only)"
// @Success 200 {object} service.TaskStats
// @Failure 400 {object} errors.ErrorResponse
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	in, err := parseListTasksQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	stats, err := h.reportService.Summary(c.Request().Context(), p, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
