package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"timetrack/internal/auth"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/service"
)

// TaskHandler handles task lifecycle endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"startTime" validate:"required"`
	ClientID    *uuid.UUID `json:"clientId"`
}

// UpdateTaskRequest represents a direct task edit.
type UpdateTaskRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"startTime" validate:"required"`
	EndTime     *time.Time `json:"endTime"`
	UserID      uuid.UUID  `json:"userId" validate:"required"`
	ClientID    *uuid.UUID `json:"clientId"`
}

// CreateTask godoc
// @Summary Start a new task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task data"
// @Success 201 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), p, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		ClientID:    req.ClientID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

// StopTask godoc
// @Summary Stop an active task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/stop [post]
func (h *TaskHandler) StopTask(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid task ID")
	}

	task, err := h.taskService.StopTask(c.Request().Context(), p, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Edit a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateTaskRequest true "Task data"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid task ID")
	}

	var req UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), p, id, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		UserID:      req.UserID,
		ClientID:    req.ClientID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid task ID")
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), p, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListTasks godoc
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "Inclusive lower bound on start time (RFC 3339 or YYYY-MM-DD)"
// @Param endDate query string false "Inclusive upper bound on start time (RFC 3339 or YYYY-MM-DD)"
// @Param clientId query string false "Client ID"
// @Param userId query string false "User ID (admin only)"
// @Param active query bool false "Only active (true) or completed (false) tasks"
// @Success 200 {array} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	in, err := parseListTasksQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), p, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// parseListTasksQuery converts listing query parameters into a typed input.
// Malformed values fail validation instead of silently matching everything.
func parseListTasksQuery(c echo.Context) (service.ListTasksInput, error) {
	var in service.ListTasksInput

	from, err := parseTimeParam(c.QueryParam("startDate"), false)
	if err != nil {
		return in, err
	}
	to, err := parseTimeParam(c.QueryParam("endDate"), true)
	if err != nil {
		return in, err
	}
	in.From = from
	in.To = to

	if v := c.QueryParam("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return in, fmt.Errorf("%w: invalid client ID", apperrors.ErrValidation)
		}
		in.ClientID = &id
	}
	if v := c.QueryParam("userId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return in, fmt.Errorf("%w: invalid user ID", apperrors.ErrValidation)
		}
		in.UserID = &id
	}
	if v := c.QueryParam("active"); v != "" {
		active := v == "true"
		in.Active = &active
	}
	return in, nil
}
