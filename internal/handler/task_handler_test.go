package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"timetrack/internal/auth"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/model"
	"timetrack/internal/service"
	"timetrack/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init(logger.Options{Level: "error", Output: io.Discard})
	m.Run()
}

// MockTaskService is a mock implementation of service.TaskService.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, p auth.Principal, in service.CreateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskService) StopTask(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, p, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskService) UpdateTask(ctx context.Context, p auth.Principal, id uuid.UUID, in service.UpdateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, p, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskService) DeleteTask(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	args := m.Called(ctx, p, id)
	return args.Error(0)
}

func (m *MockTaskService) ListTasks(ctx context.Context, p auth.Principal, in service.ListTasksInput) ([]model.Task, error) {
	args := m.Called(ctx, p, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

func newTaskTestContext(method, target, body string, principal *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if principal != nil {
		c.Set("principal", *principal)
	}
	return c, rec
}

func TestTaskHandler_CreateTask(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: model.RoleUser}
	startTime := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("successful create", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("CreateTask", mock.Anything, principal, service.CreateTaskInput{
			Title:     "Write report",
			StartTime: startTime,
		}).Return(&model.Task{
			ID:        uuid.New(),
			Title:     "Write report",
			StartTime: startTime,
			UserID:    principal.UserID,
		}, nil)

		body := `{"title":"Write report","startTime":"2026-03-10T09:00:00Z"}`
		c, rec := newTaskTestContext(http.MethodPost, "/api/tasks", body, &principal)

		h := NewTaskHandler(mockService)
		assert.NoError(t, h.CreateTask(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var task model.Task
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, "Write report", task.Title)
		assert.Nil(t, task.EndTime)
		mockService.AssertExpectations(t)
	})

	t.Run("missing title fails validation", func(t *testing.T) {
		mockService := new(MockTaskService)
		body := `{"startTime":"2026-03-10T09:00:00Z"}`
		c, _ := newTaskTestContext(http.MethodPost, "/api/tasks", body, &principal)

		h := NewTaskHandler(mockService)
		err := h.CreateTask(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		mockService.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("forbidden client maps to 403", func(t *testing.T) {
		clientID := uuid.New()
		mockService := new(MockTaskService)
		mockService.On("CreateTask", mock.Anything, principal, mock.AnythingOfType("service.CreateTaskInput")).
			Return(nil, apperrors.ErrForbidden)

		body := `{"title":"Client work","startTime":"2026-03-10T09:00:00Z","clientId":"` + clientID.String() + `"}`
		c, _ := newTaskTestContext(http.MethodPost, "/api/tasks", body, &principal)

		h := NewTaskHandler(mockService)
		err := h.CreateTask(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusForbidden, httpErr.Code)
	})
}

func TestTaskHandler_StopTask(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: model.RoleUser}
	taskID := uuid.New()

	t.Run("successful stop", func(t *testing.T) {
		endTime := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
		duration := int64(90 * 60 * 1000)
		mockService := new(MockTaskService)
		mockService.On("StopTask", mock.Anything, principal, taskID).Return(&model.Task{
			ID:       taskID,
			UserID:   principal.UserID,
			EndTime:  &endTime,
			Duration: &duration,
		}, nil)

		c, rec := newTaskTestContext(http.MethodPost, "/api/tasks/"+taskID.String()+"/stop", "", &principal)
		c.SetParamNames("id")
		c.SetParamValues(taskID.String())

		h := NewTaskHandler(mockService)
		assert.NoError(t, h.StopTask(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var task model.Task
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.NotNil(t, task.Duration)
		assert.Equal(t, duration, *task.Duration)
		mockService.AssertExpectations(t)
	})

	t.Run("already completed maps to 400", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("StopTask", mock.Anything, principal, taskID).Return(nil, apperrors.ErrTaskAlreadyCompleted)

		c, _ := newTaskTestContext(http.MethodPost, "/api/tasks/"+taskID.String()+"/stop", "", &principal)
		c.SetParamNames("id")
		c.SetParamValues(taskID.String())

		h := NewTaskHandler(mockService)
		err := h.StopTask(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)

		resp, ok := httpErr.Message.(apperrors.ErrorResponse)
		assert.True(t, ok)
		assert.Equal(t, "TASK_ALREADY_COMPLETED", resp.Code)
	})

	t.Run("malformed task ID", func(t *testing.T) {
		mockService := new(MockTaskService)
		c, _ := newTaskTestContext(http.MethodPost, "/api/tasks/nope/stop", "", &principal)
		c.SetParamNames("id")
		c.SetParamValues("nope")

		h := NewTaskHandler(mockService)
		err := h.StopTask(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		mockService.AssertNotCalled(t, "StopTask", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTaskHandler_ListTasks(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: model.RoleUser}

	t.Run("date range parsed inclusively", func(t *testing.T) {
		from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 3, 7, 23, 59, 59, 999000000, time.UTC)
		mockService := new(MockTaskService)
		mockService.On("ListTasks", mock.Anything, principal, service.ListTasksInput{
			From: &from,
			To:   &to,
		}).Return([]model.Task{}, nil)

		c, rec := newTaskTestContext(http.MethodGet, "/api/tasks?startDate=2026-03-01&endDate=2026-03-07", "", &principal)

		h := NewTaskHandler(mockService)
		assert.NoError(t, h.ListTasks(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("unparsable date maps to 400", func(t *testing.T) {
		mockService := new(MockTaskService)
		c, _ := newTaskTestContext(http.MethodGet, "/api/tasks?startDate=March+1st", "", &principal)

		h := NewTaskHandler(mockService)
		err := h.ListTasks(c)

		httpErr, ok := err.(*echo.HTTPError)
		assert.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		mockService.AssertNotCalled(t, "ListTasks", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("active filter", func(t *testing.T) {
		active := true
		mockService := new(MockTaskService)
		mockService.On("ListTasks", mock.Anything, principal, service.ListTasksInput{
			Active: &active,
		}).Return([]model.Task{{Title: "Running"}}, nil)

		c, rec := newTaskTestContext(http.MethodGet, "/api/tasks?active=true", "", &principal)

		h := NewTaskHandler(mockService)
		assert.NoError(t, h.ListTasks(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		mockService.AssertExpectations(t)
	})
}
