package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"timetrack/internal/auth"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/model"
	"timetrack/internal/repository"
)

func newTestTaskService(taskRepo *MockTaskRepository, grantRepo *MockGrantRepository, userRepo *MockUserRepository, now time.Time) TaskService {
	svc := NewTaskService(taskRepo, grantRepo, userRepo).(*taskService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestTaskService_CreateTask(t *testing.T) {
	userID := uuid.New()
	orgID := uuid.New()
	grantedClient := uuid.New()
	otherClient := uuid.New()
	startTime := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	userPrincipal := auth.Principal{UserID: userID, Email: "user@example.com", Role: model.RoleUser}
	adminPrincipal := auth.Principal{UserID: userID, Email: "admin@example.com", Role: model.RoleAdmin}

	tests := []struct {
		name          string
		principal     auth.Principal
		input         CreateTaskInput
		setupMock     func(*MockTaskRepository, *MockGrantRepository, *MockUserRepository)
		expectedError error
	}{
		{
			name:      "successful create without client",
			principal: userPrincipal,
			input:     CreateTaskInput{Title: "Write report", StartTime: startTime},
			setupMock: func(mTask *MockTaskRepository, mGrant *MockGrantRepository, mUser *MockUserRepository) {
				mUser.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, OrganizationID: orgID}, nil)
				mTask.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:      "successful create with granted client",
			principal: userPrincipal,
			input:     CreateTaskInput{Title: "Client work", StartTime: startTime, ClientID: &grantedClient},
			setupMock: func(mTask *MockTaskRepository, mGrant *MockGrantRepository, mUser *MockUserRepository) {
				mGrant.On("ListClientIDs", mock.Anything, userID).Return([]uuid.UUID{grantedClient}, nil)
				mUser.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, OrganizationID: orgID}, nil)
				mTask.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:          "missing title",
			principal:     userPrincipal,
			input:         CreateTaskInput{Title: "   ", StartTime: startTime},
			setupMock:     func(*MockTaskRepository, *MockGrantRepository, *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:          "missing start time",
			principal:     userPrincipal,
			input:         CreateTaskInput{Title: "Write report"},
			setupMock:     func(*MockTaskRepository, *MockGrantRepository, *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:      "client not granted to user",
			principal: userPrincipal,
			input:     CreateTaskInput{Title: "Client work", StartTime: startTime, ClientID: &otherClient},
			setupMock: func(mTask *MockTaskRepository, mGrant *MockGrantRepository, mUser *MockUserRepository) {
				mGrant.On("ListClientIDs", mock.Anything, userID).Return([]uuid.UUID{grantedClient}, nil)
			},
			expectedError: apperrors.ErrForbidden,
		},
		{
			name:      "admin skips grant check",
			principal: adminPrincipal,
			input:     CreateTaskInput{Title: "Client work", StartTime: startTime, ClientID: &otherClient},
			setupMock: func(mTask *MockTaskRepository, mGrant *MockGrantRepository, mUser *MockUserRepository) {
				mUser.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, OrganizationID: orgID}, nil)
				mTask.On("Create", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTaskRepo := new(MockTaskRepository)
			mockGrantRepo := new(MockGrantRepository)
			mockUserRepo := new(MockUserRepository)
			tt.setupMock(mockTaskRepo, mockGrantRepo, mockUserRepo)

			service := NewTaskService(mockTaskRepo, mockGrantRepo, mockUserRepo)
			task, err := service.CreateTask(context.Background(), tt.principal, tt.input)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, task)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, task)
				assert.Equal(t, tt.input.Title, task.Title)
				assert.Equal(t, tt.principal.UserID, task.UserID)
				assert.Equal(t, orgID, task.OrganizationID)
				assert.Nil(t, task.EndTime)
				assert.Nil(t, task.Duration)
			}

			mockTaskRepo.AssertExpectations(t)
			mockGrantRepo.AssertExpectations(t)
			mockUserRepo.AssertExpectations(t)
		})
	}
}

func TestTaskService_StopTask(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()
	startTime := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	stopTime := startTime.Add(90 * time.Minute)
	principal := auth.Principal{UserID: userID, Role: model.RoleUser}

	t.Run("successful stop computes duration", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(&model.Task{
			ID:        taskID,
			UserID:    userID,
			StartTime: startTime,
		}, nil)
		mockTaskRepo.On("Stop", mock.Anything, taskID, stopTime, int64(90*60*1000)).Return(int64(1), nil)

		service := newTestTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository), stopTime)
		task, err := service.StopTask(context.Background(), principal, taskID)

		assert.NoError(t, err)
		assert.NotNil(t, task)
		assert.NotNil(t, task.EndTime)
		assert.Equal(t, stopTime, *task.EndTime)
		assert.Equal(t, int64(90*60*1000), *task.Duration)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("already completed task is rejected", func(t *testing.T) {
		endTime := startTime.Add(time.Hour)
		duration := int64(time.Hour / time.Millisecond)
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(&model.Task{
			ID:        taskID,
			UserID:    userID,
			StartTime: startTime,
			EndTime:   &endTime,
			Duration:  &duration,
		}, nil)

		service := newTestTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository), stopTime)
		task, err := service.StopTask(context.Background(), principal, taskID)

		assert.ErrorIs(t, err, apperrors.ErrTaskAlreadyCompleted)
		assert.Nil(t, task)
		// The repository update must never run for an already stopped task.
		mockTaskRepo.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent stop loser gets already completed", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(&model.Task{
			ID:        taskID,
			UserID:    userID,
			StartTime: startTime,
		}, nil)
		// Another request stopped the task between the read and the update.
		mockTaskRepo.On("Stop", mock.Anything, taskID, stopTime, int64(90*60*1000)).Return(int64(0), nil)

		service := newTestTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository), stopTime)
		task, err := service.StopTask(context.Background(), principal, taskID)

		assert.ErrorIs(t, err, apperrors.ErrTaskAlreadyCompleted)
		assert.Nil(t, task)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("missing task", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(nil, gorm.ErrRecordNotFound)

		service := newTestTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository), stopTime)
		_, err := service.StopTask(context.Background(), principal, taskID)

		assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
	})

	t.Run("another user's task looks missing", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(&model.Task{
			ID:        taskID,
			UserID:    uuid.New(),
			StartTime: startTime,
		}, nil)

		service := newTestTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository), stopTime)
		_, err := service.StopTask(context.Background(), principal, taskID)

		assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
	})
}

func TestTaskService_UpdateTask(t *testing.T) {
	userID := uuid.New()
	otherUserID := uuid.New()
	taskID := uuid.New()
	startTime := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	userPrincipal := auth.Principal{UserID: userID, Role: model.RoleUser}
	adminPrincipal := auth.Principal{UserID: otherUserID, Role: model.RoleAdmin}

	existing := func() *model.Task {
		return &model.Task{
			ID:        taskID,
			Title:     "Old title",
			StartTime: startTime,
			UserID:    userID,
		}
	}

	t.Run("owner edits title and description", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(existing(), nil)
		mockTaskRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		task, err := service.UpdateTask(context.Background(), userPrincipal, taskID, UpdateTaskInput{
			Title:       "New title",
			Description: "New description",
			StartTime:   startTime,
			UserID:      userID,
		})

		assert.NoError(t, err)
		assert.Equal(t, "New title", task.Title)
		assert.Equal(t, "New description", task.Description)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("owner cannot change timing", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(existing(), nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		_, err := service.UpdateTask(context.Background(), userPrincipal, taskID, UpdateTaskInput{
			Title:     "New title",
			StartTime: startTime.Add(time.Hour),
			UserID:    userID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockTaskRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("owner cannot reassign task", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(existing(), nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		_, err := service.UpdateTask(context.Background(), userPrincipal, taskID, UpdateTaskInput{
			Title:     "New title",
			StartTime: startTime,
			UserID:    otherUserID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("admin full edit recomputes duration", func(t *testing.T) {
		endTime := startTime.Add(2 * time.Hour)
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(existing(), nil)
		mockTaskRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		task, err := service.UpdateTask(context.Background(), adminPrincipal, taskID, UpdateTaskInput{
			Title:     "Edited",
			StartTime: startTime,
			EndTime:   &endTime,
			UserID:    userID,
		})

		assert.NoError(t, err)
		assert.NotNil(t, task.Duration)
		assert.Equal(t, int64(2*60*60*1000), *task.Duration)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("admin reopening clears duration", func(t *testing.T) {
		endTime := startTime.Add(time.Hour)
		duration := int64(time.Hour / time.Millisecond)
		task := existing()
		task.EndTime = &endTime
		task.Duration = &duration

		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(task, nil)
		mockTaskRepo.On("Update", mock.Anything, mock.AnythingOfType("*model.Task")).Return(nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		updated, err := service.UpdateTask(context.Background(), adminPrincipal, taskID, UpdateTaskInput{
			Title:     "Reopened",
			StartTime: startTime,
			EndTime:   nil,
			UserID:    userID,
		})

		assert.NoError(t, err)
		assert.Nil(t, updated.EndTime)
		assert.Nil(t, updated.Duration)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("end before start is rejected", func(t *testing.T) {
		endTime := startTime.Add(-time.Minute)
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(existing(), nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		_, err := service.UpdateTask(context.Background(), adminPrincipal, taskID, UpdateTaskInput{
			Title:     "Edited",
			StartTime: startTime,
			EndTime:   &endTime,
			UserID:    userID,
		})

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		mockTaskRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestTaskService_DeleteTask(t *testing.T) {
	taskID := uuid.New()

	t.Run("admin deletes", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(&model.Task{ID: taskID}, nil)
		mockTaskRepo.On("Delete", mock.Anything, taskID).Return(nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		err := service.DeleteTask(context.Background(), auth.Principal{UserID: uuid.New(), Role: model.RoleAdmin}, taskID)

		assert.NoError(t, err)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		err := service.DeleteTask(context.Background(), auth.Principal{UserID: uuid.New(), Role: model.RoleUser}, taskID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		mockTaskRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("missing task", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("FindByID", mock.Anything, taskID).Return(nil, gorm.ErrRecordNotFound)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		err := service.DeleteTask(context.Background(), auth.Principal{UserID: uuid.New(), Role: model.RoleAdmin}, taskID)

		assert.ErrorIs(t, err, apperrors.ErrTaskNotFound)
	})
}

func TestTaskService_ListTasks(t *testing.T) {
	userID := uuid.New()
	otherUserID := uuid.New()
	grantedClient := uuid.New()

	t.Run("admin passes filters through", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockTaskRepo.On("List", mock.Anything, repository.TaskFilter{UserID: &otherUserID}).Return([]model.Task{}, nil)

		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))
		_, err := service.ListTasks(context.Background(), auth.Principal{UserID: userID, Role: model.RoleAdmin}, ListTasksInput{UserID: &otherUserID})

		assert.NoError(t, err)
		mockTaskRepo.AssertExpectations(t)
	})

	t.Run("non-admin is scoped to own tasks and grants", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		mockGrantRepo := new(MockGrantRepository)
		mockGrantRepo.On("ListClientIDs", mock.Anything, userID).Return([]uuid.UUID{grantedClient}, nil)
		mockTaskRepo.On("List", mock.Anything, repository.TaskFilter{
			UserID:           &userID,
			RestrictClients:  true,
			VisibleClientIDs: []uuid.UUID{grantedClient},
		}).Return([]model.Task{{UserID: userID}}, nil)

		service := NewTaskService(mockTaskRepo, mockGrantRepo, new(MockUserRepository))
		tasks, err := service.ListTasks(context.Background(), auth.Principal{UserID: userID, Role: model.RoleUser}, ListTasksInput{})

		assert.NoError(t, err)
		assert.Len(t, tasks, 1)
		mockTaskRepo.AssertExpectations(t)
		mockGrantRepo.AssertExpectations(t)
	})

	t.Run("non-admin filtering on another user gets nothing", func(t *testing.T) {
		mockTaskRepo := new(MockTaskRepository)
		service := NewTaskService(mockTaskRepo, new(MockGrantRepository), new(MockUserRepository))

		tasks, err := service.ListTasks(context.Background(), auth.Principal{UserID: userID, Role: model.RoleUser}, ListTasksInput{UserID: &otherUserID})

		assert.NoError(t, err)
		assert.Empty(t, tasks)
		mockTaskRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
	})

	t.Run("inverted date range is rejected", func(t *testing.T) {
		from := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
		to := from.Add(-24 * time.Hour)
		service := NewTaskService(new(MockTaskRepository), new(MockGrantRepository), new(MockUserRepository))

		_, err := service.ListTasks(context.Background(), auth.Principal{UserID: userID, Role: model.RoleAdmin}, ListTasksInput{From: &from, To: &to})

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}
