package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetrack/internal/auth"
	apperrors "timetrack/internal/errors"
	"timetrack/internal/metrics"
	"timetrack/internal/model"
	"timetrack/internal/repository"
)

// CreateTaskInput carries the fields accepted when starting a task.
type CreateTaskInput struct {
	Title       string
	Description string
	StartTime   time.Time
	ClientID    *uuid.UUID
}

// UpdateTaskInput carries the fields of a direct edit. It is a full
// replacement of the editable fields; a nil EndTime means the task becomes
// (or stays) active.
type UpdateTaskInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     *time.Time
	UserID      uuid.UUID
	ClientID    *uuid.UUID
}

// ListTasksInput narrows a task listing. All fields are optional.
type ListTasksInput struct {
	From     *time.Time
	To       *time.Time
	ClientID *uuid.UUID
	UserID   *uuid.UUID
	Active   *bool
}

// TaskService implements the task lifecycle: create, stop, edit, delete,
// list. Every operation receives the authenticated principal and enforces
// role and ownership scoping before touching the store.
type TaskService interface {
	CreateTask(ctx context.Context, p auth.Principal, in CreateTaskInput) (*model.Task, error)
	StopTask(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Task, error)
	UpdateTask(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateTaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, p auth.Principal, id uuid.UUID) error
	ListTasks(ctx context.Context, p auth.Principal, in ListTasksInput) ([]model.Task, error)
}

type taskService struct {
	taskRepo  repository.TaskRepository
	grantRepo repository.GrantRepository
	userRepo  repository.UserRepository

	now func() time.Time
}

// NewTaskService creates a new task service.
func NewTaskService(taskRepo repository.TaskRepository, grantRepo repository.GrantRepository, userRepo repository.UserRepository) TaskService {
	return &taskService{
		taskRepo:  taskRepo,
		grantRepo: grantRepo,
		userRepo:  userRepo,
		now:       time.Now,
	}
}

// CreateTask starts a new active task owned by the principal.
func (s *taskService) CreateTask(ctx context.Context, p auth.Principal, in CreateTaskInput) (*model.Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if in.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", apperrors.ErrValidation)
	}

	if in.ClientID != nil && !p.IsAdmin() {
		granted, err := s.isClientGranted(ctx, p.UserID, *in.ClientID)
		if err != nil {
			return nil, err
		}
		if !granted {
			return nil, fmt.Errorf("%w: client not assigned to user", apperrors.ErrForbidden)
		}
	}

	owner, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("load owner: %w", err)
	}

	task := &model.Task{
		Title:          in.Title,
		Description:    in.Description,
		StartTime:      in.StartTime,
		UserID:         p.UserID,
		ClientID:       in.ClientID,
		OrganizationID: owner.OrganizationID,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	metrics.TasksStartedTotal.Inc()
	return task, nil
}

// StopTask completes an active task. The completion itself is a single
// conditional UPDATE guarded by "end_time IS NULL", so of two concurrent
// stops exactly one wins and the other observes ErrTaskAlreadyCompleted.
func (s *taskService) StopTask(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Task, error) {
	task, err := s.visibleTask(ctx, p, id)
	if err != nil {
		metrics.TasksStoppedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if !task.IsActive() {
		metrics.TasksStoppedTotal.WithLabelValues("already_completed").Inc()
		return nil, apperrors.ErrTaskAlreadyCompleted
	}

	endTime := s.now()
	duration := model.ComputeDuration(task.StartTime, &endTime)

	rows, err := s.taskRepo.Stop(ctx, id, endTime, *duration)
	if err != nil {
		return nil, fmt.Errorf("stop task: %w", err)
	}
	if rows == 0 {
		// Lost the race: another request stopped the task between our read
		// and the update.
		metrics.TasksStoppedTotal.WithLabelValues("already_completed").Inc()
		return nil, apperrors.ErrTaskAlreadyCompleted
	}

	task.EndTime = &endTime
	task.Duration = duration

	metrics.TasksStoppedTotal.WithLabelValues("ok").Inc()
	return task, nil
}

// UpdateTask edits a task. Admins may replace every editable field; the
// owning user may only change title and description.
func (s *taskService) UpdateTask(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateTaskInput) (*model.Task, error) {
	task, err := s.visibleTask(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}

	if !p.IsAdmin() {
		timingChanged := !in.StartTime.Equal(task.StartTime) ||
			(in.EndTime == nil) != (task.EndTime == nil) ||
			(in.EndTime != nil && task.EndTime != nil && !in.EndTime.Equal(*task.EndTime))
		ownershipChanged := in.UserID != task.UserID ||
			(in.ClientID == nil) != (task.ClientID == nil) ||
			(in.ClientID != nil && task.ClientID != nil && *in.ClientID != *task.ClientID)
		if timingChanged || ownershipChanged {
			return nil, fmt.Errorf("%w: only title and description may be edited", apperrors.ErrForbidden)
		}
		task.Title = in.Title
		task.Description = in.Description
	} else {
		if in.StartTime.IsZero() {
			return nil, fmt.Errorf("%w: start time is required", apperrors.ErrValidation)
		}
		if in.EndTime != nil && in.EndTime.Before(in.StartTime) {
			return nil, fmt.Errorf("%w: end time must not be before start time", apperrors.ErrValidation)
		}
		task.Title = in.Title
		task.Description = in.Description
		task.StartTime = in.StartTime
		task.EndTime = in.EndTime
		task.UserID = in.UserID
		task.ClientID = in.ClientID
	}

	// Keep the cached duration in sync on every edit.
	task.Duration = model.ComputeDuration(task.StartTime, task.EndTime)

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// DeleteTask removes a task. Admin only.
func (s *taskService) DeleteTask(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if !p.IsAdmin() {
		return apperrors.ErrForbidden
	}
	if _, err := s.taskRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrTaskNotFound
		}
		return fmt.Errorf("find task: %w", err)
	}
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListTasks returns tasks matching the filters, scoped to the principal:
// non-admins only ever see their own tasks, and client-scoped tasks only
// for clients they are granted.
func (s *taskService) ListTasks(ctx context.Context, p auth.Principal, in ListTasksInput) ([]model.Task, error) {
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, fmt.Errorf("%w: end date before start date", apperrors.ErrValidation)
	}

	filter := repository.TaskFilter{
		From:     in.From,
		To:       in.To,
		ClientID: in.ClientID,
		Active:   in.Active,
	}

	if p.IsAdmin() {
		filter.UserID = in.UserID
	} else {
		// The effective filter is intersected with the caller's own tasks
		// and granted clients; a userId filter naming someone else yields
		// nothing rather than leaking.
		if in.UserID != nil && *in.UserID != p.UserID {
			return []model.Task{}, nil
		}
		own := p.UserID
		filter.UserID = &own

		grantedIDs, err := s.grantRepo.ListClientIDs(ctx, p.UserID)
		if err != nil {
			return nil, fmt.Errorf("list grants: %w", err)
		}
		filter.RestrictClients = true
		filter.VisibleClientIDs = grantedIDs
	}

	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// visibleTask loads a task and hides other users' tasks from non-admins,
// reporting them as not found rather than forbidden.
func (s *taskService) visibleTask(ctx context.Context, p auth.Principal, id uuid.UUID) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	if !p.IsAdmin() && task.UserID != p.UserID {
		return nil, apperrors.ErrTaskNotFound
	}
	return task, nil
}

// isClientGranted reports whether clientID is in the user's grant set.
func (s *taskService) isClientGranted(ctx context.Context, userID, clientID uuid.UUID) (bool, error) {
	ids, err := s.grantRepo.ListClientIDs(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list grants: %w", err)
	}
	for _, id := range ids {
		if id == clientID {
			return true, nil
		}
	}
	return false, nil
}
