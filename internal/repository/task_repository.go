package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetrack/internal/model"
)

// TaskFilter narrows task listings. Nil fields are ignored.
type TaskFilter struct {
	UserID   *uuid.UUID
	ClientID *uuid.UUID
	From     *time.Time // inclusive, compared against start_time
	To       *time.Time // inclusive, compared against start_time
	Active   *bool      // true: end_time IS NULL, false: end_time IS NOT NULL

	// RestrictClients limits results to tasks whose client is in
	// VisibleClientIDs, plus tasks with no client at all. Set for
	// non-admin callers.
	RestrictClients  bool
	VisibleClientIDs []uuid.UUID
}

// TaskRepository defines task persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	Update(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	// Stop performs the atomic conditional completion update. It only
	// touches rows whose end_time is still NULL and reports how many rows
	// were updated, so concurrent stops cannot both win.
	Stop(ctx context.Context, id uuid.UUID, endTime time.Time, durationMS int64) (int64, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create creates a new task record.
func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update saves all fields of an existing task.
func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// FindByID finds a task by ID.
func (r *taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task unconditionally.
func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{}).Error
}

// List returns tasks matching the filter, newest start first.
func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	q := r.db.WithContext(ctx).Model(&model.Task{}).
		Preload("User").
		Preload("Client")

	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.ClientID != nil {
		q = q.Where("client_id = ?", *filter.ClientID)
	}
	if filter.From != nil {
		q = q.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("start_time <= ?", *filter.To)
	}
	if filter.Active != nil {
		if *filter.Active {
			q = q.Where("end_time IS NULL")
		} else {
			q = q.Where("end_time IS NOT NULL")
		}
	}
	if filter.RestrictClients {
		if len(filter.VisibleClientIDs) == 0 {
			q = q.Where("client_id IS NULL")
		} else {
			q = q.Where("client_id IN ? OR client_id IS NULL", filter.VisibleClientIDs)
		}
	}

	var tasks []model.Task
	if err := q.Order("start_time DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Stop completes a task with a single guarded UPDATE. A task that was
// already stopped leaves RowsAffected at zero; the caller distinguishes
// "already stopped" from "missing" with a follow-up read.
func (r *taskRepository) Stop(ctx context.Context, id uuid.UUID, endTime time.Time, durationMS int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND end_time IS NULL", id).
		Updates(map[string]interface{}{
			"end_time": endTime,
			"duration": durationMS,
		})
	return res.RowsAffected, res.Error
}
