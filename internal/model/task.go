package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a timed unit of work owned by a user, optionally tied to a client.
//
// A task is active while EndTime is nil and completed once the stop
// operation sets it. Duration is cached in milliseconds and is non-nil
// exactly when EndTime is non-nil.
type Task struct {
	ID             uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Title          string     `json:"title" gorm:"size:255;not null"`
	Description    string     `json:"description,omitempty" gorm:"size:2000"`
	StartTime      time.Time  `json:"startTime" gorm:"not null;index"`
	EndTime        *time.Time `json:"endTime" gorm:"index"`
	Duration       *int64     `json:"duration"` // milliseconds
	UserID         uuid.UUID  `json:"userId" gorm:"type:char(36);not null;index"`
	ClientID       *uuid.UUID `json:"clientId" gorm:"type:char(36);index"`
	OrganizationID uuid.UUID  `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relations
	User   *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Client *Client `json:"client,omitempty" gorm:"foreignKey:ClientID"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the task has not been stopped yet.
func (t *Task) IsActive() bool {
	return t.EndTime == nil
}

// ComputeDuration returns the elapsed milliseconds between start and end,
// or nil when end is nil. Every write path that touches EndTime goes
// through this function so the cached duration can never drift.
func ComputeDuration(start time.Time, end *time.Time) *int64 {
	if end == nil {
		return nil
	}
	ms := end.Sub(start).Milliseconds()
	return &ms
}

// FormatDuration renders milliseconds as "1h 30m". Hours and minutes are
// truncated; seconds are discarded without rounding.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / int64(time.Hour/time.Millisecond)
	minutes := (ms % int64(time.Hour/time.Millisecond)) / int64(time.Minute/time.Millisecond)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
