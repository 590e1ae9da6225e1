package service

import (
	"context"
	"fmt"
	"sort"

	"timetrack/internal/auth"
	"timetrack/internal/metrics"
	"timetrack/internal/model"
)

// DayCount is the number of tasks started on one calendar date.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// UserCount is the number of tasks owned by one user.
type UserCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// TaskStats summarises a set of tasks.
type TaskStats struct {
	TotalTasks      int         `json:"totalTasks"`
	TotalDuration   int64       `json:"totalDuration"`   // milliseconds; active tasks count as 0
	AverageDuration int64       `json:"averageDuration"` // milliseconds, truncated
	TotalFormatted  string      `json:"totalFormatted"`
	AvgFormatted    string      `json:"averageFormatted"`
	TasksByDay      []DayCount  `json:"tasksByDay"`
	TasksByUser     []UserCount `json:"tasksByUser"`
}

// ReportService computes aggregate statistics over task listings. Scoping
// is inherited from the task service, so a caller can never report on
// tasks they could not list.
type ReportService interface {
	Summary(ctx context.Context, p auth.Principal, in ListTasksInput) (*TaskStats, error)
}

type reportService struct {
	tasks TaskService
}

// NewReportService creates a new report service.
func NewReportService(tasks TaskService) ReportService {
	return &reportService{tasks: tasks}
}

// Summary lists the visible tasks for the filter and aggregates them.
func (s *reportService) Summary(ctx context.Context, p auth.Principal, in ListTasksInput) (*TaskStats, error) {
	tasks, err := s.tasks.ListTasks(ctx, p, in)
	if err != nil {
		return nil, fmt.Errorf("list tasks for report: %w", err)
	}
	stats := Aggregate(tasks)
	metrics.ReportRequestsTotal.Inc()
	return &stats, nil
}

// Aggregate computes summary statistics over a slice of tasks. It is a pure
// function; the input is expected to already be filtered for visibility.
func Aggregate(tasks []model.Task) TaskStats {
	stats := TaskStats{
		TotalTasks:  len(tasks),
		TasksByDay:  []DayCount{},
		TasksByUser: []UserCount{},
	}

	byDay := make(map[string]int)
	byUser := make(map[string]int)
	userOrder := make([]string, 0)

	for _, task := range tasks {
		if task.Duration != nil {
			stats.TotalDuration += *task.Duration
		}

		day := task.StartTime.Format("2006-01-02")
		byDay[day]++

		name := task.UserID.String()
		if task.User != nil && task.User.Name != "" {
			name = task.User.Name
		}
		if _, seen := byUser[name]; !seen {
			userOrder = append(userOrder, name)
		}
		byUser[name]++
	}

	if stats.TotalTasks > 0 {
		stats.AverageDuration = stats.TotalDuration / int64(stats.TotalTasks)
	}
	stats.TotalFormatted = model.FormatDuration(stats.TotalDuration)
	stats.AvgFormatted = model.FormatDuration(stats.AverageDuration)

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	for _, day := range days {
		stats.TasksByDay = append(stats.TasksByDay, DayCount{Date: day, Count: byDay[day]})
	}

	// Users keep first-occurrence order, which matches the listing order.
	for _, name := range userOrder {
		stats.TasksByUser = append(stats.TasksByUser, UserCount{User: name, Count: byUser[name]})
	}

	return stats
}
