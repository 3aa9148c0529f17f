package domain

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskRunning   TaskStatus = "RUNNING"
	TaskPaused    TaskStatus = "PAUSED"
	TaskCompleted TaskStatus = "COMPLETED"
	TaskFailed    TaskStatus = "FAILED"
	TaskCancelled TaskStatus = "CANCELLED"
)

// Terminal reports whether the status is final. Terminal tasks are immutable
// except for garbage collection.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

type TaskPriority int

const (
	PriorityLow TaskPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

func (p TaskPriority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityUrgent:
		return "URGENT"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority maps a priority name to its ordinal. Unknown names fall back
// to NORMAL.
func ParsePriority(s string) TaskPriority {
	switch s {
	case "LOW", "low":
		return PriorityLow
	case "HIGH", "high":
		return PriorityHigh
	case "URGENT", "urgent":
		return PriorityUrgent
	default:
		return PriorityNormal
	}
}

// Task is the scheduling record wrapping one simulation run. Created by the
// scheduler on submission and mutated only under the scheduler's lock.
type Task struct {
	ID          string        `json:"id"`
	BacktestID  string        `json:"backtest_id"`
	Priority    TaskPriority  `json:"priority"`
	Status      TaskStatus    `json:"status"`
	Progress    float64       `json:"progress"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	CompletedAt time.Time     `json:"completed_at,omitzero"`
	Error       string        `json:"error,omitempty"`
	RetryCount  int           `json:"retry_count"`
	MaxRetries  int           `json:"max_retries"`
	Estimated   time.Duration `json:"estimated_duration"`
	Actual      time.Duration `json:"actual_duration"`
}

// QueueStats is a point-in-time summary of the scheduler's queues.
type QueueStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Paused    int `json:"paused"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
