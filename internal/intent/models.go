package intent

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task
type Status string

const (
	StatusTodo  Status = "todo"  // Created, not started
	StatusDoing Status = "doing" // Actively being worked on
	StatusDone  Status = "done"  // Finished
)

// ParseStatus validates and normalizes a status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusDoing:
		return StatusDoing, nil
	case StatusDone:
		return StatusDone, nil
	default:
		return "", fmt.Errorf("invalid status: %q", s)
	}
}

// IsValid reports whether s is one of the three known states.
func (s Status) IsValid() bool {
	return s == StatusTodo || s == StatusDoing || s == StatusDone
}

// rank orders statuses along the lifecycle: todo < doing < done.
func (s Status) rank() int {
	switch s {
	case StatusTodo:
		return 0
	case StatusDoing:
		return 1
	case StatusDone:
		return 2
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a forward
// transition. Same-state assertions are allowed (idempotent upsert);
// reverse transitions are not.
func (s Status) CanTransition(next Status) bool {
	return s.rank() <= next.rank()
}

// Priority represents task importance. Absent means lowest.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ParsePriority validates and normalizes a priority string.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityCritical:
		return PriorityCritical, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityLow:
		return PriorityLow, nil
	default:
		return "", fmt.Errorf("invalid priority: %q", s)
	}
}

// Rank returns the sort rank for a priority, ascending in importance:
// critical=0 .. low=3, unset=4.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// LogType classifies an event. Closed set.
type LogType string

const (
	LogDecision  LogType = "decision"
	LogBlocker   LogType = "blocker"
	LogMilestone LogType = "milestone"
	LogNote      LogType = "note"
)

// ParseLogType validates and normalizes an event type string.
func ParseLogType(s string) (LogType, error) {
	switch LogType(strings.ToLower(strings.TrimSpace(s))) {
	case LogDecision:
		return LogDecision, nil
	case LogBlocker:
		return LogBlocker, nil
	case LogMilestone:
		return LogMilestone, nil
	case LogNote:
		return LogNote, nil
	default:
		return "", fmt.Errorf("invalid event type: %q (want decision, blocker, milestone or note)", s)
	}
}

// Task is a node in the intent forest.
type Task struct {
	ID           int64      `json:"id"`
	ParentID     *int64     `json:"parent_id,omitempty"`
	Name         string     `json:"name"`
	Spec         string     `json:"spec,omitempty"`
	Status       Status     `json:"status"`
	Priority     Priority   `json:"priority,omitempty"`
	FirstTodoAt  *time.Time `json:"first_todo_at,omitempty"`
	FirstDoingAt *time.Time `json:"first_doing_at,omitempty"`
	FirstDoneAt  *time.Time `json:"first_done_at,omitempty"`
}

// Validate checks the task holds the invariants the store enforces.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("task name required")
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %q", t.Status)
	}
	if t.Priority != "" {
		if _, err := ParsePriority(string(t.Priority)); err != nil {
			return err
		}
	}
	if err := t.validateTimestamps(); err != nil {
		return err
	}
	return nil
}

// validateTimestamps enforces first_todo_at <= first_doing_at <= first_done_at
// over the timestamps that are set.
func (t *Task) validateTimestamps() error {
	var prev *time.Time
	for _, ts := range []*time.Time{t.FirstTodoAt, t.FirstDoingAt, t.FirstDoneAt} {
		if ts == nil {
			continue
		}
		if prev != nil && ts.Before(*prev) {
			return fmt.Errorf("lifecycle timestamps out of order")
		}
		prev = ts
	}
	return nil
}

// Event is an immutable log entry attached to exactly one task.
type Event struct {
	ID        int64     `json:"id"`
	TaskID    int64     `json:"task_id"`
	LogType   LogType   `json:"log_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks required event fields.
func (e *Event) Validate() error {
	if _, err := ParseLogType(string(e.LogType)); err != nil {
		return err
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Errorf("event message required")
	}
	return nil
}
