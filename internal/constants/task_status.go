package constants

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// TaskStatus is persisted by its canonical name. Renaming a value breaks
// existing rows.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

var taskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

func TaskStatuses() []TaskStatus {
	out := make([]TaskStatus, len(taskStatuses))
	copy(out, taskStatuses)
	return out
}

// ParseTaskStatus accepts the canonical name in any case, with '-' or ' '
// in place of '_'.
func ParseTaskStatus(s string) (TaskStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)

	status := TaskStatus(normalized)
	if !status.Valid() {
		return "", fmt.Errorf("unknown task status %q", s)
	}
	return status, nil
}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

func (s TaskStatus) String() string {
	return string(s)
}

func (s TaskStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid task status %q", string(s))
	}
	return string(s), nil
}

func (s *TaskStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("task status is null")
	default:
		return fmt.Errorf("cannot scan %T into task status", src)
	}

	status := TaskStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("stored task status %q is not recognized", raw)
	}
	*s = status
	return nil
}
