package model

import (
	"time"

	"task-tracker.com/task-tracker/internal/constants"
)

type Task struct {
	ID          int64                `gorm:"primaryKey;autoIncrement" json:"id"`
	Description string               `gorm:"type:text;not null" json:"description"`
	Status      constants.TaskStatus `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time            `gorm:"not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt   time.Time            `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
}

// NewTask returns an unpersisted task. Timestamps and ID are assigned when it
// is stored.
func NewTask(description string, status constants.TaskStatus) *Task {
	return &Task{
		Description: description,
		Status:      status,
	}
}

func (Task) TableName() string {
	return "tasks"
}

// Persisted reports whether the store has assigned an ID to the task.
func (t *Task) Persisted() bool {
	return t != nil && t.ID != 0
}
