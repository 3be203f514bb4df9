package dto

import model "task-tracker.com/task-tracker/internal/models"

type CreateTaskRequest struct {
	Description string `json:"description" validate:"notblank,max=1000"`
	Status      string `json:"status" validate:"omitempty,taskstatus"`
}

type CreateTasksRequest struct {
	Descriptions []string `json:"descriptions" validate:"required,min=1,max=100,dive,notblank,max=1000"`
}

// UpdateTaskRequest is a partial update; absent fields keep their stored
// value.
type UpdateTaskRequest struct {
	Description *string `json:"description" validate:"omitempty,notblank,max=1000"`
	Status      *string `json:"status" validate:"omitempty,taskstatus"`
}

type TaskListResponse struct {
	Count int          `json:"count"`
	Tasks []model.Task `json:"tasks"`
}
