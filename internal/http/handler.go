package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"task-tracker.com/task-tracker/internal/constants"
	dto "task-tracker.com/task-tracker/internal/data_models"
	apperrors "task-tracker.com/task-tracker/internal/errors"
	"task-tracker.com/task-tracker/internal/services"
)

type Handler struct {
	taskService *services.TaskService
}

func NewHandler(taskService *services.TaskService) *Handler {
	return &Handler{
		taskService: taskService,
	}
}

func (h *Handler) CreateTask(c echo.Context) error {
	var req dto.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	status := constants.StatusTodo
	if req.Status != "" {
		parsed, err := parseStatus(req.Status)
		if err != nil {
			return err
		}
		status = parsed
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req.Description, status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, task)
}

func (h *Handler) CreateTasks(c echo.Context) error {
	var req dto.CreateTasksRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tasks, err := h.taskService.CreateTasks(c.Request().Context(), req.Descriptions)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, tasks)
}

func (h *Handler) GetTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) ListTasks(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.TaskListResponse{
		Count: len(tasks),
		Tasks: tasks,
	})
}

func (h *Handler) UpdateTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	var req dto.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	changes := services.TaskChanges{Description: req.Description}
	if req.Status != nil {
		status, err := parseStatus(*req.Status)
		if err != nil {
			return err
		}
		changes.Status = &status
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), id, changes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, task)
}

func (h *Handler) DeleteTask(c echo.Context) error {
	id, err := taskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.ErrInvalidJSON
	}
	return c.Validate(req)
}

func parseStatus(raw string) (constants.TaskStatus, error) {
	status, err := constants.ParseTaskStatus(raw)
	if err != nil {
		return "", apperrors.InvalidArgument(err.Error())
	}
	return status, nil
}

func taskID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	if raw == "" {
		return 0, apperrors.ErrTaskIDRequired
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument("task id must be a positive integer")
	}
	return id, nil
}
