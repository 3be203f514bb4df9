package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"task-tracker.com/task-tracker/internal/constants"
	apperrors "task-tracker.com/task-tracker/internal/errors"
	"task-tracker.com/task-tracker/internal/logger"
	model "task-tracker.com/task-tracker/internal/models"
	repository "task-tracker.com/task-tracker/internal/repositories"
)

type TaskService struct {
	repo *repository.TaskRepository
	log  zerolog.Logger
}

// TaskChanges holds the fields of a partial update. Nil fields are left as
// stored.
type TaskChanges struct {
	Description *string
	Status      *constants.TaskStatus
}

func NewTaskService(repo *repository.TaskRepository, log zerolog.Logger) *TaskService {
	return &TaskService{
		repo: repo,
		log:  logger.Named(log, "task_service"),
	}
}

func (s *TaskService) CreateTask(ctx context.Context, description string, status constants.TaskStatus) (*model.Task, error) {
	if status == "" {
		status = constants.StatusTodo
	}

	task, err := s.repo.Create(ctx, model.NewTask(strings.TrimSpace(description), status))
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("task_id", task.ID).Msg("task added")
	return task, nil
}

// CreateTasks adds one TODO task per description, all or none.
func (s *TaskService) CreateTasks(ctx context.Context, descriptions []string) ([]*model.Task, error) {
	tasks := make([]*model.Task, 0, len(descriptions))
	for _, description := range descriptions {
		tasks = append(tasks, model.NewTask(strings.TrimSpace(description), constants.StatusTodo))
	}

	created, err := s.repo.CreateAll(ctx, tasks)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("count", len(created)).Msg("tasks added")
	return created, nil
}

func (s *TaskService) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	task, found, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) ListTasks(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx)
}

// UpdateTask reads, changes and writes the task inside one transaction.
func (s *TaskService) UpdateTask(ctx context.Context, id int64, changes TaskChanges) (*model.Task, error) {
	if id == 0 {
		return nil, apperrors.ErrTaskIDRequired
	}
	if changes.Description == nil && changes.Status == nil {
		return nil, apperrors.InvalidArgument("nothing to update")
	}

	var updated *model.Task
	err := s.repo.Transaction(ctx, func(repo *repository.TaskRepository) error {
		task, found, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.ErrTaskNotFound
		}

		if changes.Description != nil {
			task.Description = strings.TrimSpace(*changes.Description)
		}
		if changes.Status != nil {
			task.Status = *changes.Status
		}

		if err := repo.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *TaskService) MarkInProgress(ctx context.Context, id int64) (*model.Task, error) {
	status := constants.StatusInProgress
	return s.UpdateTask(ctx, id, TaskChanges{Status: &status})
}

func (s *TaskService) MarkDone(ctx context.Context, id int64) (*model.Task, error) {
	status := constants.StatusDone
	return s.UpdateTask(ctx, id, TaskChanges{Status: &status})
}

func (s *TaskService) DeleteTask(ctx context.Context, id int64) error {
	if id == 0 {
		return apperrors.ErrTaskIDRequired
	}

	return s.repo.Transaction(ctx, func(repo *repository.TaskRepository) error {
		_, found, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.ErrTaskNotFound
		}

		return repo.Delete(ctx, id)
	})
}
