package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperrors "task-tracker.com/task-tracker/internal/errors"
	"task-tracker.com/task-tracker/internal/logger"
	model "task-tracker.com/task-tracker/internal/models"
)

// TaskRepository is safe for concurrent use. Each call borrows one pooled
// connection for its own duration, or runs on the caller's transaction when
// the repository was handed out by Transaction.
type TaskRepository struct {
	db       *gorm.DB
	executor *TxExecutor
	log      zerolog.Logger
	now      func() time.Time
}

func NewTaskRepository(db *gorm.DB, log zerolog.Logger) *TaskRepository {
	log = logger.Named(log, "task_repository")
	return &TaskRepository{
		db:       db,
		executor: NewTxExecutor(db, log),
		log:      log,
		now:      utcNow,
	}
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// WithClock returns a copy of r that stamps timestamps using now.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	clone := *r
	clone.now = func() time.Time { return now().UTC().Truncate(time.Microsecond) }
	return &clone
}

// Transaction runs fn with a repository bound to a single transaction. When r
// is already bound to one, fn joins it.
func (r *TaskRepository) Transaction(ctx context.Context, fn func(repo *TaskRepository) error) error {
	if r.executor == nil {
		return fn(r)
	}

	return r.executor.Execute(ctx, func(tx *gorm.DB) error {
		return fn(&TaskRepository{db: tx, log: r.log, now: r.now})
	})
}

// Create inserts task and fills in its generated ID. The repository stamps
// CreatedAt and UpdatedAt; values set by the caller are overwritten.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) (*model.Task, error) {
	if err := validateForCreate(task); err != nil {
		return nil, err
	}

	now := r.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	res := r.db.WithContext(ctx).Create(task)
	if res.Error != nil {
		resetUnpersisted(task)
		return nil, r.persistenceError("create", 0, res.Error, "error creating task")
	}

	if res.RowsAffected == 0 {
		resetUnpersisted(task)
		return nil, r.persistenceError("create", 0, nil, "task creation failed, no rows affected")
	}

	if task.ID == 0 {
		resetUnpersisted(task)
		return nil, r.persistenceError("create", 0, nil, "task creation failed, no id obtained")
	}

	r.log.Debug().Int64("task_id", task.ID).Msg("task created")
	return task, nil
}

// CreateAll stores every task or none of them.
func (r *TaskRepository) CreateAll(ctx context.Context, tasks []*model.Task) ([]*model.Task, error) {
	if len(tasks) == 0 {
		return nil, apperrors.InvalidArgument("at least one task is required")
	}
	for _, task := range tasks {
		if err := validateForCreate(task); err != nil {
			return nil, err
		}
	}

	err := r.Transaction(ctx, func(repo *TaskRepository) error {
		for _, task := range tasks {
			if _, err := repo.Create(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		for _, task := range tasks {
			resetUnpersisted(task)
		}
		return nil, err
	}

	return tasks, nil
}

// FindByID reports found=false, with a nil error, when no row has that id.
func (r *TaskRepository) FindByID(ctx context.Context, id int64) (*model.Task, bool, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, r.persistenceError("get", id, err, fmt.Sprintf("error getting task by id: %d", id))
	}

	return &task, true, nil
}

// List returns every task in the store's natural row order.
func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	if err := r.db.WithContext(ctx).Find(&tasks).Error; err != nil {
		return nil, r.persistenceError("list", 0, err, "error getting all tasks")
	}

	return tasks, nil
}

// Update writes description and status and stamps UpdatedAt, both in the row
// and on task.
func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	if err := validateForUpdate(task); err != nil {
		return err
	}

	now := r.now()
	if now.Before(task.CreatedAt) {
		now = task.CreatedAt
	}

	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"description": task.Description,
			"status":      task.Status,
			"updated_at":  now,
		})

	if res.Error != nil {
		return r.persistenceError("update", task.ID, res.Error, fmt.Sprintf("error updating task: %d", task.ID))
	}

	if res.RowsAffected == 0 {
		return r.persistenceError("update", task.ID, nil, fmt.Sprintf("task update failed, no rows affected, task id: %d", task.ID))
	}

	task.UpdatedAt = now
	r.log.Info().Int64("task_id", task.ID).Str("status", task.Status.String()).Msg("task updated")
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	if id == 0 {
		return apperrors.ErrTaskIDRequired
	}

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Task{})
	if res.Error != nil {
		return r.persistenceError("delete", id, res.Error, fmt.Sprintf("error deleting task: %d", id))
	}

	if res.RowsAffected == 0 {
		return r.persistenceError("delete", id, nil, fmt.Sprintf("deleting task failed, no rows affected, task id: %d", id))
	}

	r.log.Info().Int64("task_id", id).Msg("task deleted")
	return nil
}

func (r *TaskRepository) persistenceError(op string, id int64, cause error, message string) error {
	ex := apperrors.PersistenceFailed(op, cause, message)
	if id != 0 {
		ex.With("task_id", fmt.Sprint(id))
	}
	if cause != nil {
		annotateDriverError(ex, cause)
	}

	event := r.log.Error().Str("op", op).Err(cause)
	for key, value := range ex.Metadata {
		event = event.Str(key, value)
	}
	event.Msg(message)

	return ex
}

func validateForCreate(task *model.Task) error {
	if task == nil {
		return apperrors.InvalidArgument("task is required")
	}
	if task.Persisted() {
		return apperrors.InvalidArgument(fmt.Sprintf("task %d is already persisted", task.ID))
	}
	return validateFields(task)
}

func validateForUpdate(task *model.Task) error {
	if task == nil {
		return apperrors.InvalidArgument("task is required")
	}
	if !task.Persisted() {
		return apperrors.ErrTaskIDRequired
	}
	return validateFields(task)
}

func validateFields(task *model.Task) error {
	if strings.TrimSpace(task.Description) == "" {
		return apperrors.InvalidArgument("task description is required")
	}
	if !task.Status.Valid() {
		return apperrors.InvalidArgument(fmt.Sprintf("invalid task status %q", task.Status))
	}
	return nil
}

func resetUnpersisted(task *model.Task) {
	task.ID = 0
	task.CreatedAt = time.Time{}
	task.UpdatedAt = time.Time{}
}
