package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"task-tracker.com/task-tracker/internal/constants"
	apperrors "task-tracker.com/task-tracker/internal/errors"
	model "task-tracker.com/task-tracker/internal/models"
)

func insertRaw(tx *gorm.DB, description string) error {
	now := time.Now().UTC()
	return tx.Exec(
		"INSERT INTO tasks (description, status, created_at, updated_at) VALUES (?, ?, ?, ?)",
		description, constants.StatusTodo, now, now,
	).Error
}

func TestTxExecutor_CommitsOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	executor := NewTxExecutor(db, zerolog.Nop())

	err := executor.Execute(context.Background(), func(tx *gorm.DB) error {
		if err := insertRaw(tx, "a"); err != nil {
			return err
		}
		return insertRaw(tx, "b")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int64
	db.Model(&model.Task{}).Count(&count)
	if count != 2 {
		t.Errorf("expected 2 committed rows, got %d", count)
	}
}

func TestTxExecutor_RollsBackOnStatementFailure(t *testing.T) {
	db := setupTestDB(t)
	executor := NewTxExecutor(db, zerolog.Nop())

	err := executor.Execute(context.Background(), func(tx *gorm.DB) error {
		if err := insertRaw(tx, "first"); err != nil {
			return err
		}
		return tx.Exec("INSERT INTO missing_table (x) VALUES (1)").Error
	})

	if !errors.Is(err, apperrors.ErrTransactionFailed) {
		t.Fatalf("expected transaction failure, got %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("expected the statement error to be wrapped")
	}

	var count int64
	db.Model(&model.Task{}).Count(&count)
	if count != 0 {
		t.Errorf("expected first insert to be rolled back, got %d rows", count)
	}
}

func TestTxExecutor_RollsBackOnPanic(t *testing.T) {
	db := setupTestDB(t)
	executor := NewTxExecutor(db, zerolog.Nop())

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the panic to propagate")
			}
		}()
		_ = executor.Execute(context.Background(), func(tx *gorm.DB) error {
			if err := insertRaw(tx, "doomed"); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	// The pool holds a single connection; this only succeeds if it was released.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo := NewTaskRepository(db, zerolog.Nop())
	tasks, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("connection was not released after panic: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected insert to be rolled back, got %d rows", len(tasks))
	}
}

func TestTxExecutor_ReleasesConnectionAfterEachRun(t *testing.T) {
	db := setupTestDB(t)
	executor := NewTxExecutor(db, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 5; i++ {
		failing := i%2 == 0
		err := executor.Execute(ctx, func(tx *gorm.DB) error {
			if failing {
				return apperrors.InvalidArgument("rejected")
			}
			return insertRaw(tx, "ok")
		})
		if failing && !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Errorf("run %d: expected wrapped invalid argument, got %v", i, err)
		}
		if !failing && err != nil {
			t.Errorf("run %d: unexpected error: %v", i, err)
		}
	}

	stats, _ := db.DB()
	if inUse := stats.Stats().InUse; inUse != 0 {
		t.Errorf("expected no connection in use, got %d", inUse)
	}
}

func TestTxExecutor_AcquireFailure(t *testing.T) {
	db := setupTestDB(t)
	executor := NewTxExecutor(db, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := executor.Execute(ctx, func(tx *gorm.DB) error {
		called = true
		return nil
	})

	if !errors.Is(err, apperrors.ErrTransactionFailed) {
		t.Errorf("expected transaction failure, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context cancellation in the chain, got %v", err)
	}
	if called {
		t.Error("work must not run without a connection")
	}
}

func TestTxExecutor_RollsBackWhenCommitFails(t *testing.T) {
	db := setupTestDB(t)
	executor := NewTxExecutor(db, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := executor.Execute(ctx, func(tx *gorm.DB) error {
		if err := insertRaw(tx, "never committed"); err != nil {
			return err
		}
		cancel()
		return nil
	})

	if !errors.Is(err, apperrors.ErrTransactionFailed) {
		t.Fatalf("expected transaction failure, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected the commit error as cause, got %v", err)
	}
	if errors.Is(err, sql.ErrTxDone) {
		t.Errorf("the follow-up rollback error must not replace the commit error, got %v", err)
	}

	var count int64
	db.Model(&model.Task{}).Count(&count)
	if count != 0 {
		t.Errorf("expected insert to be rolled back, got %d rows", count)
	}

	stats, _ := db.DB()
	if inUse := stats.Stats().InUse; inUse != 0 {
		t.Errorf("expected connection to be released, got %d in use", inUse)
	}
}
