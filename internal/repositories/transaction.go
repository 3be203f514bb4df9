package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	apperrors "task-tracker.com/task-tracker/internal/errors"
)

// UnitOfWork runs inside a single transaction. Every statement issued through
// tx uses the same connection; returning an error rolls all of them back.
type UnitOfWork func(tx *gorm.DB) error

// TxExecutor runs units of work with all-or-nothing semantics on a connection
// leased from the pool.
type TxExecutor struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewTxExecutor(db *gorm.DB, log zerolog.Logger) *TxExecutor {
	return &TxExecutor{db: db, log: log}
}

// Execute leases one connection, begins a transaction on it and commits when
// work succeeds. Any failure, including a failed commit or a panic inside
// work, triggers a rollback. The connection goes back to the pool on every
// path, in auto-commit mode again.
func (e *TxExecutor) Execute(ctx context.Context, work UnitOfWork) error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return e.fail(fmt.Errorf("db handle: %w", err))
	}

	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return e.fail(fmt.Errorf("acquire connection: %w", err))
	}
	defer e.release(conn)

	sqlTx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return e.fail(fmt.Errorf("begin transaction: %w", err))
	}

	finished := false
	defer func() {
		if !finished {
			e.rollback(sqlTx)
		}
	}()

	tx := e.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	tx.Statement.ConnPool = sqlTx

	if err := work(tx); err != nil {
		finished = true
		e.rollback(sqlTx)
		return e.fail(err)
	}

	finished = true
	if err := sqlTx.Commit(); err != nil {
		e.rollback(sqlTx)
		return e.fail(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// rollback never returns an error: the failure that caused it is the one
// reported to the caller.
func (e *TxExecutor) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			e.log.Debug().Msg("transaction already finished, nothing to roll back")
			return
		}
		e.log.Error().Err(err).Msg("error rolling back transaction")
		return
	}
	e.log.Info().Msg("transaction rolled back")
}

func (e *TxExecutor) release(conn *sql.Conn) {
	if err := conn.Close(); err != nil {
		e.log.Error().Err(err).Msg("error releasing connection")
	}
}

func (e *TxExecutor) fail(cause error) error {
	event := e.log.Error()
	if errors.Is(cause, apperrors.ErrInvalidArgument) || errors.Is(cause, apperrors.ErrTaskNotFound) {
		event = e.log.Warn()
	}
	event.Err(cause).Msg("transaction failed")

	return apperrors.TransactionFailed(cause)
}
