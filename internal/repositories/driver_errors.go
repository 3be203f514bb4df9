package repository

import (
	"errors"
	"strconv"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	apperrors "task-tracker.com/task-tracker/internal/errors"
)

// annotateDriverError records which driver raised cause and its native error
// code in ex's metadata.
func annotateDriverError(ex *apperrors.Exception, cause error) *apperrors.Exception {
	var (
		pgErr     *pgconn.PgError
		mysqlErr  *mysqldriver.MySQLError
		sqliteErr sqlite3.Error
	)

	switch {
	case errors.As(cause, &pgErr):
		ex.With("driver", "postgres").With("driver_code", pgErr.Code)
		if pgErr.ConstraintName != "" {
			ex.With("constraint", pgErr.ConstraintName)
		}
	case errors.As(cause, &mysqlErr):
		ex.With("driver", "mysql").With("driver_code", strconv.Itoa(int(mysqlErr.Number)))
	case errors.As(cause, &sqliteErr):
		ex.With("driver", "sqlite").With("driver_code", strconv.Itoa(int(sqliteErr.ExtendedCode)))
	}
	return ex
}
