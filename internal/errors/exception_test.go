package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestException_IsMatchesKind(t *testing.T) {
	err := PersistenceFailed("delete", sql.ErrConnDone, "delete failed")

	if !errors.Is(err, ErrPersistenceFailed) {
		t.Error("expected persistence failure to match ErrPersistenceFailed")
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Error("persistence failure must not match ErrInvalidArgument")
	}
	if !errors.Is(err, sql.ErrConnDone) {
		t.Error("expected the driver cause to stay reachable")
	}
}

func TestException_SentinelsDoNotMatchEachOther(t *testing.T) {
	if errors.Is(InvalidArgument("description is required"), ErrTaskIDRequired) {
		t.Error("a generic invalid argument must not match a specific sentinel")
	}
	if !errors.Is(ErrTaskIDRequired, ErrInvalidArgument) {
		t.Error("ErrTaskIDRequired should be an invalid argument")
	}
}

func TestTransactionFailed_KeepsInnerKind(t *testing.T) {
	inner := PersistenceFailed("update", nil, "no rows affected")
	err := TransactionFailed(inner)

	if KindOf(err) != KindTransactionFailed {
		t.Errorf("expected outer kind %s, got %s", KindTransactionFailed, KindOf(err))
	}
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Error("expected wrapped persistence failure to be visible")
	}
	if err.Error() != "transaction failed: update: no rows affected" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found in transaction", TransactionFailed(ErrTaskNotFound), http.StatusNotFound},
		{"invalid argument", InvalidArgument("bad"), http.StatusBadRequest},
		{"wrapped invalid argument", fmt.Errorf("ctx: %w", ErrTaskIDRequired), http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"persistence", PersistenceFailed("create", nil, "boom"), http.StatusInternalServerError},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestException_With(t *testing.T) {
	err := PersistenceFailed("create", nil, "insert failed").With("driver_code", "2067")

	if err.Metadata["driver_code"] != "2067" {
		t.Errorf("expected metadata to be recorded, got %v", err.Metadata)
	}
}
