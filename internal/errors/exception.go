package errors

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	KindInvalidArgument   Kind = "INVALID_ARGUMENT"
	KindPersistenceFailed Kind = "PERSISTENCE_FAILED"
	KindTransactionFailed Kind = "TRANSACTION_FAILED"
	KindNotFound          Kind = "NOT_FOUND"
	KindRateLimited       Kind = "RATE_LIMITED"
)

// Kind sentinels match any Exception of the same kind under errors.Is.
var (
	ErrInvalidArgument   = kindSentinel(KindInvalidArgument, "invalid argument", http.StatusBadRequest)
	ErrPersistenceFailed = kindSentinel(KindPersistenceFailed, "persistence failed", http.StatusInternalServerError)
	ErrTransactionFailed = kindSentinel(KindTransactionFailed, "transaction failed", http.StatusInternalServerError)
)

type Exception struct {
	Kind       Kind
	Message    string
	StatusCode int
	Op         string
	Metadata   map[string]string
	Cause      error

	matchKind bool
}

func kindSentinel(kind Kind, message string, status int) *Exception {
	return &Exception{Kind: kind, Message: message, StatusCode: status, matchKind: true}
}

func (e *Exception) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Exception) Unwrap() error {
	return e.Cause
}

func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return t.matchKind && e.Kind == t.Kind
}

// With returns e with key=value added to its metadata.
func (e *Exception) With(key, value string) *Exception {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

func InvalidArgument(message string) *Exception {
	return &Exception{
		Kind:       KindInvalidArgument,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func PersistenceFailed(op string, cause error, message string) *Exception {
	return &Exception{
		Kind:       KindPersistenceFailed,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Op:         op,
		Cause:      cause,
	}
}

func TransactionFailed(cause error) *Exception {
	return &Exception{
		Kind:       KindTransactionFailed,
		Message:    "transaction failed",
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// StatusCode prefers caller faults found anywhere in the chain, so a missing
// task reported from inside a transaction still maps to 404.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	}

	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of the outermost Exception in err's chain.
func KindOf(err error) Kind {
	var appErr *Exception
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
