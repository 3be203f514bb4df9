package errors

import "net/http"

var ErrTaskNotFound = &Exception{
	Kind:       KindNotFound,
	Message:    "task not found",
	StatusCode: http.StatusNotFound,
	matchKind:  true,
}
