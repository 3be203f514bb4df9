package errors

import "net/http"

var ErrInvalidJSON = &Exception{
	Kind:       KindInvalidArgument,
	Message:    "invalid JSON payload",
	StatusCode: http.StatusBadRequest,
}
