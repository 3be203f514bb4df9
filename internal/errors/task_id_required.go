package errors

import "net/http"

var ErrTaskIDRequired = &Exception{
	Kind:       KindInvalidArgument,
	Message:    "task id is required",
	StatusCode: http.StatusBadRequest,
}
