package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	apperrors "task-tracker.com/task-tracker/internal/errors"
	middleware "task-tracker.com/task-tracker/internal/http/middlewares"
	"task-tracker.com/task-tracker/internal/http/validators"
)

func Register(e *echo.Echo, h *Handler, limiter middleware.Limiter, log zerolog.Logger) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validators.New()
	e.HTTPErrorHandler = ErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(middleware.RateLimiter(limiter, log))

	e.POST("/tasks", h.CreateTask)
	e.POST("/tasks/batch", h.CreateTasks)
	e.GET("/tasks", h.ListTasks)
	e.GET("/tasks/:id", h.GetTask)
	e.PUT("/tasks/:id", h.UpdateTask)
	e.DELETE("/tasks/:id", h.DeleteTask)
}

type errorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// ErrorHandler renders application errors as JSON. Server side failures get a
// generic message; their cause is already in the log.
func ErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := apperrors.StatusCode(err)
		resp := errorResponse{
			Code:      string(apperrors.KindOf(err)),
			Message:   http.StatusText(status),
			RequestID: middleware.GetRequestID(c),
		}

		var httpErr *echo.HTTPError
		var appErr *apperrors.Exception
		switch {
		case errors.As(err, &httpErr):
			status = httpErr.Code
			resp.Code = "HTTP_ERROR"
			resp.Message = http.StatusText(status)
			if msg, ok := httpErr.Message.(string); ok {
				resp.Message = msg
			}
		case status < http.StatusInternalServerError && errors.As(err, &appErr):
			caller := callerFault(err)
			resp.Code = string(caller.Kind)
			resp.Message = caller.Message
			resp.Details = caller.Metadata
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, resp)
		}
		if writeErr != nil {
			log.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

// callerFault digs out the innermost client-facing Exception, so a not found
// raised inside a transaction is reported as such.
func callerFault(err error) *apperrors.Exception {
	var found *apperrors.Exception
	for cur := err; cur != nil; cur = errors.Unwrap(cur) {
		if ex, ok := cur.(*apperrors.Exception); ok && ex.StatusCode < http.StatusInternalServerError {
			found = ex
		}
	}
	if found == nil {
		errors.As(err, &found)
	}
	return found
}
