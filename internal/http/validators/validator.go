package validators

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/labstack/echo/v4"

	"task-tracker.com/task-tracker/internal/constants"
	apperrors "task-tracker.com/task-tracker/internal/errors"
)

// RequestValidator plugs go-playground/validator into echo.Context.Validate.
type RequestValidator struct {
	validate *validator.Validate
}

var _ echo.Validator = (*RequestValidator)(nil)

func New() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
		_, err := constants.ParseTaskStatus(fl.Field().String())
		return err == nil
	})

	return &RequestValidator{validate: v}
}

func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.InvalidArgument(err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, fieldMessage(fe))
	}

	ex := apperrors.InvalidArgument(strings.Join(messages, "; "))
	for _, fe := range validationErrors {
		ex.With(strings.ToLower(fe.Field()), fe.Tag())
	}
	return ex
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s long", field, fe.Param())
	case "taskstatus":
		return fmt.Sprintf("%s must be one of %s", field, statusNames())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func statusNames() string {
	names := make([]string, 0, len(constants.TaskStatuses()))
	for _, s := range constants.TaskStatuses() {
		names = append(names, s.String())
	}
	return strings.Join(names, ", ")
}
