package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/campuscare/triage-service/pkg/util"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct validation and folds violations into a field map
// suitable for the error envelope.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	fields := make(map[string]any, len(violations))
	for _, violation := range violations {
		fields[strings.ToLower(violation.Field())] = violation.Tag()
	}
	return apperrors.NewValidationError("validation failed", fields)
}
