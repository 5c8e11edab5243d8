package core

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"rallypoint/internal/types"
)

// Validator wraps go-playground/validator for request payload validation.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with struct tag validation enabled.
func NewValidator(logger *slog.Logger) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ValidateStruct validates a request payload against its struct tags,
// translating validation failures into a single AppError carrying the
// offending fields in Details.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"request validation failed unexpectedly",
			err,
		)
	}

	fields := make(map[string]any, len(validationErrs))
	for _, fe := range validationErrs {
		fields[strings.ToLower(fe.Field())] = fe.Tag()
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMissingField,
		"request failed validation",
		err,
		fields,
	)
}
