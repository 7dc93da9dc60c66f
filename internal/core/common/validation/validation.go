package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/billable-dashboard/internal"
)

type ValidatorFunc func(interface{}) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Label      string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

// Field registers a value under its wire name; label is used in messages.
func (v *ValidationBuilder) Field(name, label string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Label:      label,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) fail(message string) *errors.AppError {
	return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeValidationFailed)
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return fv.fail(fmt.Sprintf("%s is required", fv.Label))
			}
		case []int64:
			if len(v) == 0 {
				return fv.fail(fmt.Sprintf("Please select at least one %s", strings.ToLower(fv.Label)))
			}
		case nil:
			return fv.fail(fmt.Sprintf("%s is required", fv.Label))
		}
		return nil
	})
	return fv
}

// MinLength counts runes of the trimmed value.
func (fv *FieldValidator) MinLength(min int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if len([]rune(strings.TrimSpace(v))) < min {
				return fv.fail(fmt.Sprintf("%s must be at least %d characters", fv.Label, min))
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) LengthBetween(min, max int) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			n := len([]rune(v))
			if n < min || n > max {
				return fv.fail(fmt.Sprintf("%s must be between %d and %d characters", fv.Label, min, max))
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Matches(pattern *regexp.Regexp, message string) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			if !pattern.MatchString(v) {
				return fv.fail(message)
			}
		}
		return nil
	})
	return fv
}

// PositiveNumber accepts any numeric string greater than zero.
func (fv *FieldValidator) PositiveNumber() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errors.AppError {
		if v, ok := value.(string); ok {
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || n <= 0 {
				return fv.fail(fmt.Sprintf("%s must be a number greater than 0", fv.Label))
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errors.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate runs every field's validators, stopping at the first failure of
// each field.
func (v *ValidationBuilder) Validate() *errors.AppError {
	var validationErrors []errors.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			err := validator(field.Value)
			if err == nil {
				continue
			}
			if details, ok := err.Details.(errors.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
			} else {
				validationErrors = append(validationErrors, errors.ValidationError{
					Field:   field.FieldName,
					Message: err.Message,
					Code:    string(err.Code),
				})
			}
			break
		}
	}

	if len(validationErrors) > 0 {
		return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
			WithDetails(errors.ValidationErrors{Errors: validationErrors})
	}

	return nil
}

// Messages returns field -> first message, empty when everything passed.
func (v *ValidationBuilder) Messages() map[string]string {
	err := v.Validate()
	if err == nil {
		return map[string]string{}
	}
	details, _ := err.Details.(errors.ValidationErrors)
	return details.FieldMessages()
}
