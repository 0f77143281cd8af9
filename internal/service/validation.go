package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
)

// newValidator reports failing fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into a field-specific ValidationError.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fieldMessage(fe))
	}
	return appErrors.WithDetails(
		appErrors.Clone(appErrors.ErrValidation, strings.Join(messages, "; ")),
		map[string]interface{}{"fields": messages},
	)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// isTyped reports whether err already carries a workflow error kind.
func isTyped(err error) bool {
	var appErr *appErrors.Error
	return errors.As(err, &appErr)
}

// transactionError passes typed errors through and wraps everything else as a
// TransactionFailure.
func transactionError(err error, message string) error {
	if err == nil {
		return nil
	}
	if isTyped(err) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrTransaction.Code, appErrors.ErrTransaction.Status, message)
}
