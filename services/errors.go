package services

import (
	"errors"
	"net/http"

	apperrors "marketplace-service/common/errors"
	"marketplace-service/repository"
)

// ServiceError represents a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func badRequest(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: msg}
}

func notFound(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: msg}
}

func forbidden(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusForbidden, Message: msg}
}

func conflict(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusConflict, Message: msg}
}

func serviceUnavailable(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: msg}
}

// internalError hides the cause; callers log it before returning.
func internalError() *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: apperrors.ErrInternal.Message}
}

// fromAppError maps a common/errors value onto a ServiceError.
func fromAppError(err error) *ServiceError {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return &ServiceError{StatusCode: appErr.Code, Message: appErr.Message}
	}
	if repository.IsNotFound(err) {
		return notFound(apperrors.ErrNotFound.Message)
	}
	return internalError()
}
