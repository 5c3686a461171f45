package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/store"
)

// APIError implements huma.StatusError. It maps domain and store errors to
// HTTP responses with a consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := fromError(err); apiErr != nil {
				return apiErr
			}
		}

		var details []string
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}
		e := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(details) > 0 {
			e.Details = details
		}
		return e
	}
}

// fromError converts known error types. It returns nil for anything else.
func fromError(err error) *APIError {
	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		code := statusToCode(storeErr.HTTPCode())
		if errors.Is(err, store.ErrAlreadyExists) {
			code = string(apperr.CodeAlreadyExists)
		}
		return &APIError{
			status:  storeErr.HTTPCode(),
			Code:    code,
			Message: storeErr.Error(),
		}
	}
	return nil
}

// toHTTPError is used by handlers to return any error through huma.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}
	if apiErr := fromError(err); apiErr != nil {
		return apiErr
	}
	return huma.Error500InternalServerError("internal error", err)
}

// statusToCode maps HTTP status codes to domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(apperr.CodeValidation)
	case http.StatusNotFound:
		return string(apperr.CodeNotFound)
	case http.StatusConflict:
		return string(apperr.CodeConflict)
	case http.StatusInternalServerError:
		return string(apperr.CodeInternal)
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
	}
	return "STATUS_" + strconv.Itoa(status)
}
