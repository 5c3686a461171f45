package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// Envelope is the body of every response: the HTTP status as code, a
// message ("success" on 2xx) and the payload.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ErrorData is the payload of an error envelope.
type ErrorData struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps response bodies in an Envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, err := strconv.Atoi(status)
	if err != nil {
		code = http.StatusOK
	}

	if code < http.StatusBadRequest {
		return Envelope{Code: code, Message: "success", Data: v}, nil
	}

	env := Envelope{Code: code, Message: http.StatusText(code)}
	err, _ = v.(error)
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		env.Message = apiErr.Message
		env.Data = ErrorData{Error: apiErr.Code, Details: apiErr.Details}
	case err != nil:
		env.Message = err.Error()
		env.Data = ErrorData{Error: statusToCode(code)}
	}
	return env, nil
}
