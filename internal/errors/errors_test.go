package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := ModeMismatchf("cannot migrate %s", "to-normal")

	assert.True(t, Is(err, ErrModeMismatch))
	assert.False(t, Is(err, ErrNotFound))

	wrapped := fmt.Errorf("migrate: %w", err)
	assert.True(t, Is(wrapped, ErrModeMismatch))
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := New("dial tcp: connection refused")
	err := Wrap(cause, CodeRemoteUnavailable, "export failed")

	assert.Equal(t, "export failed: dial tcp: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus())
}

type rejection struct{}

func (rejection) Error() string        { return "rejected" }
func (rejection) Is(target error) bool { return target == ErrRemoteRejected }

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeRemoteUnavailable, CodeOf(fmt.Errorf("post: %w", Wrap(New("timeout"), CodeRemoteUnavailable, "POST posts"))))
	assert.Equal(t, CodeRemoteRejected, CodeOf(fmt.Errorf("post: %w", rejection{})))
	assert.Equal(t, Code(""), CodeOf(New("plain")))
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeModeMismatch, http.StatusConflict},
		{CodeRemoteRejected, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_WithDetails(t *testing.T) {
	err := ValidationWithDetails("validation failed", map[string]string{"email": "is required"})
	copyErr := err.WithDetails(map[string]string{"username": "is required"})

	assert.Equal(t, map[string]string{"email": "is required"}, err.Details)
	assert.Equal(t, map[string]string{"username": "is required"}, copyErr.Details)
	assert.Equal(t, err.Code, copyErr.Code)
}
