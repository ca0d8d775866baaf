package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := NewNotFoundError("Container 'logs' does not exist.")
	wrapped := fmt.Errorf("delete failed: %w", err)

	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, stderrors.Is(wrapped, ErrNotFound))
	assert.False(t, IsAlreadyExists(wrapped))

	exists := NewAlreadyExistsError("Blob logs/a.txt already exists.")
	assert.True(t, IsAlreadyExists(exists))
	assert.False(t, IsNotFound(exists))
}

func TestIsBackendError(t *testing.T) {
	assert.False(t, IsBackendError(nil))
	assert.True(t, IsBackendError(stderrors.New("connection reset")))
	assert.False(t, IsBackendError(NewNotFoundError("x")))
	assert.True(t, IsBackendError(NewAppError(ErrorCodeBackend, "x", http.StatusBadGateway)))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	nf := NewNotFoundError("missing")
	assert.Same(t, nf, FromError(fmt.Errorf("ctx: %w", nf)))

	internal := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrorCodeInternal, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.EqualError(t, internal.Unwrap(), "boom")
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrorCodeNotFound:      http.StatusNotFound,
		ErrorCodeAlreadyExists: http.StatusConflict,
		ErrorCodeValidation:    http.StatusBadRequest,
		ErrorCodeUnauthorized:  http.StatusUnauthorized,
		ErrorCodeUpstream:      http.StatusBadGateway,
		ErrorCode("OTHER"):     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), code)
	}
}

func TestToErrorResponse(t *testing.T) {
	resp := NewAlreadyExistsError("exists").WithDetails(map[string]interface{}{"blob": "a.txt"}).ToErrorResponse()
	assert.Equal(t, ErrorCodeAlreadyExists, resp.Code)
	assert.Equal(t, "exists", resp.Message)
	assert.Equal(t, "a.txt", resp.Details["blob"])
}
