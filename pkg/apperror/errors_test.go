package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsKind(t *testing.T) {
	err := NewConnectionError("upload failed", errors.New("dial tcp: timeout"))

	assert.True(t, IsKind(err, KindConnection))
	assert.False(t, IsKind(err, KindAuth))
	assert.True(t, IsConnection(err))
}

func TestIsKind_Wrapped(t *testing.T) {
	err := fmt.Errorf("replay entry 3: %w", NewConnectionError("upload failed", nil))

	assert.True(t, IsConnection(err))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, NewAuthError("expired").HTTPStatus())
	assert.Equal(t, http.StatusUnprocessableEntity, NewValidationError(nil).HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, NewConnectionError("down", nil).HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, NewServerError("oops", "boom").HTTPStatus())
}

func TestGetAppError_Plain(t *testing.T) {
	appErr := GetAppError(errors.New("boom"))

	assert.Equal(t, KindServer, appErr.Kind)
	assert.Equal(t, "boom", appErr.Message)
}
