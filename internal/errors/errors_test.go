package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_WrapsInternal(t *testing.T) {
	cause := errors.New("db down")
	err := Internal(cause)

	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "Internal server error: db down", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Bloc not found", NotFound("Bloc not found", nil).Error())
}

func TestNewValidationError(t *testing.T) {
	type body struct {
		Content string `validate:"required"`
		PageID  string `validate:"max=3"`
	}
	err := validator.New().Struct(body{PageID: "toolong"})
	require.Error(t, err)

	apiErr := NewValidationError(err)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "is required", apiErr.Fields["content"])
	assert.Equal(t, "must be at most 3", apiErr.Fields["pageid"])
}

func TestNewValidationError_NotAValidationError(t *testing.T) {
	apiErr := NewValidationError(errors.New("unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Empty(t, apiErr.Fields)
}
