package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrConstraintViolation,
		ErrAssetGeneration, ErrInsufficientCandidates,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	appErr := &AppError{Code: "CONSTRAINT_VIOLATION", Message: "brand violates slug", Err: inner}
	assert.Contains(t, appErr.Error(), "CONSTRAINT_VIOLATION")
	assert.Contains(t, appErr.Error(), "brand violates slug")
	assert.Contains(t, appErr.Error(), "db connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "region not found"}
	assert.Equal(t, "NOT_FOUND: region not found", appErr.Error())
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("country", "LT")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Contains(t, err.Message, "LT")
	assert.True(t, IsNotFound(err))
}

func TestConstraintViolation(t *testing.T) {
	cause := errors.New("SQLSTATE 23503")
	err := ConstraintViolation("product", "products_brand_id_fkey", cause)

	assert.Equal(t, "CONSTRAINT_VIOLATION", err.Code)
	assert.Contains(t, err.Message, "products_brand_id_fkey")
	assert.Contains(t, err.Message, "23503")
	assert.True(t, IsConstraintViolation(err))
	assert.True(t, IsConstraintViolation(fmt.Errorf("attach: %w", err)))
	assert.False(t, IsNotFound(err))
}

func TestAssetGenerationFailure(t *testing.T) {
	err := AssetGenerationFailure("pool_image_007.png", errors.New("timeout"))
	assert.ErrorIs(t, err, ErrAssetGeneration)
	assert.Contains(t, err.Error(), "pool_image_007.png")
	assert.Contains(t, err.Error(), "timeout")
}

func TestInsufficientCandidates(t *testing.T) {
	err := InsufficientCandidates("product_categories", 2, 3)
	assert.ErrorIs(t, err, ErrInsufficientCandidates)
	assert.Equal(t, "product_categories has 2 candidates, minimum is 3", err.Message)
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("unknown field \"colour\"")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "INVALID_INPUT", Code(err))
}

func TestCode_Unknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Code(errors.New("plain")))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load region")
	assert.Equal(t, "load region: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
