package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorCarriesParameter(t *testing.T) {
	err := NewValidationError("limit", "must be between 1 and 100")
	assert.Equal(t, Validation, err.Code)
	assert.Equal(t, "limit", err.Details["parameter"])
	assert.Contains(t, err.Error(), "VALIDATION")
}

func TestIsUnwrapsWrappedCauses(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewTransientError("write failed", cause)
	require.True(t, Is(err, Transient))
	require.False(t, Is(err, NotFound))
	assert.Equal(t, cause, err.Unwrap())
}

func TestWithDetailsMerges(t *testing.T) {
	err := NewConflictError("uq_repository_full_name", "repository already exists")
	withDetails := err.WithDetails(map[string]interface{}{"full_name": "local/foo"})
	assert.Equal(t, "uq_repository_full_name", withDetails.Details["constraint"])
	assert.Equal(t, "local/foo", withDetails.Details["full_name"])
	assert.Equal(t, "uq_repository_full_name", err.Details["constraint"])
	_, leaked := err.Details["full_name"]
	assert.False(t, leaked)
}
