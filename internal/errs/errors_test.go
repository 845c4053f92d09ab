// internal/errs/errors_test.go
package errs

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPredicatesMatchWrappedErrors(t *testing.T) {
	validation := Validation(CodeEmptyCart, "cart is empty")
	conflict := Conflict(CodeInsufficientStock, "not enough units")
	authz := Unauthorized("nope")

	assert.True(t, IsValidation(fmt.Errorf("commit: %w", validation)))
	assert.True(t, IsConflict(fmt.Errorf("group: %w", conflict)))
	assert.True(t, IsAuthorization(fmt.Errorf("handler: %w", authz)))

	assert.False(t, IsValidation(conflict))
	assert.False(t, IsConflict(validation))
	assert.False(t, IsAuthorization(conflict))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeEmptyCart, CodeOf(Validation(CodeEmptyCart, "m")))
	assert.Equal(t, CodePriorityConflict, CodeOf(Conflict(CodePriorityConflict, "m")))
	assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, "", CodeOf(Unauthorized("m")))
}

func TestProviderPending(t *testing.T) {
	pending := &ProviderPendingError{Provider: "MOCK_CARRIER", Attempt: 2, RetryAfter: time.Second}
	wrapped := fmt.Errorf("label: %w", pending)

	extracted, ok := AsProviderPending(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 2, extracted.Attempt)
	assert.Equal(t, time.Second, extracted.RetryAfter)

	_, ok = AsProviderPending(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestProviderFailure(t *testing.T) {
	failure := &ProviderFailure{Provider: "STRIPE", Message: "payout rejected"}
	assert.True(t, IsProviderFailure(fmt.Errorf("release: %w", failure)))
	assert.Contains(t, failure.Error(), "STRIPE")
	assert.False(t, IsProviderFailure(Conflict(CodeNotFound, "m")))
}
