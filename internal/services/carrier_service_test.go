// internal/services/carrier_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	base := 500 * time.Millisecond
	limit := 30 * time.Second

	assert.Equal(t, 500*time.Millisecond, BackoffDelay(1, base, limit))
	assert.Equal(t, 1*time.Second, BackoffDelay(2, base, limit))
	assert.Equal(t, 2*time.Second, BackoffDelay(3, base, limit))
	assert.Equal(t, 16*time.Second, BackoffDelay(6, base, limit))
	assert.Equal(t, limit, BackoffDelay(7, base, limit))
	assert.Equal(t, limit, BackoffDelay(50, base, limit))
}

func TestBackoffDelayClampsAttempt(t *testing.T) {
	base := time.Second
	limit := time.Minute
	assert.Equal(t, base, BackoffDelay(0, base, limit))
	assert.Equal(t, base, BackoffDelay(-3, base, limit))
}

func TestMockCarrierPendingThenSuccess(t *testing.T) {
	client := NewMockCarrierClient()
	client.PendingCalls = 2

	req := CarrierRequest{
		CompanyID:      uuid.New(),
		OrderID:        uuid.New(),
		ActionKey:      "create_label",
		IdempotencyKey: "label-test-1",
	}

	for i := 0; i < 2; i++ {
		resp, err := client.Submit(req)
		require.NoError(t, err)
		assert.Equal(t, CarrierCallPending, resp.Status)
	}

	resp, err := client.Submit(req)
	require.NoError(t, err)
	assert.Equal(t, CarrierCallSuccess, resp.Status)
	assert.NotEmpty(t, resp.Result)
}

func TestMockCarrierTracksKeysIndependently(t *testing.T) {
	client := NewMockCarrierClient()
	client.PendingCalls = 1

	first := CarrierRequest{OrderID: uuid.New(), IdempotencyKey: "key-a"}
	second := CarrierRequest{OrderID: uuid.New(), IdempotencyKey: "key-b"}

	resp, err := client.Submit(first)
	require.NoError(t, err)
	assert.Equal(t, CarrierCallPending, resp.Status)

	// A different key starts its own pending count
	resp, err = client.Submit(second)
	require.NoError(t, err)
	assert.Equal(t, CarrierCallPending, resp.Status)

	resp, err = client.Submit(first)
	require.NoError(t, err)
	assert.Equal(t, CarrierCallSuccess, resp.Status)
}

func TestMockCarrierFailAll(t *testing.T) {
	client := NewMockCarrierClient()
	client.FailAll = true

	resp, err := client.Submit(CarrierRequest{IdempotencyKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, CarrierCallFailed, resp.Status)
	assert.NotEmpty(t, resp.ErrorMessage)
}
