// internal/services/escrow_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

func TestMockPaymentProvider(t *testing.T) {
	provider := NewMockPaymentProvider()
	assert.Equal(t, "MOCK", provider.Name())

	orderID := uuid.New()
	reference, err := provider.CreateIntent(orderID, 210.0, "USD")
	require.NoError(t, err)
	assert.Contains(t, reference, orderID.String())
	assert.Equal(t, 1, provider.Intents)

	payment := &models.Payment{NetworkOrderID: orderID, Amount: 210.0, Currency: "USD"}
	payment.ID = uuid.New()
	payoutRef, err := provider.ReleasePayout(payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payoutRef)
	assert.Equal(t, 1, provider.Releases)
}

func TestMockPaymentProviderFailRelease(t *testing.T) {
	provider := NewMockPaymentProvider()
	provider.FailRelease = true

	payment := &models.Payment{NetworkOrderID: uuid.New(), Amount: 50}
	payment.ID = uuid.New()
	_, err := provider.ReleasePayout(payment)
	assert.Error(t, err)
	assert.Equal(t, 1, provider.Releases, "the attempt is counted even when it fails")
}

func TestReleaseSplitsSubtotalAndCommission(t *testing.T) {
	// SELLER_RELEASED + COMMISSION_CAPTURED must reconstruct the subtotal
	subtotal := 200.0
	commission := 13.75

	sellerAmount := round2(subtotal - commission)
	assert.Equal(t, 186.25, sellerAmount)
	assert.Equal(t, subtotal, round2(sellerAmount+commission))
}
