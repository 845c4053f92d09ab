// internal/services/checkout_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

func TestGroupBySellerPartitionsCart(t *testing.T) {
	sellerA := uuid.New()
	sellerB := uuid.New()
	lines := []models.CartLine{
		{ProductID: uuid.New(), SellerCompanyID: sellerA, Quantity: 2},
		{ProductID: uuid.New(), SellerCompanyID: sellerB, Quantity: 1},
		{ProductID: uuid.New(), SellerCompanyID: sellerA, Quantity: 5},
	}

	groups := groupBySeller(lines)
	require.Len(t, groups, 2, "two sellers means two groups")

	total := 0
	for _, group := range groups {
		for _, line := range group.Lines {
			assert.Equal(t, group.SellerCompanyID, line.SellerCompanyID)
			total++
		}
	}
	assert.Equal(t, 3, total, "every line lands in exactly one group")
}

func TestGroupBySellerIsDeterministic(t *testing.T) {
	lines := []models.CartLine{
		{ProductID: uuid.New(), SellerCompanyID: uuid.New()},
		{ProductID: uuid.New(), SellerCompanyID: uuid.New()},
		{ProductID: uuid.New(), SellerCompanyID: uuid.New()},
	}

	first := groupBySeller(lines)
	for i := 0; i < 20; i++ {
		again := groupBySeller(lines)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].SellerCompanyID, again[j].SellerCompanyID)
		}
	}

	// Sorted ascending by seller ID
	for j := 1; j < len(first); j++ {
		assert.Less(t, first[j-1].SellerCompanyID.String(), first[j].SellerCompanyID.String())
	}
}

func TestGroupAttemptKeyIsPerSeller(t *testing.T) {
	sellerA := uuid.New()
	sellerB := uuid.New()

	keyA := groupAttemptKey("checkout-2024-001", sellerA)
	keyB := groupAttemptKey("checkout-2024-001", sellerB)

	assert.NotEqual(t, keyA, keyB)
	assert.Contains(t, keyA, "checkout-2024-001-")
	assert.Equal(t, keyA, groupAttemptKey("checkout-2024-001", sellerA), "stable across replays")
}

func TestOrderTotalsReconcile(t *testing.T) {
	// cart: product A, seller S1, qty 2 @ 100; product B, seller S2, qty 1 @ 50
	s1Subtotal := round2(100 * 2.0)
	s2Subtotal := round2(50 * 1.0)
	assert.Equal(t, 200.0, s1Subtotal)
	assert.Equal(t, 50.0, s2Subtotal)

	r := models.CommissionRule{RatePercentage: 5.0}
	s1Commission := Calculate(&r, s1Subtotal).Total
	s2Commission := Calculate(&r, s2Subtotal).Total

	var shipping float64 // no rate shopping, always zero
	s1Total := round2(s1Subtotal + shipping + s1Commission)
	s2Total := round2(s2Subtotal + shipping + s2Commission)

	assert.Equal(t, 210.0, s1Total)
	assert.Equal(t, 52.5, s2Total)

	// Seller earnings are subtotal minus commission
	assert.Equal(t, 190.0, round2(s1Subtotal-s1Commission))
	assert.Equal(t, 47.5, round2(s2Subtotal-s2Commission))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.1, round2(0.10000000001))
	assert.Equal(t, 13.75, round2(13.745000001))
	assert.Equal(t, -2.5, round2(-2.5004))
}
