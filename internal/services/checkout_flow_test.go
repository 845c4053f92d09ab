// internal/services/checkout_flow_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/metrics"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

func newCheckoutService(db *gorm.DB) *CheckoutService {
	return NewCheckoutService(db, &StaticTrustProvider{}, NewMockPaymentProvider(),
		NewNotificationService(db), metrics.NewSettlementMetrics(), "USD")
}

func seedListing(t *testing.T, db *gorm.DB, seller, product uuid.UUID, price float64, qty, minQty int) *models.Listing {
	t.Helper()
	listing := &models.Listing{
		SellerCompanyID: seller,
		ProductID:       product,
		Price:           price,
		Currency:        "USD",
		AvailableQty:    qty,
		MinQty:          minQty,
		Category:        "industrial",
		Status:          models.ListingStatusActive,
	}
	require.NoError(t, db.Create(listing).Error)
	return listing
}

func addCartLine(t *testing.T, db *gorm.DB, buyer, product, seller uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CartLine{
		BuyerCompanyID:  buyer,
		ProductID:       product,
		SellerCompanyID: seller,
		Quantity:        qty,
	}).Error)
}

func TestCommitIsIdempotentPerAttemptKey(t *testing.T) {
	db := newTestDB(t)
	seedDefaultCommission(t, db, 5, 0, 0)
	svc := newCheckoutService(db)

	buyer := uuid.New()
	seller1, seller2 := uuid.New(), uuid.New()
	product1, product2 := uuid.New(), uuid.New()
	listing1 := seedListing(t, db, seller1, product1, 10, 10, 1)
	listing2 := seedListing(t, db, seller2, product2, 20, 5, 1)
	addCartLine(t, db, buyer, product1, seller1, 4)
	addCartLine(t, db, buyer, product2, seller2, 2)

	first, err := svc.Commit(buyer, uuid.New(), "attempt-key-00000001")
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	require.Len(t, first.Groups, 2)

	firstOrders := make(map[uuid.UUID]uuid.UUID)
	for _, group := range first.Groups {
		require.NotNil(t, group.Order, "group %s should commit", group.SellerCompanyID)
		assert.Equal(t, models.OrderStatusPendingPayment, group.Order.Status)
		assert.Equal(t, 40.0, group.Order.SubtotalAmount)
		assert.Equal(t, 2.0, group.Order.CommissionAmount)
		assert.Equal(t, 42.0, group.Order.TotalAmount)
		firstOrders[group.SellerCompanyID] = group.Order.ID
	}

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, listing1.ID).Error)
	assert.Equal(t, 6, reloaded.AvailableQty)
	reloaded = models.Listing{}
	require.NoError(t, db.First(&reloaded, listing2.ID).Error)
	assert.Equal(t, 3, reloaded.AvailableQty)

	var cartCount int64
	db.Model(&models.CartLine{}).Where("buyer_company_id = ?", buyer).Count(&cartCount)
	assert.Zero(t, cartCount, "committed groups clear their cart lines")

	second, err := svc.Commit(buyer, uuid.New(), "attempt-key-00000001")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	require.Len(t, second.Groups, 2)
	for _, group := range second.Groups {
		require.NotNil(t, group.Order)
		assert.Equal(t, firstOrders[group.SellerCompanyID], group.Order.ID,
			"a replay returns the orders created the first time")
	}

	reloaded = models.Listing{}
	require.NoError(t, db.First(&reloaded, listing1.ID).Error)
	assert.Equal(t, 6, reloaded.AvailableQty, "a replay never touches stock")
}

func TestCommitKeysThatExtendEachOtherStayDistinct(t *testing.T) {
	db := newTestDB(t)
	seedDefaultCommission(t, db, 5, 0, 0)
	svc := newCheckoutService(db)

	buyer := uuid.New()
	seller := uuid.New()
	product := uuid.New()
	seedListing(t, db, seller, product, 10, 20, 1)

	addCartLine(t, db, buyer, product, seller, 2)
	first, err := svc.Commit(buyer, uuid.New(), "order-12345-x")
	require.NoError(t, err)
	require.Len(t, first.Groups, 1)
	require.NotNil(t, first.Groups[0].Order)

	// "order-12345" is a prefix of the stored key but a different checkout.
	addCartLine(t, db, buyer, product, seller, 3)
	second, err := svc.Commit(buyer, uuid.New(), "order-12345")
	require.NoError(t, err)
	assert.False(t, second.Replayed)
	require.Len(t, second.Groups, 1)
	require.NotNil(t, second.Groups[0].Order)
	assert.NotEqual(t, first.Groups[0].Order.ID, second.Groups[0].Order.ID)
}

func TestCommitGroupsFailIndependently(t *testing.T) {
	db := newTestDB(t)
	seedDefaultCommission(t, db, 5, 0, 0)
	svc := newCheckoutService(db)

	buyer := uuid.New()
	healthySeller, starvedSeller := uuid.New(), uuid.New()
	product1, product2 := uuid.New(), uuid.New()
	seedListing(t, db, healthySeller, product1, 10, 10, 1)
	starved := seedListing(t, db, starvedSeller, product2, 15, 3, 1)
	addCartLine(t, db, buyer, product1, healthySeller, 4)
	addCartLine(t, db, buyer, product2, starvedSeller, 5)

	result, err := svc.Commit(buyer, uuid.New(), "attempt-key-00000002")
	require.NoError(t, err)
	require.Len(t, result.Groups, 2)

	for _, group := range result.Groups {
		switch group.SellerCompanyID {
		case healthySeller:
			require.NotNil(t, group.Order)
		case starvedSeller:
			assert.Nil(t, group.Order)
			assert.Equal(t, errs.CodeInsufficientStock, group.ErrorCode)
		default:
			t.Fatalf("unexpected seller group %s", group.SellerCompanyID)
		}
	}

	var reloaded models.Listing
	require.NoError(t, db.First(&reloaded, starved.ID).Error)
	assert.Equal(t, 3, reloaded.AvailableQty, "a failed group rolls its decrement back")

	var kept int64
	db.Model(&models.CartLine{}).
		Where("buyer_company_id = ? AND seller_company_id = ?", buyer, starvedSeller).
		Count(&kept)
	assert.Equal(t, int64(1), kept, "a failed group keeps its cart lines for a retry")
}

func TestCommitRejectsBelowListingMinimum(t *testing.T) {
	db := newTestDB(t)
	seedDefaultCommission(t, db, 5, 0, 0)
	svc := newCheckoutService(db)

	buyer := uuid.New()
	seller := uuid.New()
	product := uuid.New()
	seedListing(t, db, seller, product, 10, 10, 5)
	addCartLine(t, db, buyer, product, seller, 2)

	result, err := svc.Commit(buyer, uuid.New(), "attempt-key-00000003")
	require.NoError(t, err)
	require.Len(t, result.Groups, 1)
	assert.Nil(t, result.Groups[0].Order)
	assert.Equal(t, errs.CodeBelowMinQty, result.Groups[0].ErrorCode)
}
