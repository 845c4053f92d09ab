// internal/services/escrow_flow_test.go
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

func newEscrowService(db *gorm.DB, provider PaymentProvider) *EscrowService {
	return NewEscrowService(db, provider, NewNotificationService(db), metrics.NewSettlementMetrics())
}

func deliverAll(t *testing.T, db *gorm.DB, orderID uuid.UUID) {
	t.Helper()
	svc := newShipmentService(db)

	var shipments []models.Shipment
	require.NoError(t, db.Where("network_order_id = ?", orderID).Find(&shipments).Error)
	for _, shipment := range shipments {
		advance(t, svc, shipment.ID, models.ShipmentStatusInTransit)
		advance(t, svc, shipment.ID, models.ShipmentStatusDelivered)
	}
}

func TestForceReleaseRecoversOnlyFailedPayouts(t *testing.T) {
	db := newTestDB(t)
	fixture := seedPaidOrder(t, db, 4)
	provider := NewMockPaymentProvider()
	escrow := newEscrowService(db, provider)
	admin := &models.Session{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleAdmin}

	deliverAll(t, db, fixture.Order.ID)

	// A healthy PENDING payout is not force-releasable; the normal
	// confirmation path owns it.
	_, err := escrow.ForceRelease(fixture.Order.ID, admin, fixture.Order.ID.String(), "ops ticket 4711")
	require.Error(t, err)
	assert.Equal(t, errs.CodeIllegalTransition, errs.CodeOf(err))

	// A provider failure during the normal release leaves the payout FAILED
	// and posts nothing to the ledger.
	provider.FailRelease = true
	_, err = escrow.Release(fixture.Order.ID, &admin.UserID)
	require.Error(t, err)
	assert.True(t, errs.IsProviderFailure(err))

	var payment models.Payment
	require.NoError(t, db.Where("network_order_id = ?", fixture.Order.ID).First(&payment).Error)
	require.NotNil(t, payment.PayoutStatus)
	assert.Equal(t, models.PayoutStatusFailed, *payment.PayoutStatus)
	var entryCount int64
	db.Model(&models.LedgerEntry{}).Where("order_id = ?", fixture.Order.ID).Count(&entryCount)
	assert.Zero(t, entryCount)

	// Recovery demands a reason and a typed confirmation.
	provider.FailRelease = false
	_, err = escrow.ForceRelease(fixture.Order.ID, admin, fixture.Order.ID.String(), "")
	require.Error(t, err)
	assert.Equal(t, errs.CodeMissingReason, errs.CodeOf(err))

	_, err = escrow.ForceRelease(fixture.Order.ID, admin, "wrong", "ops ticket 4711")
	require.Error(t, err)
	assert.Equal(t, errs.CodeConfirmationMismatch, errs.CodeOf(err))

	released, err := escrow.ForceRelease(fixture.Order.ID, admin, fixture.Order.ID.String(), "ops ticket 4711")
	require.NoError(t, err)
	require.NotNil(t, released.PayoutStatus)
	assert.Equal(t, models.PayoutStatusReleased, *released.PayoutStatus)
	assert.NotNil(t, released.ReleasedAt)

	db.Model(&models.LedgerEntry{}).Where("order_id = ?", fixture.Order.ID).Count(&entryCount)
	assert.Equal(t, int64(2), entryCount)

	var audit models.AuditLog
	require.NoError(t, db.Where("action = ?", "escrow.force_release").First(&audit).Error)
	require.NotNil(t, audit.ResourceID)
	assert.Equal(t, fixture.Order.ID, *audit.ResourceID)
	assert.Equal(t, "ops ticket 4711", audit.Reason)
}

func TestForceReleaseKeepsDeliveryPredicate(t *testing.T) {
	db := newTestDB(t)
	fixture := seedPaidOrder(t, db, 4)
	escrow := newEscrowService(db, NewMockPaymentProvider())
	admin := &models.Session{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleAdmin}

	failed := models.PayoutStatusFailed
	require.NoError(t, db.Model(fixture.Payment).Update("payout_status", failed).Error)

	// Goods still in motion: even a FAILED payout cannot be forced out.
	_, err := escrow.ForceRelease(fixture.Order.ID, admin, fixture.Order.ID.String(), "ops ticket 4712")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotAllDelivered, errs.CodeOf(err))
}

func TestPaymentCallbackFailureRestocksAndIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	escrow := newEscrowService(db, NewMockPaymentProvider())

	seller := uuid.New()
	product := uuid.New()
	listing := seedListing(t, db, seller, product, 10, 6, 1)

	order := &models.Order{
		BuyerCompanyID:   uuid.New(),
		SellerCompanyID:  seller,
		Currency:         "USD",
		SubtotalAmount:   40,
		CommissionAmount: 2,
		TotalAmount:      42,
		Status:           models.OrderStatusPendingPayment,
		ItemsHash:        "fixture",
		SourceType:       models.OrderSourceCart,
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(&models.OrderItem{
		OrderID:         order.ID,
		GlobalProductID: product,
		ListingID:       listing.ID,
		UnitPrice:       10,
		Quantity:        4,
		LineTotal:       40,
	}).Error)
	require.NoError(t, db.Create(&models.Payment{
		NetworkOrderID: order.ID,
		Provider:       "MOCK",
		Mode:           models.PaymentModeEscrow,
		Status:         models.PaymentStatusInitiated,
		Amount:         42,
		Currency:       "USD",
		CheckoutKey:    "cb-fixture-" + order.ID.String(),
		AttemptKey:     "cb-fixture-" + order.ID.String() + "-" + seller.String(),
		HoldDays:       7,
	}).Error)

	payment, err := escrow.HandlePaymentCallback(order.ID, false, "", "card_declined")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	var reloadedOrder models.Order
	require.NoError(t, db.First(&reloadedOrder, order.ID).Error)
	assert.Equal(t, models.OrderStatusCancelled, reloadedOrder.Status)

	var reloadedListing models.Listing
	require.NoError(t, db.First(&reloadedListing, listing.ID).Error)
	assert.Equal(t, 10, reloadedListing.AvailableQty, "reserved units return on failure")

	// The provider retries callbacks; a duplicate failure is a no-op.
	payment, err = escrow.HandlePaymentCallback(order.ID, false, "", "card_declined")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)
	require.NoError(t, db.First(&reloadedListing, listing.ID).Error)
	assert.Equal(t, 10, reloadedListing.AvailableQty, "stock is returned exactly once")
}

func TestPaymentCallbackSuccessIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	escrow := newEscrowService(db, NewMockPaymentProvider())
	fixture := seedPaidOrder(t, db, 4)

	// Rewind the fixture to the moment before the provider answered.
	require.NoError(t, db.Model(fixture.Order).Update("status", models.OrderStatusPendingPayment).Error)
	require.NoError(t, db.Model(fixture.Payment).Updates(map[string]interface{}{
		"status":        models.PaymentStatusInitiated,
		"payout_status": nil,
	}).Error)

	payment, err := escrow.HandlePaymentCallback(fixture.Order.ID, true, "pi_123", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)

	payment, err = escrow.HandlePaymentCallback(fixture.Order.ID, true, "pi_123", "")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, payment.Status)

	var entryCount int64
	db.Model(&models.LedgerEntry{}).
		Where("order_id = ? AND entry_type = ?", fixture.Order.ID, models.LedgerEntryEscrowHeld).
		Count(&entryCount)
	assert.Equal(t, int64(1), entryCount, "ESCROW_HELD posts once")
}
