// internal/services/testdb_test.go
package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

// newTestDB opens a private in-memory database and migrates the settlement
// tables.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Listing{},
		&models.Contract{},
		&models.CartLine{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Shipment{},
		&models.CommissionPlan{},
		&models.CommissionRule{},
		&models.LedgerEntry{},
		&models.AuditLog{},
		&models.AdminNotification{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// seedDefaultCommission installs an active global default plan with a single
// DEFAULT rule.
func seedDefaultCommission(t *testing.T, db *gorm.DB, rate, fixedFee, tax float64) {
	t.Helper()

	plan := &models.CommissionPlan{
		Name:      "Global Default",
		Scope:     models.PlanScopeGlobal,
		IsDefault: true,
		Active:    true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("seed commission plan: %v", err)
	}
	rule := &models.CommissionRule{
		PlanID:         plan.ID,
		MatchType:      models.RuleMatchDefault,
		RatePercentage: rate,
		FixedFee:       fixedFee,
		TaxPercentage:  tax,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("seed commission rule: %v", err)
	}
}

// paidOrderFixture is one PAID escrow order with a single item and the
// checkout-created remainder shipment, ready for fulfillment tests.
type paidOrderFixture struct {
	BuyerCompanyID  uuid.UUID
	SellerCompanyID uuid.UUID
	Order           *models.Order
	Item            *models.OrderItem
	Payment         *models.Payment
	Remainder       *models.Shipment
}

func seedPaidOrder(t *testing.T, db *gorm.DB, quantity int) *paidOrderFixture {
	t.Helper()

	order := &models.Order{
		BuyerCompanyID:   uuid.New(),
		SellerCompanyID:  uuid.New(),
		Currency:         "USD",
		SubtotalAmount:   40,
		CommissionAmount: 2,
		TotalAmount:      42,
		Status:           models.OrderStatusPaid,
		ItemsHash:        "fixture",
		SourceType:       models.OrderSourceCart,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	item := &models.OrderItem{
		OrderID:         order.ID,
		GlobalProductID: uuid.New(),
		ListingID:       uuid.New(),
		UnitPrice:       10,
		Quantity:        quantity,
		LineTotal:       40,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("seed order item: %v", err)
	}

	pending := models.PayoutStatusPending
	payment := &models.Payment{
		NetworkOrderID: order.ID,
		Provider:       "MOCK",
		Mode:           models.PaymentModeEscrow,
		Status:         models.PaymentStatusPaid,
		PayoutStatus:   &pending,
		Amount:         order.TotalAmount,
		Currency:       "USD",
		CheckoutKey:    "fixture-" + order.ID.String(),
		AttemptKey:     "fixture-" + order.ID.String() + "-" + order.SellerCompanyID.String(),
		HoldDays:       7,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("seed payment: %v", err)
	}

	remainder := &models.Shipment{
		NetworkOrderID:   order.ID,
		Sequence:         1,
		Mode:             "STANDARD",
		CarrierCode:      "UNASSIGNED",
		Status:           models.ShipmentStatusCreated,
		DeliveryNoteUUID: uuid.New(),
		Items: models.ShipmentItems{
			{OrderItemID: item.ID, ProductID: item.GlobalProductID, Quantity: quantity},
		},
	}
	if err := db.Create(remainder).Error; err != nil {
		t.Fatalf("seed remainder shipment: %v", err)
	}

	return &paidOrderFixture{
		BuyerCompanyID:  order.BuyerCompanyID,
		SellerCompanyID: order.SellerCompanyID,
		Order:           order,
		Item:            item,
		Payment:         payment,
		Remainder:       remainder,
	}
}
