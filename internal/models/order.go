// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is one (buyer company, seller company, checkout event). A single
// checkout fans out into one Order per seller group.
type Order struct {
	BaseModel
	BuyerCompanyID   uuid.UUID       `json:"buyer_company_id" gorm:"type:uuid;not null;index"`
	SellerCompanyID  uuid.UUID       `json:"seller_company_id" gorm:"type:uuid;not null;index"`
	Currency         string          `json:"currency" gorm:"size:3;not null;default:'USD'"`
	SubtotalAmount   float64         `json:"subtotal_amount" gorm:"type:decimal(12,2);not null"`
	CommissionAmount float64         `json:"commission_amount" gorm:"type:decimal(12,2);not null"`
	ShippingAmount   float64         `json:"shipping_amount" gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount      float64         `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Status           OrderStatus     `json:"status" gorm:"type:varchar(20);default:'INIT';index"`
	ItemsHash        string          `json:"items_hash" gorm:"size:64;not null"`
	SourceType       OrderSourceType `json:"source_type" gorm:"type:varchar(20);default:'CART'"`
	SourceID         *uuid.UUID      `json:"source_id" gorm:"type:uuid"`
	PaidAt           *time.Time      `json:"paid_at"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`

	// Relationships
	BuyerCompany  Company     `json:"buyer_company,omitempty" gorm:"foreignKey:BuyerCompanyID"`
	SellerCompany Company     `json:"seller_company,omitempty" gorm:"foreignKey:SellerCompanyID"`
	Items         []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	Payment       *Payment    `json:"payment,omitempty" gorm:"foreignKey:NetworkOrderID"`
	Shipments     []Shipment  `json:"shipments,omitempty" gorm:"foreignKey:NetworkOrderID"`
}

// OrderItem is immutable once created. Quantity reflects what was reserved
// against the Listing at creation time, independent of later shipment splits.
type OrderItem struct {
	BaseModel
	OrderID          uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	GlobalProductID  uuid.UUID `json:"global_product_id" gorm:"type:uuid;not null;index"`
	ListingID        uuid.UUID `json:"listing_id" gorm:"type:uuid;not null;index"`
	UnitPrice        float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity         int       `json:"quantity" gorm:"not null"`
	LineTotal        float64   `json:"line_total" gorm:"type:decimal(12,2);not null"`
	IsContractPriced bool      `json:"is_contract_priced" gorm:"default:false"`
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusInit:           {OrderStatusPendingPayment, OrderStatusCancelled},
	OrderStatusPendingPayment: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:           {OrderStatusShipped, OrderStatusCancelled, OrderStatusDisputed},
	OrderStatusShipped:        {OrderStatusDelivered, OrderStatusReturned, OrderStatusDisputed},
	OrderStatusDelivered:      {OrderStatusCompleted, OrderStatusReturned, OrderStatusDisputed},
}

// CanTransitionTo validates the order status state machine. Terminal states
// (COMPLETED, CANCELLED, RETURNED, DISPUTED) have no outgoing edges.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}
