// internal/models/payment.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment is the escrow record, one per Order. CheckoutKey is the client's
// idempotency key verbatim and is the replay lookup; AttemptKey appends the
// seller company so each group's insert is uniquely guarded. A concurrent
// duplicate insert loses the race and resolves to the prior success.
type Payment struct {
	BaseModel
	NetworkOrderID uuid.UUID     `json:"network_order_id" gorm:"type:uuid;not null;uniqueIndex"`
	Provider       string        `json:"provider" gorm:"size:50;not null"`
	Mode           PaymentMode   `json:"mode" gorm:"type:varchar(10);not null;default:'ESCROW'"`
	Status         PaymentStatus `json:"status" gorm:"type:varchar(20);default:'INITIATED';index"`
	PayoutStatus   *PayoutStatus `json:"payout_status" gorm:"type:varchar(20);index"`
	Amount         float64       `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency       string        `json:"currency" gorm:"size:3;not null;default:'USD'"`
	CheckoutKey    string        `json:"checkout_key" gorm:"size:128;not null;index"`
	AttemptKey     string        `json:"attempt_key" gorm:"size:255;not null;uniqueIndex"`
	HoldDays       int           `json:"hold_days" gorm:"not null;default:7"`
	FailureReason  string        `json:"failure_reason,omitempty" gorm:"type:text"`
	PaidAt         *time.Time    `json:"paid_at"`
	ReleasedAt     *time.Time    `json:"released_at"`
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusInitiated: {PaymentStatusPaid, PaymentStatusFailed},
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

var payoutTransitions = map[PayoutStatus][]PayoutStatus{
	PayoutStatusPending: {PayoutStatusReleased, PayoutStatusFailed},
	// FAILED→RELEASED is the force-release recovery edge.
	PayoutStatusFailed: {PayoutStatusReleased},
}

func (s PayoutStatus) CanTransitionTo(target PayoutStatus) bool {
	for _, next := range payoutTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// LedgerEntry records an immutable money lifecycle event tied to an order.
// Release posts COMMISSION_CAPTURED (platform) and SELLER_RELEASED (subtotal
// minus commission) in the same transaction that flips payout status.
type LedgerEntry struct {
	BaseModel
	OrderID         uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_ledger_order_type"`
	BuyerCompanyID  uuid.UUID       `json:"buyer_company_id" gorm:"type:uuid;not null;index"`
	SellerCompanyID uuid.UUID       `json:"seller_company_id" gorm:"type:uuid;not null;index"`
	ActorUserID     *uuid.UUID      `json:"actor_user_id" gorm:"type:uuid"`
	EntryType       LedgerEntryType `json:"entry_type" gorm:"type:varchar(30);not null;uniqueIndex:idx_ledger_order_type"`
	Amount          float64         `json:"amount" gorm:"type:decimal(12,2);not null"`
	Currency        string          `json:"currency" gorm:"size:3;not null;default:'USD'"`
	Metadata        JSONB           `json:"metadata,omitempty" gorm:"type:jsonb"`
}
