// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Enums
type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "ACTIVE"
	CompanyStatusSuspended CompanyStatus = "SUSPENDED"
)

// Marketplace permissions carried in session claims and mirrored on Company.
const (
	PermissionNetworkBuy  = "network_buy"
	PermissionNetworkSell = "network_sell"
)

type TrustTier string

const (
	TrustTierA TrustTier = "A"
	TrustTierB TrustTier = "B"
	TrustTierC TrustTier = "C"
	TrustTierD TrustTier = "D"
)

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "ACTIVE"
	ListingStatusInactive ListingStatus = "INACTIVE"
)

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "ACTIVE"
	ContractStatusExpired   ContractStatus = "EXPIRED"
	ContractStatusSuspended ContractStatus = "SUSPENDED"
)

type OrderStatus string

const (
	OrderStatusInit           OrderStatus = "INIT"
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "PAID"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusReturned       OrderStatus = "RETURNED"
	OrderStatusDisputed       OrderStatus = "DISPUTED"
)

type OrderSourceType string

const (
	OrderSourceCart     OrderSourceType = "CART"
	OrderSourceContract OrderSourceType = "CONTRACT"
)

type PaymentMode string

const (
	PaymentModeDirect PaymentMode = "DIRECT"
	PaymentModeEscrow PaymentMode = "ESCROW"
)

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusReleased PayoutStatus = "RELEASED"
	PayoutStatusFailed   PayoutStatus = "FAILED"
)

type ShipmentStatus string

const (
	ShipmentStatusCreated      ShipmentStatus = "CREATED"
	ShipmentStatusLabelCreated ShipmentStatus = "LABEL_CREATED"
	ShipmentStatusInTransit    ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered    ShipmentStatus = "DELIVERED"
	ShipmentStatusException    ShipmentStatus = "EXCEPTION"
)

type PlanScope string

const (
	PlanScopeGlobal          PlanScope = "GLOBAL"
	PlanScopeCompanyOverride PlanScope = "COMPANY_OVERRIDE"
)

type RuleMatchType string

const (
	RuleMatchDefault  RuleMatchType = "DEFAULT"
	RuleMatchCategory RuleMatchType = "CATEGORY"
	RuleMatchBrand    RuleMatchType = "BRAND"
)

type LedgerEntryType string

const (
	LedgerEntryEscrowHeld         LedgerEntryType = "ESCROW_HELD"
	LedgerEntryCommissionCaptured LedgerEntryType = "COMMISSION_CAPTURED"
	LedgerEntrySellerReleased     LedgerEntryType = "SELLER_RELEASED"
)
