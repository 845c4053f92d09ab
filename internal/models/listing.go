// internal/models/listing.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is a seller's sellable instance of a catalog product.
// AvailableQty is authoritative stock; it is only ever decremented through a
// conditional update inside the order creation transaction.
type Listing struct {
	BaseModel
	SellerCompanyID uuid.UUID     `json:"seller_company_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_listings_seller_product"`
	ProductID       uuid.UUID     `json:"product_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_listings_seller_product"`
	Price           float64       `json:"price" gorm:"type:decimal(12,2);not null"`
	Currency        string        `json:"currency" gorm:"size:3;not null;default:'USD'"`
	AvailableQty    int           `json:"available_qty" gorm:"not null;default:0"`
	MinQty          int           `json:"min_qty" gorm:"not null;default:1"`
	Category        string        `json:"category" gorm:"size:100;index"`
	Brand           string        `json:"brand" gorm:"size:100;index"`
	Status          ListingStatus `json:"status" gorm:"type:varchar(20);default:'ACTIVE';index"`

	// Relationships
	SellerCompany Company `json:"seller_company,omitempty" gorm:"foreignKey:SellerCompanyID"`
}

// Contract is a negotiated price between a buyer and seller company for one
// product, applicable from MinQuantity upward within its validity window.
type Contract struct {
	BaseModel
	BuyerCompanyID  uuid.UUID      `json:"buyer_company_id" gorm:"type:uuid;not null;index"`
	SellerCompanyID uuid.UUID      `json:"seller_company_id" gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID      `json:"product_id" gorm:"type:uuid;not null;index"`
	ContractPrice   float64        `json:"contract_price" gorm:"type:decimal(12,2);not null"`
	MinQuantity     int            `json:"min_quantity" gorm:"not null;default:1"`
	Status          ContractStatus `json:"status" gorm:"type:varchar(20);default:'ACTIVE';index"`
	ValidFrom       time.Time      `json:"valid_from"`
	ValidUntil      *time.Time     `json:"valid_until"`
}

// Covers reports whether the contract's quantity tier applies to the
// requested quantity at the given time.
func (c *Contract) Covers(quantity int, at time.Time) bool {
	if c.Status != ContractStatusActive || quantity < c.MinQuantity {
		return false
	}
	if at.Before(c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && at.After(*c.ValidUntil) {
		return false
	}
	return true
}
