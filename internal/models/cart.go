// internal/models/cart.go
package models

import (
	"github.com/google/uuid"
)

// CartLine is an ephemeral (product, seller, quantity) tuple owned by one
// buyer company. Duplicate adds merge quantities; lines are deleted on
// checkout success or explicit clear.
type CartLine struct {
	BaseModel
	BuyerCompanyID  uuid.UUID `json:"buyer_company_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_cart_lines_buyer_product_seller"`
	ProductID       uuid.UUID `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_cart_lines_buyer_product_seller"`
	SellerCompanyID uuid.UUID `json:"seller_company_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_cart_lines_buyer_product_seller"`
	Quantity        int       `json:"quantity" gorm:"not null"`
}
