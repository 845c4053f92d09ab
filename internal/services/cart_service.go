// internal/services/cart_service.go
package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

// CartService manages the buyer company's ephemeral cart. The cart is not a
// reservation: no stock or price is held until checkout.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

// AddLine upserts a cart line. Adding a (product, seller) pair already in the
// cart merges quantities instead of duplicating the line.
func (s *CartService) AddLine(buyerCompanyID, productID, sellerCompanyID uuid.UUID, quantity int) (*models.CartLine, error) {
	if quantity <= 0 {
		return nil, errs.Validation(errs.CodeInvalidAmount, "quantity must be positive")
	}

	var listing models.Listing
	err := s.db.Where("seller_company_id = ? AND product_id = ?", sellerCompanyID, productID).
		First(&listing).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.Validation(errs.CodeListingUnavailable, "seller has no listing for this product")
	}
	if err != nil {
		return nil, err
	}

	line := &models.CartLine{
		BuyerCompanyID:  buyerCompanyID,
		ProductID:       productID,
		SellerCompanyID: sellerCompanyID,
		Quantity:        quantity,
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "buyer_company_id"}, {Name: "product_id"}, {Name: "seller_company_id"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("cart_lines.quantity + ?", quantity),
		}),
	}).Create(line).Error
	if err != nil {
		return nil, err
	}

	// Re-read so merged quantities are reflected in the response
	err = s.db.Where("buyer_company_id = ? AND product_id = ? AND seller_company_id = ?",
		buyerCompanyID, productID, sellerCompanyID).First(line).Error
	return line, err
}

// UpdateLine replaces the quantity of an existing line.
func (s *CartService) UpdateLine(buyerCompanyID, lineID uuid.UUID, quantity int) (*models.CartLine, error) {
	if quantity <= 0 {
		return nil, errs.Validation(errs.CodeInvalidAmount, "quantity must be positive")
	}

	var line models.CartLine
	if err := s.db.Where("id = ? AND buyer_company_id = ?", lineID, buyerCompanyID).First(&line).Error; err != nil {
		return nil, err
	}

	line.Quantity = quantity
	if err := s.db.Save(&line).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

func (s *CartService) RemoveLine(buyerCompanyID, lineID uuid.UUID) error {
	result := s.db.Where("id = ? AND buyer_company_id = ?", lineID, buyerCompanyID).
		Delete(&models.CartLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *CartService) Clear(buyerCompanyID uuid.UUID) error {
	return s.db.Where("buyer_company_id = ?", buyerCompanyID).Delete(&models.CartLine{}).Error
}

func (s *CartService) GetCart(buyerCompanyID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.db.Where("buyer_company_id = ?", buyerCompanyID).
		Order("created_at ASC").Find(&lines).Error
	return lines, err
}
