// internal/services/pricing_service.go
package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

// ResolvedPrice is the outcome of unit price resolution for one cart line.
type ResolvedPrice struct {
	UnitPrice        float64
	IsContractPriced bool
	ContractID       *uuid.UUID
}

// PricingService resolves the unit price for a (buyer, seller, product,
// quantity) tuple. An active contract covering the quantity tier wins over
// the listing price; otherwise the listing price applies.
type PricingService struct {
	db *gorm.DB
}

func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

func (s *PricingService) ResolveUnitPrice(buyerCompanyID, sellerCompanyID uuid.UUID, listing *models.Listing, quantity int, at time.Time) (*ResolvedPrice, error) {
	var contracts []models.Contract
	err := s.db.Where(
		"buyer_company_id = ? AND seller_company_id = ? AND product_id = ? AND status = ?",
		buyerCompanyID, sellerCompanyID, listing.ProductID, models.ContractStatusActive,
	).Find(&contracts).Error
	if err != nil {
		return nil, err
	}

	if contract := pickContract(contracts, quantity, at); contract != nil {
		return &ResolvedPrice{
			UnitPrice:        contract.ContractPrice,
			IsContractPriced: true,
			ContractID:       &contract.ID,
		}, nil
	}

	return &ResolvedPrice{UnitPrice: listing.Price}, nil
}

// pickContract selects the applicable contract among candidates: only
// contracts whose window and quantity tier cover the request qualify, and the
// highest qualifying MinQuantity tier wins.
func pickContract(contracts []models.Contract, quantity int, at time.Time) *models.Contract {
	var best *models.Contract
	for i := range contracts {
		c := &contracts[i]
		if !c.Covers(quantity, at) {
			continue
		}
		if best == nil || c.MinQuantity > best.MinQuantity {
			best = c
		}
	}
	return best
}
