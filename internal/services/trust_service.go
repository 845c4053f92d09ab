// internal/services/trust_service.go
package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

// TrustScoreProvider is the external trust-score collaborator. This core
// consumes tiers; it never computes them.
type TrustScoreProvider interface {
	TierFor(companyID uuid.UUID) models.TrustTier
}

// Escrow hold-day defaults per trust tier.
var holdDaysByTier = map[models.TrustTier]int{
	models.TrustTierA: 3,
	models.TrustTierB: 7,
	models.TrustTierC: 14,
	models.TrustTierD: 21,
}

const defaultHoldDays = 7

func HoldDaysForTier(tier models.TrustTier) int {
	if days, ok := holdDaysByTier[tier]; ok {
		return days
	}
	return defaultHoldDays
}

// CompanyTrustProvider reads the tier cached on the company row, which the
// external scorer keeps current.
type CompanyTrustProvider struct {
	db *gorm.DB
}

func NewCompanyTrustProvider(db *gorm.DB) *CompanyTrustProvider {
	return &CompanyTrustProvider{db: db}
}

func (p *CompanyTrustProvider) TierFor(companyID uuid.UUID) models.TrustTier {
	var company models.Company
	if err := p.db.Select("trust_tier").First(&company, companyID).Error; err != nil {
		return models.TrustTierC
	}
	if company.TrustTier == "" {
		return models.TrustTierC
	}
	return company.TrustTier
}

// StaticTrustProvider serves fixed tiers; used in tests and local runs.
type StaticTrustProvider struct {
	Tiers map[uuid.UUID]models.TrustTier
}

func (p *StaticTrustProvider) TierFor(companyID uuid.UUID) models.TrustTier {
	if tier, ok := p.Tiers[companyID]; ok {
		return tier
	}
	return models.TrustTierC
}
