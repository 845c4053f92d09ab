// internal/services/commission_service.go
package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

// MatchContext carries the line attributes commission rules match against.
type MatchContext struct {
	Category string
	Brand    string
}

// Breakdown is the commission computed for one gross amount under one rule.
type Breakdown struct {
	RuleID        uuid.UUID `json:"rule_id"`
	RateAmount    float64   `json:"rate_amount"`
	FixedFee      float64   `json:"fixed_fee"`
	TaxAmount     float64   `json:"tax_amount"`
	Total         float64   `json:"total"`
	EffectiveRate float64   `json:"effective_rate"`
}

// CommissionService resolves the effective plan and rule for a sale and
// computes the commission. Resolution is deterministic: same inputs, same
// rule, same amount.
type CommissionService struct {
	db *gorm.DB
}

func NewCommissionService(db *gorm.DB) *CommissionService {
	return &CommissionService{db: db}
}

// ResolvePlan returns the commission plan governing a seller: the seller's
// active COMPANY_OVERRIDE default if one exists, else the active GLOBAL
// default.
func (s *CommissionService) ResolvePlan(sellerCompanyID uuid.UUID) (*models.CommissionPlan, error) {
	var plan models.CommissionPlan

	err := s.db.Preload("Rules").
		Where("scope = ? AND company_id = ? AND is_default = ? AND active = ?",
			models.PlanScopeCompanyOverride, sellerCompanyID, true, true).
		First(&plan).Error
	if err == nil {
		return &plan, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	err = s.db.Preload("Rules").
		Where("scope = ? AND is_default = ? AND active = ?", models.PlanScopeGlobal, true, true).
		First(&plan).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errs.Conflict(errs.CodeRuleNotFound, "no active default commission plan configured")
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ResolveRule picks the rule within a plan for the given line attributes.
// Specific matches (CATEGORY, BRAND) are considered in descending priority
// before the DEFAULT fallback. No match is a hard error, never a silent
// zero-commission sale.
func ResolveRule(rules []models.CommissionRule, ctx MatchContext) (*models.CommissionRule, error) {
	sorted := make([]models.CommissionRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	var fallback *models.CommissionRule
	for i := range sorted {
		rule := &sorted[i]
		switch rule.MatchType {
		case models.RuleMatchCategory:
			if ctx.Category != "" && rule.Category == ctx.Category {
				return rule, nil
			}
		case models.RuleMatchBrand:
			if ctx.Brand != "" && rule.Brand == ctx.Brand {
				return rule, nil
			}
		case models.RuleMatchDefault:
			if fallback == nil {
				fallback = rule
			}
		}
	}

	if fallback != nil {
		return fallback, nil
	}
	return nil, errs.Conflict(errs.CodeRuleNotFound,
		fmt.Sprintf("no commission rule matches category=%q brand=%q and plan has no default", ctx.Category, ctx.Brand))
}

// Calculate applies a rule to a gross amount. Tax applies to the rate portion
// plus the fixed fee, mirroring how the platform invoices its commission.
func Calculate(rule *models.CommissionRule, gross float64) Breakdown {
	rateAmount := round2(gross * rule.RatePercentage / 100)
	taxable := rateAmount + rule.FixedFee
	taxAmount := round2(taxable * rule.TaxPercentage / 100)
	total := round2(rateAmount + rule.FixedFee + taxAmount)

	effective := 0.0
	if gross > 0 {
		effective = round2(total / gross * 100)
	}

	return Breakdown{
		RuleID:        rule.ID,
		RateAmount:    rateAmount,
		FixedFee:      rule.FixedFee,
		TaxAmount:     taxAmount,
		Total:         total,
		EffectiveRate: effective,
	}
}

// CommissionFor resolves plan and rule for a seller's line and computes the
// commission on its gross amount.
func (s *CommissionService) CommissionFor(sellerCompanyID uuid.UUID, ctx MatchContext, gross float64) (*Breakdown, error) {
	plan, err := s.ResolvePlan(sellerCompanyID)
	if err != nil {
		return nil, err
	}

	rule, err := ResolveRule(plan.Rules, ctx)
	if err != nil {
		return nil, err
	}

	breakdown := Calculate(rule, gross)
	return &breakdown, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
