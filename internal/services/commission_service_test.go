// internal/services/commission_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

func rule(matchType models.RuleMatchType, category, brand string, rate float64, priority int) models.CommissionRule {
	r := models.CommissionRule{
		MatchType:      matchType,
		Category:       category,
		Brand:          brand,
		RatePercentage: rate,
		Priority:       priority,
	}
	r.ID = uuid.New()
	return r
}

func TestResolveRulePrefersSpecificOverDefault(t *testing.T) {
	rules := []models.CommissionRule{
		rule(models.RuleMatchDefault, "", "", 5.0, 0),
		rule(models.RuleMatchCategory, "electronics", "", 3.0, 10),
		rule(models.RuleMatchBrand, "", "Acme", 2.0, 20),
	}

	matched, err := ResolveRule(rules, MatchContext{Category: "electronics"})
	require.NoError(t, err)
	assert.Equal(t, models.RuleMatchCategory, matched.MatchType)

	matched, err = ResolveRule(rules, MatchContext{Brand: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, models.RuleMatchBrand, matched.MatchType)

	matched, err = ResolveRule(rules, MatchContext{Category: "furniture", Brand: "Other"})
	require.NoError(t, err)
	assert.Equal(t, models.RuleMatchDefault, matched.MatchType)
}

func TestResolveRuleHigherPriorityWins(t *testing.T) {
	categoryLow := rule(models.RuleMatchCategory, "electronics", "", 4.0, 10)
	brandHigh := rule(models.RuleMatchBrand, "", "Acme", 2.0, 30)
	rules := []models.CommissionRule{categoryLow, brandHigh}

	matched, err := ResolveRule(rules, MatchContext{Category: "electronics", Brand: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, brandHigh.ID, matched.ID, "the higher-priority match must win")
}

func TestResolveRuleIsDeterministic(t *testing.T) {
	rules := []models.CommissionRule{
		rule(models.RuleMatchCategory, "electronics", "", 4.0, 10),
		rule(models.RuleMatchBrand, "", "Acme", 2.0, 30),
		rule(models.RuleMatchDefault, "", "", 5.0, 0),
	}
	ctx := MatchContext{Category: "electronics", Brand: "Acme"}

	first, err := ResolveRule(rules, ctx)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := ResolveRule(rules, ctx)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestResolveRuleNoMatchIsHardError(t *testing.T) {
	rules := []models.CommissionRule{
		rule(models.RuleMatchCategory, "electronics", "", 3.0, 10),
	}

	_, err := ResolveRule(rules, MatchContext{Category: "furniture"})
	require.Error(t, err)
	assert.Equal(t, errs.CodeRuleNotFound, errs.CodeOf(err))

	_, err = ResolveRule(nil, MatchContext{})
	require.Error(t, err)
	assert.Equal(t, errs.CodeRuleNotFound, errs.CodeOf(err))
}

func TestCalculateBreakdown(t *testing.T) {
	r := models.CommissionRule{
		RatePercentage: 5.0,
		FixedFee:       2.50,
		TaxPercentage:  10.0,
	}
	r.ID = uuid.New()

	breakdown := Calculate(&r, 200)
	assert.Equal(t, 10.0, breakdown.RateAmount)
	assert.Equal(t, 2.50, breakdown.FixedFee)
	assert.Equal(t, 1.25, breakdown.TaxAmount)
	assert.Equal(t, 13.75, breakdown.Total)
	assert.Equal(t, r.ID, breakdown.RuleID)
}

func TestCalculateZeroGross(t *testing.T) {
	r := models.CommissionRule{RatePercentage: 5.0}
	breakdown := Calculate(&r, 0)
	assert.Equal(t, 0.0, breakdown.RateAmount)
	assert.Equal(t, 0.0, breakdown.Total)
	assert.Equal(t, 0.0, breakdown.EffectiveRate)
}

func TestPickContractHighestTierWins(t *testing.T) {
	now := time.Now()
	small := models.Contract{
		ContractPrice: 95, MinQuantity: 10,
		Status: models.ContractStatusActive, ValidFrom: now.Add(-time.Hour),
	}
	bulk := models.Contract{
		ContractPrice: 90, MinQuantity: 100,
		Status: models.ContractStatusActive, ValidFrom: now.Add(-time.Hour),
	}
	contracts := []models.Contract{small, bulk}

	picked := pickContract(contracts, 150, now)
	require.NotNil(t, picked)
	assert.Equal(t, 90.0, picked.ContractPrice, "the deepest qualifying tier applies")

	picked = pickContract(contracts, 50, now)
	require.NotNil(t, picked)
	assert.Equal(t, 95.0, picked.ContractPrice)

	assert.Nil(t, pickContract(contracts, 5, now), "below every tier")
	assert.Nil(t, pickContract(nil, 150, now))
}
