// internal/services/trust_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

func TestHoldDaysForTier(t *testing.T) {
	assert.Equal(t, 3, HoldDaysForTier(models.TrustTierA))
	assert.Equal(t, 7, HoldDaysForTier(models.TrustTierB))
	assert.Equal(t, 14, HoldDaysForTier(models.TrustTierC))
	assert.Equal(t, 21, HoldDaysForTier(models.TrustTierD))

	// Unknown tiers fall back to the default hold
	assert.Equal(t, 7, HoldDaysForTier(models.TrustTier("X")))
	assert.Equal(t, 7, HoldDaysForTier(models.TrustTier("")))
}

func TestStaticTrustProvider(t *testing.T) {
	known := uuid.New()
	provider := &StaticTrustProvider{
		Tiers: map[uuid.UUID]models.TrustTier{known: models.TrustTierA},
	}

	assert.Equal(t, models.TrustTierA, provider.TierFor(known))
	assert.Equal(t, models.TrustTierC, provider.TierFor(uuid.New()), "unknown companies default to C")
}
