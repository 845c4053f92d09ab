// internal/services/authorization_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

func buyerSession(companyID uuid.UUID) *models.Session {
	return &models.Session{
		UserID:      uuid.New(),
		CompanyID:   companyID,
		Role:        models.RoleMember,
		Permissions: []string{models.PermissionNetworkBuy},
	}
}

func sellerSession(companyID uuid.UUID) *models.Session {
	return &models.Session{
		UserID:      uuid.New(),
		CompanyID:   companyID,
		Role:        models.RoleOperator,
		Permissions: []string{models.PermissionNetworkSell},
	}
}

func adminSession() *models.Session {
	return &models.Session{UserID: uuid.New(), CompanyID: uuid.New(), Role: models.RoleAdmin}
}

func TestAuthorizeRequiresSession(t *testing.T) {
	authz := NewAuthorizationService()
	err := authz.Authorize(nil, Resource{}, ActionCartWrite)
	assert.True(t, errs.IsAuthorization(err))
}

func TestAuthorizePermissionGates(t *testing.T) {
	authz := NewAuthorizationService()
	company := uuid.New()
	buyer := buyerSession(company)
	seller := sellerSession(company)

	assert.NoError(t, authz.Authorize(buyer, Resource{}, ActionCartWrite))
	assert.NoError(t, authz.Authorize(buyer, Resource{}, ActionCheckout))
	assert.NoError(t, authz.Authorize(seller, Resource{}, ActionShipmentWrite))

	// Crossing sides fails
	assert.True(t, errs.IsAuthorization(authz.Authorize(buyer, Resource{}, ActionShipmentWrite)))
	assert.True(t, errs.IsAuthorization(authz.Authorize(seller, Resource{}, ActionCheckout)))
}

func TestAuthorizeCompanyScoping(t *testing.T) {
	authz := NewAuthorizationService()
	company := uuid.New()
	buyer := buyerSession(company)

	owned := Resource{Type: "order", ID: uuid.New(), OwnerCompanyID: company}
	foreign := Resource{Type: "order", ID: uuid.New(), OwnerCompanyID: uuid.New()}

	assert.NoError(t, authz.Authorize(buyer, owned, ActionOrderReadBuyer))
	assert.True(t, errs.IsAuthorization(authz.Authorize(buyer, foreign, ActionOrderReadBuyer)))
}

func TestAuthorizeAdminOnlyActions(t *testing.T) {
	authz := NewAuthorizationService()
	buyer := buyerSession(uuid.New())
	seller := sellerSession(uuid.New())
	admin := adminSession()

	for _, action := range []Action{ActionForceRelease, ActionPlanGovernance} {
		assert.True(t, errs.IsAuthorization(authz.Authorize(buyer, Resource{}, action)))
		assert.True(t, errs.IsAuthorization(authz.Authorize(seller, Resource{}, action)))
		assert.NoError(t, authz.Authorize(admin, Resource{}, action))
	}
}

func TestAuthorizeAdminBypassesCompanyScope(t *testing.T) {
	authz := NewAuthorizationService()
	admin := adminSession()

	foreign := Resource{Type: "order", ID: uuid.New(), OwnerCompanyID: uuid.New()}
	assert.NoError(t, authz.Authorize(admin, foreign, ActionOrderReadBuyer))
	assert.NoError(t, authz.Authorize(admin, foreign, ActionShipmentWrite))
}
