// internal/services/authorization_service.go
package services

import (
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

type Action string

const (
	ActionCartWrite       Action = "cart:write"
	ActionCheckout        Action = "checkout:commit"
	ActionOrderReadBuyer  Action = "order:read_buyer"
	ActionOrderReadSeller Action = "order:read_seller"
	ActionConfirmDelivery Action = "order:confirm_delivery"
	ActionShipmentWrite   Action = "shipment:write"
	ActionForceRelease    Action = "escrow:force_release"
	ActionPlanGovernance  Action = "commission:govern"
)

// Resource identifies what an action is applied to. OwnerCompanyID is the
// company that must match the session for non-admin access.
type Resource struct {
	Type           string
	ID             uuid.UUID
	OwnerCompanyID uuid.UUID
}

// AuthorizationService is the single policy point consumed by every
// handler: (session, resource, action) -> allow/deny.
type AuthorizationService struct{}

func NewAuthorizationService() *AuthorizationService {
	return &AuthorizationService{}
}

var actionPermissions = map[Action]string{
	ActionCartWrite:       models.PermissionNetworkBuy,
	ActionCheckout:        models.PermissionNetworkBuy,
	ActionOrderReadBuyer:  models.PermissionNetworkBuy,
	ActionConfirmDelivery: models.PermissionNetworkBuy,
	ActionOrderReadSeller: models.PermissionNetworkSell,
	ActionShipmentWrite:   models.PermissionNetworkSell,
}

var adminOnlyActions = map[Action]bool{
	ActionForceRelease:   true,
	ActionPlanGovernance: true,
}

func (s *AuthorizationService) Authorize(session *models.Session, resource Resource, action Action) error {
	if session == nil {
		return errs.Unauthorized("no session")
	}

	if adminOnlyActions[action] {
		if !session.IsAdmin() {
			return errs.Unauthorized("action requires an admin role")
		}
		return nil
	}

	// Admins may read and recover anything; company scoping below applies
	// to regular members and operators.
	if session.IsAdmin() {
		return nil
	}

	if required, ok := actionPermissions[action]; ok {
		if !session.HasPermission(required) {
			return errs.Unauthorized("missing permission: " + required)
		}
	}

	if resource.OwnerCompanyID != uuid.Nil && resource.OwnerCompanyID != session.CompanyID {
		return errs.Unauthorized("resource belongs to another company")
	}

	return nil
}
