// internal/handlers/checkout.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

type CheckoutHandler struct {
	checkoutService *services.CheckoutService
	authz           *services.AuthorizationService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService, authz *services.AuthorizationService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, authz: authz}
}

type commitCheckoutRequest struct {
	AttemptKey string `json:"attempt_key" validate:"required,idempotency_key"`
}

// Preview handles POST /checkout/preview
func (h *CheckoutHandler) Preview(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCheckout); err != nil {
		utils.RespondError(c, err)
		return
	}

	groups, err := h.checkoutService.Preview(session.CompanyID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, groups)
}

// Commit handles POST /checkout/commit
func (h *CheckoutHandler) Commit(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCheckout); err != nil {
		utils.RespondError(c, err)
		return
	}

	var req commitCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	// The header form wins over the body field when both are present
	if key := c.GetHeader("X-Idempotency-Key"); key != "" {
		req.AttemptKey = key
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	result, err := h.checkoutService.Commit(session.CompanyID, session.UserID, req.AttemptKey)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	// A replay answers 200; a fresh commit answers 201 even when some
	// groups failed, the per-group results carry the detail.
	if result.Replayed {
		utils.SuccessResponse(c, result)
		return
	}
	c.JSON(http.StatusCreated, utils.APIResponse{Success: true, Data: result})
}
