// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

type PaymentHandler struct {
	escrowService *services.EscrowService
	orderService  *services.OrderService
	authz         *services.AuthorizationService
}

func NewPaymentHandler(escrowService *services.EscrowService, orderService *services.OrderService, authz *services.AuthorizationService) *PaymentHandler {
	return &PaymentHandler{
		escrowService: escrowService,
		orderService:  orderService,
		authz:         authz,
	}
}

type paymentCallbackRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	Status        string `json:"status" binding:"required"` // PAID or FAILED
	Reference     string `json:"reference"`
	FailureReason string `json:"failure_reason"`
}

type forceReleaseRequest struct {
	Confirmation string `json:"confirmation" binding:"required"`
	Reason       string `json:"reason"`
}

// CreateIntent handles POST /orders/:id/payment-intent
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	session := middleware.GetSession(c)
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.GetOrder(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	resource := services.Resource{Type: "order", ID: order.ID, OwnerCompanyID: order.BuyerCompanyID}
	if err := h.authz.Authorize(session, resource, services.ActionCheckout); err != nil {
		utils.RespondError(c, err)
		return
	}

	reference, err := h.escrowService.CreateIntent(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"reference": reference})
}

// Callback handles POST /payments/callback, the provider's signal that a
// payment succeeded or failed. Provider webhook authentication terminates at
// the gateway in front of this service.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order_id", nil)
		return
	}
	if req.Status != "PAID" && req.Status != "FAILED" {
		utils.BadRequestResponse(c, "status must be PAID or FAILED", nil)
		return
	}

	payment, err := h.escrowService.HandlePaymentCallback(orderID, req.Status == "PAID", req.Reference, req.FailureReason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, payment)
}

// GetLedger handles GET /orders/:id/ledger
func (h *PaymentHandler) GetLedger(c *gin.Context) {
	session := middleware.GetSession(c)
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	order, err := h.orderService.GetOrder(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	action := services.ActionOrderReadBuyer
	owner := order.BuyerCompanyID
	if session != nil && session.CompanyID == order.SellerCompanyID {
		action = services.ActionOrderReadSeller
		owner = order.SellerCompanyID
	}
	resource := services.Resource{Type: "order", ID: order.ID, OwnerCompanyID: owner}
	if err := h.authz.Authorize(session, resource, action); err != nil {
		utils.RespondError(c, err)
		return
	}

	entries, err := h.escrowService.LedgerForOrder(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, entries)
}

// ForceRelease handles POST /admin/orders/:id/force-release
func (h *PaymentHandler) ForceRelease(c *gin.Context) {
	session := middleware.GetSession(c)
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order ID", nil)
		return
	}

	resource := services.Resource{Type: "order", ID: orderID}
	if err := h.authz.Authorize(session, resource, services.ActionForceRelease); err != nil {
		utils.RespondError(c, err)
		return
	}

	var req forceReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	payment, err := h.escrowService.ForceRelease(orderID, session, req.Confirmation, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, payment)
}
