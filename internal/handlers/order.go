// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
	authz        *services.AuthorizationService
}

func NewOrderHandler(orderService *services.OrderService, authz *services.AuthorizationService) *OrderHandler {
	return &OrderHandler{orderService: orderService, authz: authz}
}

// ListBuyerOrders handles GET /orders/purchases
func (h *OrderHandler) ListBuyerOrders(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionOrderReadBuyer); err != nil {
		utils.RespondError(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orderService.ListBuyerOrders(session.CompanyID, params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

// ListSellerOrders handles GET /orders/sales
func (h *OrderHandler) ListSellerOrders(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionOrderReadSeller); err != nil {
		utils.RespondError(c, err)
		return
	}

	params := utils.GetPaginationParams(c)
	result, err := h.orderService.ListSellerOrders(session.CompanyID, params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
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

	// Either side of the trade may read the order
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

	utils.SuccessResponse(c, order)
}

// ConfirmDelivery handles POST /orders/:id/confirm-delivery
func (h *OrderHandler) ConfirmDelivery(c *gin.Context) {
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
	if err := h.authz.Authorize(session, resource, services.ActionConfirmDelivery); err != nil {
		utils.RespondError(c, err)
		return
	}

	confirmed, err := h.orderService.ConfirmDelivery(orderID, session)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, confirmed)
}
