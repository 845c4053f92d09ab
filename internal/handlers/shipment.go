// internal/handlers/shipment.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/models"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

type ShipmentHandler struct {
	shipmentService *services.ShipmentService
	orderService    *services.OrderService
	authz           *services.AuthorizationService
}

func NewShipmentHandler(shipmentService *services.ShipmentService, orderService *services.OrderService, authz *services.AuthorizationService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
		orderService:    orderService,
		authz:           authz,
	}
}

type createShipmentRequest struct {
	OrderID     string                `json:"order_id" binding:"required"`
	Mode        string                `json:"mode"`
	CarrierCode string                `json:"carrier_code"`
	Items       []models.ShipmentItem `json:"items" binding:"required"`
}

type advanceShipmentRequest struct {
	Status         string `json:"status" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
}

// Create handles POST /shipments
func (h *ShipmentHandler) Create(c *gin.Context) {
	session := middleware.GetSession(c)

	var req createShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid order_id", nil)
		return
	}

	order, err := h.orderService.GetOrder(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	resource := services.Resource{Type: "order", ID: order.ID, OwnerCompanyID: order.SellerCompanyID}
	if err := h.authz.Authorize(session, resource, services.ActionShipmentWrite); err != nil {
		utils.RespondError(c, err)
		return
	}

	shipment, err := h.shipmentService.CreateShipment(orderID, req.Items, req.Mode, req.CarrierCode)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, shipment)
}

// resolveWriteAccess loads a shipment and authorizes the seller side.
func (h *ShipmentHandler) resolveWriteAccess(c *gin.Context) (*models.Shipment, bool) {
	session := middleware.GetSession(c)
	shipmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid shipment ID", nil)
		return nil, false
	}

	shipment, order, err := h.shipmentService.GetShipment(shipmentID)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}

	resource := services.Resource{Type: "shipment", ID: shipment.ID, OwnerCompanyID: order.SellerCompanyID}
	if err := h.authz.Authorize(session, resource, services.ActionShipmentWrite); err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return shipment, true
}

// AdvanceStatus handles POST /shipments/:id/status
func (h *ShipmentHandler) AdvanceStatus(c *gin.Context) {
	shipment, ok := h.resolveWriteAccess(c)
	if !ok {
		return
	}

	var req advanceShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	updated, err := h.shipmentService.AdvanceStatus(shipment.ID, models.ShipmentStatus(req.Status), req.TrackingNumber)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, updated)
}

// GenerateLabel handles POST /shipments/:id/label
func (h *ShipmentHandler) GenerateLabel(c *gin.Context) {
	shipment, ok := h.resolveWriteAccess(c)
	if !ok {
		return
	}

	result, err := h.shipmentService.GenerateLabel(shipment.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, result)
}

// ListForOrder handles GET /orders/:id/shipments
func (h *ShipmentHandler) ListForOrder(c *gin.Context) {
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

	shipments, err := h.shipmentService.ListForOrder(orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, shipments)
}
