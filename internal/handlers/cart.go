// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
	authz       *services.AuthorizationService
}

func NewCartHandler(cartService *services.CartService, authz *services.AuthorizationService) *CartHandler {
	return &CartHandler{cartService: cartService, authz: authz}
}

type addCartLineRequest struct {
	ProductID       string `json:"product_id" binding:"required" validate:"required,uuid"`
	SellerCompanyID string `json:"seller_company_id" binding:"required" validate:"required,uuid"`
	Quantity        int    `json:"quantity" binding:"required" validate:"required,min=1"`
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" binding:"required" validate:"required,min=1"`
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCartWrite); err != nil {
		utils.RespondError(c, err)
		return
	}

	lines, err := h.cartService.GetCart(session.CompanyID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, lines)
}

// AddLine handles POST /cart/lines
func (h *CartHandler) AddLine(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCartWrite); err != nil {
		utils.RespondError(c, err)
		return
	}

	var req addCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid product_id", nil)
		return
	}
	sellerID, err := uuid.Parse(req.SellerCompanyID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid seller_company_id", nil)
		return
	}

	line, err := h.cartService.AddLine(session.CompanyID, productID, sellerID, req.Quantity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, line)
}

// UpdateLine handles PUT /cart/lines/:id
func (h *CartHandler) UpdateLine(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCartWrite); err != nil {
		utils.RespondError(c, err)
		return
	}

	lineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid cart line ID", nil)
		return
	}

	var req updateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	line, err := h.cartService.UpdateLine(session.CompanyID, lineID, req.Quantity)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, line)
}

// RemoveLine handles DELETE /cart/lines/:id
func (h *CartHandler) RemoveLine(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCartWrite); err != nil {
		utils.RespondError(c, err)
		return
	}

	lineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid cart line ID", nil)
		return
	}

	if err := h.cartService.RemoveLine(session.CompanyID, lineID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Cart line removed"})
}

// Clear handles DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionCartWrite); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.cartService.Clear(session.CompanyID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Cart cleared"})
}
