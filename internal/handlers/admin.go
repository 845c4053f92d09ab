// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradebridge/marketplace-backend/internal/middleware"
	"github.com/tradebridge/marketplace-backend/internal/services"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
	authz        *services.AuthorizationService
}

func NewAdminHandler(adminService *services.AdminService, authz *services.AuthorizationService) *AdminHandler {
	return &AdminHandler{adminService: adminService, authz: authz}
}

type createPlanRequest struct {
	services.PlanInput
	Reason string `json:"reason"`
}

type updatePlanRequest struct {
	Name      *string `json:"name"`
	IsDefault *bool   `json:"is_default"`
	Active    *bool   `json:"active"`
	Reason    string  `json:"reason"`
}

type ruleRequest struct {
	services.RuleInput
	Reason string `json:"reason"`
}

func (h *AdminHandler) authorizeGovernance(c *gin.Context) bool {
	session := middleware.GetSession(c)
	if err := h.authz.Authorize(session, services.Resource{}, services.ActionPlanGovernance); err != nil {
		utils.RespondError(c, err)
		return false
	}
	return true
}

// ListPlans handles GET /admin/commission/plans
func (h *AdminHandler) ListPlans(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}

	plans, err := h.adminService.ListPlans(c.Query("scope"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, plans)
}

// GetPlan handles GET /admin/commission/plans/:id
func (h *AdminHandler) GetPlan(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid plan ID", nil)
		return
	}

	plan, err := h.adminService.GetPlan(planID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, plan)
}

// CreatePlan handles POST /admin/commission/plans
func (h *AdminHandler) CreatePlan(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}
	session := middleware.GetSession(c)

	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if err := utils.ValidateStruct(req.PlanInput); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	plan, err := h.adminService.CreatePlan(session, req.PlanInput, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, plan)
}

// UpdatePlan handles PUT /admin/commission/plans/:id
func (h *AdminHandler) UpdatePlan(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}
	session := middleware.GetSession(c)

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid plan ID", nil)
		return
	}

	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	plan, err := h.adminService.UpdatePlan(session, planID, req.Name, req.IsDefault, req.Active, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, plan)
}

// AddRule handles POST /admin/commission/plans/:id/rules
func (h *AdminHandler) AddRule(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}
	session := middleware.GetSession(c)

	planID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid plan ID", nil)
		return
	}

	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	rule, err := h.adminService.AddRule(session, planID, req.RuleInput, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.CreatedResponse(c, rule)
}

// UpdateRule handles PUT /admin/commission/rules/:id
func (h *AdminHandler) UpdateRule(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}
	session := middleware.GetSession(c)

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid rule ID", nil)
		return
	}

	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	rule, err := h.adminService.UpdateRule(session, ruleID, req.RuleInput, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, rule)
}

// DeleteRule handles DELETE /admin/commission/rules/:id
func (h *AdminHandler) DeleteRule(c *gin.Context) {
	if !h.authorizeGovernance(c) {
		return
	}
	session := middleware.GetSession(c)

	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid rule ID", nil)
		return
	}

	reason := c.Query("reason")
	if reason == "" {
		var body struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			reason = body.Reason
		}
	}

	if err := h.adminService.DeleteRule(session, ruleID, reason); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Rule deleted"})
}

// GetDashboard handles GET /admin/dashboard
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats()
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

// ListAuditLogs handles GET /admin/audit-logs
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	result, err := h.adminService.ListAuditLogs(params, c.Query("action"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

// ListNotifications handles GET /admin/notifications
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	result, err := h.adminService.ListNotifications(params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.PaginatedResponse(c, *result)
}

// MarkNotificationRead handles PUT /admin/notifications/:id/read
func (h *AdminHandler) MarkNotificationRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID", nil)
		return
	}

	if err := h.adminService.MarkNotificationRead(notificationID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": "Notification marked as read"})
}
