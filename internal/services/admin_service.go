// internal/services/admin_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

// AdminService governs commission configuration and exposes operator
// dashboards. Every governed write demands a reason and leaves an audit row.
type AdminService struct {
	db *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

type PlanInput struct {
	Name      string           `json:"name" validate:"required,max=255"`
	Scope     models.PlanScope `json:"scope" validate:"required"`
	CompanyID *uuid.UUID       `json:"company_id"`
	IsDefault bool             `json:"is_default"`
}

type RuleInput struct {
	MatchType      models.RuleMatchType `json:"match_type" validate:"required"`
	Category       string               `json:"category"`
	Brand          string               `json:"brand"`
	RatePercentage float64              `json:"rate_percentage" validate:"min=0,max=100"`
	FixedFee       float64              `json:"fixed_fee" validate:"min=0"`
	TaxPercentage  float64              `json:"tax_percentage" validate:"min=0,max=100"`
	Priority       int                  `json:"priority"`
}

func requireReason(reason string) error {
	if reason == "" {
		return errs.Validation(errs.CodeMissingReason, "a reason is required for governed changes")
	}
	return nil
}

func (s *AdminService) audit(tx *gorm.DB, actor *models.Session, action, resourceType string, resourceID uuid.UUID, reason string, oldValues, newValues models.JSONB) error {
	return tx.Create(&models.AuditLog{
		UserID:       &actor.UserID,
		CompanyID:    &actor.CompanyID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Reason:       reason,
		OldValues:    oldValues,
		NewValues:    newValues,
	}).Error
}

// CreatePlan creates a commission plan. Marking it default demotes the
// previous default of the same scope (and company, for overrides) so at most
// one active default exists per scope.
func (s *AdminService) CreatePlan(actor *models.Session, input PlanInput, reason string) (*models.CommissionPlan, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	if input.Scope == models.PlanScopeCompanyOverride && input.CompanyID == nil {
		return nil, errs.Validation(errs.CodeInvalidAmount, "company override plans need a company_id")
	}
	if input.Scope == models.PlanScopeGlobal && input.CompanyID != nil {
		return nil, errs.Validation(errs.CodeInvalidAmount, "global plans cannot bind a company_id")
	}

	plan := &models.CommissionPlan{
		Name:      input.Name,
		Scope:     input.Scope,
		CompanyID: input.CompanyID,
		IsDefault: input.IsDefault,
		Active:    true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if input.IsDefault {
			if err := s.demoteDefault(tx, input.Scope, input.CompanyID); err != nil {
				return err
			}
		}
		if err := tx.Create(plan).Error; err != nil {
			return err
		}
		return s.audit(tx, actor, "commission.plan.create", "commission_plan", plan.ID, reason,
			nil, models.JSONB{"name": plan.Name, "scope": plan.Scope, "is_default": plan.IsDefault})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"plan_id": plan.ID,
		"scope":   plan.Scope,
		"actor":   actor.UserID,
	}).Info("Commission plan created")
	return plan, nil
}

func (s *AdminService) demoteDefault(tx *gorm.DB, scope models.PlanScope, companyID *uuid.UUID) error {
	query := tx.Model(&models.CommissionPlan{}).
		Where("scope = ? AND is_default = ?", scope, true)
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	} else {
		query = query.Where("company_id IS NULL")
	}
	return query.Update("is_default", false).Error
}

// UpdatePlan renames, re-defaults or (de)activates a plan.
func (s *AdminService) UpdatePlan(actor *models.Session, planID uuid.UUID, name *string, isDefault, active *bool, reason string) (*models.CommissionPlan, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}

	var plan models.CommissionPlan
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&plan, planID).Error; err != nil {
			return err
		}

		oldValues := models.JSONB{"name": plan.Name, "is_default": plan.IsDefault, "active": plan.Active}
		updates := map[string]interface{}{}
		if name != nil {
			updates["name"] = *name
			plan.Name = *name
		}
		if isDefault != nil {
			if *isDefault && !plan.IsDefault {
				if err := s.demoteDefault(tx, plan.Scope, plan.CompanyID); err != nil {
					return err
				}
			}
			updates["is_default"] = *isDefault
			plan.IsDefault = *isDefault
		}
		if active != nil {
			updates["active"] = *active
			plan.Active = *active
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&plan).Updates(updates).Error; err != nil {
			return err
		}
		return s.audit(tx, actor, "commission.plan.update", "commission_plan", plan.ID, reason,
			oldValues, models.JSONB{"name": plan.Name, "is_default": plan.IsDefault, "active": plan.Active})
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// AddRule appends a rule to a plan. Two rules in one plan may never share a
// priority; ties would make resolution order-dependent.
func (s *AdminService) AddRule(actor *models.Session, planID uuid.UUID, input RuleInput, reason string) (*models.CommissionRule, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule := &models.CommissionRule{
		PlanID:         planID,
		MatchType:      input.MatchType,
		Category:       input.Category,
		Brand:          input.Brand,
		RatePercentage: input.RatePercentage,
		FixedFee:       input.FixedFee,
		TaxPercentage:  input.TaxPercentage,
		Priority:       input.Priority,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var plan models.CommissionPlan
		if err := tx.First(&plan, planID).Error; err != nil {
			return err
		}
		if err := s.checkPriority(tx, planID, input.Priority, nil); err != nil {
			return err
		}
		if err := tx.Create(rule).Error; err != nil {
			return err
		}
		return s.audit(tx, actor, "commission.rule.create", "commission_rule", rule.ID, reason,
			nil, models.JSONB{"plan_id": planID, "match_type": rule.MatchType, "priority": rule.Priority,
				"rate_percentage": rule.RatePercentage})
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule replaces a rule's matching and amounts.
func (s *AdminService) UpdateRule(actor *models.Session, ruleID uuid.UUID, input RuleInput, reason string) (*models.CommissionRule, error) {
	if err := requireReason(reason); err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	var rule models.CommissionRule
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, ruleID).Error; err != nil {
			return err
		}
		if err := s.checkPriority(tx, rule.PlanID, input.Priority, &ruleID); err != nil {
			return err
		}

		oldValues := models.JSONB{"match_type": rule.MatchType, "priority": rule.Priority,
			"rate_percentage": rule.RatePercentage, "fixed_fee": rule.FixedFee}
		rule.MatchType = input.MatchType
		rule.Category = input.Category
		rule.Brand = input.Brand
		rule.RatePercentage = input.RatePercentage
		rule.FixedFee = input.FixedFee
		rule.TaxPercentage = input.TaxPercentage
		rule.Priority = input.Priority
		if err := tx.Save(&rule).Error; err != nil {
			return err
		}
		return s.audit(tx, actor, "commission.rule.update", "commission_rule", rule.ID, reason,
			oldValues, models.JSONB{"match_type": rule.MatchType, "priority": rule.Priority,
				"rate_percentage": rule.RatePercentage, "fixed_fee": rule.FixedFee})
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// DeleteRule removes a rule from its plan.
func (s *AdminService) DeleteRule(actor *models.Session, ruleID uuid.UUID, reason string) error {
	if err := requireReason(reason); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var rule models.CommissionRule
		if err := tx.First(&rule, ruleID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&rule).Error; err != nil {
			return err
		}
		return s.audit(tx, actor, "commission.rule.delete", "commission_rule", rule.ID, reason,
			models.JSONB{"plan_id": rule.PlanID, "match_type": rule.MatchType, "priority": rule.Priority}, nil)
	})
}

func (s *AdminService) checkPriority(tx *gorm.DB, planID uuid.UUID, priority int, excludeRuleID *uuid.UUID) error {
	query := tx.Model(&models.CommissionRule{}).
		Where("plan_id = ? AND priority = ?", planID, priority)
	if excludeRuleID != nil {
		query = query.Where("id <> ?", *excludeRuleID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errs.Conflict(errs.CodePriorityConflict,
			fmt.Sprintf("plan already has a rule with priority %d", priority))
	}
	return nil
}

func validateRuleInput(input RuleInput) error {
	switch input.MatchType {
	case models.RuleMatchCategory:
		if input.Category == "" {
			return errs.Validation(errs.CodeInvalidAmount, "category rules need a category")
		}
	case models.RuleMatchBrand:
		if input.Brand == "" {
			return errs.Validation(errs.CodeInvalidAmount, "brand rules need a brand")
		}
	case models.RuleMatchDefault:
	default:
		return errs.Validation(errs.CodeInvalidAmount, "unknown match type")
	}
	if input.RatePercentage < 0 || input.RatePercentage > 100 {
		return errs.Validation(errs.CodeInvalidAmount, "rate percentage must be between 0 and 100")
	}
	if input.FixedFee < 0 {
		return errs.Validation(errs.CodeInvalidAmount, "fixed fee cannot be negative")
	}
	return nil
}

// ListPlans returns plans with their rules, optionally filtered by scope.
func (s *AdminService) ListPlans(scope string) ([]models.CommissionPlan, error) {
	query := s.db.Preload("Rules", func(db *gorm.DB) *gorm.DB { return db.Order("priority DESC") })
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}
	var plans []models.CommissionPlan
	err := query.Order("created_at ASC").Find(&plans).Error
	return plans, err
}

func (s *AdminService) GetPlan(planID uuid.UUID) (*models.CommissionPlan, error) {
	var plan models.CommissionPlan
	err := s.db.Preload("Rules", func(db *gorm.DB) *gorm.DB { return db.Order("priority DESC") }).
		First(&plan, planID).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// DashboardStats summarizes the settlement pipeline for the admin overview.
type DashboardStats struct {
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	EscrowHeld     float64          `json:"escrow_held"`
	EscrowReleased float64          `json:"escrow_released"`
	PayoutsFailed  int64            `json:"payouts_failed"`
	UnreadAlerts   int64            `json:"unread_alerts"`
}

func (s *AdminService) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{OrdersByStatus: make(map[string]int64)}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	err := s.db.Model(&models.Order{}).
		Select("status, count(*) as count").Group("status").Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	for _, row := range counts {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	err = s.db.Model(&models.Payment{}).
		Where("status = ? AND payout_status = ?", models.PaymentStatusPaid, models.PayoutStatusPending).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.EscrowHeld).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.Payment{}).
		Where("payout_status = ?", models.PayoutStatusReleased).
		Select("COALESCE(SUM(amount), 0)").Scan(&stats.EscrowReleased).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.Payment{}).
		Where("payout_status = ?", models.PayoutStatusFailed).
		Count(&stats.PayoutsFailed).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Model(&models.AdminNotification{}).
		Where("status = ?", "unread").Count(&stats.UnreadAlerts).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ListAuditLogs pages through governance history, newest first.
func (s *AdminService) ListAuditLogs(params utils.PaginationParams, action string) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.AuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.AuditLog
	query = utils.ApplySort(query, params, []string{"created_at", "action"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(logs, total, params)
	return &result, nil
}

// ListNotifications pages operator notifications, unread first.
func (s *AdminService) ListNotifications(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.AdminNotification{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var notifications []models.AdminNotification
	query = utils.ApplySort(query, params, []string{"created_at", "priority"})
	query = utils.ApplyPagination(query, params)
	if err := query.Find(&notifications).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(notifications, total, params)
	return &result, nil
}

// MarkNotificationRead acknowledges one notification.
func (s *AdminService) MarkNotificationRead(notificationID uuid.UUID) error {
	result := s.db.Model(&models.AdminNotification{}).
		Where("id = ?", notificationID).
		Updates(map[string]interface{}{"status": "read", "read_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
