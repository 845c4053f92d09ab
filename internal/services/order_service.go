// internal/services/order_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

// OrderService reads orders for both sides of the trade and drives the
// buyer's delivery confirmation.
type OrderService struct {
	db     *gorm.DB
	escrow *EscrowService
}

func NewOrderService(db *gorm.DB, escrow *EscrowService) *OrderService {
	return &OrderService{db: db, escrow: escrow}
}

func (s *OrderService) listOrders(column string, companyID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Order{}).Where(column+" = ?", companyID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	query = utils.ApplySort(query, params, []string{"created_at", "total_amount", "status"})
	query = utils.ApplyPagination(query, params)
	if err := query.Preload("Items").Preload("Payment").Find(&orders).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(orders, total, params)
	return &result, nil
}

// ListBuyerOrders returns the orders the company placed.
func (s *OrderService) ListBuyerOrders(buyerCompanyID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	return s.listOrders("buyer_company_id", buyerCompanyID, params)
}

// ListSellerOrders returns the orders the company received.
func (s *OrderService) ListSellerOrders(sellerCompanyID uuid.UUID, params utils.PaginationParams) (*utils.PaginationResult, error) {
	return s.listOrders("seller_company_id", sellerCompanyID, params)
}

// GetOrder loads an order with its items, payment and shipments.
func (s *OrderService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").Preload("Payment").
		Preload("Shipments", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmDelivery is the buyer's settlement trigger: it completes the order
// and releases the escrow in the same transaction. Confirming twice is a
// no-op returning the already-completed order.
func (s *OrderService) ConfirmDelivery(orderID uuid.UUID, actor *models.Session) (*models.Order, error) {
	var confirmed *models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Shipments").First(&order, orderID).Error
		if err != nil {
			return err
		}

		if order.ConfirmedAt != nil {
			confirmed = &order
			return nil
		}

		if !models.AllDelivered(order.Shipments) {
			return errs.Conflict(errs.CodeNotAllDelivered,
				"delivery can be confirmed only after every shipment is delivered")
		}
		if !order.Status.CanTransitionTo(models.OrderStatusCompleted) {
			return errs.Conflict(errs.CodeIllegalTransition,
				fmt.Sprintf("order is %s, cannot complete", order.Status))
		}

		now := time.Now()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":       models.OrderStatusCompleted,
			"confirmed_at": now,
		}).Error; err != nil {
			return err
		}
		order.Status = models.OrderStatusCompleted
		order.ConfirmedAt = &now

		// Completion and payout are one atomic step; a provider failure
		// rolls back the confirmation too.
		if _, err := s.escrow.ReleaseInTx(tx, orderID, releaseOptions{ActorUserID: &actor.UserID}); err != nil {
			return err
		}

		confirmed = &order
		return nil
	})
	if errs.IsProviderFailure(err) {
		s.escrow.MarkPayoutFailed(orderID, err.Error())
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": orderID,
		"actor_id": actor.UserID,
	}).Info("Delivery confirmed")
	return confirmed, nil
}
