// internal/services/notification_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tradebridge/marketplace-backend/internal/models"
)

// NotificationService records settlement lifecycle events for operators.
// Delivery to end users (email, push) is an external collaborator; this
// service only writes notification rows and structured logs.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// InTx scopes notification writes to a caller's transaction so the row
// commits or rolls back with the event it records.
func (s *NotificationService) InTx(tx *gorm.DB) *NotificationService {
	return &NotificationService{db: tx}
}

func (s *NotificationService) record(notificationType, priority, title, message, resourceType string, resourceID uuid.UUID) {
	notification := &models.AdminNotification{
		Type:                notificationType,
		Title:               title,
		Message:             message,
		Priority:            priority,
		RelatedResourceType: resourceType,
		RelatedResourceID:   &resourceID,
	}

	if err := s.db.Create(notification).Error; err != nil {
		logrus.WithError(err).WithField("type", notificationType).Error("Failed to record notification")
	}
}

func (s *NotificationService) OrderCreated(order *models.Order) {
	logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"buyer_id":  order.BuyerCompanyID,
		"seller_id": order.SellerCompanyID,
		"total":     order.TotalAmount,
	}).Info("Order created")

	s.record("order_created", "low",
		"New order",
		fmt.Sprintf("Order %s created for %.2f %s", order.ID, order.TotalAmount, order.Currency),
		"order", order.ID)
}

func (s *NotificationService) PayoutReleased(order *models.Order, payment *models.Payment, forced bool) {
	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
		"amount":     payment.Amount,
		"forced":     forced,
	}).Info("Escrow payout released")

	title := "Escrow released"
	priority := "low"
	if forced {
		title = "Escrow force-released"
		priority = "high"
	}

	s.record("payout_released", priority, title,
		fmt.Sprintf("Payout for order %s released (%.2f %s)", order.ID, payment.Amount, payment.Currency),
		"payment", payment.ID)
}

func (s *NotificationService) PayoutFailed(order *models.Order, payment *models.Payment, reason string) {
	logrus.WithFields(logrus.Fields{
		"order_id":   order.ID,
		"payment_id": payment.ID,
		"reason":     reason,
	}).Error("Escrow payout failed")

	s.record("payout_failed", "high",
		"Escrow payout failed",
		fmt.Sprintf("Payout for order %s failed: %s", order.ID, reason),
		"payment", payment.ID)
}

func (s *NotificationService) ShipmentException(shipment *models.Shipment) {
	logrus.WithFields(logrus.Fields{
		"shipment_id": shipment.ID,
		"order_id":    shipment.NetworkOrderID,
		"sequence":    shipment.Sequence,
	}).Warn("Shipment entered EXCEPTION state")

	s.record("shipment_exception", "high",
		"Shipment exception",
		fmt.Sprintf("Shipment %d of order %s requires manual resync", shipment.Sequence, shipment.NetworkOrderID),
		"shipment", shipment.ID)
}
