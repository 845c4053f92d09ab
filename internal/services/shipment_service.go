// internal/services/shipment_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebridge/marketplace-backend/internal/config"
	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

// LabelResult is the outcome of a successful label generation.
type LabelResult struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	LabelKey   string    `json:"label_key"`
	URL        string    `json:"url"`
	Cached     bool      `json:"cached"`
}

// ShipmentService manages shipment fan-out, the shipment state machine and
// carrier label generation.
type ShipmentService struct {
	db            *gorm.DB
	carrier       CarrierClient
	storage       *StorageService
	cache         *CacheService
	notifications *NotificationService
	config        *config.Config
}

func NewShipmentService(db *gorm.DB, carrier CarrierClient, storage *StorageService, cache *CacheService, notifications *NotificationService, cfg *config.Config) *ShipmentService {
	return &ShipmentService{
		db:            db,
		carrier:       carrier,
		storage:       storage,
		cache:         cache,
		notifications: notifications,
		config:        cfg,
	}
}

// CreateShipment splits off a consignment of an order. Quantities are carved
// out of the unassigned remainder shipment that checkout created: the
// remainder shrinks by what the new consignment claims, and a request that
// consumes it entirely becomes the remainder itself instead of a new row.
// The sequence number is assigned under the order row lock.
func (s *ShipmentService) CreateShipment(orderID uuid.UUID, items []models.ShipmentItem, mode, carrierCode string) (*models.Shipment, error) {
	if len(items) == 0 {
		return nil, errs.Validation(errs.CodeInvalidAmount, "shipment needs at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, errs.Validation(errs.CodeInvalidAmount, "shipment item quantity must be positive")
		}
	}
	if carrierCode == "" {
		carrierCode = "UNASSIGNED"
	}
	if mode == "" {
		mode = "STANDARD"
	}

	var created *models.Shipment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").First(&order, orderID).Error
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPaid && order.Status != models.OrderStatusShipped {
			return errs.Conflict(errs.CodeIllegalTransition,
				fmt.Sprintf("order is %s, shipments require PAID or SHIPPED", order.Status))
		}

		var existing []models.Shipment
		if err := tx.Where("network_order_id = ?", orderID).Find(&existing).Error; err != nil {
			return err
		}

		// The unassigned remainder does not count as claimed; its quantities
		// are exactly what is still open to split off.
		var remainder *models.Shipment
		claimed := make(map[uuid.UUID]int)
		for i := range existing {
			shipment := &existing[i]
			if remainder == nil && shipment.IsUnassignedRemainder() {
				remainder = shipment
				continue
			}
			for _, shipped := range shipment.Items {
				claimed[shipped.OrderItemID] += shipped.Quantity
			}
		}

		remaining := make(map[uuid.UUID]int, len(order.Items))
		for _, item := range order.Items {
			remaining[item.ID] = item.Quantity - claimed[item.ID]
		}
		for _, item := range items {
			left, ok := remaining[item.OrderItemID]
			if !ok {
				return errs.Validation(errs.CodeNotFound,
					fmt.Sprintf("order item %s does not belong to order %s", item.OrderItemID, orderID))
			}
			if item.Quantity > left {
				return errs.Conflict(errs.CodeInvalidAmount,
					fmt.Sprintf("order item %s has only %d units unshipped", item.OrderItemID, left))
			}
			remaining[item.OrderItemID] = left - item.Quantity
		}

		if remainder != nil {
			take := make(map[uuid.UUID]int, len(items))
			for _, item := range items {
				take[item.OrderItemID] += item.Quantity
			}
			var residual models.ShipmentItems
			for _, held := range remainder.Items {
				if left := held.Quantity - take[held.OrderItemID]; left > 0 {
					residual = append(residual, models.ShipmentItem{
						OrderItemID: held.OrderItemID,
						ProductID:   held.ProductID,
						Quantity:    left,
					})
				}
			}

			if len(residual) == 0 {
				// The request takes everything still open: the remainder row
				// becomes this consignment, keeping sequence 1.
				err := tx.Model(remainder).Updates(map[string]interface{}{
					"mode":         mode,
					"carrier_code": carrierCode,
					"items":        models.ShipmentItems(items),
				}).Error
				if err != nil {
					return err
				}
				remainder.Mode = mode
				remainder.CarrierCode = carrierCode
				remainder.Items = items
				created = remainder
				return nil
			}

			if err := tx.Model(remainder).Update("items", residual).Error; err != nil {
				return err
			}
		}

		nextSequence := 1
		for _, shipment := range existing {
			if shipment.Sequence >= nextSequence {
				nextSequence = shipment.Sequence + 1
			}
		}

		shipment := &models.Shipment{
			NetworkOrderID:   orderID,
			Sequence:         nextSequence,
			Mode:             mode,
			CarrierCode:      carrierCode,
			Status:           models.ShipmentStatusCreated,
			DeliveryNoteUUID: uuid.New(),
			Items:            items,
		}
		if err := tx.Create(shipment).Error; err != nil {
			return err
		}
		created = shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":    orderID,
		"shipment_id": created.ID,
		"sequence":    created.Sequence,
	}).Info("Shipment created")
	return created, nil
}

// AdvanceStatus moves a shipment along its state machine and cascades to the
// order: the first consignment in transit marks the order SHIPPED, the last
// delivery marks it DELIVERED.
func (s *ShipmentService) AdvanceStatus(shipmentID uuid.UUID, target models.ShipmentStatus, trackingNumber string) (*models.Shipment, error) {
	var updated *models.Shipment
	var exception bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var shipment models.Shipment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&shipment, shipmentID).Error
		if err != nil {
			return err
		}

		if !shipment.Status.CanTransitionTo(target) {
			return errs.Conflict(errs.CodeIllegalTransition,
				fmt.Sprintf("shipment cannot move %s -> %s", shipment.Status, target))
		}

		updates := map[string]interface{}{"status": target}
		if trackingNumber != "" {
			updates["tracking_number"] = trackingNumber
		}
		if target == models.ShipmentStatusDelivered {
			now := time.Now()
			updates["delivered_at"] = now
			shipment.DeliveredAt = &now
		}
		if err := tx.Model(&shipment).Updates(updates).Error; err != nil {
			return err
		}
		shipment.Status = target
		if trackingNumber != "" {
			shipment.TrackingNumber = trackingNumber
		}

		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, shipment.NetworkOrderID).Error; err != nil {
			return err
		}

		switch target {
		case models.ShipmentStatusInTransit:
			if order.Status == models.OrderStatusPaid && order.Status.CanTransitionTo(models.OrderStatusShipped) {
				if err := tx.Model(&order).Update("status", models.OrderStatusShipped).Error; err != nil {
					return err
				}
			}
		case models.ShipmentStatusDelivered:
			var siblings []models.Shipment
			if err := tx.Where("network_order_id = ?", shipment.NetworkOrderID).Find(&siblings).Error; err != nil {
				return err
			}
			if models.AllDelivered(siblings) && order.Status.CanTransitionTo(models.OrderStatusDelivered) {
				if err := tx.Model(&order).Update("status", models.OrderStatusDelivered).Error; err != nil {
					return err
				}
			}
		case models.ShipmentStatusException:
			exception = true
		}

		updated = &shipment
		return nil
	})
	if err != nil {
		return nil, err
	}

	if exception {
		s.notifications.ShipmentException(updated)
	}
	return updated, nil
}

// GenerateLabel asks the carrier for a label document. PENDING responses
// surface as a retryable signal with a backoff hint; repeated requests are
// throttled per shipment and the finished label is cached and stored.
func (s *ShipmentService) GenerateLabel(shipmentID uuid.UUID) (*LabelResult, error) {
	var shipment models.Shipment
	if err := s.db.First(&shipment, shipmentID).Error; err != nil {
		return nil, err
	}

	if shipment.Status != models.ShipmentStatusCreated && shipment.Status != models.ShipmentStatusLabelCreated {
		return nil, errs.Conflict(errs.CodeIllegalTransition,
			fmt.Sprintf("labels are generated before transit, shipment is %s", shipment.Status))
	}

	// An existing label is served straight from cache or storage
	if shipment.LabelKey != "" {
		url, err := s.storage.GeneratePresignedURL(shipment.LabelKey, 15*time.Minute)
		if err != nil {
			return nil, err
		}
		_, cached := s.cache.Get("label:" + shipment.LabelKey)
		return &LabelResult{ShipmentID: shipment.ID, LabelKey: shipment.LabelKey, URL: url, Cached: cached}, nil
	}

	base := time.Duration(s.config.Carrier.BackoffBaseMillis) * time.Millisecond
	maxDelay := time.Duration(s.config.Carrier.BackoffCapMillis) * time.Millisecond
	throttleTTL := time.Duration(s.config.Cache.ThrottleTTLSeconds) * time.Second

	attempt := s.cache.Increment(fmt.Sprintf("label:attempts:%s", shipment.ID), throttleTTL)
	if attempt > s.config.Carrier.MaxLabelAttempts {
		return nil, &errs.ProviderFailure{
			Provider: s.carrier.Name(),
			Message:  fmt.Sprintf("label generation exhausted %d attempts", s.config.Carrier.MaxLabelAttempts),
		}
	}

	var order models.Order
	if err := s.db.First(&order, shipment.NetworkOrderID).Error; err != nil {
		return nil, err
	}

	response, err := s.carrier.Submit(CarrierRequest{
		CompanyID:      order.SellerCompanyID,
		Marketplace:    "network",
		OrderID:        order.ID,
		ActionKey:      "create_label",
		IdempotencyKey: fmt.Sprintf("label-%s-%d", shipment.ID, shipment.Sequence),
		Payload: map[string]interface{}{
			"shipment_id":   shipment.ID.String(),
			"sequence":      shipment.Sequence,
			"carrier_code":  shipment.CarrierCode,
			"delivery_note": shipment.DeliveryNoteUUID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	switch response.Status {
	case CarrierCallPending:
		return nil, &errs.ProviderPendingError{
			Provider:   s.carrier.Name(),
			Attempt:    attempt,
			RetryAfter: BackoffDelay(attempt, base, maxDelay),
		}
	case CarrierCallFailed:
		return nil, &errs.ProviderFailure{Provider: s.carrier.Name(), Message: response.ErrorMessage}
	}

	labelKey := s.storage.LabelKey(shipment.ID)
	if err := s.storage.PutObject(labelKey, response.Result, "application/pdf"); err != nil {
		return nil, err
	}
	s.cache.Set("label:"+labelKey, response.Result,
		time.Duration(s.config.Cache.LabelTTLSeconds)*time.Second)

	err = s.db.Model(&shipment).Updates(map[string]interface{}{
		"label_key": labelKey,
		"status":    models.ShipmentStatusLabelCreated,
	}).Error
	if err != nil {
		return nil, err
	}

	url, err := s.storage.GeneratePresignedURL(labelKey, 15*time.Minute)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"shipment_id": shipment.ID,
		"label_key":   labelKey,
		"attempt":     attempt,
	}).Info("Shipment label generated")
	return &LabelResult{ShipmentID: shipment.ID, LabelKey: labelKey, URL: url}, nil
}

// GetShipment loads one shipment with ownership resolved through its order.
func (s *ShipmentService) GetShipment(shipmentID uuid.UUID) (*models.Shipment, *models.Order, error) {
	var shipment models.Shipment
	if err := s.db.First(&shipment, shipmentID).Error; err != nil {
		return nil, nil, err
	}
	var order models.Order
	if err := s.db.First(&order, shipment.NetworkOrderID).Error; err != nil {
		return nil, nil, err
	}
	return &shipment, &order, nil
}

// ListForOrder returns an order's shipments in sequence order.
func (s *ShipmentService) ListForOrder(orderID uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := s.db.Where("network_order_id = ?", orderID).Order("sequence ASC").Find(&shipments).Error
	return shipments, err
}
