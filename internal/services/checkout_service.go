// internal/services/checkout_service.go
package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/metrics"
	"github.com/tradebridge/marketplace-backend/internal/models"
	"github.com/tradebridge/marketplace-backend/internal/utils"
)

// GroupResult is the per-seller outcome of a checkout commit. A failed group
// carries the error code; other groups proceed independently.
type GroupResult struct {
	SellerCompanyID uuid.UUID     `json:"seller_company_id"`
	Order           *models.Order `json:"order,omitempty"`
	ErrorCode       string        `json:"error_code,omitempty"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

// CheckoutResult reports the fan-out of one checkout attempt.
type CheckoutResult struct {
	AttemptKey string        `json:"attempt_key"`
	Replayed   bool          `json:"replayed"`
	Groups     []GroupResult `json:"groups"`
}

// PreviewLine is a dry-run resolution of one cart line.
type PreviewLine struct {
	ProductID        uuid.UUID `json:"product_id"`
	ListingID        uuid.UUID `json:"listing_id"`
	UnitPrice        float64   `json:"unit_price"`
	Quantity         int       `json:"quantity"`
	LineTotal        float64   `json:"line_total"`
	IsContractPriced bool      `json:"is_contract_priced"`
	ErrorCode        string    `json:"error_code,omitempty"`
}

// PreviewGroup is the dry-run projection of one would-be order.
type PreviewGroup struct {
	SellerCompanyID  uuid.UUID     `json:"seller_company_id"`
	Lines            []PreviewLine `json:"lines"`
	SubtotalAmount   float64       `json:"subtotal_amount"`
	CommissionAmount float64       `json:"commission_amount"`
	ShippingAmount   float64       `json:"shipping_amount"`
	TotalAmount      float64       `json:"total_amount"`
}

// CheckoutService turns a cart into per-seller orders. Commit is idempotent
// per attempt key and each seller group commits or fails atomically on its
// own.
type CheckoutService struct {
	db            *gorm.DB
	trust         TrustScoreProvider
	provider      PaymentProvider
	notifications *NotificationService
	metrics       *metrics.SettlementMetrics
	currency      string
}

func NewCheckoutService(db *gorm.DB, trust TrustScoreProvider, provider PaymentProvider, notifications *NotificationService, settlementMetrics *metrics.SettlementMetrics, currency string) *CheckoutService {
	return &CheckoutService{
		db:            db,
		trust:         trust,
		provider:      provider,
		notifications: notifications,
		metrics:       settlementMetrics,
		currency:      currency,
	}
}

// sellerGroup is a cart partition keyed by seller company.
type sellerGroup struct {
	SellerCompanyID uuid.UUID
	Lines           []models.CartLine
}

// groupBySeller partitions cart lines and orders groups by seller ID so a
// replayed or retried checkout processes groups in the same sequence.
func groupBySeller(lines []models.CartLine) []sellerGroup {
	byID := make(map[uuid.UUID][]models.CartLine)
	for _, line := range lines {
		byID[line.SellerCompanyID] = append(byID[line.SellerCompanyID], line)
	}

	groups := make([]sellerGroup, 0, len(byID))
	for sellerID, groupLines := range byID {
		groups = append(groups, sellerGroup{SellerCompanyID: sellerID, Lines: groupLines})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].SellerCompanyID.String() < groups[j].SellerCompanyID.String()
	})
	return groups
}

// groupAttemptKey derives the per-seller payment idempotency key from the
// checkout attempt key.
func groupAttemptKey(attemptKey string, sellerCompanyID uuid.UUID) string {
	return fmt.Sprintf("%s-%s", attemptKey, sellerCompanyID)
}

// Preview resolves prices, commission and availability without writing
// anything. No stock is reserved.
func (s *CheckoutService) Preview(buyerCompanyID uuid.UUID) ([]PreviewGroup, error) {
	var lines []models.CartLine
	if err := s.db.Where("buyer_company_id = ?", buyerCompanyID).Find(&lines).Error; err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errs.Validation(errs.CodeEmptyCart, "cart is empty")
	}

	pricing := NewPricingService(s.db)
	commission := NewCommissionService(s.db)
	now := time.Now()

	groups := groupBySeller(lines)
	result := make([]PreviewGroup, 0, len(groups))
	for _, group := range groups {
		preview := PreviewGroup{SellerCompanyID: group.SellerCompanyID}

		for _, line := range group.Lines {
			previewLine := PreviewLine{ProductID: line.ProductID, Quantity: line.Quantity}

			var listing models.Listing
			err := s.db.Where("seller_company_id = ? AND product_id = ?",
				group.SellerCompanyID, line.ProductID).First(&listing).Error
			if err == gorm.ErrRecordNotFound || (err == nil && listing.Status != models.ListingStatusActive) {
				previewLine.ErrorCode = errs.CodeListingUnavailable
				preview.Lines = append(preview.Lines, previewLine)
				continue
			}
			if err != nil {
				return nil, err
			}

			previewLine.ListingID = listing.ID
			switch {
			case line.Quantity < listing.MinQty:
				previewLine.ErrorCode = errs.CodeBelowMinQty
			case line.Quantity > listing.AvailableQty:
				previewLine.ErrorCode = errs.CodeInsufficientStock
			}

			price, err := pricing.ResolveUnitPrice(buyerCompanyID, group.SellerCompanyID, &listing, line.Quantity, now)
			if err != nil {
				return nil, err
			}
			previewLine.UnitPrice = price.UnitPrice
			previewLine.IsContractPriced = price.IsContractPriced
			previewLine.LineTotal = round2(price.UnitPrice * float64(line.Quantity))

			if previewLine.ErrorCode == "" {
				breakdown, err := commission.CommissionFor(group.SellerCompanyID,
					MatchContext{Category: listing.Category, Brand: listing.Brand}, previewLine.LineTotal)
				if err != nil {
					return nil, err
				}
				preview.SubtotalAmount = round2(preview.SubtotalAmount + previewLine.LineTotal)
				preview.CommissionAmount = round2(preview.CommissionAmount + breakdown.Total)
			}
			preview.Lines = append(preview.Lines, previewLine)
		}

		preview.TotalAmount = round2(preview.SubtotalAmount + preview.ShippingAmount + preview.CommissionAmount)
		result = append(result, preview)
	}
	return result, nil
}

// Commit executes the checkout. Replays of an attempt key return the orders
// created the first time without touching stock or the cart.
func (s *CheckoutService) Commit(buyerCompanyID uuid.UUID, actorUserID uuid.UUID, attemptKey string) (*CheckoutResult, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveCheckout(time.Since(started).Seconds())
	}()

	if replayed, err := s.findReplay(attemptKey); err != nil {
		return nil, err
	} else if replayed != nil {
		s.metrics.CheckoutReplayed()
		logrus.WithFields(logrus.Fields{
			"buyer_id":    buyerCompanyID,
			"actor_id":    actorUserID,
			"attempt_key": attemptKey,
		}).Info("Checkout attempt replayed")
		return replayed, nil
	}

	var lines []models.CartLine
	if err := s.db.Where("buyer_company_id = ?", buyerCompanyID).Find(&lines).Error; err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errs.Validation(errs.CodeEmptyCart, "cart is empty")
	}

	result := &CheckoutResult{AttemptKey: attemptKey}
	for _, group := range groupBySeller(lines) {
		groupResult := GroupResult{SellerCompanyID: group.SellerCompanyID}

		order, err := s.commitGroup(buyerCompanyID, group, attemptKey)
		if err != nil {
			groupResult.ErrorCode = errs.CodeOf(err)
			groupResult.ErrorMessage = err.Error()
			s.metrics.CheckoutFailed(groupResult.ErrorCode)
			logrus.WithFields(logrus.Fields{
				"buyer_id":  buyerCompanyID,
				"seller_id": group.SellerCompanyID,
				"code":      groupResult.ErrorCode,
			}).WithError(err).Warn("Checkout group failed")
		} else {
			groupResult.Order = order
			s.metrics.OrderCreated()
			s.notifications.OrderCreated(order)
		}
		result.Groups = append(result.Groups, groupResult)
	}
	return result, nil
}

// findReplay returns the prior result when the attempt key has already
// produced payments. The lookup is an exact match on the stored checkout key;
// keys that merely extend one another stay distinct.
func (s *CheckoutService) findReplay(attemptKey string) (*CheckoutResult, error) {
	var payments []models.Payment
	err := s.db.Where("checkout_key = ?", attemptKey).Find(&payments).Error
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}

	result := &CheckoutResult{AttemptKey: attemptKey, Replayed: true}
	for _, payment := range payments {
		var order models.Order
		err := s.db.Preload("Items").Preload("Payment").Preload("Shipments").
			First(&order, payment.NetworkOrderID).Error
		if err != nil {
			return nil, err
		}
		result.Groups = append(result.Groups, GroupResult{
			SellerCompanyID: order.SellerCompanyID,
			Order:           &order,
		})
	}
	sort.Slice(result.Groups, func(i, j int) bool {
		return result.Groups[i].SellerCompanyID.String() < result.Groups[j].SellerCompanyID.String()
	})
	return result, nil
}

// commitGroup creates one seller group's Order, OrderItems, Payment and
// initial Shipment in a single transaction, decrements stock conditionally
// and clears the group's cart lines. Any failure rolls the whole group back.
func (s *CheckoutService) commitGroup(buyerCompanyID uuid.UUID, group sellerGroup, attemptKey string) (*models.Order, error) {
	var created *models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		pricing := NewPricingService(tx)
		commission := NewCommissionService(tx)
		now := time.Now()

		var (
			items            []models.OrderItem
			subtotal         float64
			commissionAmount float64
			contractPriced   bool
		)

		for _, line := range group.Lines {
			var listing models.Listing
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("seller_company_id = ? AND product_id = ?", group.SellerCompanyID, line.ProductID).
				First(&listing).Error
			if err == gorm.ErrRecordNotFound {
				return errs.Conflict(errs.CodeListingUnavailable,
					fmt.Sprintf("no listing for product %s", line.ProductID))
			}
			if err != nil {
				return err
			}
			if listing.Status != models.ListingStatusActive {
				return errs.Conflict(errs.CodeListingUnavailable,
					fmt.Sprintf("listing %s is not active", listing.ID))
			}
			if line.Quantity < listing.MinQty {
				return errs.Conflict(errs.CodeBelowMinQty,
					fmt.Sprintf("quantity %d below listing minimum %d", line.Quantity, listing.MinQty))
			}

			// Conditional decrement is the oversell guard: the WHERE clause
			// re-checks availability at write time, so two concurrent
			// checkouts can never both take the last units.
			decrement := tx.Model(&models.Listing{}).
				Where("id = ? AND available_qty >= ?", listing.ID, line.Quantity).
				UpdateColumn("available_qty", gorm.Expr("available_qty - ?", line.Quantity))
			if decrement.Error != nil {
				return decrement.Error
			}
			if decrement.RowsAffected == 0 {
				s.metrics.OversellRejected()
				return errs.Conflict(errs.CodeInsufficientStock,
					fmt.Sprintf("listing %s has fewer than %d units available", listing.ID, line.Quantity))
			}

			price, err := pricing.ResolveUnitPrice(buyerCompanyID, group.SellerCompanyID, &listing, line.Quantity, now)
			if err != nil {
				return err
			}
			if price.IsContractPriced {
				contractPriced = true
			}

			lineTotal := round2(price.UnitPrice * float64(line.Quantity))
			breakdown, err := commission.CommissionFor(group.SellerCompanyID,
				MatchContext{Category: listing.Category, Brand: listing.Brand}, lineTotal)
			if err != nil {
				return err
			}

			subtotal = round2(subtotal + lineTotal)
			commissionAmount = round2(commissionAmount + breakdown.Total)
			items = append(items, models.OrderItem{
				GlobalProductID:  line.ProductID,
				ListingID:        listing.ID,
				UnitPrice:        price.UnitPrice,
				Quantity:         line.Quantity,
				LineTotal:        lineTotal,
				IsContractPriced: price.IsContractPriced,
			})
		}

		itemDigests := make([]utils.ItemDigest, len(items))
		for i, item := range items {
			itemDigests[i] = utils.ItemDigest{
				ProductID: item.GlobalProductID,
				ListingID: item.ListingID,
				UnitPrice: item.UnitPrice,
				Quantity:  item.Quantity,
			}
		}

		sourceType := models.OrderSourceCart
		if contractPriced {
			sourceType = models.OrderSourceContract
		}

		order := &models.Order{
			BuyerCompanyID:   buyerCompanyID,
			SellerCompanyID:  group.SellerCompanyID,
			Currency:         s.currency,
			SubtotalAmount:   subtotal,
			CommissionAmount: commissionAmount,
			ShippingAmount:   0,
			TotalAmount:      round2(subtotal + commissionAmount),
			Status:           models.OrderStatusInit,
			ItemsHash:        utils.HashOrderItems(itemDigests),
			SourceType:       sourceType,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		holdDays := HoldDaysForTier(s.trust.TierFor(group.SellerCompanyID))
		payment := &models.Payment{
			NetworkOrderID: order.ID,
			Provider:       s.provider.Name(),
			Mode:           models.PaymentModeEscrow,
			Status:         models.PaymentStatusInitiated,
			Amount:         order.TotalAmount,
			Currency:       order.Currency,
			CheckoutKey:    attemptKey,
			AttemptKey:     groupAttemptKey(attemptKey, group.SellerCompanyID),
			HoldDays:       holdDays,
		}
		// A concurrent commit with the same attempt key loses here on the
		// attempt_key unique index; the caller resolves the duplicate to the
		// winner's order.
		if err := tx.Create(payment).Error; err != nil {
			return err
		}

		shipmentItems := make(models.ShipmentItems, len(items))
		for i, item := range items {
			shipmentItems[i] = models.ShipmentItem{
				OrderItemID: item.ID,
				ProductID:   item.GlobalProductID,
				Quantity:    item.Quantity,
			}
		}
		// Sequence 1 starts as the unassigned remainder claiming every item;
		// later split-offs carve their quantities out of it.
		shipment := &models.Shipment{
			NetworkOrderID:   order.ID,
			Sequence:         1,
			CarrierCode:      "UNASSIGNED",
			Status:           models.ShipmentStatusCreated,
			DeliveryNoteUUID: uuid.New(),
			Items:            shipmentItems,
		}
		if err := tx.Create(shipment).Error; err != nil {
			return err
		}

		if !order.Status.CanTransitionTo(models.OrderStatusPendingPayment) {
			return errs.Conflict(errs.CodeIllegalTransition, "order cannot enter PENDING_PAYMENT")
		}
		order.Status = models.OrderStatusPendingPayment
		if err := tx.Model(order).Update("status", models.OrderStatusPendingPayment).Error; err != nil {
			return err
		}

		// Only the committed group's cart lines are cleared; failed groups
		// keep theirs for a corrected retry.
		if err := tx.Where("buyer_company_id = ? AND seller_company_id = ?",
			buyerCompanyID, group.SellerCompanyID).Delete(&models.CartLine{}).Error; err != nil {
			return err
		}

		order.Items = items
		order.Payment = payment
		order.Shipments = []models.Shipment{*shipment}
		created = order
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the idempotency race; resolve to the winner's order.
		var payment models.Payment
		findErr := s.db.Where("attempt_key = ?", groupAttemptKey(attemptKey, group.SellerCompanyID)).
			First(&payment).Error
		if findErr != nil {
			return nil, findErr
		}
		var order models.Order
		if findErr := s.db.Preload("Items").Preload("Payment").Preload("Shipments").
			First(&order, payment.NetworkOrderID).Error; findErr != nil {
			return nil, findErr
		}
		return &order, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}
