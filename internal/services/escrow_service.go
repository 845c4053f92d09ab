// internal/services/escrow_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/payout"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradebridge/marketplace-backend/internal/errs"
	"github.com/tradebridge/marketplace-backend/internal/metrics"
	"github.com/tradebridge/marketplace-backend/internal/models"
)

// PaymentProvider is the money-movement collaborator. The engine owns escrow
// state; the provider owns the actual funds.
type PaymentProvider interface {
	Name() string
	CreateIntent(orderID uuid.UUID, amount float64, currency string) (string, error)
	ReleasePayout(payment *models.Payment) (string, error)
}

// MockPaymentProvider is the in-memory provider for local runs and tests.
type MockPaymentProvider struct {
	FailRelease bool
	Intents     int
	Releases    int
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) Name() string { return "MOCK" }

func (m *MockPaymentProvider) CreateIntent(orderID uuid.UUID, amount float64, currency string) (string, error) {
	m.Intents++
	return fmt.Sprintf("mock_pi_%s", orderID), nil
}

func (m *MockPaymentProvider) ReleasePayout(payment *models.Payment) (string, error) {
	m.Releases++
	if m.FailRelease {
		return "", fmt.Errorf("mock provider rejected payout")
	}
	return fmt.Sprintf("mock_po_%s", payment.ID), nil
}

// StripePaymentProvider backs escrow with Stripe payment intents and payouts.
type StripePaymentProvider struct{}

func NewStripePaymentProvider(secretKey string) *StripePaymentProvider {
	stripe.Key = secretKey
	return &StripePaymentProvider{}
}

func (p *StripePaymentProvider) Name() string { return "STRIPE" }

func (p *StripePaymentProvider) CreateIntent(orderID uuid.UUID, amount float64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount * 100)),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("network_order_id", orderID.String())
	pi, err := paymentintent.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payment intent: %w", err)
	}
	return pi.ID, nil
}

func (p *StripePaymentProvider) ReleasePayout(payment *models.Payment) (string, error) {
	sellerAmount := payment.Amount
	params := &stripe.PayoutParams{
		Amount:   stripe.Int64(int64(sellerAmount * 100)),
		Currency: stripe.String(payment.Currency),
	}
	params.AddMetadata("payment_id", payment.ID.String())
	params.AddMetadata("network_order_id", payment.NetworkOrderID.String())
	po, err := payout.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create payout: %w", err)
	}
	return po.ID, nil
}

// EscrowService owns the payment and payout state machines and the ledger.
type EscrowService struct {
	db            *gorm.DB
	provider      PaymentProvider
	notifications *NotificationService
	metrics       *metrics.SettlementMetrics
}

func NewEscrowService(db *gorm.DB, provider PaymentProvider, notifications *NotificationService, settlementMetrics *metrics.SettlementMetrics) *EscrowService {
	return &EscrowService{
		db:            db,
		provider:      provider,
		notifications: notifications,
		metrics:       settlementMetrics,
	}
}

// CreateIntent asks the provider for a client-side payment reference for an
// order awaiting payment.
func (s *EscrowService) CreateIntent(orderID uuid.UUID) (string, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		return "", err
	}
	if order.Status != models.OrderStatusPendingPayment {
		return "", errs.Conflict(errs.CodeIllegalTransition,
			fmt.Sprintf("order is %s, not PENDING_PAYMENT", order.Status))
	}
	return s.provider.CreateIntent(order.ID, order.TotalAmount, order.Currency)
}

// HandlePaymentCallback applies the provider's payment outcome. A repeated
// success callback is a no-op; a failure cancels the order and returns its
// reserved stock.
func (s *EscrowService) HandlePaymentCallback(orderID uuid.UUID, succeeded bool, reference, failureReason string) (*models.Payment, error) {
	var result *models.Payment

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			return err
		}

		var payment models.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("network_order_id = ?", orderID).First(&payment).Error
		if err != nil {
			return err
		}

		if payment.Status == models.PaymentStatusPaid {
			// Duplicate success callback
			result = &payment
			return nil
		}

		if succeeded {
			if !payment.Status.CanTransitionTo(models.PaymentStatusPaid) {
				return errs.Conflict(errs.CodeIllegalTransition,
					fmt.Sprintf("payment is %s, cannot mark PAID", payment.Status))
			}
			if !order.Status.CanTransitionTo(models.OrderStatusPaid) {
				return errs.Conflict(errs.CodeIllegalTransition,
					fmt.Sprintf("order is %s, cannot mark PAID", order.Status))
			}

			now := time.Now()
			pending := models.PayoutStatusPending
			payment.Status = models.PaymentStatusPaid
			payment.PayoutStatus = &pending
			payment.PaidAt = &now
			if err := tx.Model(&payment).Updates(map[string]interface{}{
				"status":        models.PaymentStatusPaid,
				"payout_status": pending,
				"paid_at":       now,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&order).Updates(map[string]interface{}{
				"status":  models.OrderStatusPaid,
				"paid_at": now,
			}).Error; err != nil {
				return err
			}

			held := &models.LedgerEntry{
				OrderID:         order.ID,
				BuyerCompanyID:  order.BuyerCompanyID,
				SellerCompanyID: order.SellerCompanyID,
				EntryType:       models.LedgerEntryEscrowHeld,
				Amount:          payment.Amount,
				Currency:        payment.Currency,
				Metadata:        models.JSONB{"provider": payment.Provider, "reference": reference},
			}
			if err := tx.Create(held).Error; err != nil {
				return err
			}
			result = &payment
			return nil
		}

		if payment.Status == models.PaymentStatusFailed {
			// Duplicate failure callback; stock was already returned
			result = &payment
			return nil
		}

		// Failed payment: terminal for this order, reserved units go back.
		if !payment.Status.CanTransitionTo(models.PaymentStatusFailed) {
			return errs.Conflict(errs.CodeIllegalTransition,
				fmt.Sprintf("payment is %s, cannot mark FAILED", payment.Status))
		}
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":         models.PaymentStatusFailed,
			"failure_reason": failureReason,
		}).Error; err != nil {
			return err
		}
		if order.Status.CanTransitionTo(models.OrderStatusCancelled) {
			if err := tx.Model(&order).Update("status", models.OrderStatusCancelled).Error; err != nil {
				return err
			}
		}
		for _, item := range order.Items {
			err := tx.Model(&models.Listing{}).Where("id = ?", item.ListingID).
				UpdateColumn("available_qty", gorm.Expr("available_qty + ?", item.Quantity)).Error
			if err != nil {
				return err
			}
		}
		payment.Status = models.PaymentStatusFailed
		result = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":  orderID,
		"succeeded": succeeded,
		"status":    result.Status,
	}).Info("Payment callback processed")
	return result, nil
}

type releaseOptions struct {
	Force       bool
	Reason      string
	ActorUserID *uuid.UUID
}

// ReleaseInTx releases the escrow for an order inside the caller's
// transaction: provider payout, both ledger postings and the payout status
// flip commit or roll back together. Already-released payments are a no-op.
func (s *EscrowService) ReleaseInTx(tx *gorm.DB, orderID uuid.UUID, opts releaseOptions) (*models.Payment, error) {
	var order models.Order
	if err := tx.Preload("Shipments").First(&order, orderID).Error; err != nil {
		return nil, err
	}

	var payment models.Payment
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("network_order_id = ?", orderID).First(&payment).Error
	if err != nil {
		return nil, err
	}

	if payment.PayoutStatus != nil && *payment.PayoutStatus == models.PayoutStatusReleased {
		return &payment, nil
	}

	if payment.Status != models.PaymentStatusPaid || payment.PayoutStatus == nil {
		return nil, errs.Conflict(errs.CodeIllegalTransition,
			fmt.Sprintf("payment is %s, escrow was never funded", payment.Status))
	}
	if !payment.PayoutStatus.CanTransitionTo(models.PayoutStatusReleased) {
		return nil, errs.Conflict(errs.CodeIllegalTransition,
			fmt.Sprintf("payout is %s, cannot release", *payment.PayoutStatus))
	}
	if *payment.PayoutStatus == models.PayoutStatusFailed && !opts.Force {
		return nil, errs.Conflict(errs.CodeIllegalTransition,
			"payout previously failed, recovery requires force-release")
	}
	if opts.Force && *payment.PayoutStatus != models.PayoutStatusFailed {
		return nil, errs.Conflict(errs.CodeIllegalTransition,
			fmt.Sprintf("payout is %s, force-release recovers FAILED payouts only", *payment.PayoutStatus))
	}
	// The delivery predicate holds even under force: funds never move while
	// goods are in transit.
	if !models.AllDelivered(order.Shipments) {
		return nil, errs.Conflict(errs.CodeNotAllDelivered,
			"escrow releases only after every shipment is delivered")
	}

	reference, err := s.provider.ReleasePayout(&payment)
	if err != nil {
		return nil, &errs.ProviderFailure{Provider: s.provider.Name(), Message: err.Error()}
	}

	commissionAmount := order.CommissionAmount
	sellerAmount := round2(order.SubtotalAmount - commissionAmount)
	metadata := models.JSONB{
		"provider":  s.provider.Name(),
		"reference": reference,
		"forced":    opts.Force,
	}
	if opts.Reason != "" {
		metadata["reason"] = opts.Reason
	}

	entries := []models.LedgerEntry{
		{
			OrderID:         order.ID,
			BuyerCompanyID:  order.BuyerCompanyID,
			SellerCompanyID: order.SellerCompanyID,
			ActorUserID:     opts.ActorUserID,
			EntryType:       models.LedgerEntryCommissionCaptured,
			Amount:          commissionAmount,
			Currency:        payment.Currency,
			Metadata:        metadata,
		},
		{
			OrderID:         order.ID,
			BuyerCompanyID:  order.BuyerCompanyID,
			SellerCompanyID: order.SellerCompanyID,
			ActorUserID:     opts.ActorUserID,
			EntryType:       models.LedgerEntrySellerReleased,
			Amount:          sellerAmount,
			Currency:        payment.Currency,
			Metadata:        metadata,
		},
	}
	if err := tx.Create(&entries).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	released := models.PayoutStatusReleased
	if err := tx.Model(&payment).Updates(map[string]interface{}{
		"payout_status": released,
		"released_at":   now,
	}).Error; err != nil {
		return nil, err
	}
	payment.PayoutStatus = &released
	payment.ReleasedAt = &now

	s.metrics.EscrowReleased()
	s.notifications.InTx(tx).PayoutReleased(&order, &payment, opts.Force)
	return &payment, nil
}

// Release runs ReleaseInTx in its own transaction. Provider failures are
// recorded on the payment after rollback so the FAILED state survives.
func (s *EscrowService) Release(orderID uuid.UUID, actorUserID *uuid.UUID) (*models.Payment, error) {
	var payment *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		released, err := s.ReleaseInTx(tx, orderID, releaseOptions{ActorUserID: actorUserID})
		if err != nil {
			return err
		}
		payment = released
		return nil
	})
	if errs.IsProviderFailure(err) {
		s.MarkPayoutFailed(orderID, err.Error())
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ForceRelease is the admin recovery path for payouts stuck in FAILED: it
// retries the provider payout, demands a typed confirmation matching the
// order ID plus a non-empty reason, and leaves an audit row. Deliveries must
// still all be in; a payout only ever reaches FAILED after that point.
func (s *EscrowService) ForceRelease(orderID uuid.UUID, actor *models.Session, confirmation, reason string) (*models.Payment, error) {
	if reason == "" {
		return nil, errs.Validation(errs.CodeMissingReason, "force-release requires a reason")
	}
	if confirmation != orderID.String() {
		return nil, errs.Validation(errs.CodeConfirmationMismatch,
			"confirmation text must exactly match the order id")
	}

	var payment *models.Payment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		released, err := s.ReleaseInTx(tx, orderID, releaseOptions{
			Force:       true,
			Reason:      reason,
			ActorUserID: &actor.UserID,
		})
		if err != nil {
			return err
		}
		payment = released

		audit := &models.AuditLog{
			UserID:       &actor.UserID,
			CompanyID:    &actor.CompanyID,
			Action:       "escrow.force_release",
			ResourceType: "order",
			ResourceID:   &orderID,
			Reason:       reason,
			NewValues:    models.JSONB{"payout_status": models.PayoutStatusReleased},
		}
		return tx.Create(audit).Error
	})
	if errs.IsProviderFailure(err) {
		s.MarkPayoutFailed(orderID, err.Error())
	}
	if err != nil {
		return nil, err
	}

	s.metrics.ForceReleased()
	logrus.WithFields(logrus.Fields{
		"order_id": orderID,
		"actor_id": actor.UserID,
		"reason":   reason,
	}).Warn("Escrow force-released")
	return payment, nil
}

// MarkPayoutFailed records a provider payout failure outside the release
// transaction so the FAILED state persists after rollback.
func (s *EscrowService) MarkPayoutFailed(orderID uuid.UUID, reason string) {
	var payment models.Payment
	if err := s.db.Where("network_order_id = ?", orderID).First(&payment).Error; err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("Failed to load payment for failure mark")
		return
	}
	if payment.PayoutStatus == nil || !payment.PayoutStatus.CanTransitionTo(models.PayoutStatusFailed) {
		return
	}

	err := s.db.Model(&payment).Updates(map[string]interface{}{
		"payout_status":  models.PayoutStatusFailed,
		"failure_reason": reason,
	}).Error
	if err != nil {
		logrus.WithError(err).WithField("order_id", orderID).Error("Failed to mark payout FAILED")
		return
	}

	s.metrics.PayoutFailed()
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err == nil {
		s.notifications.PayoutFailed(&order, &payment, reason)
	}
}

// LedgerForOrder returns the immutable postings for one order.
func (s *EscrowService) LedgerForOrder(orderID uuid.UUID) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}
