// internal/services/carrier_service.go
package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CarrierCallStatus string

const (
	CarrierCallSuccess CarrierCallStatus = "SUCCESS"
	CarrierCallFailed  CarrierCallStatus = "FAILED"
	CarrierCallPending CarrierCallStatus = "PENDING"
)

type CarrierRequest struct {
	CompanyID      uuid.UUID              `json:"company_id"`
	Marketplace    string                 `json:"marketplace"`
	OrderID        uuid.UUID              `json:"order_id"`
	ActionKey      string                 `json:"action_key"`
	IdempotencyKey string                 `json:"idempotency_key"`
	Payload        map[string]interface{} `json:"payload"`
}

type CarrierResponse struct {
	Status       CarrierCallStatus `json:"status"`
	Result       []byte            `json:"result,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// CarrierClient is the carrier/label provider collaborator. PENDING results
// are retried by the caller with exponential backoff.
type CarrierClient interface {
	Submit(req CarrierRequest) (*CarrierResponse, error)
	Name() string
}

// BackoffDelay returns the suggested delay before the given retry attempt
// (1-based): base doubles per attempt, capped.
func BackoffDelay(attempt int, base, cap time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}

// MockCarrierClient simulates a label provider: the first PendingCalls
// submissions per idempotency key return PENDING, then a PDF-ish payload.
type MockCarrierClient struct {
	PendingCalls int
	FailAll      bool
	seen         map[string]int
}

func NewMockCarrierClient() *MockCarrierClient {
	return &MockCarrierClient{
		PendingCalls: 1,
		seen:         make(map[string]int),
	}
}

func (m *MockCarrierClient) Name() string { return "MOCK_CARRIER" }

func (m *MockCarrierClient) Submit(req CarrierRequest) (*CarrierResponse, error) {
	if m.seen == nil {
		m.seen = make(map[string]int)
	}
	m.seen[req.IdempotencyKey]++

	logrus.WithFields(logrus.Fields{
		"carrier":    m.Name(),
		"action":     req.ActionKey,
		"order_id":   req.OrderID,
		"attempt":    m.seen[req.IdempotencyKey],
		"company_id": req.CompanyID,
	}).Info("Carrier call submitted")

	if m.FailAll {
		return &CarrierResponse{
			Status:       CarrierCallFailed,
			ErrorMessage: "carrier rejected the request",
		}, nil
	}

	if m.seen[req.IdempotencyKey] <= m.PendingCalls {
		return &CarrierResponse{Status: CarrierCallPending}, nil
	}

	label := fmt.Sprintf("%%PDF-1.4 label order=%s action=%s", req.OrderID, req.ActionKey)
	return &CarrierResponse{
		Status: CarrierCallSuccess,
		Result: []byte(label),
	}, nil
}
