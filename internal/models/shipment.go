// internal/models/shipment.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ShipmentItem is one order item (or part of one) carried by a shipment.
type ShipmentItem struct {
	OrderItemID uuid.UUID `json:"order_item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
}

type ShipmentItems []ShipmentItem

func (s ShipmentItems) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *ShipmentItems) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return nil
}

// Shipment is one physical consignment of an order. Sequence is a 1-based
// per-order counter; multiple shipments implement partial fulfillment.
// Checkout creates sequence 1 as an unassigned remainder claiming every
// order item; split-offs carve quantities out of it, so claims across an
// order's shipments always add up to the order's quantities.
type Shipment struct {
	BaseModel
	NetworkOrderID   uuid.UUID      `json:"network_order_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_shipments_order_sequence"`
	Sequence         int            `json:"sequence" gorm:"not null;uniqueIndex:idx_shipments_order_sequence"`
	Mode             string         `json:"mode" gorm:"size:20;default:'STANDARD'"`
	CarrierCode      string         `json:"carrier_code" gorm:"size:50;default:'UNASSIGNED'"`
	TrackingNumber   string         `json:"tracking_number" gorm:"size:100"`
	Status           ShipmentStatus `json:"status" gorm:"type:varchar(20);default:'CREATED';index"`
	DeliveryNoteUUID uuid.UUID      `json:"delivery_note_uuid" gorm:"type:uuid"`
	Items            ShipmentItems  `json:"items" gorm:"type:jsonb"`
	LabelKey         string         `json:"label_key,omitempty" gorm:"size:255"`
	DeliveredAt      *time.Time     `json:"delivered_at"`
}

// IsUnassignedRemainder reports whether this is still the checkout-created
// consignment holding the order's unsplit quantities. Assigning a carrier,
// generating a label or advancing the status pins its claims down.
func (s *Shipment) IsUnassignedRemainder() bool {
	return s.Sequence == 1 &&
		s.Status == ShipmentStatusCreated &&
		s.CarrierCode == "UNASSIGNED" &&
		s.TrackingNumber == "" &&
		s.LabelKey == ""
}

var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusCreated:      {ShipmentStatusLabelCreated, ShipmentStatusInTransit, ShipmentStatusException},
	ShipmentStatusLabelCreated: {ShipmentStatusInTransit, ShipmentStatusException},
	ShipmentStatusInTransit:    {ShipmentStatusDelivered, ShipmentStatusException},
}

// CanTransitionTo validates the shipment state machine. DELIVERED and
// EXCEPTION are terminal; EXCEPTION requires manual resync outside this core.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, next := range shipmentTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// AllDelivered is the settlement trigger predicate: at least one shipment
// exists and every one of them is DELIVERED.
func AllDelivered(shipments []Shipment) bool {
	if len(shipments) == 0 {
		return false
	}
	for _, sh := range shipments {
		if sh.Status != ShipmentStatusDelivered {
			return false
		}
	}
	return true
}
