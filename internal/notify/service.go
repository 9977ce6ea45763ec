package notify

import (
	"context"
	"time"
)

// Shipment describes one finalized expedition batch.
type Shipment struct {
	Shipped   []string
	Returned  []string
	Timestamp time.Time
}

// Service delivers operator notifications. Implementations must treat
// delivery as best effort; a failed notice never rolls back the shipment.
type Service interface {
	ShipmentNotice(ctx context.Context, shipment Shipment) error
}

// Noop discards every notification.
type Noop struct{}

func (Noop) ShipmentNotice(context.Context, Shipment) error { return nil }
