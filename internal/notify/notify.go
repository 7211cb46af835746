// Package notify is the outbound port for timeline and notification events.
// The compliance core only emits events; delivery (SSE, email, SMS) happens
// in whatever consumes them.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Kind names an event type.
type Kind string

const (
	KindDiscountCaptured Kind = "discount.captured"
	KindExpiryReminder   Kind = "coi.expiry_reminder"
)

// Event is a single timeline/notification entry.
type Event struct {
	ID         string           `json:"id"`
	Kind       Kind             `json:"kind"`
	VendorID   string           `json:"vendor_id"`
	VendorName string           `json:"vendor_name,omitempty"`
	BillID     string           `json:"bill_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	Threshold  int              `json:"threshold_days,omitempty"`
	DaysLeft   *int             `json:"days_left,omitempty"`
	Expiry     *time.Time       `json:"expiry,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Notifier delivers events to the outside world.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to a zap logger. It is used when no message bus is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a Notifier that only logs.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event and never fails.
func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("kind", string(ev.Kind)),
		zap.String("vendor_id", ev.VendorID),
		zap.Time("occurred_at", ev.OccurredAt),
	}
	if ev.Amount != nil {
		fields = append(fields, zap.String("amount", ev.Amount.StringFixed(2)))
	}
	if ev.BillID != "" {
		fields = append(fields, zap.String("bill_id", ev.BillID))
	}
	if ev.Threshold > 0 {
		fields = append(fields, zap.Int("threshold_days", ev.Threshold))
	}
	n.logger.Info("notification", fields...)
	return nil
}
