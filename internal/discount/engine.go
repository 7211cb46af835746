// Package discount captures early-payment discounts once a vendor is document compliant.
//
// Capture is triggered by compliance-state transitions (a W-9 or COI upload),
// never by a timer. A vendor missing either document captures nothing at all.
package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coiapi/internal/metrics"
	"coiapi/internal/model"
	"coiapi/internal/notify"
	"coiapi/internal/repository"
)

// ErrVendorNotFound is returned when the vendor does not exist.
var ErrVendorNotFound = errors.New("vendor not found")

// Capturer is the capability the upload pipeline and HTTP layer depend on.
type Capturer interface {
	CaptureEligibleDiscounts(ctx context.Context, vendorID string) (decimal.Decimal, error)
}

// Engine marks eligible bill discounts as captured.
type Engine struct {
	vendors  repository.VendorRepository
	bills    repository.BillRepository
	notifier notify.Notifier
	metrics  *metrics.Pipeline
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine wires an Engine. A nil clock defaults to time.Now.
func NewEngine(
	vendors repository.VendorRepository,
	bills repository.BillRepository,
	notifier notify.Notifier,
	m *metrics.Pipeline,
	logger *zap.Logger,
	now func() time.Time,
) *Engine {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{vendors: vendors, bills: bills, notifier: notifier, metrics: m, logger: logger, now: now}
}

// CaptureEligibleDiscounts captures every open discount whose window has not
// closed and returns the total captured by this call. Re-invoking is safe:
// captured bills are not listed again and the repository update is conditional,
// so a bill is never counted twice.
//
// A failure on one bill is logged and skipped. Cancelling ctx stops the loop and
// returns the amount captured so far together with the context error.
func (e *Engine) CaptureEligibleDiscounts(ctx context.Context, vendorID string) (decimal.Decimal, error) {
	vendor, err := e.vendors.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Zero, ErrVendorNotFound
		}
		return decimal.Zero, fmt.Errorf("load vendor: %w", err)
	}
	if vendor.IsExempt || !vendor.DocumentsReceived() {
		return decimal.Zero, nil
	}

	bills, err := e.bills.ListCapturable(ctx, vendorID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list bills: %w", err)
	}

	total := decimal.Zero
	for _, b := range bills {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		amount, ok := e.capture(ctx, vendor, b)
		if ok {
			total = total.Add(amount)
		}
	}
	return total, nil
}

func (e *Engine) capture(ctx context.Context, vendor *model.Vendor, b model.Bill) (decimal.Decimal, bool) {
	if b.IsPaid || b.DiscountCaptured {
		return decimal.Zero, false
	}
	amount, ok := b.DiscountAmount.Get()
	if !ok || !amount.IsPositive() {
		return decimal.Zero, false
	}
	due, ok := b.DiscountDueDate.Get()
	if !ok {
		return decimal.Zero, false
	}

	now := e.now()
	if now.After(due) {
		return decimal.Zero, false
	}

	won, err := e.bills.MarkDiscountCaptured(ctx, b.ID, now)
	if err != nil {
		e.logger.Warn("mark discount captured", zap.String("bill_id", b.ID), zap.Error(err))
		return decimal.Zero, false
	}
	if !won {
		e.logger.Debug("discount already captured", zap.String("bill_id", b.ID))
		return decimal.Zero, false
	}

	e.metrics.DiscountCaptured(amount)
	e.logger.Info("discount captured",
		zap.String("vendor_id", vendor.ID),
		zap.String("bill_id", b.ID),
		zap.String("amount", amount.StringFixed(2)),
	)
	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, notify.Event{
			ID:         uuid.NewString(),
			Kind:       notify.KindDiscountCaptured,
			VendorID:   vendor.ID,
			VendorName: vendor.Name,
			BillID:     b.ID,
			Amount:     &amount,
			OccurredAt: now,
		}); err != nil {
			e.logger.Warn("notify discount captured", zap.String("bill_id", b.ID), zap.Error(err))
		}
	}
	return amount, true
}
