package reminder

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coiapi/internal/compliance"
	"coiapi/internal/metrics"
	"coiapi/internal/model"
	"coiapi/internal/notify"
	"coiapi/internal/repository"
)

// Dispatcher runs the daily reminder sweep over every vendor with a COI on file.
type Dispatcher struct {
	vendors  repository.VendorRepository
	accounts repository.AccountRepository
	ledger   Ledger
	notifier notify.Notifier
	metrics  *metrics.Pipeline
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher wires a Dispatcher. A nil clock defaults to time.Now.
func NewDispatcher(
	vendors repository.VendorRepository,
	accounts repository.AccountRepository,
	ledger Ledger,
	notifier notify.Notifier,
	m *metrics.Pipeline,
	logger *zap.Logger,
	now func() time.Time,
) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		vendors:  vendors,
		accounts: accounts,
		ledger:   ledger,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      now,
	}
}

// RunOnce evaluates every vendor once and sends the reminders that are due.
// Failures for one vendor are logged and do not stop the sweep; the returned
// error is only set when listing vendors fails or ctx is cancelled.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	vendors, err := d.vendors.ListWithCOIExpiry(ctx)
	if err != nil {
		return 0, err
	}

	now := d.now()
	rules := make(map[string][]int)
	sent := 0
	for i := range vendors {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		v := &vendors[i]
		if v.IsExempt {
			continue
		}
		expiry, ok := v.COIExpiry.Get()
		if !ok {
			continue
		}

		ladder, ok := rules[v.AccountID]
		if !ok {
			rs, err := d.accounts.RuleSet(ctx, v.AccountID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				d.logger.Warn("load account rules", zap.String("account_id", v.AccountID), zap.Error(err))
				continue
			}
			ladder = rs.WarningDays()
			rules[v.AccountID] = ladder
		}

		fired, err := d.remind(ctx, v, expiry, ladder, now)
		if err != nil {
			d.logger.Warn("send expiry reminder", zap.String("vendor_id", v.ID), zap.Error(err))
			continue
		}
		if fired {
			sent++
		}
	}
	return sent, nil
}

func (d *Dispatcher) remind(ctx context.Context, v *model.Vendor, expiry time.Time, ladder []int, now time.Time) (bool, error) {
	days := compliance.DaysUntil(expiry, now)
	if days < 0 || days > compliance.MaxWarningDays(ladder) {
		return false, nil
	}
	threshold, ok := NextThreshold(expiry, ladder, now)
	if !ok {
		return false, nil
	}

	first, err := d.ledger.MarkFired(ctx, v.ID, expiry, threshold)
	if err != nil || !first {
		return false, err
	}

	exp := expiry
	if err := d.notifier.Notify(ctx, notify.Event{
		ID:         uuid.NewString(),
		Kind:       notify.KindExpiryReminder,
		VendorID:   v.ID,
		VendorName: v.Name,
		Threshold:  threshold,
		DaysLeft:   &days,
		Expiry:     &exp,
		OccurredAt: now,
	}); err != nil {
		return false, err
	}

	d.metrics.ReminderSent(strconv.Itoa(threshold))
	d.logger.Info("expiry reminder sent",
		zap.String("vendor_id", v.ID),
		zap.Int("threshold_days", threshold),
		zap.Int("days_left", days),
	)
	return true, nil
}
