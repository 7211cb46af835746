package repository

import (
	"context"
	"time"

	"coiapi/internal/model"
)

// BillRepository gives the discount engine access to a vendor's bills.
type BillRepository interface {
	// ListCapturable returns the vendor's unpaid bills whose discount has not been
	// captured and which carry both a discount amount and a discount due date.
	ListCapturable(ctx context.Context, vendorID string) ([]model.Bill, error)

	// MarkDiscountCaptured flags a bill's discount as captured. It is a conditional
	// update: it reports false, without error, when the bill was already captured
	// or paid, so concurrent callers cannot capture the same discount twice.
	MarkDiscountCaptured(ctx context.Context, billID string, at time.Time) (bool, error)
}
