package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill is an outstanding vendor invoice, optionally carrying an early-payment discount.
// DiscountCaptured only ever moves from false to true.
type Bill struct {
	ID                 string                    `json:"id"`
	VendorID           string                    `json:"vendor_id"`
	Amount             decimal.Decimal           `json:"amount"`
	Balance            decimal.Decimal           `json:"balance"`
	DiscountPercent    Optional[decimal.Decimal] `json:"discount_percent"`
	DiscountAmount     Optional[decimal.Decimal] `json:"discount_amount"`
	DiscountDueDate    Optional[time.Time]       `json:"discount_due_date"`
	DiscountCaptured   bool                      `json:"discount_captured"`
	DiscountCapturedAt Optional[time.Time]       `json:"discount_captured_at"`
	IsPaid             bool                      `json:"is_paid"`
}
