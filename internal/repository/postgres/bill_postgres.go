package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"coiapi/internal/model"
	"coiapi/internal/repository"
)

// BillPostgres gives the discount engine access to vendor bills.
type BillPostgres struct {
	db *sql.DB
}

// NewBillPostgres creates a new BillPostgres repository.
func NewBillPostgres(db *sql.DB) *BillPostgres {
	return &BillPostgres{db: db}
}

var _ repository.BillRepository = (*BillPostgres)(nil)

// ListCapturable returns open bills that still carry a capturable discount, earliest deadline first.
func (r *BillPostgres) ListCapturable(ctx context.Context, vendorID string) ([]model.Bill, error) {
	const q = `
		SELECT id, vendor_id, amount, balance, discount_percent, discount_amount,
		       discount_due_date, discount_captured, discount_captured_at, is_paid
		FROM bills
		WHERE vendor_id = $1
		  AND NOT is_paid
		  AND NOT discount_captured
		  AND discount_amount IS NOT NULL
		  AND discount_due_date IS NOT NULL
		ORDER BY discount_due_date ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Bill, 0)
	for rows.Next() {
		var (
			b          model.Bill
			percent    decimal.NullDecimal
			amount     decimal.NullDecimal
			due        sql.NullTime
			capturedAt sql.NullTime
		)
		if err := rows.Scan(
			&b.ID,
			&b.VendorID,
			&b.Amount,
			&b.Balance,
			&percent,
			&amount,
			&due,
			&b.DiscountCaptured,
			&capturedAt,
			&b.IsPaid,
		); err != nil {
			return nil, err
		}
		b.DiscountPercent = optionalDecimal(percent)
		b.DiscountAmount = optionalDecimal(amount)
		b.DiscountDueDate = optionalTime(due)
		b.DiscountCapturedAt = optionalTime(capturedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkDiscountCaptured flips discount_captured only if it is still false and the
// bill is unpaid. Concurrent callers race on the row; exactly one sees true.
func (r *BillPostgres) MarkDiscountCaptured(ctx context.Context, billID string, at time.Time) (bool, error) {
	const q = `
		UPDATE bills
		SET discount_captured = true, discount_captured_at = $2
		WHERE id = $1 AND discount_captured = false AND is_paid = false`
	res, err := r.db.ExecContext(ctx, q, billID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
