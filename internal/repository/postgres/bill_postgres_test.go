package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillPostgres_ListCapturable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBillPostgres(db)
	due := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM bills WHERE vendor_id = \\$1 AND NOT is_paid AND NOT discount_captured").
		WithArgs("v-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "vendor_id", "amount", "balance", "discount_percent", "discount_amount",
			"discount_due_date", "discount_captured", "discount_captured_at", "is_paid",
		}).AddRow("b-1", "v-1", "1000.00", "1000.00", "2.00", "20.00", due, false, nil, false))

	bills, err := repo.ListCapturable(context.Background(), "v-1")

	require.NoError(t, err)
	require.Len(t, bills, 1)
	b := bills[0]
	assert.Equal(t, "1000", b.Amount.String())
	amount, ok := b.DiscountAmount.Get()
	require.True(t, ok)
	assert.Equal(t, "20", amount.String())
	gotDue, ok := b.DiscountDueDate.Get()
	require.True(t, ok)
	assert.Equal(t, due, gotDue)
	assert.False(t, b.DiscountCapturedAt.Present())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillPostgres_MarkDiscountCaptured(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{name: "first capture wins", affected: 1, want: true},
		{name: "already captured or paid", affected: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec("UPDATE bills SET discount_captured = true, discount_captured_at = \\$2 WHERE id = \\$1 AND discount_captured = false AND is_paid = false").
				WithArgs("b-1", at).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := NewBillPostgres(db).MarkDiscountCaptured(context.Background(), "b-1", at)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
