package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"coiapi/internal/model"
)

func optionalTime(n sql.NullTime) model.Optional[time.Time] {
	if !n.Valid {
		return model.None[time.Time]()
	}
	return model.Some(n.Time.UTC())
}

func optionalDecimal(n decimal.NullDecimal) model.Optional[decimal.Decimal] {
	if !n.Valid {
		return model.None[decimal.Decimal]()
	}
	return model.Some(n.Decimal)
}

// nullable turns an absent Optional into a SQL NULL argument.
func nullable[T any](o model.Optional[T]) any {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}

func marshalJSONB(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return b, nil
}
