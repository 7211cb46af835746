package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"coiapi/internal/model"
	"coiapi/internal/repository"
)

// AccountPostgres reads the per-account compliance rule set from a JSONB column.
type AccountPostgres struct {
	db *sql.DB
}

// NewAccountPostgres creates a new AccountPostgres repository.
func NewAccountPostgres(db *sql.DB) *AccountPostgres {
	return &AccountPostgres{db: db}
}

var _ repository.AccountRepository = (*AccountPostgres)(nil)

// RuleSet decodes accounts.compliance_rules. Missing keys leave rules unchecked.
func (r *AccountPostgres) RuleSet(ctx context.Context, accountID string) (model.RuleSet, error) {
	const q = `SELECT compliance_rules FROM accounts WHERE id = $1`
	var raw []byte
	if err := r.db.QueryRowContext(ctx, q, accountID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RuleSet{}, repository.ErrNotFound
		}
		return model.RuleSet{}, err
	}

	var rules model.RuleSet
	if len(raw) == 0 {
		return rules, nil
	}
	if err := json.Unmarshal(raw, &rules); err != nil {
		return model.RuleSet{}, fmt.Errorf("decode compliance_rules: %w", err)
	}
	return rules, nil
}
