package repository

import (
	"context"

	"coiapi/internal/model"
)

// AccountRepository reads account-level configuration.
type AccountRepository interface {
	// RuleSet returns the account's compliance rules. An account without
	// configured rules yields an empty rule set.
	RuleSet(ctx context.Context, accountID string) (model.RuleSet, error)
}
