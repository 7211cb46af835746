package mocks

import (
	"context"

	"coiapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) RuleSet(ctx context.Context, accountID string) (model.RuleSet, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(model.RuleSet), args.Error(1)
}
