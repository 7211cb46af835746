package mocks

import (
	"context"
	"time"

	"coiapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockBillRepository struct {
	mock.Mock
}

func (m *MockBillRepository) ListCapturable(ctx context.Context, vendorID string) ([]model.Bill, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockBillRepository) MarkDiscountCaptured(ctx context.Context, billID string, at time.Time) (bool, error) {
	args := m.Called(ctx, billID, at)
	return args.Bool(0), args.Error(1)
}
