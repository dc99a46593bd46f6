package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/derxankvs/dataai-api/internal/payment"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateCheckout(ctx context.Context, host string, req payment.CheckoutRequest) (payment.CheckoutResult, error) {
	args := m.Called(ctx, host, req)
	return args.Get(0).(payment.CheckoutResult), args.Error(1)
}

func (m *MockService) ReceiveWebhook(body []byte, signature string) error {
	args := m.Called(body, signature)
	return args.Error(0)
}
