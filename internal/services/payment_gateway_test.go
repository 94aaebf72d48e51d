package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"salon/pkg/utils"
)

type intentGetterMock struct {
	mock.Mock
}

func (m *intentGetterMock) Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(id, params)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func TestStripeGatewayGetPayment(t *testing.T) {
	t.Run("Maps Payment Intent", func(t *testing.T) {
		getter := new(intentGetterMock)
		getter.On("Get", "pi_1", mock.Anything).Return(&stripe.PaymentIntent{
			ID:             "pi_1",
			Status:         stripe.PaymentIntentStatusSucceeded,
			Amount:         3000,
			AmountReceived: 3000,
			Currency:       stripe.Currency("USD"),
			Metadata:       map[string]string{"user_id": "u-1"},
		}, nil)
		gw := &stripeGateway{intents: getter, timeout: time.Second}

		p, err := gw.GetPayment(context.Background(), "pi_1")
		require.NoError(t, err)
		assert.True(t, p.Succeeded())
		assert.Equal(t, int64(3000), p.CapturedMinor())
		assert.Equal(t, "usd", p.Currency)
		assert.Equal(t, "u-1", p.Owner())
		getter.AssertExpectations(t)
	})

	t.Run("Unknown Payment", func(t *testing.T) {
		getter := new(intentGetterMock)
		getter.On("Get", "pi_missing", mock.Anything).
			Return(nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such payment_intent"})
		gw := &stripeGateway{intents: getter, timeout: time.Second}

		ok, err := gw.IsSucceeded(context.Background(), "pi_missing")
		assert.False(t, ok)
		assert.ErrorIs(t, err, utils.ErrPaymentNotSucceeded)
	})

	t.Run("Transport Failure", func(t *testing.T) {
		getter := new(intentGetterMock)
		getter.On("Get", "pi_1", mock.Anything).Return(nil, errors.New("context deadline exceeded"))
		gw := &stripeGateway{intents: getter, timeout: time.Second}

		_, err := gw.GetPayment(context.Background(), "pi_1")
		assert.ErrorIs(t, err, utils.ErrPaymentGateway)
	})
}

func TestNewStripeGatewayRequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{})
	assert.Error(t, err)
}
