package services

import (
	"context"

	"github.com/stretchr/testify/mock"
	dbm "salon/internal/models/db_models"
)

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) GetPayment(ctx context.Context, id string) (*Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*Payment)
	return p, args.Error(1)
}

func (m *gatewayMock) IsSucceeded(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func succeededPayment(id string, minor int64, owner string) *Payment {
	meta := map[string]string{}
	if owner != "" {
		meta[MetadataUserID] = owner
	}
	return &Payment{
		ID:                  id,
		Status:              PaymentStatusSucceeded,
		AmountMinor:         minor,
		AmountReceivedMinor: minor,
		Currency:            "usd",
		Metadata:            meta,
	}
}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) NotifyPurchase(ctx context.Context, card *dbm.GiftCard, code string) error {
	return m.Called(ctx, card, code).Error(0)
}

func (m *notifierMock) NotifyReceived(ctx context.Context, card *dbm.GiftCard, code string) error {
	return m.Called(ctx, card, code).Error(0)
}

func (m *notifierMock) NotifyRedeemed(ctx context.Context, card *dbm.GiftCard, redeemer *dbm.Account) error {
	return m.Called(ctx, card, redeemer).Error(0)
}

func (m *notifierMock) NotifyExpired(ctx context.Context, card *dbm.GiftCard) error {
	return m.Called(ctx, card).Error(0)
}

func (m *notifierMock) NotifyAdminServiceCard(ctx context.Context, card *dbm.GiftCard) error {
	return m.Called(ctx, card).Error(0)
}

// quietNotifier accepts every notification.
func quietNotifier() *notifierMock {
	n := new(notifierMock)
	n.On("NotifyPurchase", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("NotifyReceived", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("NotifyRedeemed", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("NotifyExpired", mock.Anything, mock.Anything).Return(nil).Maybe()
	n.On("NotifyAdminServiceCard", mock.Anything, mock.Anything).Return(nil).Maybe()
	return n
}

type mailMock struct {
	mock.Mock
}

func (m *mailMock) Send(ctx context.Context, to string, data EmailData) error {
	return m.Called(ctx, to, data).Error(0)
}
