package controllers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	dbm "salon/internal/models/db_models"
	"salon/internal/models/request_models"
	"salon/internal/services"
)

type accountServiceMock struct{ mock.Mock }

func (m *accountServiceMock) Login(ctx context.Context, req request_models.LoginRequest) (string, *dbm.Account, error) {
	args := m.Called(ctx, req)
	acc, _ := args.Get(1).(*dbm.Account)
	return args.String(0), acc, args.Error(2)
}

func (m *accountServiceMock) CreateAccount(ctx context.Context, req request_models.SignUpRequest) (*dbm.Account, error) {
	args := m.Called(ctx, req)
	acc, _ := args.Get(0).(*dbm.Account)
	return acc, args.Error(1)
}

type balanceServiceMock struct{ mock.Mock }

func (m *balanceServiceMock) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *balanceServiceMock) GetHistory(ctx context.Context, userID uuid.UUID, query services.HistoryQuery) ([]dbm.Transaction, error) {
	args := m.Called(ctx, userID, query)
	txns, _ := args.Get(0).([]dbm.Transaction)
	return txns, args.Error(1)
}

func (m *balanceServiceMock) Credit(ctx context.Context, req services.CreditRequest) (*dbm.Transaction, error) {
	args := m.Called(ctx, req)
	txn, _ := args.Get(0).(*dbm.Transaction)
	return txn, args.Error(1)
}

func (m *balanceServiceMock) Debit(ctx context.Context, req services.DebitRequest) (*dbm.Transaction, error) {
	args := m.Called(ctx, req)
	txn, _ := args.Get(0).(*dbm.Transaction)
	return txn, args.Error(1)
}

func (m *balanceServiceMock) CreditFromExternalPayment(ctx context.Context, userID uuid.UUID, ref string) (*dbm.Transaction, error) {
	args := m.Called(ctx, userID, ref)
	txn, _ := args.Get(0).(*dbm.Transaction)
	return txn, args.Error(1)
}

func (m *balanceServiceMock) AdminAdjust(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description string, adminID uuid.UUID) (*dbm.Transaction, error) {
	args := m.Called(ctx, userID, amount, description, adminID)
	txn, _ := args.Get(0).(*dbm.Transaction)
	return txn, args.Error(1)
}

func (m *balanceServiceMock) RecordPurchase(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description, ref string) (*dbm.Transaction, error) {
	args := m.Called(ctx, userID, amount, description, ref)
	txn, _ := args.Get(0).(*dbm.Transaction)
	return txn, args.Error(1)
}

type giftCardServiceMock struct{ mock.Mock }

func (m *giftCardServiceMock) Purchase(ctx context.Context, req request_models.PurchaseGiftCardRequest, ref string) (*services.PurchaseResult, error) {
	args := m.Called(ctx, req, ref)
	res, _ := args.Get(0).(*services.PurchaseResult)
	return res, args.Error(1)
}

func (m *giftCardServiceMock) Redeem(ctx context.Context, code string, userID uuid.UUID, clientIP string) (*dbm.Transaction, error) {
	args := m.Called(ctx, code, userID, clientIP)
	txn, _ := args.Get(0).(*dbm.Transaction)
	return txn, args.Error(1)
}

func (m *giftCardServiceMock) MarkServiceCardUsed(ctx context.Context, cardID, adminID uuid.UUID) (*dbm.GiftCard, error) {
	args := m.Called(ctx, cardID, adminID)
	card, _ := args.Get(0).(*dbm.GiftCard)
	return card, args.Error(1)
}

func (m *giftCardServiceMock) VerifyForAdmin(ctx context.Context, token string) (*dbm.GiftCard, error) {
	args := m.Called(ctx, token)
	card, _ := args.Get(0).(*dbm.GiftCard)
	return card, args.Error(1)
}

func (m *giftCardServiceMock) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *giftCardServiceMock) CancelForFailedPayment(ctx context.Context, ref string) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

func (m *giftCardServiceMock) GetByID(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error) {
	args := m.Called(ctx, id)
	card, _ := args.Get(0).(*dbm.GiftCard)
	return card, args.Error(1)
}

func (m *giftCardServiceMock) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
