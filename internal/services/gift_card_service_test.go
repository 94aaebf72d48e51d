package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	dbm "salon/internal/models/db_models"
	"salon/internal/models/request_models"
	"salon/internal/repositories"
	"salon/pkg/utils"
)

type giftCardFixture struct {
	*ledgerFixture
	cards    repositories.GiftCardRepository
	notifier *notifierMock
	svc      *GiftCardService
	clock    time.Time
}

func newGiftCardFixture(t *testing.T, notifier *notifierMock, tune func(*GiftCardConfig)) *giftCardFixture {
	t.Helper()
	lf := newLedgerFixture(t)
	cards := repositories.NewGiftCardRepository(lf.db)

	cfg := GiftCardConfig{
		Currency:                "usd",
		ValidityMonths:          6,
		MaxRedemptionAttempts:   5,
		MaxVerificationAttempts: 10,
		LookupRetentionMonths:   13,
		BcryptCost:              bcrypt.MinCost,
	}
	if tune != nil {
		tune(&cfg)
	}

	f := &giftCardFixture{
		ledgerFixture: lf,
		cards:         cards,
		notifier:      notifier,
		clock:         time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	fanout := NewNotificationFanout(notifier, zap.NewNop(), time.Second)
	f.svc = NewGiftCardService(lf.db, cards, lf.accounts, lf.claims, lf.svc, lf.gateway, fanout, cfg, zap.NewNop())
	f.svc.now = func() time.Time { return f.clock }
	lf.svc.now = func() time.Time { return f.clock }
	return f
}

func (f *giftCardFixture) pay(id string, minor int64) {
	f.gateway.On("GetPayment", mock.Anything, id).Return(succeededPayment(id, minor, ""), nil)
}

func purchaseRequest(cardType dbm.GiftCardType, amount string) request_models.PurchaseGiftCardRequest {
	req := request_models.PurchaseGiftCardRequest{
		Type:           string(cardType),
		Amount:         decimal.RequireFromString(amount),
		PurchaserName:  "Lena",
		PurchaserEmail: "lena@example.com",
		RecipientName:  "Sara",
		RecipientEmail: "sara@example.com",
		Message:        "Happy birthday",
	}
	if cardType == dbm.GiftCardTypeService {
		req.ServiceName = "Deep tissue massage"
	}
	return req
}

var codeFormat = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{4}(-[0-9A-HJKMNP-TV-Z]{4}){3}$`)

func TestPurchaseAndRedeemBalanceCard(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), nil)
	f.pay("pi_1", 3000)
	user := f.account(t, "0")

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30.00"), "pi_1")
	require.NoError(t, err)
	assert.Regexp(t, codeFormat, res.Code)
	assert.Equal(t, dbm.GiftCardStatusActive, res.Card.Status)
	assert.True(t, dec("30").Equal(res.Card.Amount))
	assert.Equal(t, "pi_1", res.Card.PaymentIntentID)
	assert.Len(t, res.Card.VerificationToken, 64)
	assert.NotContains(t, res.Card.CodeHash, res.Code)
	assert.Equal(t, f.clock.AddDate(0, 6, 0).Unix(), res.Card.ExpiresAt)

	txn, err := f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, dbm.TxnTypeGiftCardRedeem, txn.Type)
	assert.True(t, dec("30").Equal(txn.Amount))
	require.NotNil(t, txn.ReferenceID)
	assert.Equal(t, res.Card.ID.String(), *txn.ReferenceID)
	assert.True(t, dec("30").Equal(f.balance(t, user.ID)))

	card, err := f.svc.GetByID(ctx, res.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusRedeemed, card.Status)
	require.NotNil(t, card.RedeemedByUserID)
	assert.Equal(t, user.ID, *card.RedeemedByUserID)
	require.NotNil(t, card.RedeemedAt)
	assert.Equal(t, "10.0.0.1", card.LastRedemptionIP)

	t.Run("Replay Is Not Active", func(t *testing.T) {
		_, err := f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.1")
		assert.ErrorIs(t, err, utils.ErrNotActive)
		assert.True(t, dec("30").Equal(f.balance(t, user.ID)))
	})

	t.Run("Code Input Is Normalized", func(t *testing.T) {
		f.pay("pi_norm", 1000)
		res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "10"), "pi_norm")
		require.NoError(t, err)

		typed := strings.ToLower(strings.ReplaceAll(res.Code, "-", " "))
		_, err = f.svc.Redeem(ctx, typed, user.ID, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, dec("40").Equal(f.balance(t, user.ID)))
	})

	t.Run("Unknown Code", func(t *testing.T) {
		_, err := f.svc.Redeem(ctx, "AAAA-BBBB-CCCC-DDDD", user.ID, "10.0.0.1")
		assert.ErrorIs(t, err, utils.ErrInvalidCode)
	})
}

func TestPurchasePreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("Reference Required", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		_, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30"), "")
		assert.ErrorIs(t, err, utils.ErrPaymentReferenceRequired)
		f.gateway.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
	})

	t.Run("Invalid Amount", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		for _, amount := range []string{"0", "-1", "10.001"} {
			_, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, amount), "pi_x")
			assert.ErrorIs(t, err, utils.ErrInvalidAmount, amount)
		}
	})

	t.Run("Payment Not Succeeded", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		p := succeededPayment("pi_fail", 3000, "")
		p.Status = "requires_payment_method"
		f.gateway.On("GetPayment", mock.Anything, "pi_fail").Return(p, nil)

		_, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30"), "pi_fail")
		assert.ErrorIs(t, err, utils.ErrPaymentNotSucceeded)
	})

	t.Run("Duplicate Purchase", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		f.pay("pi_dup", 3000)

		_, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30"), "pi_dup")
		require.NoError(t, err)
		_, err = f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30"), "pi_dup")
		assert.ErrorIs(t, err, utils.ErrDuplicatePurchase)

		n, err := f.svc.CountActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Amount Mismatch", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		f.pay("pi_short", 2999)

		_, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30.00"), "pi_short")
		assert.ErrorIs(t, err, utils.ErrAmountMismatch)

		card, err := f.cards.FindByPaymentIntentID(ctx, "pi_short")
		require.NoError(t, err)
		assert.Nil(t, card)
	})
}

func TestPaymentIsSpentOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Gift Card Then Top-Up", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		f.pay("pi_gc", 3000)
		user := f.account(t, "0")

		res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30.00"), "pi_gc")
		require.NoError(t, err)
		_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.1")
		require.NoError(t, err)

		_, err = f.ledgerFixture.svc.CreditFromExternalPayment(ctx, user.ID, "pi_gc")
		assert.ErrorIs(t, err, utils.ErrAlreadyApplied)
		assert.True(t, dec("30").Equal(f.balance(t, user.ID)))
	})

	t.Run("Top-Up Then Gift Card", func(t *testing.T) {
		f := newGiftCardFixture(t, quietNotifier(), nil)
		user := f.account(t, "0")
		f.gateway.On("GetPayment", mock.Anything, "pi_tu").Return(succeededPayment("pi_tu", 3000, user.ID.String()), nil)

		_, err := f.ledgerFixture.svc.CreditFromExternalPayment(ctx, user.ID, "pi_tu")
		require.NoError(t, err)

		_, err = f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "30.00"), "pi_tu")
		assert.ErrorIs(t, err, utils.ErrDuplicatePurchase)

		card, err := f.cards.FindByPaymentIntentID(ctx, "pi_tu")
		require.NoError(t, err)
		assert.Nil(t, card)
		assert.True(t, dec("30").Equal(f.balance(t, user.ID)))
	})
}

func TestPurchaseAttributesKnownPurchaser(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), nil)
	f.pay("pi_known", 5000)

	purchaser := &dbm.Account{Name: "Lena", Email: "lena@example.com", Balance: dec("7")}
	require.NoError(t, f.accounts.Insert(ctx, purchaser))

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "50"), "pi_known")
	require.NoError(t, err)
	require.NotNil(t, res.Card.PurchaserAccountID)
	assert.Equal(t, purchaser.ID, *res.Card.PurchaserAccountID)

	history, err := f.ledgerFixture.svc.GetHistory(ctx, purchaser.ID, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, dbm.TxnTypeGiftCardPurchase, history[0].Type)
	assert.True(t, dec("7").Equal(f.balance(t, purchaser.ID)), "purchase memo leaves the balance alone")
}

func TestServiceCard(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), nil)
	f.pay("pi_svc", 8500)
	user := f.account(t, "0")
	admin := uuid.New()

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeService, "85"), "pi_svc")
	require.NoError(t, err)
	assert.Equal(t, "Deep tissue massage", res.Card.ServiceName)

	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.2")
	assert.ErrorIs(t, err, utils.ErrWrongCardType)

	card, err := f.svc.MarkServiceCardUsed(ctx, res.Card.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusRedeemed, card.Status)
	require.NotNil(t, card.RedeemedByUserID)
	assert.Equal(t, admin, *card.RedeemedByUserID)

	history, err := f.ledgerFixture.svc.GetHistory(ctx, user.ID, HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = f.svc.MarkServiceCardUsed(ctx, res.Card.ID, admin)
	assert.ErrorIs(t, err, utils.ErrNotActive)

	t.Run("Balance Card Cannot Be Marked Used", func(t *testing.T) {
		f.pay("pi_bal", 1000)
		res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "10"), "pi_bal")
		require.NoError(t, err)

		_, err = f.svc.MarkServiceCardUsed(ctx, res.Card.ID, admin)
		assert.ErrorIs(t, err, utils.ErrWrongCardType)
	})

	t.Run("Unknown Card", func(t *testing.T) {
		_, err := f.svc.MarkServiceCardUsed(ctx, uuid.New(), admin)
		assert.ErrorIs(t, err, utils.ErrGiftCardNotFound)
	})
}

func TestConcurrentRedeem(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), nil)
	f.pay("pi_race", 2000)
	user := f.account(t, "0")

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "20"), "pi_race")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.9")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	redeemed := 0
	for err := range errs {
		if err == nil {
			redeemed++
			continue
		}
		assert.ErrorIs(t, err, utils.ErrNotActive)
	}
	assert.Equal(t, 1, redeemed)
	assert.True(t, dec("20").Equal(f.balance(t, user.ID)))

	history, err := f.ledgerFixture.svc.GetHistory(ctx, user.ID, HistoryQuery{})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

type failingLedger struct {
	BalanceServiceInterface
	err error
}

func (l failingLedger) Credit(context.Context, CreditRequest) (*dbm.Transaction, error) {
	return nil, l.err
}

func TestRedeemKeepsLedgerErrors(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), nil)
	f.pay("pi_gone", 1000)
	user := f.account(t, "0")

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "10"), "pi_gone")
	require.NoError(t, err)

	f.svc.ledger = failingLedger{
		BalanceServiceInterface: f.ledgerFixture.svc,
		err:                     fmt.Errorf("credit: %w", utils.ErrAccountNotFound),
	}
	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.1")
	assert.ErrorIs(t, err, utils.ErrAccountNotFound)
	assert.NotErrorIs(t, err, utils.ErrDatabaseError)

	card, err := f.svc.GetByID(ctx, res.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusActive, card.Status, "a failed credit rolls the redemption back")
}

func TestRedemptionLockout(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), func(c *GiftCardConfig) { c.MaxRedemptionAttempts = 2 })
	f.pay("pi_lock", 4000)
	user := f.account(t, "0")

	// Service cards fail the type gate after counting the attempt.
	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeService, "40"), "pi_lock")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.svc.Redeem(ctx, res.Code, user.ID, "192.0.2.7")
		assert.ErrorIs(t, err, utils.ErrWrongCardType)
	}
	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "192.0.2.7")
	assert.ErrorIs(t, err, utils.ErrLocked)

	card, err := f.svc.GetByID(ctx, res.Card.ID)
	require.NoError(t, err)
	assert.True(t, card.IsLocked)
	assert.Equal(t, 3, card.RedemptionAttempts)
	assert.Equal(t, lockReasonRedemption, card.LockedReason)

	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "192.0.2.7")
	assert.ErrorIs(t, err, utils.ErrLocked, "a locked card stays rejected with the right code")

	_, err = f.svc.MarkServiceCardUsed(ctx, res.Card.ID, uuid.New())
	assert.ErrorIs(t, err, utils.ErrLocked)
}

func TestRedeemExpiredCard(t *testing.T) {
	ctx := context.Background()
	notifier := quietNotifier()
	f := newGiftCardFixture(t, notifier, nil)
	f.pay("pi_old", 2500)
	user := f.account(t, "0")

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "25"), "pi_old")
	require.NoError(t, err)

	f.clock = f.clock.AddDate(0, 7, 0)

	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.3")
	assert.ErrorIs(t, err, utils.ErrExpired)

	card, err := f.svc.GetByID(ctx, res.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusExpired, card.Status)
	notifier.AssertCalled(t, "NotifyExpired", mock.Anything, mock.Anything)

	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.3")
	assert.ErrorIs(t, err, utils.ErrNotActive)
	assert.True(t, f.balance(t, user.ID).IsZero())
}

func TestVerifyForAdmin(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), func(c *GiftCardConfig) { c.MaxVerificationAttempts = 2 })
	f.pay("pi_verify", 6000)

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeService, "60"), "pi_verify")
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		card, err := f.svc.VerifyForAdmin(ctx, res.Card.VerificationToken)
		require.NoError(t, err)
		assert.Equal(t, i, card.VerificationAttempts)
		assert.Equal(t, dbm.GiftCardStatusActive, card.Status)
	}

	_, err = f.svc.VerifyForAdmin(ctx, res.Card.VerificationToken)
	assert.ErrorIs(t, err, utils.ErrLocked)
	_, err = f.svc.VerifyForAdmin(ctx, res.Card.VerificationToken)
	assert.ErrorIs(t, err, utils.ErrLocked)

	card, err := f.svc.GetByID(ctx, res.Card.ID)
	require.NoError(t, err)
	assert.True(t, card.IsLocked)
	assert.Equal(t, 3, card.VerificationAttempts)

	_, err = f.svc.VerifyForAdmin(ctx, strings.Repeat("0", 64))
	assert.ErrorIs(t, err, utils.ErrGiftCardNotFound)
}

func TestExpireDue(t *testing.T) {
	ctx := context.Background()
	notifier := quietNotifier()
	f := newGiftCardFixture(t, notifier, nil)
	f.pay("pi_a", 1000)
	f.pay("pi_b", 1000)

	old, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "10"), "pi_a")
	require.NoError(t, err)
	f.clock = f.clock.AddDate(0, 3, 0)
	fresh, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "10"), "pi_b")
	require.NoError(t, err)

	n, err := f.svc.ExpireDue(ctx, f.clock.AddDate(0, 4, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	card, err := f.svc.GetByID(ctx, old.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusExpired, card.Status)
	card, err = f.svc.GetByID(ctx, fresh.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusActive, card.Status)

	notifier.AssertNumberOfCalls(t, "NotifyExpired", 1)

	n, err = f.svc.ExpireDue(ctx, f.clock.AddDate(0, 4, 0))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancelForFailedPayment(t *testing.T) {
	ctx := context.Background()
	f := newGiftCardFixture(t, quietNotifier(), nil)
	f.pay("pi_refunded", 2000)
	user := f.account(t, "0")

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "20"), "pi_refunded")
	require.NoError(t, err)

	n, err := f.svc.CancelForFailedPayment(ctx, "pi_refunded")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	card, err := f.svc.GetByID(ctx, res.Card.ID)
	require.NoError(t, err)
	assert.Equal(t, dbm.GiftCardStatusCancelled, card.Status)
	assert.True(t, card.IsLocked)
	assert.Equal(t, lockReasonPayment, card.LockedReason)

	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.4")
	assert.ErrorIs(t, err, utils.ErrNotActive)

	n, err = f.svc.CancelForFailedPayment(ctx, "pi_refunded")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	notifier := new(notifierMock)
	notifier.On("NotifyPurchase", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	notifier.On("NotifyReceived", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	notifier.On("NotifyRedeemed", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	f := newGiftCardFixture(t, notifier, nil)
	f.pay("pi_quiet", 1500)
	user := f.account(t, "0")

	res, err := f.svc.Purchase(ctx, purchaseRequest(dbm.GiftCardTypeBalance, "15"), "pi_quiet")
	require.NoError(t, err)

	_, err = f.svc.Redeem(ctx, res.Code, user.ID, "10.0.0.5")
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(f.balance(t, user.ID)))
	notifier.AssertExpectations(t)
}
