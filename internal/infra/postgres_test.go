package infra_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"salon/internal/infra"
	"salon/internal/infra/infratest"
	dbm "salon/internal/models/db_models"
)

func TestGormLogOmitsBoundValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	db := infratest.NewDBWithLogger(t, zap.New(core))

	var acc dbm.Account
	err := db.Where("email = ?", "nobody@example.com").First(&acc).Error
	require.Error(t, err)
	assert.Zero(t, logs.Len(), "record not found is not logged")

	const secret = "GIFT-SECRET-CODE-1234"
	err = db.Where("no_such_column = ?", secret).First(&acc).Error
	require.Error(t, err)

	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, "gorm", entry.LoggerName)
		assert.NotContains(t, entry.Message, secret)
	}
}

func TestMigrateBackfillsPaymentClaims(t *testing.T) {
	db := infratest.NewDB(t)

	acc := &dbm.Account{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, db.Create(acc).Error)

	card := &dbm.GiftCard{
		CodeHash:          "hash",
		Type:              dbm.GiftCardTypeBalance,
		Amount:            decimal.NewFromInt(25),
		Currency:          "usd",
		Status:            dbm.GiftCardStatusActive,
		ExpiresAt:         1,
		PaymentIntentID:   "pi_card",
		VerificationToken: "token",
	}
	require.NoError(t, db.Create(card).Error)

	ref := "pi_topup"
	txn := &dbm.Transaction{
		UserID:        acc.ID,
		Seq:           1,
		Type:          dbm.TxnTypeCredit,
		Amount:        decimal.NewFromInt(10),
		BalanceBefore: decimal.Zero,
		BalanceAfter:  decimal.NewFromInt(10),
		Status:        dbm.TxnStatusCompleted,
		ReferenceID:   &ref,
	}
	require.NoError(t, db.Create(txn).Error)

	// Twice: the backfill must skip payments it already claimed.
	require.NoError(t, infra.Migrate(db))
	require.NoError(t, infra.Migrate(db))

	var claims []dbm.PaymentClaim
	require.NoError(t, db.Order("payment_id").Find(&claims).Error)
	require.Len(t, claims, 2)

	assert.Equal(t, "pi_card", claims[0].PaymentID)
	assert.Equal(t, dbm.PaymentPurposeGiftCard, claims[0].Purpose)
	assert.Equal(t, "pi_topup", claims[1].PaymentID)
	assert.Equal(t, dbm.PaymentPurposeTopUp, claims[1].Purpose)
	require.NotNil(t, claims[1].UserID)
	assert.Equal(t, acc.ID, *claims[1].UserID)
}
