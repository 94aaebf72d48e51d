package infra_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"salon/internal/infra"
	"salon/internal/infra/infratest"
	dbm "salon/internal/models/db_models"
)

func TestWithTransactionRollsBack(t *testing.T) {
	db := infratest.NewDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := infra.WithTransaction(ctx, db, func(ctx context.Context) error {
		assert.True(t, infra.InTransaction(ctx))
		acc := &dbm.Account{Name: "Ana", Email: "ana@example.com", Balance: decimal.NewFromInt(10)}
		require.NoError(t, infra.Conn(ctx, db).Create(acc).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&dbm.Account{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWithTransactionNestedSavepoint(t *testing.T) {
	db := infratest.NewDB(t)
	ctx := context.Background()

	err := infra.WithTransaction(ctx, db, func(ctx context.Context) error {
		outer := &dbm.Account{Name: "Outer", Email: "outer@example.com"}
		if err := infra.Conn(ctx, db).Create(outer).Error; err != nil {
			return err
		}

		inner := infra.WithTransaction(ctx, db, func(ctx context.Context) error {
			acc := &dbm.Account{Name: "Inner", Email: "inner@example.com"}
			if err := infra.Conn(ctx, db).Create(acc).Error; err != nil {
				return err
			}
			return errors.New("inner failed")
		})
		assert.Error(t, inner)
		return nil
	})
	require.NoError(t, err)

	var emails []string
	require.NoError(t, db.Model(&dbm.Account{}).Pluck("email", &emails).Error)
	assert.Equal(t, []string{"outer@example.com"}, emails)
}
