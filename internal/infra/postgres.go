package infra

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	dbm "salon/internal/models/db_models"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormConfig is shared by the postgres connection and the sqlite test helper.
// Statements are logged through zap without their bound values, so codes,
// tokens and emails never reach the log.
func GormConfig(log *zap.Logger) (*gorm.Config, error) {
	std, err := zap.NewStdLogAt(log.Named("gorm"), zap.WarnLevel)
	if err != nil {
		return nil, fmt.Errorf("gorm logger: %w", err)
	}

	return &gorm.Config{
		TranslateError: true,
		Logger: logger.New(std, logger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func InitPostgresql(dsn string, log *zap.Logger) (*gorm.DB, error) {
	cfg, err := GormConfig(log)
	if err != nil {
		return nil, err
	}

	connectionPool, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := Migrate(connectionPool); err != nil {
		return nil, err
	}

	log.Info("postgres connected")
	return connectionPool, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(dbm.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return backfillPaymentClaims(db)
}

// backfillPaymentClaims claims the payments spent before claims existed.
// Both statements skip payments that are already claimed, so it is safe to
// run on every start.
func backfillPaymentClaims(db *gorm.DB) error {
	statements := []string{
		`INSERT INTO payment_claims (payment_id, purpose, user_id, created_at)
		 SELECT g.payment_intent_id, 'GIFT_CARD', g.purchaser_account_id, g.created_at
		 FROM gift_cards g
		 WHERE g.payment_intent_id <> ''
		   AND NOT EXISTS (SELECT 1 FROM payment_claims c WHERE c.payment_id = g.payment_intent_id)`,
		`INSERT INTO payment_claims (payment_id, purpose, user_id, created_at)
		 SELECT t.reference_id, 'TOP_UP', t.user_id, t.created_at
		 FROM transactions t
		 WHERE t.type = 'CREDIT' AND t.status = 'COMPLETED' AND t.reference_id IS NOT NULL
		   AND NOT EXISTS (SELECT 1 FROM payment_claims c WHERE c.payment_id = t.reference_id)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("backfill payment claims: %w", err)
		}
	}
	return nil
}

func ClosePostgresql(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Error("get database instance", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Error("close database connection", zap.Error(err))
	} else {
		log.Info("postgres connection closed")
	}
}
