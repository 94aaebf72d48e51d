package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"salon/internal/infra"
	dbm "salon/internal/models/db_models"
)

type GiftCardRepository interface {
	Create(ctx context.Context, card *dbm.GiftCard) error
	Save(ctx context.Context, card *dbm.GiftCard) error

	FindByID(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*dbm.GiftCard, error)
	FindByVerificationToken(ctx context.Context, token string) (*dbm.GiftCard, error)

	// ListRedeemableHashes loads id and code hash of every ACTIVE, unlocked card.
	ListRedeemableHashes(ctx context.Context) ([]dbm.GiftCard, error)
	// ListUnredeemableHashesSince loads id and code hash of cards created at
	// or after since that are no longer ACTIVE or are locked.
	ListUnredeemableHashesSince(ctx context.Context, since int64) ([]dbm.GiftCard, error)

	ListActiveExpiringBefore(ctx context.Context, unix int64) ([]dbm.GiftCard, error)
	ListActiveByPaymentIntentID(ctx context.Context, paymentIntentID string) ([]dbm.GiftCard, error)
	CountActive(ctx context.Context) (int64, error)

	// Transition moves a card out of status from, applying extra columns in
	// the same statement. It reports false when the card was not in from.
	Transition(ctx context.Context, id uuid.UUID, from, to dbm.GiftCardStatus, extra map[string]interface{}) (bool, error)
}

type giftCardRepository struct {
	db *gorm.DB
}

func NewGiftCardRepository(db *gorm.DB) GiftCardRepository {
	return &giftCardRepository{db: db}
}

func (r *giftCardRepository) Create(ctx context.Context, card *dbm.GiftCard) error {
	return infra.Conn(ctx, r.db).Create(card).Error
}

func (r *giftCardRepository) Save(ctx context.Context, card *dbm.GiftCard) error {
	return infra.Conn(ctx, r.db).Save(card).Error
}

func (r *giftCardRepository) FindByID(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error) {
	var card dbm.GiftCard
	err := infra.Conn(ctx, r.db).First(&card, "id = ?", id).Error
	return orNil(&card, err)
}

func (r *giftCardRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error) {
	var card dbm.GiftCard
	err := infra.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&card, "id = ?", id).Error
	return orNil(&card, err)
}

func (r *giftCardRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*dbm.GiftCard, error) {
	var card dbm.GiftCard
	err := infra.Conn(ctx, r.db).First(&card, "payment_intent_id = ?", paymentIntentID).Error
	return orNil(&card, err)
}

func (r *giftCardRepository) FindByVerificationToken(ctx context.Context, token string) (*dbm.GiftCard, error) {
	var card dbm.GiftCard
	err := infra.Conn(ctx, r.db).First(&card, "verification_token = ?", token).Error
	return orNil(&card, err)
}

func (r *giftCardRepository) ListRedeemableHashes(ctx context.Context) ([]dbm.GiftCard, error) {
	var cards []dbm.GiftCard
	err := infra.Conn(ctx, r.db).
		Select("id", "code_hash").
		Where("status = ? AND is_locked = ?", dbm.GiftCardStatusActive, false).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

func (r *giftCardRepository) ListUnredeemableHashesSince(ctx context.Context, since int64) ([]dbm.GiftCard, error) {
	var cards []dbm.GiftCard
	err := infra.Conn(ctx, r.db).
		Select("id", "code_hash").
		Where("(status <> ? OR is_locked = ?) AND created_at >= ?", dbm.GiftCardStatusActive, true, since).
		Order("created_at DESC").
		Find(&cards).Error
	return cards, err
}

func (r *giftCardRepository) ListActiveExpiringBefore(ctx context.Context, unix int64) ([]dbm.GiftCard, error) {
	var cards []dbm.GiftCard
	err := infra.Conn(ctx, r.db).
		Where("status = ? AND expires_at < ?", dbm.GiftCardStatusActive, unix).
		Order("expires_at ASC").
		Find(&cards).Error
	return cards, err
}

func (r *giftCardRepository) ListActiveByPaymentIntentID(ctx context.Context, paymentIntentID string) ([]dbm.GiftCard, error) {
	var cards []dbm.GiftCard
	err := infra.Conn(ctx, r.db).
		Where("payment_intent_id = ? AND status = ?", paymentIntentID, dbm.GiftCardStatusActive).
		Find(&cards).Error
	return cards, err
}

func (r *giftCardRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := infra.Conn(ctx, r.db).
		Model(&dbm.GiftCard{}).
		Where("status = ?", dbm.GiftCardStatusActive).
		Count(&count).Error
	return count, err
}

func (r *giftCardRepository) Transition(ctx context.Context, id uuid.UUID, from, to dbm.GiftCardStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := infra.Conn(ctx, r.db).
		Model(&dbm.GiftCard{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
