package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"salon/internal/infra"
	"salon/internal/metrics"
	dbm "salon/internal/models/db_models"
	"salon/internal/models/request_models"
	"salon/internal/repositories"
	"salon/pkg/utils"
)

const (
	lockReasonRedemption   = "too many redemption attempts"
	lockReasonVerification = "too many verification attempts"
	lockReasonPayment      = "payment failed"
)

type GiftCardConfig struct {
	Currency                string
	ValidityMonths          int
	MaxRedemptionAttempts   int
	MaxVerificationAttempts int
	LookupRetentionMonths   int
	ScanWarnThreshold       int
	BcryptCost              int
}

// PurchaseResult carries the plaintext code next to the stored card. The
// code exists only here and in the notifications.
type PurchaseResult struct {
	Card *dbm.GiftCard
	Code string
}

type GiftCardServiceInterface interface {
	Purchase(ctx context.Context, req request_models.PurchaseGiftCardRequest, paymentReferenceID string) (*PurchaseResult, error)
	Redeem(ctx context.Context, code string, userID uuid.UUID, clientIP string) (*dbm.Transaction, error)
	MarkServiceCardUsed(ctx context.Context, cardID, adminID uuid.UUID) (*dbm.GiftCard, error)
	VerifyForAdmin(ctx context.Context, verificationToken string) (*dbm.GiftCard, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
	CancelForFailedPayment(ctx context.Context, paymentReferenceID string) (int, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error)
	CountActive(ctx context.Context) (int64, error)
}

type GiftCardService struct {
	db          *gorm.DB
	cardRepo    repositories.GiftCardRepository
	accountRepo repositories.AccountRepository
	claimRepo   repositories.PaymentClaimRepository
	ledger      BalanceServiceInterface
	gateway     PaymentGateway
	notify      *NotificationFanout
	cfg         GiftCardConfig
	log         *zap.Logger
	now         func() time.Time
}

func NewGiftCardService(
	db *gorm.DB,
	cardRepo repositories.GiftCardRepository,
	accountRepo repositories.AccountRepository,
	claimRepo repositories.PaymentClaimRepository,
	ledger BalanceServiceInterface,
	gateway PaymentGateway,
	notify *NotificationFanout,
	cfg GiftCardConfig,
	log *zap.Logger,
) *GiftCardService {
	cfg.Currency = strings.ToLower(cfg.Currency)
	if cfg.ValidityMonths <= 0 {
		cfg.ValidityMonths = 6
	}
	if cfg.MaxRedemptionAttempts <= 0 {
		cfg.MaxRedemptionAttempts = 5
	}
	if cfg.MaxVerificationAttempts <= 0 {
		cfg.MaxVerificationAttempts = 10
	}
	if cfg.LookupRetentionMonths <= 0 {
		cfg.LookupRetentionMonths = 13
	}

	return &GiftCardService{
		db:          db,
		cardRepo:    cardRepo,
		accountRepo: accountRepo,
		claimRepo:   claimRepo,
		ledger:      ledger,
		gateway:     gateway,
		notify:      notify,
		cfg:         cfg,
		log:         log.Named("giftcard"),
		now:         time.Now,
	}
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, utils.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, utils.ErrNotActive):
		return "not_active"
	case errors.Is(err, utils.ErrLocked):
		return "locked"
	case errors.Is(err, utils.ErrExpired):
		return "expired"
	case errors.Is(err, utils.ErrWrongCardType):
		return "wrong_type"
	case errors.Is(err, utils.ErrDuplicatePurchase):
		return "duplicate"
	case errors.Is(err, utils.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, utils.ErrPaymentNotSucceeded):
		return "payment_not_succeeded"
	case errors.Is(err, utils.ErrPaymentGateway):
		return "gateway"
	case errors.Is(err, utils.ErrGiftCardNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *GiftCardService) record(operation string, err error) {
	metrics.GiftCardEvents.WithLabelValues(operation, outcomeLabel(err)).Inc()
}

func dbError(err error) error {
	return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
}

func (s *GiftCardService) Purchase(ctx context.Context, req request_models.PurchaseGiftCardRequest, paymentReferenceID string) (result *PurchaseResult, err error) {
	defer func() { s.record("purchase", err) }()

	paymentReferenceID = strings.TrimSpace(paymentReferenceID)
	if paymentReferenceID == "" {
		return nil, utils.ErrPaymentReferenceRequired
	}

	cardType := dbm.GiftCardType(strings.ToUpper(req.Type))
	if cardType == "" {
		cardType = dbm.GiftCardTypeBalance
	}
	if cardType != dbm.GiftCardTypeBalance && cardType != dbm.GiftCardTypeService {
		return nil, fmt.Errorf("%w: unknown card type %q", utils.ErrWrongCardType, req.Type)
	}
	if !req.Amount.IsPositive() {
		return nil, utils.ErrInvalidAmount
	}
	expectedMinor, ok := utils.ToMinorUnits(req.Amount, s.cfg.Currency)
	if !ok {
		return nil, utils.ErrInvalidAmount
	}

	payment, err := s.gateway.GetPayment(ctx, paymentReferenceID)
	if err != nil {
		return nil, err
	}
	if !payment.Succeeded() {
		return nil, fmt.Errorf("%w: status %s", utils.ErrPaymentNotSucceeded, payment.Status)
	}

	existing, err := s.cardRepo.FindByPaymentIntentID(ctx, paymentReferenceID)
	if err != nil {
		return nil, dbError(err)
	}
	if existing != nil {
		return nil, utils.ErrDuplicatePurchase
	}
	claim, err := s.claimRepo.FindByPaymentID(ctx, paymentReferenceID)
	if err != nil {
		return nil, dbError(err)
	}
	if claim != nil {
		s.log.Warn("payment already spent on something else",
			zap.String("payment_id", paymentReferenceID),
			zap.String("purpose", string(claim.Purpose)))
		return nil, utils.ErrDuplicatePurchase
	}

	if payment.CapturedMinor() != expectedMinor || (payment.Currency != "" && payment.Currency != s.cfg.Currency) {
		s.log.Warn("gift card amount does not match payment",
			zap.String("payment_id", payment.ID),
			zap.Int64("expected_minor", expectedMinor),
			zap.Int64("captured_minor", payment.CapturedMinor()),
			zap.String("currency", payment.Currency))
		return nil, utils.ErrAmountMismatch
	}

	code, err := utils.GenerateGiftCardCode()
	if err != nil {
		return nil, fmt.Errorf("generate gift card code: %w", err)
	}
	codeHash, err := utils.HashGiftCardCode(code, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash gift card code: %w", err)
	}
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	purchaserEmail := strings.ToLower(strings.TrimSpace(req.PurchaserEmail))
	purchaser, err := s.accountRepo.FindByEmail(ctx, purchaserEmail)
	if err != nil {
		return nil, dbError(err)
	}

	now := s.now()
	card := &dbm.GiftCard{
		BaseModel:         dbm.BaseModel{CreatedAt: now.Unix()},
		CodeHash:          codeHash,
		Type:              cardType,
		Amount:            req.Amount,
		Currency:          s.cfg.Currency,
		Status:            dbm.GiftCardStatusActive,
		PurchaserName:     strings.TrimSpace(req.PurchaserName),
		PurchaserEmail:    purchaserEmail,
		RecipientName:     strings.TrimSpace(req.RecipientName),
		RecipientEmail:    strings.ToLower(strings.TrimSpace(req.RecipientEmail)),
		Message:           strings.TrimSpace(req.Message),
		ExpiresAt:         now.AddDate(0, s.cfg.ValidityMonths, 0).Unix(),
		PaymentIntentID:   paymentReferenceID,
		VerificationToken: token,
	}
	if cardType == dbm.GiftCardTypeService {
		card.ServiceName = strings.TrimSpace(req.ServiceName)
	}
	if purchaser != nil {
		card.PurchaserAccountID = &purchaser.ID
	}

	err = infra.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		if err := s.claimRepo.Claim(ctx, &dbm.PaymentClaim{
			PaymentID: paymentReferenceID,
			Purpose:   dbm.PaymentPurposeGiftCard,
			UserID:    card.PurchaserAccountID,
			CreatedAt: card.CreatedAt,
		}); err != nil {
			return err
		}
		return s.cardRepo.Create(ctx, card)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if again, _ := s.claimRepo.FindByPaymentID(ctx, paymentReferenceID); again != nil {
				return nil, utils.ErrDuplicatePurchase
			}
			if again, _ := s.cardRepo.FindByPaymentIntentID(ctx, paymentReferenceID); again != nil {
				return nil, utils.ErrDuplicatePurchase
			}
		}
		return nil, dbError(err)
	}

	s.log.Info("gift card issued",
		zap.Stringer("gift_card_id", card.ID),
		zap.String("type", string(card.Type)),
		zap.String("amount", card.Amount.StringFixed(2)),
		zap.String("payment_id", paymentReferenceID))

	if purchaser != nil {
		desc := fmt.Sprintf("Gift card purchase (%s)", strings.ToLower(string(card.Type)))
		if _, err := s.ledger.RecordPurchase(ctx, purchaser.ID, card.Amount, desc, paymentReferenceID); err != nil {
			s.log.Warn("could not record gift card purchase in ledger",
				zap.Stringer("gift_card_id", card.ID),
				zap.Stringer("user_id", purchaser.ID),
				zap.Error(err))
		}
	}

	s.notify.Purchased(ctx, card, code)
	return &PurchaseResult{Card: card, Code: code}, nil
}

// locate finds the card a code belongs to. Redeemable cards are tried first;
// recently retired or locked cards are tried next so a replayed code is
// rejected for the right reason.
func (s *GiftCardService) locate(ctx context.Context, code string) (uuid.UUID, error) {
	cards, err := s.cardRepo.ListRedeemableHashes(ctx)
	if err != nil {
		return uuid.Nil, dbError(err)
	}
	if id, ok := s.scan(cards, code); ok {
		return id, nil
	}

	since := s.now().AddDate(0, -s.cfg.LookupRetentionMonths, 0).Unix()
	cards, err = s.cardRepo.ListUnredeemableHashesSince(ctx, since)
	if err != nil {
		return uuid.Nil, dbError(err)
	}
	if id, ok := s.scan(cards, code); ok {
		return id, nil
	}
	return uuid.Nil, utils.ErrInvalidCode
}

func (s *GiftCardService) scan(cards []dbm.GiftCard, code string) (uuid.UUID, bool) {
	metrics.GiftCardScanSize.Observe(float64(len(cards)))
	if s.cfg.ScanWarnThreshold > 0 && len(cards) > s.cfg.ScanWarnThreshold {
		s.log.Warn("gift card code lookup is scanning a large set", zap.Int("cards", len(cards)))
	}

	for i := range cards {
		if utils.MatchGiftCardCode(cards[i].CodeHash, code) {
			return cards[i].ID, true
		}
	}
	return uuid.Nil, false
}

func (s *GiftCardService) lock(card *dbm.GiftCard, at int64, reason string) {
	card.IsLocked = true
	card.LockedAt = &at
	card.LockedReason = reason
	metrics.GiftCardLockouts.WithLabelValues(reason).Inc()
	s.log.Warn("gift card locked", zap.Stringer("gift_card_id", card.ID), zap.String("reason", reason))
}

// expire moves a card found past its expiry to EXPIRED inside the caller's
// transaction.
func (s *GiftCardService) expire(ctx context.Context, card *dbm.GiftCard) error {
	if _, err := s.cardRepo.Transition(ctx, card.ID, dbm.GiftCardStatusActive, dbm.GiftCardStatusExpired, nil); err != nil {
		return err
	}
	card.Status = dbm.GiftCardStatusExpired
	return nil
}

func (s *GiftCardService) Redeem(ctx context.Context, code string, userID uuid.UUID, clientIP string) (txn *dbm.Transaction, err error) {
	defer func() { s.record("redeem", err) }()

	code = utils.NormalizeGiftCardCode(code)
	if code == "" {
		return nil, utils.ErrInvalidCode
	}

	redeemer, err := s.accountRepo.FindById(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}
	if redeemer == nil {
		return nil, utils.ErrAccountNotFound
	}

	cardID, err := s.locate(ctx, code)
	if err != nil {
		return nil, err
	}

	var (
		card    *dbm.GiftCard
		outcome error
	)
	now := s.now().Unix()

	// Attempt bookkeeping and rejections commit with outcome set; only a
	// failed write rolls the unit back.
	err = infra.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		c, err := s.cardRepo.FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if c == nil {
			outcome = utils.ErrInvalidCode
			return nil
		}
		card = c

		switch {
		case c.Status != dbm.GiftCardStatusActive:
			outcome = utils.ErrNotActive
			return nil
		case c.IsLocked:
			outcome = utils.ErrLocked
			return nil
		case c.IsExpiredAt(now):
			outcome = utils.ErrExpired
			return s.expire(ctx, c)
		}

		c.RedemptionAttempts++
		c.LastRedemptionAttempt = &now
		c.LastRedemptionIP = clientIP
		if c.RedemptionAttempts > s.cfg.MaxRedemptionAttempts {
			s.lock(c, now, lockReasonRedemption)
			outcome = utils.ErrLocked
		} else if c.Type != dbm.GiftCardTypeBalance {
			outcome = utils.ErrWrongCardType
		}
		if err := s.cardRepo.Save(ctx, c); err != nil {
			return err
		}
		if outcome != nil {
			return nil
		}

		moved, err := s.cardRepo.Transition(ctx, c.ID, dbm.GiftCardStatusActive, dbm.GiftCardStatusRedeemed, map[string]interface{}{
			"redeemed_at":         now,
			"redeemed_by_user_id": userID,
		})
		if err != nil {
			return err
		}
		if !moved {
			outcome = utils.ErrNotActive
			return nil
		}
		c.Status = dbm.GiftCardStatusRedeemed
		c.RedeemedAt = &now
		c.RedeemedByUserID = &userID

		txn, err = s.ledger.Credit(ctx, CreditRequest{
			UserID:      userID,
			Amount:      c.Amount,
			Description: "Gift card redemption",
			Type:        dbm.TxnTypeGiftCardRedeem,
			ReferenceID: c.ID.String(),
		})
		return err
	})
	if err != nil {
		if utils.IsServiceError(err) {
			return nil, err
		}
		return nil, dbError(err)
	}

	if outcome != nil {
		s.log.Info("gift card redemption rejected",
			zap.Stringer("gift_card_id", cardID),
			zap.Stringer("user_id", userID),
			zap.String("client_ip", clientIP),
			zap.String("reason", outcomeLabel(outcome)))
		if errors.Is(outcome, utils.ErrExpired) {
			s.notify.Expired(ctx, card)
		}
		return nil, outcome
	}

	s.log.Info("gift card redeemed",
		zap.Stringer("gift_card_id", card.ID),
		zap.Stringer("user_id", userID),
		zap.Stringer("transaction_id", txn.ID))
	s.notify.Redeemed(ctx, card, redeemer)
	return txn, nil
}

func (s *GiftCardService) MarkServiceCardUsed(ctx context.Context, cardID, adminID uuid.UUID) (card *dbm.GiftCard, err error) {
	defer func() { s.record("mark_used", err) }()

	var outcome error
	now := s.now().Unix()

	err = infra.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		c, err := s.cardRepo.FindByIDForUpdate(ctx, cardID)
		if err != nil {
			return err
		}
		if c == nil {
			outcome = utils.ErrGiftCardNotFound
			return nil
		}
		card = c

		switch {
		case c.Type != dbm.GiftCardTypeService:
			outcome = utils.ErrWrongCardType
			return nil
		case c.Status != dbm.GiftCardStatusActive:
			outcome = utils.ErrNotActive
			return nil
		case c.IsLocked:
			outcome = utils.ErrLocked
			return nil
		case c.IsExpiredAt(now):
			outcome = utils.ErrExpired
			return s.expire(ctx, c)
		}

		moved, err := s.cardRepo.Transition(ctx, c.ID, dbm.GiftCardStatusActive, dbm.GiftCardStatusRedeemed, map[string]interface{}{
			"redeemed_at":         now,
			"redeemed_by_user_id": adminID,
		})
		if err != nil {
			return err
		}
		if !moved {
			outcome = utils.ErrNotActive
			return nil
		}
		c.Status = dbm.GiftCardStatusRedeemed
		c.RedeemedAt = &now
		c.RedeemedByUserID = &adminID
		return nil
	})
	if err != nil {
		return nil, dbError(err)
	}

	if outcome != nil {
		if errors.Is(outcome, utils.ErrExpired) {
			s.notify.Expired(ctx, card)
		}
		return nil, outcome
	}

	s.log.Info("service gift card used",
		zap.Stringer("gift_card_id", card.ID),
		zap.Stringer("admin_id", adminID))
	s.notify.Redeemed(ctx, card, nil)
	s.notify.AdminServiceCard(ctx, card)
	return card, nil
}

func (s *GiftCardService) VerifyForAdmin(ctx context.Context, verificationToken string) (card *dbm.GiftCard, err error) {
	defer func() { s.record("verify", err) }()

	verificationToken = strings.TrimSpace(verificationToken)
	if verificationToken == "" {
		return nil, utils.ErrGiftCardNotFound
	}

	var outcome error
	now := s.now().Unix()

	err = infra.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		found, err := s.cardRepo.FindByVerificationToken(ctx, verificationToken)
		if err != nil {
			return err
		}
		if found == nil {
			outcome = utils.ErrGiftCardNotFound
			return nil
		}

		c, err := s.cardRepo.FindByIDForUpdate(ctx, found.ID)
		if err != nil {
			return err
		}
		if c == nil {
			outcome = utils.ErrGiftCardNotFound
			return nil
		}
		if c.IsLocked {
			outcome = utils.ErrLocked
			return nil
		}

		c.VerificationAttempts++
		c.LastVerificationAttempt = &now
		if c.VerificationAttempts > s.cfg.MaxVerificationAttempts {
			s.lock(c, now, lockReasonVerification)
			outcome = utils.ErrLocked
		}
		card = c
		return s.cardRepo.Save(ctx, c)
	})
	if err != nil {
		return nil, dbError(err)
	}
	if outcome != nil {
		return nil, outcome
	}
	return card, nil
}

func (s *GiftCardService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	cards, err := s.cardRepo.ListActiveExpiringBefore(ctx, now.Unix())
	if err != nil {
		return 0, dbError(err)
	}

	expired := 0
	for i := range cards {
		card := &cards[i]
		moved, err := s.cardRepo.Transition(ctx, card.ID, dbm.GiftCardStatusActive, dbm.GiftCardStatusExpired, nil)
		if err != nil {
			return expired, dbError(err)
		}
		if !moved {
			continue
		}
		card.Status = dbm.GiftCardStatusExpired
		expired++
		metrics.GiftCardEvents.WithLabelValues("expire", "success").Inc()
		s.notify.Expired(ctx, card)
	}

	if expired > 0 {
		s.log.Info("expired gift cards", zap.Int("count", expired))
	}
	return expired, nil
}

func (s *GiftCardService) CancelForFailedPayment(ctx context.Context, paymentReferenceID string) (int, error) {
	paymentReferenceID = strings.TrimSpace(paymentReferenceID)
	if paymentReferenceID == "" {
		return 0, utils.ErrPaymentReferenceRequired
	}

	cards, err := s.cardRepo.ListActiveByPaymentIntentID(ctx, paymentReferenceID)
	if err != nil {
		return 0, dbError(err)
	}

	now := s.now().Unix()
	cancelled := 0
	for _, card := range cards {
		moved, err := s.cardRepo.Transition(ctx, card.ID, dbm.GiftCardStatusActive, dbm.GiftCardStatusCancelled, map[string]interface{}{
			"is_locked":     true,
			"locked_at":     now,
			"locked_reason": lockReasonPayment,
		})
		if err != nil {
			return cancelled, dbError(err)
		}
		if moved {
			cancelled++
			metrics.GiftCardEvents.WithLabelValues("cancel", "success").Inc()
			s.log.Warn("gift card cancelled after payment failure",
				zap.Stringer("gift_card_id", card.ID),
				zap.String("payment_id", paymentReferenceID))
		}
	}
	return cancelled, nil
}

func (s *GiftCardService) GetByID(ctx context.Context, id uuid.UUID) (*dbm.GiftCard, error) {
	card, err := s.cardRepo.FindByID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if card == nil {
		return nil, utils.ErrGiftCardNotFound
	}
	return card, nil
}

func (s *GiftCardService) CountActive(ctx context.Context) (int64, error) {
	n, err := s.cardRepo.CountActive(ctx)
	if err != nil {
		return 0, dbError(err)
	}
	return n, nil
}
