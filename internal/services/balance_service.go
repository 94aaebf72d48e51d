package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"salon/internal/infra"
	"salon/internal/metrics"
	dbm "salon/internal/models/db_models"
	"salon/internal/repositories"
	"salon/pkg/utils"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxLedgerAttempts   = 3
)

var errVersionConflict = errors.New("ledger version changed")

type HistoryQuery struct {
	BeforeSeq int64 // only entries with a smaller sequence number; 0 starts at the newest
	Limit     int
}

type CreditRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	Type        dbm.TransactionType // CREDIT when empty
	ReferenceID string
	AdminID     *uuid.UUID
	Notes       string
}

type DebitRequest struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	Type        dbm.TransactionType // DEBIT when empty
	ReferenceID string
	AdminID     *uuid.UUID
	Notes       string
}

type BalanceServiceInterface interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	GetHistory(ctx context.Context, userID uuid.UUID, query HistoryQuery) ([]dbm.Transaction, error)
	Credit(ctx context.Context, req CreditRequest) (*dbm.Transaction, error)
	Debit(ctx context.Context, req DebitRequest) (*dbm.Transaction, error)
	CreditFromExternalPayment(ctx context.Context, userID uuid.UUID, paymentReferenceID string) (*dbm.Transaction, error)
	AdminAdjust(ctx context.Context, userID uuid.UUID, signedAmount decimal.Decimal, description string, adminID uuid.UUID) (*dbm.Transaction, error)
	RecordPurchase(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description, referenceID string) (*dbm.Transaction, error)
}

type BalanceService struct {
	db          *gorm.DB
	accountRepo repositories.AccountRepository
	txnRepo     repositories.TransactionRepository
	claimRepo   repositories.PaymentClaimRepository
	gateway     PaymentGateway
	currency    string
	log         *zap.Logger
	now         func() time.Time
}

func NewBalanceService(
	db *gorm.DB,
	accountRepo repositories.AccountRepository,
	txnRepo repositories.TransactionRepository,
	claimRepo repositories.PaymentClaimRepository,
	gateway PaymentGateway,
	currency string,
	log *zap.Logger,
) *BalanceService {
	return &BalanceService{
		db:          db,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		claimRepo:   claimRepo,
		gateway:     gateway,
		currency:    strings.ToLower(currency),
		log:         log.Named("ledger"),
		now:         time.Now,
	}
}

func (s *BalanceService) requireAccount(ctx context.Context, userID uuid.UUID) (*dbm.Account, error) {
	account, err := s.accountRepo.FindById(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, utils.ErrAccountNotFound
	}
	return account, nil
}

func (s *BalanceService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.requireAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

func (s *BalanceService) GetHistory(ctx context.Context, userID uuid.UUID, query HistoryQuery) ([]dbm.Transaction, error) {
	if _, err := s.requireAccount(ctx, userID); err != nil {
		return nil, err
	}

	limit := query.Limit
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	txns, err := s.txnRepo.ListByUser(ctx, userID, query.BeforeSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return txns, nil
}

func (s *BalanceService) Credit(ctx context.Context, req CreditRequest) (*dbm.Transaction, error) {
	if req.Type == "" {
		req.Type = dbm.TxnTypeCredit
	}
	if req.Type.Effect() <= 0 {
		return nil, fmt.Errorf("%w: %s cannot credit a balance", utils.ErrInvalidTxnType, req.Type)
	}
	return s.apply(ctx, entry{
		userID:      req.UserID,
		amount:      req.Amount,
		txnType:     req.Type,
		description: req.Description,
		referenceID: req.ReferenceID,
		adminID:     req.AdminID,
		notes:       req.Notes,
	})
}

func (s *BalanceService) Debit(ctx context.Context, req DebitRequest) (*dbm.Transaction, error) {
	if req.Type == "" {
		req.Type = dbm.TxnTypeDebit
	}
	if req.Type.Effect() >= 0 {
		return nil, fmt.Errorf("%w: %s cannot debit a balance", utils.ErrInvalidTxnType, req.Type)
	}
	return s.apply(ctx, entry{
		userID:      req.UserID,
		amount:      req.Amount,
		txnType:     req.Type,
		description: req.Description,
		referenceID: req.ReferenceID,
		adminID:     req.AdminID,
		notes:       req.Notes,
	})
}

// RecordPurchase writes a GIFT_CARD_PURCHASE memo entry. The purchase was
// paid through the gateway, so the balance is carried over unchanged.
func (s *BalanceService) RecordPurchase(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, description, referenceID string) (*dbm.Transaction, error) {
	return s.apply(ctx, entry{
		userID:      userID,
		amount:      amount,
		txnType:     dbm.TxnTypeGiftCardPurchase,
		description: description,
		referenceID: referenceID,
	})
}

func (s *BalanceService) AdminAdjust(ctx context.Context, userID uuid.UUID, signedAmount decimal.Decimal, description string, adminID uuid.UUID) (*dbm.Transaction, error) {
	if signedAmount.IsZero() {
		return nil, utils.ErrInvalidAmount
	}

	notes := fmt.Sprintf("manual adjustment by admin %s", adminID)
	if signedAmount.IsPositive() {
		return s.Credit(ctx, CreditRequest{
			UserID:      userID,
			Amount:      signedAmount,
			Description: description,
			Type:        dbm.TxnTypeCredit,
			AdminID:     &adminID,
			Notes:       notes,
		})
	}
	return s.Debit(ctx, DebitRequest{
		UserID:      userID,
		Amount:      signedAmount.Abs(),
		Description: description,
		Type:        dbm.TxnTypeDebit,
		AdminID:     &adminID,
		Notes:       notes,
	})
}

func (s *BalanceService) CreditFromExternalPayment(ctx context.Context, userID uuid.UUID, paymentReferenceID string) (*dbm.Transaction, error) {
	paymentReferenceID = strings.TrimSpace(paymentReferenceID)
	if paymentReferenceID == "" {
		return nil, utils.ErrPaymentReferenceRequired
	}
	if _, err := s.requireAccount(ctx, userID); err != nil {
		return nil, err
	}

	payment, err := s.gateway.GetPayment(ctx, paymentReferenceID)
	if err != nil {
		s.reject("gateway")
		return nil, err
	}
	if !payment.Succeeded() {
		s.reject("payment_not_succeeded")
		return nil, fmt.Errorf("%w: status %s", utils.ErrPaymentNotSucceeded, payment.Status)
	}

	switch owner := payment.Owner(); {
	case owner == "":
		metrics.OwnerlessPayments.Inc()
		s.log.Warn("crediting payment without owner metadata",
			zap.String("payment_id", payment.ID),
			zap.Stringer("user_id", userID))
	case !strings.EqualFold(owner, userID.String()):
		s.reject("ownership_mismatch")
		s.log.Warn("payment owner does not match caller",
			zap.String("payment_id", payment.ID),
			zap.Stringer("user_id", userID))
		return nil, utils.ErrOwnershipMismatch
	}

	if payment.Currency != "" && payment.Currency != s.currency {
		s.reject("currency_mismatch")
		return nil, fmt.Errorf("%w: payment in %s, ledger in %s", utils.ErrAmountMismatch, payment.Currency, s.currency)
	}

	if claim, err := s.claimRepo.FindByPaymentID(ctx, payment.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	} else if claim != nil && claim.Purpose != dbm.PaymentPurposeTopUp {
		s.reject("payment_claimed")
		s.log.Warn("payment already spent on something else",
			zap.String("payment_id", payment.ID),
			zap.String("purpose", string(claim.Purpose)),
			zap.Stringer("user_id", userID))
		return nil, utils.ErrAlreadyApplied
	}

	return s.apply(ctx, entry{
		userID:      userID,
		amount:      utils.FromMinorUnits(payment.CapturedMinor(), s.currency),
		txnType:     dbm.TxnTypeCredit,
		description: "Balance top-up",
		referenceID: payment.ID,
		claim:       dbm.PaymentPurposeTopUp,
	})
}

type entry struct {
	userID      uuid.UUID
	amount      decimal.Decimal
	txnType     dbm.TransactionType
	description string
	referenceID string
	adminID     *uuid.UUID
	notes       string

	// claim, when set, spends referenceID as a gateway payment in the same
	// database transaction as the entry.
	claim dbm.PaymentPurpose
}

func (s *BalanceService) reject(reason string) {
	metrics.LedgerRejections.WithLabelValues(reason).Inc()
}

// apply is the single write path for balances. The account row is locked,
// the entry takes the next sequence number and the balance update is guarded
// by the ledger version, all in one database transaction.
func (s *BalanceService) apply(ctx context.Context, e entry) (*dbm.Transaction, error) {
	if !e.txnType.Valid() {
		return nil, utils.ErrInvalidTxnType
	}
	if !e.amount.IsPositive() || !e.amount.Equal(e.amount.Round(2)) {
		s.reject("invalid_amount")
		return nil, utils.ErrInvalidAmount
	}

	var (
		txn *dbm.Transaction
		err error
	)
	for attempt := 1; attempt <= maxLedgerAttempts; attempt++ {
		txn, err = s.applyOnce(ctx, e)
		if err == nil {
			break
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if e.referenceID != "" {
				if existing, _ := s.txnRepo.FindCompletedByReference(ctx, e.referenceID); existing != nil {
					err = utils.ErrAlreadyApplied
					break
				}
			}
			if e.claim != "" {
				if claim, _ := s.claimRepo.FindByPaymentID(ctx, e.referenceID); claim != nil {
					err = utils.ErrAlreadyApplied
					break
				}
			}
			err = errVersionConflict
		}
		if !errors.Is(err, errVersionConflict) {
			break
		}
		s.log.Debug("ledger write lost a version race, retrying",
			zap.Stringer("user_id", e.userID),
			zap.Int("attempt", attempt))
	}

	switch {
	case err == nil:
		metrics.LedgerTransactions.WithLabelValues(string(txn.Type)).Inc()
		s.log.Info("ledger entry recorded",
			zap.Stringer("user_id", txn.UserID),
			zap.Stringer("transaction_id", txn.ID),
			zap.String("type", string(txn.Type)),
			zap.Int64("seq", txn.Seq),
			zap.String("amount", txn.Amount.StringFixed(2)),
			zap.String("balance_after", txn.BalanceAfter.StringFixed(2)))
		return txn, nil
	case errors.Is(err, utils.ErrAlreadyApplied):
		s.reject("already_applied")
		return nil, err
	case errors.Is(err, utils.ErrInsufficientFunds):
		s.reject("insufficient_funds")
		return nil, err
	case errors.Is(err, utils.ErrAccountNotFound):
		return nil, err
	case errors.Is(err, errVersionConflict):
		s.log.Error("ledger write kept losing version races", zap.Stringer("user_id", e.userID))
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	default:
		s.log.Error("ledger write failed", zap.Stringer("user_id", e.userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
}

func (s *BalanceService) applyOnce(ctx context.Context, e entry) (*dbm.Transaction, error) {
	var txn *dbm.Transaction

	err := infra.WithTransaction(ctx, s.db, func(ctx context.Context) error {
		account, err := s.accountRepo.FindByIdForUpdate(ctx, e.userID)
		if err != nil {
			return err
		}
		if account == nil {
			return utils.ErrAccountNotFound
		}

		if e.referenceID != "" {
			existing, err := s.txnRepo.FindCompletedByReference(ctx, e.referenceID)
			if err != nil {
				return err
			}
			if existing != nil {
				return utils.ErrAlreadyApplied
			}
		}

		now := s.now().Unix()
		if e.claim != "" {
			claim, err := s.claimRepo.FindByPaymentID(ctx, e.referenceID)
			if err != nil {
				return err
			}
			if claim != nil {
				return utils.ErrAlreadyApplied
			}
			userID := e.userID
			if err := s.claimRepo.Claim(ctx, &dbm.PaymentClaim{
				PaymentID: e.referenceID,
				Purpose:   e.claim,
				UserID:    &userID,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		before := account.Balance
		after := before.Add(e.amount.Mul(decimal.NewFromInt(int64(e.txnType.Effect()))))
		if after.IsNegative() {
			return utils.ErrInsufficientFunds
		}

		record := &dbm.Transaction{
			BaseModel:     dbm.BaseModel{CreatedAt: now},
			UserID:        account.ID,
			Seq:           account.LedgerVersion + 1,
			Type:          e.txnType,
			Amount:        e.amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			Status:        dbm.TxnStatusCompleted,
			Description:   e.description,
			AdminID:       e.adminID,
			Notes:         e.notes,
		}
		if e.referenceID != "" {
			ref := e.referenceID
			record.ReferenceID = &ref
		}
		if err := s.txnRepo.Create(ctx, record); err != nil {
			return err
		}

		updated, err := s.accountRepo.UpdateBalance(ctx, account.ID, account.LedgerVersion, after, now)
		if err != nil {
			return err
		}
		if !updated {
			return errVersionConflict
		}

		txn = record
		return nil
	})
	return txn, err
}
