package trading

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/fees"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/pricing"
	"github.com/angelmondragon/tokenomics/internal/wallets"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	feeSavepoint         = "fee_credit"
	maxDestinationLength = 255
)

// Service moves money between wallets and charges the configured fees.
type Service interface {
	Buy(ctx context.Context, input BuyInput) (*models.TransferRecord, error)
	Sell(ctx context.Context, input SellInput) (*models.TransferRecord, error)
	Transfer(ctx context.Context, input TransferInput) (*models.TransferRecord, error)
	Withdraw(ctx context.Context, input WithdrawInput) (*models.TransferRecord, error)
	ResolveWithdrawal(ctx context.Context, id uuid.UUID, status enums.TransferStatus) (*models.TransferRecord, error)
	History(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*HistoryPage, error)
}

type BuyInput struct {
	AccountID  uuid.UUID
	FiatAmount decimal.Decimal
}

type SellInput struct {
	AccountID   uuid.UUID
	TokenAmount decimal.Decimal
}

type TransferInput struct {
	FromID uuid.UUID
	ToID   uuid.UUID
	Amount decimal.Decimal
}

type WithdrawInput struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Destination string
}

// HistoryPage is one page of transfer records, newest first.
type HistoryPage struct {
	Records    []models.TransferRecord `json:"records"`
	NextCursor string                  `json:"next_cursor,omitempty"`
}

// ServiceParams configure the trading service.
type ServiceParams struct {
	Repository Repository
	DB         db.TxRunner
	Accounts   accounts.Provider
	Wallets    wallets.Service
	Fees       fees.Calculator
	Crediter   fees.Crediter
	Oracle     pricing.Oracle
	Ledger     ledger.Service
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	db       db.TxRunner
	accounts accounts.Provider
	wallets  wallets.Service
	fees     fees.Calculator
	crediter fees.Crediter
	oracle   pricing.Oracle
	ledger   ledger.Service
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("transfer records repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts provider required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallets service required")
	}
	if params.Fees == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	if params.Crediter == nil {
		return nil, fmt.Errorf("fee crediter required")
	}
	if params.Oracle == nil {
		return nil, fmt.Errorf("price oracle required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repository,
		db:       params.DB,
		accounts: params.Accounts,
		wallets:  params.Wallets,
		fees:     params.Fees,
		crediter: params.Crediter,
		oracle:   params.Oracle,
		ledger:   params.Ledger,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Buy converts fiat balance into tokens at the current price after the buy fee.
func (s *service) Buy(ctx context.Context, input BuyInput) (*models.TransferRecord, error) {
	amount, err := validateAmount(input.AccountID, input.FiatAmount)
	if err != nil {
		return nil, err
	}
	quote, err := s.fees.Calculate(ctx, amount, enums.FeeKindBuy)
	if err != nil {
		return nil, err
	}
	price, err := s.oracle.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	tokens := types.RoundAmount(quote.Net.Div(price.Price))
	if !tokens.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is too small to buy any tokens")
	}

	record := newRecord(input.AccountID, nil, quote, enums.TransferStatusCompleted)
	record.TokenAmount = decimal.NewNullDecimal(tokens)
	record.Price = decimal.NewNullDecimal(price.Price)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.wallets.Debit(ctx, tx, input.AccountID, enums.AssetBalance, amount); err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, tx, input.AccountID, enums.AssetToken, tokens); err != nil {
			return err
		}
		return s.commit(ctx, tx, record, enums.AssetBalance)
	})
	if err != nil {
		return nil, err
	}
	s.logTrade(ctx, record)
	return record, nil
}

// Sell converts tokens into fiat balance at the current price after the sell fee.
func (s *service) Sell(ctx context.Context, input SellInput) (*models.TransferRecord, error) {
	tokens, err := validateAmount(input.AccountID, input.TokenAmount)
	if err != nil {
		return nil, err
	}
	price, err := s.oracle.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	gross := types.RoundAmount(tokens.Mul(price.Price))
	if !gross.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is too small to sell")
	}
	quote, err := s.fees.Calculate(ctx, gross, enums.FeeKindSell)
	if err != nil {
		return nil, err
	}

	record := newRecord(input.AccountID, nil, quote, enums.TransferStatusCompleted)
	record.TokenAmount = decimal.NewNullDecimal(tokens)
	record.Price = decimal.NewNullDecimal(price.Price)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.wallets.Debit(ctx, tx, input.AccountID, enums.AssetToken, tokens); err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, tx, input.AccountID, enums.AssetBalance, quote.Net); err != nil {
			return err
		}
		return s.commit(ctx, tx, record, enums.AssetToken)
	})
	if err != nil {
		return nil, err
	}
	s.logTrade(ctx, record)
	return record, nil
}

// Transfer moves fiat balance between two accounts; the recipient receives the net amount.
func (s *service) Transfer(ctx context.Context, input TransferInput) (*models.TransferRecord, error) {
	amount, err := validateAmount(input.FromID, input.Amount)
	if err != nil {
		return nil, err
	}
	if input.ToID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id is required")
	}
	if input.ToID == input.FromID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer to the same account")
	}
	quote, err := s.fees.Calculate(ctx, amount, enums.FeeKindTransfer)
	if err != nil {
		return nil, err
	}

	recipient := input.ToID
	record := newRecord(input.FromID, &recipient, quote, enums.TransferStatusCompleted)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.accounts.WithTx(tx).GetAccount(ctx, recipient); err != nil {
			return err
		}
		if _, err := s.wallets.Debit(ctx, tx, input.FromID, enums.AssetBalance, amount); err != nil {
			return err
		}
		if _, err := s.wallets.Credit(ctx, tx, recipient, enums.AssetBalance, quote.Net); err != nil {
			return err
		}
		if err := s.commit(ctx, tx, record, enums.AssetBalance); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, recipient, record, enums.AssetBalance, quote.Net, "received")
	})
	if err != nil {
		return nil, err
	}
	s.logTrade(ctx, record)
	return record, nil
}

// Withdraw debits the gross amount and leaves a PENDING record for the payout rail.
func (s *service) Withdraw(ctx context.Context, input WithdrawInput) (*models.TransferRecord, error) {
	amount, err := validateAmount(input.AccountID, input.Amount)
	if err != nil {
		return nil, err
	}
	destination := strings.TrimSpace(input.Destination)
	if destination == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is required")
	}
	if len(destination) > maxDestinationLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination is too long")
	}
	quote, err := s.fees.Calculate(ctx, amount, enums.FeeKindWithdraw)
	if err != nil {
		return nil, err
	}

	record := newRecord(input.AccountID, nil, quote, enums.TransferStatusPending)
	record.Destination = &destination

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.wallets.Debit(ctx, tx, input.AccountID, enums.AssetBalance, amount); err != nil {
			return err
		}
		return s.commit(ctx, tx, record, enums.AssetBalance)
	})
	if err != nil {
		return nil, err
	}
	s.logTrade(ctx, record)
	return record, nil
}

// ResolveWithdrawal moves a PENDING withdrawal to COMPLETED or FAILED exactly once.
// A failed withdrawal refunds the net amount; the fee stays with the receiver.
func (s *service) ResolveWithdrawal(ctx context.Context, id uuid.UUID, status enums.TransferStatus) (*models.TransferRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal id is required")
	}
	if status != enums.TransferStatusCompleted && status != enums.TransferStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be COMPLETED or FAILED")
	}

	resolvedAt := s.now().UTC()
	var record *models.TransferRecord
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		record, err = repo.Lock(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock withdrawal")
		}
		if record == nil || record.Kind != enums.FeeKindWithdraw {
			return pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal not found")
		}
		if record.Status != enums.TransferStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already resolved").
				WithDetails(map[string]string{"status": string(record.Status)})
		}

		moved, err := repo.TransitionStatus(ctx, id, enums.TransferStatusPending, status, resolvedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve withdrawal")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal already resolved")
		}
		record.Status = status
		record.ResolvedAt = &resolvedAt

		if status != enums.TransferStatusFailed {
			return nil
		}
		if _, err := s.wallets.Credit(ctx, tx, record.AccountID, enums.AssetBalance, record.NetAmount); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, record.AccountID, record, enums.AssetBalance, record.NetAmount, "refund")
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithAccountID(ctx, record.AccountID.String()), map[string]any{
		"transfer_id": record.ID.String(),
		"status":      string(status),
	})
	s.logg.Info(logCtx, "withdrawal resolved")
	return record, nil
}

func (s *service) History(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	records, err := s.repo.ListByAccount(ctx, accountID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfer records")
	}

	page := &HistoryPage{}
	page.Records, page.NextCursor = pagination.Trim(records, params.Limit, func(r models.TransferRecord) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return page, nil
}

// commit credits the fee, inserts the record and writes the initiator's ledger event.
func (s *service) commit(ctx context.Context, tx *gorm.DB, record *models.TransferRecord, asset enums.Asset) error {
	s.creditFee(ctx, tx, record)
	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transfer")
	}
	amount := record.GrossAmount
	if record.TokenAmount.Valid && asset == enums.AssetToken {
		amount = record.TokenAmount.Decimal
	}
	return s.recordEvent(ctx, tx, record.AccountID, record, asset, amount, "sent")
}

// creditFee runs under a savepoint so a missing receiver or storage error
// leaves the trade intact with an empty fee receiver. The failure reason is
// stored on the record and returned to the caller.
func (s *service) creditFee(ctx context.Context, tx *gorm.DB, record *models.TransferRecord) {
	if !record.FeeAmount.IsPositive() {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transfer_id": record.ID.String(),
		"kind":        string(record.Kind),
		"fee":         record.FeeAmount.String(),
	})
	if err := tx.SavePoint(feeSavepoint).Error; err != nil {
		s.logg.Error(logCtx, "fee savepoint failed", err)
		record.FeeCreditError = feeCreditFailure(err)
		return
	}
	wallet, err := s.crediter.CreditFee(ctx, tx, fees.CreditInput{
		Amount:      record.FeeAmount,
		Kind:        record.Kind,
		ReferenceID: &record.ID,
	})
	if err != nil {
		if rbErr := tx.RollbackTo(feeSavepoint).Error; rbErr != nil {
			s.logg.Error(logCtx, "fee savepoint rollback failed", rbErr)
		}
		s.logg.Warn(logCtx, fmt.Sprintf("fee not credited: %v", err))
		record.FeeCreditError = feeCreditFailure(err)
		return
	}
	if wallet != nil {
		receiver := wallet.AccountID
		record.FeeReceiverID = &receiver
	}
}

// feeCreditFailure renders a fee credit error the way the API would expose it:
// the error code plus its public message. Untyped errors never leak their text.
func feeCreditFailure(err error) *string {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "")
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	msg := meta.PublicMessage
	if meta.DetailsAllowed && typed.Message() != "" {
		msg = typed.Message()
	}
	reason := fmt.Sprintf("%s: %s", typed.Code(), msg)
	return &reason
}

func (s *service) recordEvent(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, record *models.TransferRecord, asset enums.Asset, amount decimal.Decimal, direction string) error {
	_, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
		AccountID:   accountID,
		Type:        enums.LedgerEventTypeTrade,
		Asset:       asset,
		Amount:      amount,
		ReferenceID: &record.ID,
		Metadata: map[string]string{
			"kind":      string(record.Kind),
			"direction": direction,
			"fee":       record.FeeAmount.String(),
		},
	})
	return err
}

func (s *service) logTrade(ctx context.Context, record *models.TransferRecord) {
	logCtx := s.logg.WithFields(s.logg.WithAccountID(ctx, record.AccountID.String()), map[string]any{
		"transfer_id": record.ID.String(),
		"kind":        string(record.Kind),
		"gross":       record.GrossAmount.String(),
		"fee":         record.FeeAmount.String(),
		"status":      string(record.Status),
	})
	s.logg.Info(logCtx, "trade recorded")
}

func newRecord(accountID uuid.UUID, counterparty *uuid.UUID, quote fees.Quote, status enums.TransferStatus) *models.TransferRecord {
	return &models.TransferRecord{
		ID:             uuid.New(),
		AccountID:      accountID,
		CounterpartyID: counterparty,
		Kind:           quote.Kind,
		GrossAmount:    quote.Amount,
		FeeRate:        quote.Rate,
		FeeAmount:      quote.Fee,
		NetAmount:      quote.Net,
		Status:         status,
	}
}

func validateAmount(accountID uuid.UUID, raw decimal.Decimal) (decimal.Decimal, error) {
	if accountID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	amount := types.RoundAmount(raw)
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return amount, nil
}
