package supply

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/tokenomics/internal/accounts"
	"github.com/angelmondragon/tokenomics/internal/ledger"
	"github.com/angelmondragon/tokenomics/internal/pricing"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/logger"
	"github.com/angelmondragon/tokenomics/pkg/metrics"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxReasonLength = 500

// Service owns the conserved supply counters.
type Service interface {
	Define(ctx context.Context, totalSupply, userAllocation decimal.Decimal) (*models.SupplyLedger, error)
	Status(ctx context.Context) (*Status, error)
	TransferReserveToCirculating(ctx context.Context, input TransferInput) (*models.AdminSupplyTransfer, error)
	TransferHistory(ctx context.Context, params pagination.Params) (*HistoryPage, error)
	// Lock reads the ledger FOR UPDATE inside tx.
	Lock(ctx context.Context, tx *gorm.DB) (*models.SupplyLedger, error)
	DebitCirculating(ctx context.Context, tx *gorm.DB, amount decimal.Decimal) (*models.SupplyLedger, error)
}

// TransferInput describes an admin move from reserve to circulating.
type TransferInput struct {
	AdminID uuid.UUID
	Amount  decimal.Decimal
	Reason  string
}

// Status is the supply snapshot shown to operators.
type Status struct {
	TotalSupply              decimal.Decimal `json:"total_supply"`
	UserAllocation           decimal.Decimal `json:"user_allocation"`
	UserCirculatingRemaining decimal.Decimal `json:"user_circulating_remaining"`
	AdminReserve             decimal.Decimal `json:"admin_reserve"`
	Price                    pricing.Price   `json:"price"`
}

// HistoryPage is one page of reserve transfers, newest first.
type HistoryPage struct {
	Transfers  []models.AdminSupplyTransfer `json:"transfers"`
	NextCursor string                       `json:"next_cursor,omitempty"`
}

// InsufficientDetails is attached to INSUFFICIENT_* supply errors.
type InsufficientDetails struct {
	Available decimal.Decimal `json:"available"`
	Requested decimal.Decimal `json:"requested"`
}

// ServiceParams configure the supply service.
type ServiceParams struct {
	Repository Repository
	DB         db.TxRunner
	Accounts   accounts.Provider
	Ledger     ledger.Service
	Oracle     pricing.Oracle
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
}

type service struct {
	repo     Repository
	db       db.TxRunner
	accounts accounts.Provider
	ledger   ledger.Service
	oracle   pricing.Oracle
	metrics  *metrics.SettlementMetrics
	logg     *logger.Logger
}

// NewService builds the supply service. Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("supply repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts provider required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Oracle == nil {
		return nil, fmt.Errorf("price oracle required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repository,
		db:       params.DB,
		accounts: params.Accounts,
		ledger:   params.Ledger,
		oracle:   params.Oracle,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Define initializes the singleton once; later calls return the existing row untouched.
func (s *service) Define(ctx context.Context, totalSupply, userAllocation decimal.Decimal) (*models.SupplyLedger, error) {
	totalSupply = types.RoundAmount(totalSupply)
	userAllocation = types.RoundAmount(userAllocation)
	if !totalSupply.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total supply must be positive")
	}
	if !userAllocation.IsPositive() || userAllocation.GreaterThan(totalSupply) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user allocation must be positive and within total supply")
	}

	var out *models.SupplyLedger
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.Lock(ctx)
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}
		out = &models.SupplyLedger{
			TotalSupply:              totalSupply,
			UserAllocation:           userAllocation,
			UserCirculatingRemaining: userAllocation,
			AdminReserve:             totalSupply.Sub(userAllocation),
		}
		return repo.Create(ctx, out)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.repo.Get(ctx)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "define supply ledger")
	}
	s.metrics.SetCirculatingRemaining(out.UserCirculatingRemaining)
	return out, nil
}

func (s *service) Status(ctx context.Context) (*Status, error) {
	current, err := s.repo.Get(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supply ledger")
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply ledger not initialized")
	}
	return &Status{
		TotalSupply:              current.TotalSupply,
		UserAllocation:           current.UserAllocation,
		UserCirculatingRemaining: current.UserCirculatingRemaining,
		AdminReserve:             current.AdminReserve,
		Price:                    s.oracle.Quote(current.UserCirculatingRemaining),
	}, nil
}

// TransferReserveToCirculating is the only operation that grows the circulating pool.
// It conserves reserve + remaining and writes one audit row.
func (s *service) TransferReserveToCirculating(ctx context.Context, input TransferInput) (*models.AdminSupplyTransfer, error) {
	amount := types.RoundAmount(input.Amount)
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if len(reason) > maxReasonLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is too long")
	}

	isAdmin, err := s.accounts.IsAdmin(ctx, input.AdminID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin privileges required")
	}

	var transfer *models.AdminSupplyTransfer
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.Lock(ctx, tx)
		if err != nil {
			return err
		}
		if current.AdminReserve.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientReserve, "admin reserve is lower than the requested amount").
				WithDetails(InsufficientDetails{Available: current.AdminReserve, Requested: amount})
		}

		reserveAfter := current.AdminReserve.Sub(amount)
		circulatingAfter := current.UserCirculatingRemaining.Add(amount)
		if err := repo.UpdateCounters(ctx, circulatingAfter, reserveAfter); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update supply counters")
		}

		transfer = &models.AdminSupplyTransfer{
			AdminID:           input.AdminID,
			Amount:            amount,
			ReserveBefore:     current.AdminReserve,
			ReserveAfter:      reserveAfter,
			CirculatingBefore: current.UserCirculatingRemaining,
			CirculatingAfter:  circulatingAfter,
			Reason:            reason,
		}
		if err := repo.CreateTransfer(ctx, transfer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record supply transfer")
		}

		_, err = s.ledger.RecordEvent(ctx, tx, ledger.RecordEventInput{
			AccountID:   input.AdminID,
			Type:        enums.LedgerEventTypeReserveTransfer,
			Asset:       enums.AssetToken,
			Amount:      amount,
			ReferenceID: &transfer.ID,
			Metadata:    map[string]string{"reason": reason},
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetCirculatingRemaining(transfer.CirculatingAfter)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"admin_id":          input.AdminID.String(),
		"amount":            amount.String(),
		"reserve_after":     transfer.ReserveAfter.String(),
		"circulating_after": transfer.CirculatingAfter.String(),
	})
	s.logg.Info(logCtx, "reserve transferred to circulating supply")
	return transfer, nil
}

func (s *service) TransferHistory(ctx context.Context, params pagination.Params) (*HistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	transfers, err := s.repo.ListTransfers(ctx, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list supply transfers")
	}

	page := &HistoryPage{}
	page.Transfers, page.NextCursor = pagination.Trim(transfers, params.Limit, func(t models.AdminSupplyTransfer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return page, nil
}

func (s *service) Lock(ctx context.Context, tx *gorm.DB) (*models.SupplyLedger, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	current, err := s.repo.WithTx(tx).Lock(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock supply ledger")
	}
	if current == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supply ledger not initialized")
	}
	return current, nil
}

// DebitCirculating fails with INSUFFICIENT_USER_SUPPLY instead of driving the counter negative.
func (s *service) DebitCirculating(ctx context.Context, tx *gorm.DB, amount decimal.Decimal) (*models.SupplyLedger, error) {
	amount = types.RoundAmount(amount)
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	current, err := s.Lock(ctx, tx)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return current, nil
	}
	if current.UserCirculatingRemaining.LessThan(amount) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientUserSupply, "circulating supply is lower than the requested amount").
			WithDetails(InsufficientDetails{Available: current.UserCirculatingRemaining, Requested: amount})
	}
	current.UserCirculatingRemaining = current.UserCirculatingRemaining.Sub(amount)
	if err := s.repo.WithTx(tx).UpdateCounters(ctx, current.UserCirculatingRemaining, current.AdminReserve); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit circulating supply")
	}
	return current, nil
}
