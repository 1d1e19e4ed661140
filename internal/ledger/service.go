package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/angelmondragon/tokenomics/pkg/pagination"
	"github.com/angelmondragon/tokenomics/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service records and lists transaction-history entries.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordEventInput) (*models.LedgerEvent, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordEventInput captures the immutable data a ledger event requires.
type RecordEventInput struct {
	AccountID   uuid.UUID             `json:"account_id"`
	Type        enums.LedgerEventType `json:"type"`
	Asset       enums.Asset           `json:"asset"`
	Amount      decimal.Decimal       `json:"amount"`
	ReferenceID *uuid.UUID            `json:"reference_id,omitempty"`
	Metadata    any                   `json:"metadata,omitempty"`
}

// ListResult is one page of ledger events.
type ListResult struct {
	Events     []models.LedgerEvent `json:"events"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent writes the entry through tx so it commits or rolls back with the money movement.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordEventInput) (*models.LedgerEvent, error) {
	if input.AccountID == uuid.Nil {
		return nil, fmt.Errorf("account id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if !input.Asset.IsValid() {
		return nil, fmt.Errorf("invalid asset %q", input.Asset)
	}

	var metadata json.RawMessage
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal ledger metadata: %w", err)
		}
		metadata = raw
	}

	event := &models.LedgerEvent{
		AccountID:   input.AccountID,
		Type:        input.Type,
		Asset:       input.Asset,
		Amount:      types.RoundAmount(input.Amount),
		ReferenceID: input.ReferenceID,
		Metadata:    metadata,
	}
	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListByAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	events, err := s.repo.ListByAccount(ctx, accountID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}

	result := &ListResult{}
	result.Events, result.NextCursor = pagination.Trim(events, params.Limit, func(e models.LedgerEvent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return result, nil
}

func (s *service) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEvent, error) {
	if referenceID == uuid.Nil {
		return nil, fmt.Errorf("reference id is required")
	}
	return s.repo.ListByReference(ctx, referenceID)
}
