package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Notifier delivers a best-effort message to an account. Callers log and
// otherwise ignore the returned error.
type Notifier interface {
	Notify(ctx context.Context, accountID uuid.UUID, kind enums.NotificationType, message string) error
}

// StoreNotifier persists in-app notifications.
type StoreNotifier struct {
	repo Repository
}

// NewStoreNotifier builds a notifier backed by the notifications table.
func NewStoreNotifier(repo Repository) (*StoreNotifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &StoreNotifier{repo: repo}, nil
}

func (n *StoreNotifier) Notify(ctx context.Context, accountID uuid.UUID, kind enums.NotificationType, message string) error {
	if err := validate(accountID, kind, message); err != nil {
		return err
	}
	return n.repo.Create(ctx, &models.Notification{
		AccountID: accountID,
		Type:      kind,
		Message:   strings.TrimSpace(message),
	})
}

// Publisher sends a payload to the configured notification topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// PublishedNotification is the wire payload of a published notification.
type PublishedNotification struct {
	AccountID uuid.UUID              `json:"account_id"`
	Type      enums.NotificationType `json:"type"`
	Message   string                 `json:"message"`
	SentAt    time.Time              `json:"sent_at"`
}

// PubSubNotifier fans notifications out to downstream delivery workers.
type PubSubNotifier struct {
	publisher Publisher
	now       func() time.Time
}

// NewPubSubNotifier builds a notifier that publishes JSON payloads.
func NewPubSubNotifier(publisher Publisher) (*PubSubNotifier, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	return &PubSubNotifier{publisher: publisher, now: time.Now}, nil
}

func (n *PubSubNotifier) Notify(ctx context.Context, accountID uuid.UUID, kind enums.NotificationType, message string) error {
	if err := validate(accountID, kind, message); err != nil {
		return err
	}
	payload, err := json.Marshal(PublishedNotification{
		AccountID: accountID,
		Type:      kind,
		Message:   strings.TrimSpace(message),
		SentAt:    n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return n.publisher.Publish(ctx, payload, map[string]string{
		"type":       string(kind),
		"account_id": accountID.String(),
	})
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, accountID uuid.UUID, kind enums.NotificationType, message string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, n.Notify(ctx, accountID, kind, message))
	}
	return errs
}

func validate(accountID uuid.UUID, kind enums.NotificationType, message string) error {
	if accountID == uuid.Nil {
		return fmt.Errorf("account id required")
	}
	if !kind.IsValid() {
		return fmt.Errorf("invalid notification type %q", kind)
	}
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message required")
	}
	return nil
}
