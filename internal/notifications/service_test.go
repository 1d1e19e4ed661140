package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/db/dbtest"
	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo Repository, accountID uuid.UUID, n int) []models.Notification {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]models.Notification, 0, n)
	for i := 0; i < n; i++ {
		row := models.Notification{
			AccountID: accountID,
			Type:      enums.NotificationTypeStakeSettled,
			Message:   "stake settled",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(context.Background(), &row))
		out = append(out, row)
	}
	return out
}

func TestService_ListPagesWithoutSkippingRows(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	accountID := uuid.New()
	rows := seed(t, repo, accountID, 3)
	seed(t, repo, uuid.New(), 2)

	first, err := svc.List(context.Background(), ListParams{AccountID: accountID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, rows[2].ID, first.Items[0].ID)
	assert.Equal(t, rows[1].ID, first.Items[1].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(context.Background(), ListParams{AccountID: accountID, Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, rows[0].ID, second.Items[0].ID)
	assert.Empty(t, second.Cursor)
}

func TestService_ListValidation(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), ListParams{AccountID: uuid.New(), Cursor: "bad"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(context.Background(), ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestService_MarkReadAndUnreadFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	accountID := uuid.New()
	rows := seed(t, repo, accountID, 3)

	require.NoError(t, svc.MarkRead(ctx, accountID, rows[0].ID))
	// marking twice is still a success
	require.NoError(t, svc.MarkRead(ctx, accountID, rows[0].ID))

	err = svc.MarkRead(ctx, uuid.New(), rows[1].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	unread, err := svc.List(ctx, ListParams{AccountID: accountID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)

	count, err := svc.MarkAllRead(ctx, accountID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestRepository_DeleteReadOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	accountID := uuid.New()
	rows := seed(t, repo, accountID, 3)

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := repo.MarkRead(ctx, accountID, rows[0].ID, old)
	require.NoError(t, err)
	_, err = repo.MarkRead(ctx, accountID, rows[1].ID, old.Add(time.Minute))
	require.NoError(t, err)

	deleted, err := repo.DeleteReadOlderThan(ctx, nil, old.Add(time.Hour), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	deleted, err = repo.DeleteReadOlderThan(ctx, nil, old.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted, "unread notifications are kept")
}
