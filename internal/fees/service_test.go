package fees

import (
	"context"
	"testing"

	"github.com/angelmondragon/tokenomics/pkg/db/dbtest"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateFeeRatePersistsAndInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(dbtest.Open(t))
	cache := newMemoryCache()
	calc := newCalculator(t, repo, cache)
	svc, err := NewService(ServiceParams{Repository: repo, Calculator: calc, Cache: cache, Logger: testLogger()})
	require.NoError(t, err)

	before, err := calc.ResolveRate(ctx, enums.FeeKindBuy)
	require.NoError(t, err)
	assert.Equal(t, TierDefault, before.Tier)

	actor := uuid.New()
	_, err = svc.UpdateFeeRate(ctx, UpdateRateInput{Kind: enums.FeeKindBuy, Rate: dec("0.025"), Active: true, ActorID: actor})
	require.NoError(t, err)
	assert.Contains(t, cache.invalidated, enums.FeeKindBuy)

	after, err := calc.ResolveRate(ctx, enums.FeeKindBuy)
	require.NoError(t, err)
	assert.Equal(t, TierConfigured, after.Tier)
	assert.True(t, after.Rate.Equal(dec("0.025")))

	_, err = svc.UpdateFeeRate(ctx, UpdateRateInput{Kind: enums.FeeKindBuy, Rate: dec("0.025"), Active: false, ActorID: actor})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, enums.FeeKindBuy)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Active)
	require.NotNil(t, stored.UpdatedBy)
	assert.Equal(t, actor, *stored.UpdatedBy)

	settings, err := svc.ListFeeSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 4)
	byKind := map[enums.FeeKind]Resolution{}
	for _, s := range settings {
		byKind[s.Kind] = s
	}
	assert.Equal(t, TierInactive, byKind[enums.FeeKindBuy].Tier)
	assert.Equal(t, TierDefault, byKind[enums.FeeKindWithdraw].Tier)
	assert.True(t, byKind[enums.FeeKindTransfer].Rate.Equal(dec("0.05")))
}

func TestUpdateFeeRateValidation(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(ServiceParams{Repository: repo, Calculator: newCalculator(t, repo, nil), Logger: testLogger()})
	require.NoError(t, err)

	cases := []UpdateRateInput{
		{Kind: "mint", Rate: dec("0.1")},
		{Kind: enums.FeeKindBuy, Rate: dec("-0.01")},
		{Kind: enums.FeeKindBuy, Rate: dec("1.01")},
		{Kind: enums.FeeKindBuy, Rate: dec("0.0000001")},
	}
	for _, input := range cases {
		_, err := svc.UpdateFeeRate(context.Background(), input)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "input %+v", input)
	}
	assert.Empty(t, repo.settings)
}
