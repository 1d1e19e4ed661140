package app

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tokenomics/pkg/config"
	"github.com/angelmondragon/tokenomics/pkg/db"
	"github.com/angelmondragon/tokenomics/pkg/db/dbtest"
	"github.com/angelmondragon/tokenomics/pkg/logger"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	return Deps{
		Config: &config.Config{
			Tokenomics: config.TokenomicsConfig{
				BasePrice:             decimal.RequireFromString("0.001"),
				TotalSupply:           decimal.NewFromInt(10_000_000),
				TotalUserAllocation:   decimal.NewFromInt(2_000_000),
				ReferralBonusRate:     decimal.RequireFromString("0.1"),
				MaxInflationFactor:    decimal.NewFromInt(1000),
				LowSupplyAlertPercent: decimal.NewFromInt(90),
				FeeCacheTTL:           5 * time.Second,
			},
			Cron: config.CronConfig{SweepBatchSize: 100},
		},
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         db.NewFromConn(dbtest.Open(t)),
		Registerer: prometheus.NewRegistry(),
	}
}

func TestBuildWiresEveryService(t *testing.T) {
	svcs, err := Build(testDeps(t))
	require.NoError(t, err)

	assert.NotNil(t, svcs.Accounts)
	assert.NotNil(t, svcs.Supply)
	assert.NotNil(t, svcs.Fees)
	assert.NotNil(t, svcs.Staking)
	assert.NotNil(t, svcs.Sweeper)
	assert.NotNil(t, svcs.Trading)
	assert.NotNil(t, svcs.Notifications)
}

func TestBuildRequiresCoreDeps(t *testing.T) {
	_, err := Build(Deps{})
	require.Error(t, err)
}

func TestBootstrapDefinesSupplyOnce(t *testing.T) {
	deps := testDeps(t)
	svcs, err := Build(deps)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, Bootstrap(ctx, deps, svcs))
	require.NoError(t, Bootstrap(ctx, deps, svcs))

	status, err := svcs.Supply.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.TotalSupply.Equal(decimal.NewFromInt(10_000_000)))
	assert.True(t, status.UserCirculatingRemaining.Equal(decimal.NewFromInt(2_000_000)))
	assert.True(t, status.AdminReserve.Equal(decimal.NewFromInt(8_000_000)))

	sweep, err := svcs.Sweeper.RunSweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, sweep.Processed)
}
