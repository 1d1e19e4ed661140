// Package dbtest provides SQLite databases carrying the domain schema.
// Decimal columns are declared as TEXT so values round-trip without float coercion.
package dbtest

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var seq atomic.Int64

const schema = `
CREATE TABLE accounts (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  role TEXT NOT NULL,
  referred_by TEXT,
  created_at DATETIME
);
CREATE TABLE wallets (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL UNIQUE,
  balance TEXT NOT NULL DEFAULT '0',
  token_balance TEXT NOT NULL DEFAULT '0',
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE supply_ledger (
  id INTEGER PRIMARY KEY,
  total_supply TEXT NOT NULL,
  user_allocation TEXT NOT NULL,
  user_circulating_remaining TEXT NOT NULL,
  admin_reserve TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE admin_supply_transfers (
  id TEXT PRIMARY KEY,
  admin_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  reserve_before TEXT NOT NULL,
  reserve_after TEXT NOT NULL,
  circulating_before TEXT NOT NULL,
  circulating_after TEXT NOT NULL,
  reason TEXT,
  created_at DATETIME
);
CREATE TABLE fee_settings (
  kind TEXT PRIMARY KEY,
  rate TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  updated_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE stakes (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  duration_days INTEGER NOT NULL,
  reward_percent TEXT NOT NULL,
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  status TEXT NOT NULL,
  claimed INTEGER NOT NULL DEFAULT 0,
  profit TEXT,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE referral_earnings (
  id TEXT PRIMARY KEY,
  referrer_id TEXT NOT NULL,
  referred_id TEXT NOT NULL,
  stake_id TEXT NOT NULL UNIQUE,
  amount TEXT NOT NULL,
  created_at DATETIME
);
CREATE TABLE transfer_records (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  counterparty_id TEXT,
  kind TEXT NOT NULL,
  gross_amount TEXT NOT NULL,
  fee_rate TEXT NOT NULL,
  fee_amount TEXT NOT NULL,
  net_amount TEXT NOT NULL,
  token_amount TEXT,
  price TEXT,
  fee_receiver_id TEXT,
  fee_credit_error TEXT,
  destination TEXT,
  status TEXT NOT NULL,
  resolved_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE ledger_events (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  type TEXT NOT NULL,
  asset TEXT NOT NULL,
  amount TEXT NOT NULL,
  reference_id TEXT,
  metadata BLOB,
  created_at DATETIME
);
CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  account_id TEXT NOT NULL,
  type TEXT NOT NULL,
  message TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);`

// Open returns a fresh, isolated database with every domain table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn := open(t, fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// keep one idle connection so the shared in-memory database outlives individual queries
	sqlDB.SetMaxIdleConns(1)
	return conn
}

// OpenFile returns a file-backed database under t.TempDir. Each pooled
// connection has its own lock state and transactions begin IMMEDIATE, so
// concurrent writers block on each other the way row locks make them block in
// Postgres.
func OpenFile(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tokenomics.db")
	conn := open(t, fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", path))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	return conn
}

func open(t testing.TB, dsn string) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
