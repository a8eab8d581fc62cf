package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createTrackedWalletTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE tracked_wallets (
		address TEXT PRIMARY KEY,
		owners TEXT NOT NULL,
		creator TEXT NOT NULL,
		display_name TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE tracked_wallet_owners (
		wallet_address TEXT NOT NULL,
		owner TEXT NOT NULL,
		PRIMARY KEY (wallet_address, owner)
	);`)
}

func createNotificationTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		event_key TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		wallet_address TEXT NOT NULL,
		tx_id INTEGER,
		is_read BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME,
		UNIQUE (recipient, event_key)
	);`)
}
