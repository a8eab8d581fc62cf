package models

import "testing"

func TestTableNames(t *testing.T) {
	if got := (TrackedWallet{}).TableName(); got != "tracked_wallets" {
		t.Fatalf("unexpected TrackedWallet table name: %s", got)
	}
	if got := (TrackedWalletOwner{}).TableName(); got != "tracked_wallet_owners" {
		t.Fatalf("unexpected TrackedWalletOwner table name: %s", got)
	}
	if got := (Notification{}).TableName(); got != "notifications" {
		t.Fatalf("unexpected Notification table name: %s", got)
	}
}
