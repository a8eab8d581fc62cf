package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
)

// TrackedWallet keeps owners in on-chain order; owners[0] is the creator.
type TrackedWallet struct {
	Address     string         `gorm:"type:varchar(42);primaryKey"`
	Owners      pq.StringArray `gorm:"type:text[];not null"`
	Creator     string         `gorm:"type:varchar(42);not null;index"`
	DisplayName null.String    `gorm:"type:varchar(64)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (TrackedWallet) TableName() string {
	return "tracked_wallets"
}

// TrackedWalletOwner indexes tracked wallets by owner.
type TrackedWalletOwner struct {
	WalletAddress string `gorm:"type:varchar(42);primaryKey"`
	Owner         string `gorm:"type:varchar(42);primaryKey;index"`
}

func (TrackedWalletOwner) TableName() string {
	return "tracked_wallet_owners"
}
