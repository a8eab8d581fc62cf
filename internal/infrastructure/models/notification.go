package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type Notification struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Recipient     string      `gorm:"type:varchar(42);not null;uniqueIndex:idx_notifications_recipient_event,priority:1;index:idx_notifications_recipient_created,priority:1"`
	EventKey      string      `gorm:"type:varchar(160);not null;uniqueIndex:idx_notifications_recipient_event,priority:2"`
	Type          string      `gorm:"type:varchar(32);not null"`
	Title         string      `gorm:"type:varchar(120);not null"`
	Message       string      `gorm:"type:text;not null"`
	WalletAddress string      `gorm:"type:varchar(42);not null;index"`
	TxID          null.Uint64 `gorm:"column:tx_id"`
	IsRead        bool        `gorm:"not null;default:false"`
	CreatedAt     time.Time   `gorm:"index:idx_notifications_recipient_created,priority:2"`
}

func (Notification) TableName() string {
	return "notifications"
}
