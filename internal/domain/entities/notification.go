package entities

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// NotificationType classifies user-facing notifications
type NotificationType string

const (
	NotificationWalletCreated   NotificationType = "WALLET_CREATED"
	NotificationAddedToWallet   NotificationType = "ADDED_TO_WALLET"
	NotificationNewProposal     NotificationType = "NEW_PROPOSAL"
	NotificationConfirmation    NotificationType = "CONFIRMATION"
	NotificationExecuted        NotificationType = "EXECUTED"
	NotificationExecutionFailed NotificationType = "EXECUTION_FAILED"
	NotificationDeposit         NotificationType = "DEPOSIT"
	NotificationActionFailed    NotificationType = "ACTION_FAILED"
	NotificationActionSucceeded NotificationType = "ACTION_SUCCEEDED"
)

// Notification is addressed to one owner
type Notification struct {
	ID            uuid.UUID        `json:"id"`
	Recipient     common.Address   `json:"recipient"`
	Type          NotificationType `json:"type"`
	Title         string           `json:"title"`
	Message       string           `json:"message"`
	WalletAddress common.Address   `json:"walletAddress"`
	TxID          *uint64          `json:"txId,omitempty"`
	EventKey      string           `json:"-"`
	Read          bool             `json:"read"`
	CreatedAt     time.Time        `json:"createdAt"`
}
