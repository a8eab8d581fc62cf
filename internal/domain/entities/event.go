package entities

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainEventType enumerates the contract events the bridge reacts to
type ChainEventType string

const (
	EventWalletCreated        ChainEventType = "WALLET_CREATED"
	EventTransactionSubmitted ChainEventType = "TRANSACTION_SUBMITTED"
	EventTransactionConfirmed ChainEventType = "TRANSACTION_CONFIRMED"
	EventTransactionExecuted  ChainEventType = "TRANSACTION_EXECUTED"
	EventExecutionFailure     ChainEventType = "EXECUTION_FAILURE"
	EventDeposit              ChainEventType = "DEPOSIT"
)

// ChainEvent is a decoded contract log. Payloads are minimal by nature:
// consumers re-read ground truth instead of applying them as deltas.
type ChainEvent struct {
	Type          ChainEventType
	WalletAddress common.Address
	TxID          *uint64
	Owner         common.Address // confirmer for TRANSACTION_CONFIRMED
	Creator       common.Address // WALLET_CREATED only
	Owners        []common.Address
	Sender        common.Address // DEPOSIT only
	Value         *big.Int
	BlockNumber   uint64
	BlockHash     common.Hash
	LogIndex      uint
}

// Key identifies the log the event was decoded from; re-deliveries share it.
func (e ChainEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.BlockHash.Hex(), e.LogIndex)
}
