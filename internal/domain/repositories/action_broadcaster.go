package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
)

// ActionBroadcaster signs and broadcasts wallet actions
type ActionBroadcaster interface {
	// Signer is the account that will send the transactions.
	Signer() (common.Address, bool)
	RequestAction(ctx context.Context, req entities.ActionRequest) (*entities.ReceiptHandle, error)
	WaitReceipt(ctx context.Context, handle entities.ReceiptHandle) (*entities.ActionOutcome, error)
}
