package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
)

// Subscription is a live event feed that must be released by its consumer
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
	// Resume is the first block whose events were not all handed to the sink.
	// It is stable once Unsubscribe has returned.
	Resume() uint64
}

// EventSource streams decoded factory and wallet events. Delivery is at-least-once.
// A zero from starts after the current head; otherwise delivery starts at block from.
type EventSource interface {
	Subscribe(ctx context.Context, wallets []common.Address, from uint64, sink chan<- entities.ChainEvent) (Subscription, error)
}
