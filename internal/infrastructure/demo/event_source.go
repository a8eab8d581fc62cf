package demo

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/internal/domain/repositories"
)

// QuietEventSource accepts subscriptions and never delivers: fixtures do not change.
type QuietEventSource struct{}

func NewQuietEventSource() *QuietEventSource {
	return &QuietEventSource{}
}

type quietSubscription struct {
	event.Subscription
	from uint64
}

func (s quietSubscription) Resume() uint64 { return s.from }

func (QuietEventSource) Subscribe(ctx context.Context, _ []common.Address, from uint64, _ chan<- entities.ChainEvent) (repositories.Subscription, error) {
	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	return quietSubscription{Subscription: sub, from: from}, nil
}
