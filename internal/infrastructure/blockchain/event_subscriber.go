package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/pkg/logger"
)

const (
	defaultPollInterval = 4 * time.Second
	defaultMaxLogRange  = 2000
)

var (
	topicWalletCreated    = factoryABI.Events["WalletCreated"].ID
	topicSubmission       = walletABI.Events["Submission"].ID
	topicConfirmation     = walletABI.Events["Confirmation"].ID
	topicExecution        = walletABI.Events["Execution"].ID
	topicExecutionFailure = walletABI.Events["ExecutionFailure"].ID
	topicDeposit          = walletABI.Events["Deposit"].ID

	watchedTopics = []common.Hash{
		topicWalletCreated,
		topicSubmission,
		topicConfirmation,
		topicExecution,
		topicExecutionFailure,
		topicDeposit,
	}
)

// EventSubscriber polls eth_getLogs for factory and wallet events.
// A block range is only advanced past once all of its logs were delivered,
// so a failed poll is retried on the next tick.
type EventSubscriber struct {
	client   *EVMClient
	factory  common.Address
	interval time.Duration
	maxRange uint64
}

// NewEventSubscriber creates a log poller for factory and its wallets
func NewEventSubscriber(client *EVMClient, factory common.Address, interval time.Duration) *EventSubscriber {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &EventSubscriber{
		client:   client,
		factory:  factory,
		interval: interval,
		maxRange: defaultMaxLogRange,
	}
}

// Subscribe delivers events emitted by the factory or any of wallets, starting
// at block from, or after the current head when from is zero.
func (s *EventSubscriber) Subscribe(ctx context.Context, wallets []common.Address, from uint64, sink chan<- entities.ChainEvent) (repositories.Subscription, error) {
	if from == 0 {
		head, err := s.client.GetBlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: subscribe: %w", domainerrors.ErrDataUnavailable, err)
		}
		from = head + 1
	}

	addresses := make([]common.Address, 0, len(wallets)+1)
	addresses = append(addresses, s.factory)
	addresses = append(addresses, wallets...)

	ls := &logSubscription{}
	ls.next.Store(from)
	ls.Subscription = event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cur := ls.next.Load()
				next, err := s.poll(ctx, quit, cur, addresses, sink)
				if err != nil {
					logger.Warn(ctx, "log poll failed", zap.Uint64("from", cur), zap.Error(err))
					continue
				}
				ls.next.Store(next)
			}
		}
	})
	return ls, nil
}

// logSubscription tracks the next block to poll so a replacement
// subscription can pick up where this one stopped.
type logSubscription struct {
	event.Subscription
	next atomic.Uint64
}

func (l *logSubscription) Resume() uint64 { return l.next.Load() }

// poll delivers the logs of [from, head] and returns the next block to poll.
// A range cut short by quit is not advanced past, so it is delivered again.
func (s *EventSubscriber) poll(ctx context.Context, quit <-chan struct{}, from uint64, addresses []common.Address, sink chan<- entities.ChainEvent) (uint64, error) {
	head, err := s.client.GetBlockNumber(ctx)
	if err != nil {
		return from, err
	}
	if head < from {
		return from, nil
	}
	to := head
	if s.maxRange > 0 && to-from+1 > s.maxRange {
		to = from + s.maxRange - 1
	}

	logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: addresses,
		Topics:    [][]common.Hash{watchedTopics},
	})
	if err != nil {
		return from, err
	}

	for _, l := range logs {
		ev, ok := decodeLog(s.factory, l)
		if !ok {
			continue
		}
		select {
		case sink <- ev:
		case <-quit:
			return from, nil
		case <-ctx.Done():
			return from, ctx.Err()
		}
	}
	return to + 1, nil
}

// decodeLog turns a raw log into a ChainEvent. Removed logs and logs
// that do not belong to the emitting contract kind are dropped.
func decodeLog(factory common.Address, l types.Log) (entities.ChainEvent, bool) {
	if l.Removed || len(l.Topics) == 0 {
		return entities.ChainEvent{}, false
	}
	ev := entities.ChainEvent{
		WalletAddress: l.Address,
		BlockNumber:   l.BlockNumber,
		BlockHash:     l.BlockHash,
		LogIndex:      l.Index,
	}

	if l.Topics[0] == topicWalletCreated {
		if l.Address != factory || len(l.Topics) < 2 {
			return entities.ChainEvent{}, false
		}
		values, err := factoryABI.Unpack("WalletCreated", l.Data)
		if err != nil || len(values) != 2 {
			return entities.ChainEvent{}, false
		}
		owners, ok1 := values[0].([]common.Address)
		wallet, ok2 := values[1].(common.Address)
		if !ok1 || !ok2 {
			return entities.ChainEvent{}, false
		}
		ev.Type = entities.EventWalletCreated
		ev.Creator = common.BytesToAddress(l.Topics[1].Bytes())
		ev.Owners = owners
		ev.WalletAddress = wallet
		return ev, true
	}

	if l.Address == factory {
		return entities.ChainEvent{}, false
	}

	switch l.Topics[0] {
	case topicSubmission, topicExecution, topicExecutionFailure:
		if len(l.Topics) < 2 {
			return entities.ChainEvent{}, false
		}
		id, ok := topicUint64(l.Topics[1])
		if !ok {
			return entities.ChainEvent{}, false
		}
		ev.TxID = &id
		switch l.Topics[0] {
		case topicSubmission:
			ev.Type = entities.EventTransactionSubmitted
		case topicExecution:
			ev.Type = entities.EventTransactionExecuted
		default:
			ev.Type = entities.EventExecutionFailure
		}
	case topicConfirmation:
		if len(l.Topics) < 3 {
			return entities.ChainEvent{}, false
		}
		id, ok := topicUint64(l.Topics[2])
		if !ok {
			return entities.ChainEvent{}, false
		}
		ev.Type = entities.EventTransactionConfirmed
		ev.Owner = common.BytesToAddress(l.Topics[1].Bytes())
		ev.TxID = &id
	case topicDeposit:
		if len(l.Topics) < 2 {
			return entities.ChainEvent{}, false
		}
		values, err := walletABI.Unpack("Deposit", l.Data)
		if err != nil || len(values) != 1 {
			return entities.ChainEvent{}, false
		}
		value, ok := values[0].(*big.Int)
		if !ok {
			return entities.ChainEvent{}, false
		}
		ev.Type = entities.EventDeposit
		ev.Sender = common.BytesToAddress(l.Topics[1].Bytes())
		ev.Value = value
	default:
		return entities.ChainEvent{}, false
	}
	return ev, true
}

func topicUint64(h common.Hash) (uint64, bool) {
	v := new(big.Int).SetBytes(h.Bytes())
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}
