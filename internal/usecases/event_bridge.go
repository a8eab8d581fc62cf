package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/internal/infrastructure/metrics"
	"multisig-hub.backend/pkg/logger"
	"multisig-hub.backend/pkg/utils"
)

const eventBufferSize = 64

// EventBridge follows contract events on behalf of one owner. It never applies
// an event as a delta: every event invalidates the cached wallet and re-reads
// ground truth. Deliveries are at-least-once, so notifications are keyed by
// the originating log.
//
// All subscriptions of a bridge feed one buffered channel drained by a single
// consumer, so replacing a subscription never discards events already queued.
type EventBridge struct {
	owner         common.Address
	source        repositories.EventSource
	reader        repositories.ChainStateReader
	invalidator   repositories.SnapshotInvalidator
	trackedRepo   repositories.TrackedWalletRepository
	notifications repositories.NotificationRepository
	ledger        *StateLedger
	now           func() time.Time

	mu      sync.Mutex
	wallets []common.Address
	sub     repositories.Subscription
	cancel  context.CancelFunc
	resume  uint64
	events  chan entities.ChainEvent
	halt    context.CancelFunc
	stopped bool
}

// NewEventBridge creates a bridge for owner. It does nothing until SetTrackedWallets.
func NewEventBridge(
	owner common.Address,
	source repositories.EventSource,
	reader repositories.ChainStateReader,
	invalidator repositories.SnapshotInvalidator,
	trackedRepo repositories.TrackedWalletRepository,
	notifications repositories.NotificationRepository,
	ledger *StateLedger,
) *EventBridge {
	if ledger == nil {
		ledger = NewStateLedger()
	}
	return &EventBridge{
		owner:         owner,
		source:        source,
		reader:        reader,
		invalidator:   invalidator,
		trackedRepo:   trackedRepo,
		notifications: notifications,
		ledger:        ledger,
		now:           time.Now,
	}
}

// Owner is the account this bridge notifies.
func (b *EventBridge) Owner() common.Address { return b.owner }

// TrackedWallets returns the wallets of the live subscription.
func (b *EventBridge) TrackedWallets() []common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]common.Address(nil), b.wallets...)
}

// Live reports whether a subscription is currently open.
func (b *EventBridge) Live() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub != nil
}

// SetTrackedWallets replaces the subscription. The previous one is released
// before the new one is opened, and the new one resumes at the first block the
// previous one had not fully delivered.
func (b *EventBridge) SetTrackedWallets(ctx context.Context, wallets []common.Address) error {
	wallets = uniqueAddresses(wallets)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return fmt.Errorf("event bridge for %s is stopped", b.owner.Hex())
	}
	b.releaseLocked()

	if b.events == nil {
		b.events = make(chan entities.ChainEvent, eventBufferSize)
		runCtx, halt := context.WithCancel(context.WithoutCancel(ctx))
		b.halt = halt
		go b.consume(runCtx, b.events)
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub, err := b.source.Subscribe(subCtx, wallets, b.resume, b.events)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe %d wallets: %w", len(wallets), err)
	}

	b.wallets = wallets
	b.sub = sub
	b.cancel = cancel
	go b.watch(subCtx, sub)

	logger.Debug(ctx, "event bridge subscribed",
		zap.String("owner", b.owner.Hex()),
		zap.Int("wallets", len(wallets)),
		zap.Uint64("from", b.resume),
	)
	return nil
}

// Stop releases the subscription and ends the consumer. Events still queued
// are not handled. A stopped bridge cannot be restarted.
func (b *EventBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	if b.halt != nil {
		b.halt()
	}
	b.stopped = true
}

func (b *EventBridge) releaseLocked() {
	if b.sub != nil {
		// the producer has returned once Unsubscribe does, so Resume is final
		b.sub.Unsubscribe()
		b.advanceLocked(b.sub.Resume())
		b.sub = nil
	}
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *EventBridge) advanceLocked(next uint64) {
	if next > b.resume {
		b.resume = next
	}
}

func (b *EventBridge) tracks(wallet common.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.wallets {
		if w == wallet {
			return true
		}
	}
	return false
}

func (b *EventBridge) consume(ctx context.Context, events <-chan entities.ChainEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ctx.Err() != nil {
				return
			}
			b.HandleEvent(ctx, ev)
		}
	}
}

// watch marks the bridge as not live when its subscription fails, so the next
// resync opens a fresh one from the failed subscription's cursor.
func (b *EventBridge) watch(ctx context.Context, sub repositories.Subscription) {
	select {
	case <-ctx.Done():
	case err, ok := <-sub.Err():
		if !ok || err == nil {
			return
		}
		logger.Error(ctx, "event subscription failed", zap.String("owner", b.owner.Hex()), zap.Error(err))
		b.mu.Lock()
		if b.sub == sub {
			b.advanceLocked(sub.Resume())
			b.sub = nil
			if b.cancel != nil {
				b.cancel()
				b.cancel = nil
			}
		}
		b.mu.Unlock()
	}
}

// HandleEvent reacts to one decoded event. Safe to call again with the same event.
func (b *EventBridge) HandleEvent(ctx context.Context, ev entities.ChainEvent) {
	metrics.EventsReceived.WithLabelValues(string(ev.Type)).Inc()

	if ev.Type == entities.EventWalletCreated {
		b.onWalletCreated(ctx, ev)
		return
	}
	if !b.tracks(ev.WalletAddress) {
		return
	}

	snap := b.refresh(ctx, ev.WalletAddress)

	switch ev.Type {
	case entities.EventTransactionSubmitted:
		if tx := transactionOf(snap, ev.TxID); tx != nil && tx.Confirmations.Contains(b.owner) {
			return
		}
		b.notify(ctx, ev, entities.NotificationNewProposal, "New proposal",
			fmt.Sprintf("Transaction #%s was proposed in %s", txLabel(ev.TxID), b.walletName(ctx, ev.WalletAddress)))
	case entities.EventTransactionConfirmed:
		if ev.Owner == b.owner {
			return
		}
		b.notify(ctx, ev, entities.NotificationConfirmation, "Transaction confirmed",
			fmt.Sprintf("%s confirmed transaction #%s in %s", entities.ShortAddress(ev.Owner), txLabel(ev.TxID), b.walletName(ctx, ev.WalletAddress)))
	case entities.EventTransactionExecuted:
		b.notify(ctx, ev, entities.NotificationExecuted, "Transaction executed",
			fmt.Sprintf("Transaction #%s in %s was executed", txLabel(ev.TxID), b.walletName(ctx, ev.WalletAddress)))
	case entities.EventExecutionFailure:
		b.notify(ctx, ev, entities.NotificationExecutionFailed, "Execution failed",
			fmt.Sprintf("Transaction #%s in %s reached quorum but failed to execute", txLabel(ev.TxID), b.walletName(ctx, ev.WalletAddress)))
	case entities.EventDeposit:
		if ev.Sender == b.owner {
			return
		}
		b.notify(ctx, ev, entities.NotificationDeposit, "Deposit received",
			fmt.Sprintf("%s ETH received from %s in %s", FormatUnits(ev.Value, ethDecimals), entities.ShortAddress(ev.Sender), b.walletName(ctx, ev.WalletAddress)))
	}
}

func (b *EventBridge) onWalletCreated(ctx context.Context, ev entities.ChainEvent) {
	member := false
	for _, o := range ev.Owners {
		if o == b.owner {
			member = true
			break
		}
	}
	if !member {
		return
	}

	if b.trackedRepo != nil {
		if err := b.trackedRepo.Upsert(ctx, &entities.TrackedWallet{
			Address: ev.WalletAddress,
			Owners:  ev.Owners,
			Creator: ev.Creator,
		}); err != nil {
			logger.Error(ctx, "failed to track created wallet", zap.String("wallet", ev.WalletAddress.Hex()), zap.Error(err))
		}
	}

	if ev.Creator == b.owner {
		b.notify(ctx, ev, entities.NotificationWalletCreated, "Wallet created",
			fmt.Sprintf("Your wallet %s is deployed", entities.ShortAddress(ev.WalletAddress)))
	} else {
		b.notify(ctx, ev, entities.NotificationAddedToWallet, "Added to wallet",
			fmt.Sprintf("%s added you as an owner of %s", entities.ShortAddress(ev.Creator), entities.ShortAddress(ev.WalletAddress)))
	}

	if b.tracks(ev.WalletAddress) {
		return
	}
	if err := b.SetTrackedWallets(ctx, append(b.TrackedWallets(), ev.WalletAddress)); err != nil {
		logger.Warn(ctx, "failed to follow created wallet", zap.String("wallet", ev.WalletAddress.Hex()), zap.Error(err))
	}
}

// refresh drops the cached wallet and reads it again. A failed read is left
// for the next poll.
func (b *EventBridge) refresh(ctx context.Context, wallet common.Address) *entities.WalletSnapshot {
	if b.invalidator != nil {
		if err := b.invalidator.Invalidate(ctx, wallet); err != nil {
			logger.Warn(ctx, "cache invalidation failed", zap.String("wallet", wallet.Hex()), zap.Error(err))
		}
	}
	snap, err := b.reader.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		logger.Warn(ctx, "wallet refresh after event failed", zap.String("wallet", wallet.Hex()), zap.Error(err))
		return nil
	}
	for _, tx := range snap.Transactions {
		b.ledger.Observe(wallet, tx.Record.ID, ProjectedState(&tx.Record, tx.Confirmations, snap.Wallet.Required))
	}
	return snap
}

func (b *EventBridge) notify(ctx context.Context, ev entities.ChainEvent, typ entities.NotificationType, title, message string) {
	if b.notifications == nil {
		return
	}
	n := &entities.Notification{
		ID:            utils.GenerateUUIDv7(),
		Recipient:     b.owner,
		Type:          typ,
		Title:         title,
		Message:       message,
		WalletAddress: ev.WalletAddress,
		TxID:          ev.TxID,
		EventKey:      ev.Key(),
		CreatedAt:     b.now(),
	}
	if _, err := b.notifications.Create(ctx, n); err != nil {
		logger.Error(ctx, "failed to store notification", zap.String("type", string(typ)), zap.Error(err))
	}
}

func (b *EventBridge) walletName(ctx context.Context, wallet common.Address) string {
	if b.trackedRepo != nil {
		if tw, err := b.trackedRepo.GetByAddress(ctx, wallet); err == nil && tw != nil {
			return tw.Name()
		}
	}
	return entities.ShortAddress(wallet)
}

func transactionOf(snap *entities.WalletSnapshot, id *uint64) *entities.WalletTransaction {
	if snap == nil || id == nil {
		return nil
	}
	tx, _ := snap.Transaction(*id)
	return tx
}

func txLabel(id *uint64) string {
	if id == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *id)
}

// BridgeManager keeps one EventBridge per active owner. An owner is active
// while it keeps signing in or refreshing its session; bridges of owners idle
// for longer than the idle timeout are released by ReleaseIdle.
type BridgeManager struct {
	source        repositories.EventSource
	reader        repositories.ChainStateReader
	invalidator   repositories.SnapshotInvalidator
	trackedRepo   repositories.TrackedWalletRepository
	notifications repositories.NotificationRepository
	ledger        *StateLedger
	idleTimeout   time.Duration
	now           func() time.Time

	mu       sync.Mutex
	bridges  map[common.Address]*EventBridge
	lastSeen map[common.Address]time.Time
}

// NewBridgeManager creates a new bridge manager. A non-positive idleTimeout
// keeps bridges until they are released explicitly.
func NewBridgeManager(
	source repositories.EventSource,
	reader repositories.ChainStateReader,
	invalidator repositories.SnapshotInvalidator,
	trackedRepo repositories.TrackedWalletRepository,
	notifications repositories.NotificationRepository,
	ledger *StateLedger,
	idleTimeout time.Duration,
) *BridgeManager {
	return &BridgeManager{
		source:        source,
		reader:        reader,
		invalidator:   invalidator,
		trackedRepo:   trackedRepo,
		notifications: notifications,
		ledger:        ledger,
		idleTimeout:   idleTimeout,
		now:           time.Now,
		bridges:       make(map[common.Address]*EventBridge),
		lastSeen:      make(map[common.Address]time.Time),
	}
}

// Ensure records activity for owner and starts its bridge, or re-syncs the
// wallet set of the existing one.
func (m *BridgeManager) Ensure(ctx context.Context, owner common.Address) error {
	m.mu.Lock()
	m.lastSeen[owner] = m.now()
	bridge, ok := m.bridges[owner]
	if !ok {
		bridge = NewEventBridge(owner, m.source, m.reader, m.invalidator, m.trackedRepo, m.notifications, m.ledger)
		m.bridges[owner] = bridge
	}
	m.mu.Unlock()

	return m.sync(ctx, bridge)
}

// Resync re-reads the wallet set of a running bridge without counting as
// activity. Owners without a bridge are skipped.
func (m *BridgeManager) Resync(ctx context.Context, owner common.Address) error {
	bridge, ok := m.Bridge(owner)
	if !ok {
		return nil
	}
	return m.sync(ctx, bridge)
}

func (m *BridgeManager) sync(ctx context.Context, bridge *EventBridge) error {
	wallets, err := m.reader.GetWalletsForOwner(ctx, bridge.Owner())
	if err != nil {
		return fmt.Errorf("list wallets for %s: %w", bridge.Owner().Hex(), err)
	}
	if bridge.Live() && sameAddresses(bridge.TrackedWallets(), wallets) {
		return nil
	}
	return bridge.SetTrackedWallets(ctx, wallets)
}

// Bridge returns the running bridge for owner.
func (m *BridgeManager) Bridge(owner common.Address) (*EventBridge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bridges[owner]
	return b, ok
}

// Owners lists owners with a running bridge.
func (m *BridgeManager) Owners() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]common.Address, 0, len(m.bridges))
	for o := range m.bridges {
		out = append(out, o)
	}
	return out
}

// Release stops and forgets the bridge for owner.
func (m *BridgeManager) Release(owner common.Address) {
	m.mu.Lock()
	b, ok := m.bridges[owner]
	delete(m.bridges, owner)
	delete(m.lastSeen, owner)
	m.mu.Unlock()
	if ok {
		b.Stop()
	}
}

// ReleaseIdle releases every bridge whose owner has not been active within
// the idle timeout and returns those owners.
func (m *BridgeManager) ReleaseIdle() []common.Address {
	if m.idleTimeout <= 0 {
		return nil
	}
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []common.Address
	var stopped []*EventBridge
	for owner, b := range m.bridges {
		if m.lastSeen[owner].Before(cutoff) {
			idle = append(idle, owner)
			stopped = append(stopped, b)
			delete(m.bridges, owner)
			delete(m.lastSeen, owner)
		}
	}
	m.mu.Unlock()

	for _, b := range stopped {
		b.Stop()
	}
	return idle
}

// StopAll stops every bridge.
func (m *BridgeManager) StopAll() {
	m.mu.Lock()
	bridges := m.bridges
	m.bridges = make(map[common.Address]*EventBridge)
	m.lastSeen = make(map[common.Address]time.Time)
	m.mu.Unlock()
	for _, b := range bridges {
		b.Stop()
	}
}

func sameAddresses(a, b []common.Address) bool {
	a, b = uniqueAddresses(a), uniqueAddresses(b)
	if len(a) != len(b) {
		return false
	}
	set := make(map[common.Address]struct{}, len(a))
	for _, x := range a {
		set[x] = struct{}{}
	}
	for _, x := range b {
		if _, ok := set[x]; !ok {
			return false
		}
	}
	return true
}
