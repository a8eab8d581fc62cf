package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/pkg/utils"
)

// Mock ChainStateReader
type MockChainStateReader struct {
	mock.Mock
}

func (m *MockChainStateReader) GetOwners(ctx context.Context, wallet common.Address) ([]common.Address, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockChainStateReader) GetRequired(ctx context.Context, wallet common.Address) (uint64, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainStateReader) GetTransactionCount(ctx context.Context, wallet common.Address) (uint64, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainStateReader) GetTransaction(ctx context.Context, wallet common.Address, txID uint64) (*entities.TransactionRecord, error) {
	args := m.Called(ctx, wallet, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TransactionRecord), args.Error(1)
}

func (m *MockChainStateReader) HasConfirmed(ctx context.Context, wallet common.Address, txID uint64, owner common.Address) (bool, error) {
	args := m.Called(ctx, wallet, txID, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockChainStateReader) GetConfirmers(ctx context.Context, wallet common.Address, txID uint64) ([]common.Address, error) {
	args := m.Called(ctx, wallet, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockChainStateReader) GetTokenMetadata(ctx context.Context, token common.Address) (*entities.TokenMetadata, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TokenMetadata), args.Error(1)
}

func (m *MockChainStateReader) GetDeployedWallets(ctx context.Context) ([]common.Address, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockChainStateReader) GetWalletsForOwner(ctx context.Context, owner common.Address) ([]common.Address, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]common.Address), args.Error(1)
}

func (m *MockChainStateReader) GetWalletSnapshot(ctx context.Context, wallet common.Address) (*entities.WalletSnapshot, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.WalletSnapshot), args.Error(1)
}

// Mock SnapshotInvalidator
type MockSnapshotInvalidator struct {
	mock.Mock
}

func (m *MockSnapshotInvalidator) Invalidate(ctx context.Context, wallet common.Address) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

// Mock ActionBroadcaster
type MockActionBroadcaster struct {
	mock.Mock
}

func (m *MockActionBroadcaster) Signer() (common.Address, bool) {
	args := m.Called()
	return args.Get(0).(common.Address), args.Bool(1)
}

func (m *MockActionBroadcaster) RequestAction(ctx context.Context, req entities.ActionRequest) (*entities.ReceiptHandle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ReceiptHandle), args.Error(1)
}

func (m *MockActionBroadcaster) WaitReceipt(ctx context.Context, handle entities.ReceiptHandle) (*entities.ActionOutcome, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ActionOutcome), args.Error(1)
}

// Mock TrackedWalletRepository
type MockTrackedWalletRepository struct {
	mock.Mock
}

func (m *MockTrackedWalletRepository) Upsert(ctx context.Context, wallet *entities.TrackedWallet) error {
	args := m.Called(ctx, wallet)
	return args.Error(0)
}

func (m *MockTrackedWalletRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.TrackedWallet, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TrackedWallet), args.Error(1)
}

func (m *MockTrackedWalletRepository) ListByOwner(ctx context.Context, owner common.Address) ([]*entities.TrackedWallet, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TrackedWallet), args.Error(1)
}

func (m *MockTrackedWalletRepository) ListAll(ctx context.Context) ([]*entities.TrackedWallet, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.TrackedWallet), args.Error(1)
}

func (m *MockTrackedWalletRepository) SetDisplayName(ctx context.Context, address common.Address, name string) error {
	args := m.Called(ctx, address, name)
	return args.Error(0)
}

// Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *entities.Notification) (bool, error) {
	args := m.Called(ctx, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipient common.Address, unreadOnly bool, page utils.PaginationParams) ([]*entities.Notification, int64, error) {
	args := m.Called(ctx, recipient, unreadOnly, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, recipient common.Address, id uuid.UUID) error {
	args := m.Called(ctx, recipient, id)
	return args.Error(0)
}

// Mock NonceStore
type MockNonceStore struct {
	mock.Mock
}

func (m *MockNonceStore) Put(ctx context.Context, address, nonce string, ttl time.Duration) error {
	args := m.Called(ctx, address, nonce, ttl)
	return args.Error(0)
}

func (m *MockNonceStore) Consume(ctx context.Context, address string) (string, error) {
	args := m.Called(ctx, address)
	return args.String(0), args.Error(1)
}

// memoryNotifications dedups on (recipient, event key) the way the gorm repository does.
type memoryNotifications struct {
	mu   sync.Mutex
	rows []*entities.Notification
}

func (m *memoryNotifications) Create(_ context.Context, n *entities.Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.EventKey != "" {
		for _, r := range m.rows {
			if r.Recipient == n.Recipient && r.EventKey == n.EventKey {
				return false, nil
			}
		}
	}
	m.rows = append(m.rows, n)
	return true, nil
}

func (m *memoryNotifications) ListByRecipient(_ context.Context, recipient common.Address, unreadOnly bool, _ utils.PaginationParams) ([]*entities.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.Notification
	for _, r := range m.rows {
		if r.Recipient == recipient && (!unreadOnly || !r.Read) {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (m *memoryNotifications) MarkRead(_ context.Context, _ common.Address, _ uuid.UUID) error {
	return nil
}

func (m *memoryNotifications) all() []*entities.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entities.Notification(nil), m.rows...)
}

// fakeEventSource hands out controllable subscriptions.
type fakeEventSource struct {
	mu    sync.Mutex
	subs  []*fakeSubscription
	fails error
}

type fakeSubscription struct {
	wallets []common.Address
	from    uint64
	sink    chan<- entities.ChainEvent
	errc    chan error
	mu      sync.Mutex
	closed  bool
	next    uint64
}

func (s *fakeSubscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.errc)
	}
}

func (s *fakeSubscription) Err() <-chan error { return s.errc }

func (s *fakeSubscription) Resume() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == 0 {
		return s.from
	}
	return s.next
}

// advance moves the cursor as if every block before next had been delivered.
func (s *fakeSubscription) advance(next uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = next
}

// fail ends the subscription with err, like a producer giving up.
func (s *fakeSubscription) fail(err error) {
	s.errc <- err
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// emit delivers ev unless the subscription was released.
func (s *fakeSubscription) emit(ev entities.ChainEvent) bool {
	if s.isClosed() {
		return false
	}
	s.sink <- ev
	return true
}

func (f *fakeEventSource) Subscribe(_ context.Context, wallets []common.Address, from uint64, sink chan<- entities.ChainEvent) (repositories.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return nil, f.fails
	}
	sub := &fakeSubscription{wallets: append([]common.Address(nil), wallets...), from: from, sink: sink, errc: make(chan error, 1)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeEventSource) last() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

func (f *fakeEventSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
