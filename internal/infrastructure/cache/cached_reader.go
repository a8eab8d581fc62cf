package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	gcache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/internal/infrastructure/metrics"
	"multisig-hub.backend/pkg/logger"
	"multisig-hub.backend/pkg/redis"
)

const (
	snapshotPrefix       = "snapshot:"
	defaultSnapshotTTL   = 15 * time.Second
	defaultTokenCapacity = 512
	defaultFetchTimeout  = 30 * time.Second
)

var (
	loadSnapshotValue  = redis.Get
	storeSnapshotValue = redis.Set
	dropSnapshotValue  = redis.Del
	redisEnabled       = func() bool { return redis.GetClient() != nil }
)

// CachedReader decorates a ChainStateReader. Wallet snapshots are kept in
// Redis for a short TTL, identical concurrent reads share one chain round
// trip, and token metadata sits in an in-process LRU since it never changes.
//
// Snapshots returned by CachedReader may be shared between callers and must
// not be mutated.
type CachedReader struct {
	inner        repositories.ChainStateReader
	ttl          time.Duration
	fetchTimeout time.Duration
	tokens       *gcache.Cache[common.Address, entities.TokenMetadata]
	group        singleflight.Group

	mu     sync.Mutex
	epochs map[common.Address]uint64
}

// NewCachedReader wraps inner
func NewCachedReader(inner repositories.ChainStateReader, ttl time.Duration, tokenCapacity int) *CachedReader {
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	if tokenCapacity <= 0 {
		tokenCapacity = defaultTokenCapacity
	}
	return &CachedReader{
		inner:        inner,
		ttl:          ttl,
		fetchTimeout: defaultFetchTimeout,
		tokens:       gcache.New(gcache.AsLRU[common.Address, entities.TokenMetadata](lru.WithCapacity(tokenCapacity))),
		epochs:       make(map[common.Address]uint64),
	}
}

// GetWalletSnapshot serves from Redis when fresh, otherwise reads through
// the wrapped reader. A read that started before an Invalidate is never
// written back to the cache.
func (c *CachedReader) GetWalletSnapshot(ctx context.Context, wallet common.Address) (*entities.WalletSnapshot, error) {
	key := snapshotKey(wallet)
	if snap, ok := c.load(ctx, key); ok {
		metrics.CacheLookups.WithLabelValues("snapshot", "hit").Inc()
		return snap, nil
	}

	epoch := c.epoch(wallet)
	flight := fmt.Sprintf("%s#%d", key, epoch)
	ch := c.group.DoChan(flight, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		snap, err := c.inner.GetWalletSnapshot(fctx, wallet)
		if err != nil {
			return nil, err
		}
		if c.epoch(wallet) == epoch {
			c.store(fctx, key, snap)
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domainerrors.ErrDataUnavailable, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.CacheLookups.WithLabelValues("snapshot", "shared").Inc()
		} else {
			metrics.CacheLookups.WithLabelValues("snapshot", "miss").Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entities.WalletSnapshot), nil
	}
}

// Invalidate drops the cached snapshot of wallet and detaches any read in flight.
func (c *CachedReader) Invalidate(ctx context.Context, wallet common.Address) error {
	c.mu.Lock()
	c.epochs[wallet]++
	c.mu.Unlock()

	if !redisEnabled() {
		return nil
	}
	if err := dropSnapshotValue(ctx, snapshotKey(wallet)); err != nil {
		return fmt.Errorf("drop snapshot %s: %w", wallet.Hex(), err)
	}
	return nil
}

func (c *CachedReader) GetOwners(ctx context.Context, wallet common.Address) ([]common.Address, error) {
	snap, err := c.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return snap.Wallet.Owners, nil
}

func (c *CachedReader) GetRequired(ctx context.Context, wallet common.Address) (uint64, error) {
	snap, err := c.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return 0, err
	}
	return snap.Wallet.Required, nil
}

func (c *CachedReader) GetTransactionCount(ctx context.Context, wallet common.Address) (uint64, error) {
	snap, err := c.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return 0, err
	}
	return snap.Wallet.TransactionCount, nil
}

func (c *CachedReader) GetTransaction(ctx context.Context, wallet common.Address, txID uint64) (*entities.TransactionRecord, error) {
	snap, err := c.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if tx, ok := snap.Transaction(txID); ok {
		rec := tx.Record
		return &rec, nil
	}
	return c.inner.GetTransaction(ctx, wallet, txID)
}

func (c *CachedReader) HasConfirmed(ctx context.Context, wallet common.Address, txID uint64, owner common.Address) (bool, error) {
	snap, err := c.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return false, err
	}
	if tx, ok := snap.Transaction(txID); ok {
		return tx.Confirmations.Contains(owner), nil
	}
	return c.inner.HasConfirmed(ctx, wallet, txID, owner)
}

func (c *CachedReader) GetConfirmers(ctx context.Context, wallet common.Address, txID uint64) ([]common.Address, error) {
	snap, err := c.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if tx, ok := snap.Transaction(txID); ok {
		return append([]common.Address(nil), tx.Confirmations...), nil
	}
	return c.inner.GetConfirmers(ctx, wallet, txID)
}

// GetTokenMetadata caches successful lookups only; a failed read is retried next time.
func (c *CachedReader) GetTokenMetadata(ctx context.Context, token common.Address) (*entities.TokenMetadata, error) {
	if meta, ok := c.tokens.Get(token); ok {
		metrics.CacheLookups.WithLabelValues("token", "hit").Inc()
		return &meta, nil
	}
	metrics.CacheLookups.WithLabelValues("token", "miss").Inc()

	v, err, _ := c.group.Do("token:"+token.Hex(), func() (interface{}, error) {
		meta, err := c.inner.GetTokenMetadata(ctx, token)
		if err != nil {
			return nil, err
		}
		c.tokens.Set(token, *meta)
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	meta := *v.(*entities.TokenMetadata)
	return &meta, nil
}

func (c *CachedReader) GetDeployedWallets(ctx context.Context) ([]common.Address, error) {
	v, err, _ := c.group.Do("factory:all", func() (interface{}, error) {
		return c.inner.GetDeployedWallets(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]common.Address(nil), v.([]common.Address)...), nil
}

func (c *CachedReader) GetWalletsForOwner(ctx context.Context, owner common.Address) ([]common.Address, error) {
	v, err, _ := c.group.Do("factory:owner:"+owner.Hex(), func() (interface{}, error) {
		return c.inner.GetWalletsForOwner(ctx, owner)
	})
	if err != nil {
		return nil, err
	}
	return append([]common.Address(nil), v.([]common.Address)...), nil
}

func (c *CachedReader) epoch(wallet common.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epochs[wallet]
}

func (c *CachedReader) load(ctx context.Context, key string) (*entities.WalletSnapshot, bool) {
	if !redisEnabled() {
		return nil, false
	}
	raw, err := loadSnapshotValue(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			logger.Warn(ctx, "snapshot cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var snap entities.WalletSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		logger.Warn(ctx, "discarding undecodable snapshot", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &snap, true
}

func (c *CachedReader) store(ctx context.Context, key string, snap *entities.WalletSnapshot) {
	if !redisEnabled() {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		logger.Warn(ctx, "snapshot not cacheable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := storeSnapshotValue(ctx, key, raw, c.ttl); err != nil {
		logger.Warn(ctx, "snapshot cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func snapshotKey(wallet common.Address) string {
	return snapshotPrefix + strings.ToLower(wallet.Hex())
}
