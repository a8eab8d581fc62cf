package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/pkg/logger"
)

const (
	defaultRefreshInterval = time.Minute
	defaultRefreshParallel = 8
)

type trackedWalletLister interface {
	ListAll(ctx context.Context) ([]*entities.TrackedWallet, error)
}

type snapshotReader interface {
	GetWalletSnapshot(ctx context.Context, wallet common.Address) (*entities.WalletSnapshot, error)
}

type snapshotInvalidator interface {
	Invalidate(ctx context.Context, wallet common.Address) error
}

type bridgeSyncer interface {
	Owners() []common.Address
	Resync(ctx context.Context, owner common.Address) error
	ReleaseIdle() []common.Address
}

// RefreshJob periodically drops and re-reads every tracked wallet, releases
// the event bridges of idle owners and re-syncs the wallet set of the rest.
type RefreshJob struct {
	tracked     trackedWalletLister
	reader      snapshotReader
	invalidator snapshotInvalidator
	bridges     bridgeSyncer
	interval    time.Duration
	parallel    int
	stop        chan struct{}
}

func NewRefreshJob(
	tracked trackedWalletLister,
	reader snapshotReader,
	invalidator snapshotInvalidator,
	bridges bridgeSyncer,
	interval time.Duration,
	parallel int,
) *RefreshJob {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if parallel <= 0 {
		parallel = defaultRefreshParallel
	}
	return &RefreshJob{
		tracked:     tracked,
		reader:      reader,
		invalidator: invalidator,
		bridges:     bridges,
		interval:    interval,
		parallel:    parallel,
		stop:        make(chan struct{}),
	}
}

func (j *RefreshJob) Start(ctx context.Context) {
	logger.Info(ctx, "starting wallet refresh job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "wallet refresh job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "wallet refresh job stopped")
			return
		case <-ticker.C:
			j.refresh(ctx)
		}
	}
}

func (j *RefreshJob) Stop() {
	close(j.stop)
}

func (j *RefreshJob) refresh(ctx context.Context) {
	wallets, err := j.tracked.ListAll(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list tracked wallets", zap.Error(err))
		return
	}

	var failed atomic.Int32
	p := pool.New().WithMaxGoroutines(j.parallel)
	for _, w := range wallets {
		addr := w.Address
		p.Go(func() {
			if j.invalidator != nil {
				if err := j.invalidator.Invalidate(ctx, addr); err != nil {
					logger.Warn(ctx, "cache invalidation failed", zap.String("wallet", addr.Hex()), zap.Error(err))
				}
			}
			if _, err := j.reader.GetWalletSnapshot(ctx, addr); err != nil {
				failed.Add(1)
				logger.Warn(ctx, "wallet refresh failed", zap.String("wallet", addr.Hex()), zap.Error(err))
			}
		})
	}
	p.Wait()

	if j.bridges != nil {
		for _, owner := range j.bridges.ReleaseIdle() {
			logger.Info(ctx, "released idle event bridge", zap.String("owner", owner.Hex()))
		}
		for _, owner := range j.bridges.Owners() {
			if err := j.bridges.Resync(ctx, owner); err != nil {
				logger.Warn(ctx, "event bridge resync failed", zap.String("owner", owner.Hex()), zap.Error(err))
			}
		}
	}

	if len(wallets) > 0 {
		logger.Debug(ctx, "refreshed tracked wallets",
			zap.Int("wallets", len(wallets)),
			zap.Int32("failed", failed.Load()))
	}
}
