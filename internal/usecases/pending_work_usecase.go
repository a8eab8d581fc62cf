package usecases

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/internal/infrastructure/metrics"
	"multisig-hub.backend/pkg/logger"
)

const defaultSnapshotParallel = 8

// AggregatePendingWork counts, per wallet, the unexecuted transactions owner
// has not confirmed yet. Wallets where owner is not an owner or nothing is
// pending are omitted. The result is ordered by wallet address.
func AggregatePendingWork(snapshots []*entities.WalletSnapshot, owner common.Address) []entities.PendingWorkItem {
	items := make([]entities.PendingWorkItem, 0, len(snapshots))
	seen := make(map[common.Address]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || !snap.Wallet.IsOwner(owner) {
			continue
		}
		if _, dup := seen[snap.Wallet.Address]; dup {
			continue
		}
		seen[snap.Wallet.Address] = struct{}{}

		pending := 0
		for _, tx := range snap.Transactions {
			if !tx.Record.Executed && !tx.Confirmations.Contains(owner) {
				pending++
			}
		}
		if pending == 0 {
			continue
		}
		items = append(items, entities.PendingWorkItem{
			WalletAddress:     snap.Wallet.Address,
			WalletDisplayName: entities.ShortAddress(snap.Wallet.Address),
			PendingCount:      pending,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].WalletAddress[:], items[j].WalletAddress[:]) < 0
	})
	return items
}

// TransactionStats summarizes a snapshot from owner's point of view. With a
// ledger, each state is clamped to the highest one already observed.
func TransactionStats(snap *entities.WalletSnapshot, owner common.Address, ledger *StateLedger) entities.WalletTransactionStats {
	var stats entities.WalletTransactionStats
	isOwner := snap.Wallet.IsOwner(owner)
	for _, tx := range snap.Transactions {
		stats.Total++
		state := ProjectedState(&tx.Record, tx.Confirmations, snap.Wallet.Required)
		if ledger != nil {
			state = ledger.Observe(snap.Wallet.Address, tx.Record.ID, state)
		}
		switch state {
		case entities.StateExecuted:
			stats.Executed++
			continue
		case entities.StateReady:
			stats.Ready++
		default:
			stats.Pending++
		}
		if isOwner && !tx.Confirmations.Contains(owner) {
			stats.AwaitingMyInput++
		}
	}
	return stats
}

// PendingWorkUsecase gathers snapshots for every wallet of an owner and
// reduces them to a pending-work report.
type PendingWorkUsecase struct {
	reader      repositories.ChainStateReader
	trackedRepo repositories.TrackedWalletRepository
	parallel    int
	now         func() time.Time
}

// NewPendingWorkUsecase creates a new pending work usecase
func NewPendingWorkUsecase(reader repositories.ChainStateReader, trackedRepo repositories.TrackedWalletRepository, parallel int) *PendingWorkUsecase {
	if parallel <= 0 {
		parallel = defaultSnapshotParallel
	}
	return &PendingWorkUsecase{
		reader:      reader,
		trackedRepo: trackedRepo,
		parallel:    parallel,
		now:         time.Now,
	}
}

// Collect emits one report after every wallet has reported. Wallets that
// could not be read are listed in Unavailable and mark the report provisional.
func (u *PendingWorkUsecase) Collect(ctx context.Context, owner common.Address) (*entities.PendingWorkReport, error) {
	start := u.now()
	defer func() { metrics.PendingWorkDuration.Observe(time.Since(start).Seconds()) }()

	wallets, err := u.reader.GetWalletsForOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list wallets for %s: %w", owner.Hex(), err)
	}
	wallets = uniqueAddresses(wallets)

	snapshots, unavailable := u.gather(ctx, wallets)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("collect pending work: %w", domainerrors.ErrDataUnavailable)
	}

	items := AggregatePendingWork(snapshots, owner)
	names := u.displayNames(ctx, owner)
	for i := range items {
		if name, ok := names[items[i].WalletAddress]; ok {
			items[i].WalletDisplayName = name
		}
	}

	report := &entities.PendingWorkReport{
		Owner:       owner,
		Items:       items,
		Unavailable: unavailable,
		Provisional: len(unavailable) > 0,
		GeneratedAt: u.now(),
	}
	if report.Provisional {
		metrics.PendingWorkProvisional.Inc()
		logger.Warn(ctx, "pending work report is provisional",
			zap.String("owner", owner.Hex()),
			zap.Int("unavailable", len(unavailable)),
			zap.Int("wallets", len(wallets)),
		)
	}
	return report, nil
}

func (u *PendingWorkUsecase) gather(ctx context.Context, wallets []common.Address) ([]*entities.WalletSnapshot, []common.Address) {
	snapshots := make([]*entities.WalletSnapshot, len(wallets))
	failed := make([]bool, len(wallets))

	p := pool.New().WithMaxGoroutines(u.parallel)
	for i, wallet := range wallets {
		p.Go(func() {
			snap, err := u.reader.GetWalletSnapshot(ctx, wallet)
			if err != nil {
				logger.Warn(ctx, "wallet snapshot unavailable", zap.String("wallet", wallet.Hex()), zap.Error(err))
				failed[i] = true
				return
			}
			snapshots[i] = snap
		})
	}
	p.Wait()

	var unavailable []common.Address
	for i, f := range failed {
		if f {
			unavailable = append(unavailable, wallets[i])
		}
	}
	return snapshots, unavailable
}

func (u *PendingWorkUsecase) displayNames(ctx context.Context, owner common.Address) map[common.Address]string {
	names := make(map[common.Address]string)
	if u.trackedRepo == nil {
		return names
	}
	tracked, err := u.trackedRepo.ListByOwner(ctx, owner)
	if err != nil {
		logger.Warn(ctx, "tracked wallets unavailable for display names", zap.Error(err))
		return names
	}
	for _, w := range tracked {
		names[w.Address] = w.Name()
	}
	return names
}

func uniqueAddresses(in []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(in))
	out := make([]common.Address, 0, len(in))
	for _, a := range in {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
