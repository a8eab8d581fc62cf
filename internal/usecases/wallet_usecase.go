package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/pkg/logger"
)

// WalletUsecase builds the owner-facing views of multisig wallets
type WalletUsecase struct {
	reader      repositories.ChainStateReader
	invalidator repositories.SnapshotInvalidator
	trackedRepo repositories.TrackedWalletRepository
	interpreter *TransactionInterpreter
	ledger      *StateLedger
	parallel    int
}

// NewWalletUsecase creates a new wallet usecase
func NewWalletUsecase(
	reader repositories.ChainStateReader,
	invalidator repositories.SnapshotInvalidator,
	trackedRepo repositories.TrackedWalletRepository,
	ledger *StateLedger,
	parallel int,
) *WalletUsecase {
	if ledger == nil {
		ledger = NewStateLedger()
	}
	if parallel <= 0 {
		parallel = defaultSnapshotParallel
	}
	return &WalletUsecase{
		reader:      reader,
		invalidator: invalidator,
		trackedRepo: trackedRepo,
		interpreter: NewTransactionInterpreter(reader),
		ledger:      ledger,
		parallel:    parallel,
	}
}

// ListWallets returns a summary row for every wallet owner belongs to.
// Wallets that cannot be read are returned with Unavailable set.
func (u *WalletUsecase) ListWallets(ctx context.Context, owner common.Address) ([]*entities.WalletSummary, error) {
	wallets, err := u.reader.GetWalletsForOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list wallets for %s: %w", owner.Hex(), err)
	}
	wallets = uniqueAddresses(wallets)

	out := make([]*entities.WalletSummary, len(wallets))
	p := pool.New().WithMaxGoroutines(u.parallel)
	for i, addr := range wallets {
		p.Go(func() {
			row := &entities.WalletSummary{Address: addr, DisplayName: u.displayName(ctx, addr)}
			snap, err := u.reader.GetWalletSnapshot(ctx, addr)
			if err != nil {
				logger.Warn(ctx, "wallet summary unavailable", zap.String("wallet", addr.Hex()), zap.Error(err))
				row.Unavailable = true
				out[i] = row
				return
			}
			row.Owners = snap.Wallet.Owners
			row.Required = snap.Wallet.Required
			row.TransactionCount = snap.Wallet.TransactionCount
			row.Stats = TransactionStats(snap, owner, u.ledger)
			out[i] = row
		})
	}
	p.Wait()
	return out, nil
}

// GetWallet returns the wallet with every transaction classified and judged
// from owner's point of view.
func (u *WalletUsecase) GetWallet(ctx context.Context, owner, wallet common.Address) (*entities.WalletView, error) {
	snap, err := u.reader.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("read wallet %s: %w", wallet.Hex(), err)
	}

	classified := u.interpreter.InterpretWallet(ctx, snap)
	views := make([]entities.TransactionView, len(snap.Transactions))
	for i := range snap.Transactions {
		views[i] = u.transactionView(&snap.Wallet, &snap.Transactions[i], classified[i], owner)
	}

	return &entities.WalletView{
		Wallet:       snap.Wallet,
		DisplayName:  u.displayName(ctx, wallet),
		Stats:        TransactionStats(snap, owner, u.ledger),
		Transactions: views,
	}, nil
}

// GetTransaction returns one transaction view.
func (u *WalletUsecase) GetTransaction(ctx context.Context, owner, wallet common.Address, txID uint64) (*entities.TransactionView, error) {
	snap, err := u.reader.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("read wallet %s: %w", wallet.Hex(), err)
	}
	tx, ok := snap.Transaction(txID)
	if !ok {
		return nil, domainerrors.ErrNotFound
	}

	records := []entities.TransactionRecord{tx.Record}
	classified := ClassifyAll(records, u.interpreter.ResolveTokenMetadata(ctx, records))
	view := u.transactionView(&snap.Wallet, tx, classified[0], owner)
	return &view, nil
}

func (u *WalletUsecase) transactionView(wallet *entities.MultisigWallet, tx *entities.WalletTransaction, c ClassifiedTransaction, owner common.Address) entities.TransactionView {
	state := u.ledger.Observe(wallet.Address, tx.Record.ID, ProjectedState(&tx.Record, tx.Confirmations, wallet.Required))
	view := entities.TransactionView{
		Display:       c.Display,
		State:         state,
		Confirmations: tx.Confirmations.Count(),
		Required:      wallet.Required,
		ConfirmedBy:   append([]common.Address{}, tx.Confirmations...),
		CanConfirm:    IsLegalConfirm(wallet, &tx.Record, owner, tx.Confirmations),
		WouldExecute:  WouldReachQuorum(&tx.Record, owner, tx.Confirmations, wallet.Required),
	}
	if state == entities.StateExecuted && !tx.Record.Executed {
		// a stale read behind an observed execution
		view.CanConfirm = entities.Deny(entities.ReasonAlreadyExecuted)
		view.WouldExecute = false
	}
	if c.Err != nil {
		view.Error = c.Err.Error()
	}
	return view
}

// Rename sets the display name of a wallet owner belongs to.
func (u *WalletUsecase) Rename(ctx context.Context, owner, wallet common.Address, input *entities.RenameWalletInput) (*entities.TrackedWallet, error) {
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	owners, err := u.reader.GetOwners(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("read owners of %s: %w", wallet.Hex(), err)
	}
	w := &entities.MultisigWallet{Address: wallet, Owners: owners}
	if !w.IsOwner(owner) {
		return nil, fmt.Errorf("%w: only owners can rename a wallet", domainerrors.ErrForbidden)
	}

	if _, err := u.trackedRepo.GetByAddress(ctx, wallet); errors.Is(err, domainerrors.ErrNotFound) {
		creator, _ := w.Creator()
		if err := u.trackedRepo.Upsert(ctx, &entities.TrackedWallet{Address: wallet, Owners: owners, Creator: creator}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := u.trackedRepo.SetDisplayName(ctx, wallet, strings.TrimSpace(input.DisplayName)); err != nil {
		return nil, err
	}
	return u.trackedRepo.GetByAddress(ctx, wallet)
}

// Refresh drops cached state for wallet and reads it again.
func (u *WalletUsecase) Refresh(ctx context.Context, owner, wallet common.Address) (*entities.WalletView, error) {
	if u.invalidator != nil {
		if err := u.invalidator.Invalidate(ctx, wallet); err != nil {
			logger.Warn(ctx, "cache invalidation failed", zap.String("wallet", wallet.Hex()), zap.Error(err))
		}
	}
	return u.GetWallet(ctx, owner, wallet)
}

func (u *WalletUsecase) displayName(ctx context.Context, wallet common.Address) string {
	if u.trackedRepo == nil {
		return entities.ShortAddress(wallet)
	}
	tw, err := u.trackedRepo.GetByAddress(ctx, wallet)
	if err != nil || tw == nil {
		return entities.ShortAddress(wallet)
	}
	return tw.Name()
}

// invalidInput turns validation errors into field-level InvalidInput.
func invalidInput(err error) error {
	fields := make(map[string]string)
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for k, v := range verrs {
			fields[k] = v.Error()
		}
	}
	return domainerrors.InvalidInput(fields, err)
}
