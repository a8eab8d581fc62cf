package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/internal/infrastructure/metrics"
	"multisig-hub.backend/pkg/logger"
	"multisig-hub.backend/pkg/utils"
)

const (
	defaultReceiptTimeout = 5 * time.Minute
	executionNotice       = "This confirmation reaches the threshold and will execute the transaction"
	submitExecutionNotice = "The wallet requires a single confirmation; submitting executes the transaction"
)

// ActionUsecase validates owner actions locally and forwards them to the
// broadcaster. It never mutates derived state: a settled receipt only
// invalidates the wallet so the next read observes the chain.
type ActionUsecase struct {
	reader         repositories.ChainStateReader
	invalidator    repositories.SnapshotInvalidator
	broadcaster    repositories.ActionBroadcaster
	notifications  repositories.NotificationRepository
	receiptTimeout time.Duration

	wg sync.WaitGroup
}

// NewActionUsecase creates a new action usecase
func NewActionUsecase(
	reader repositories.ChainStateReader,
	invalidator repositories.SnapshotInvalidator,
	broadcaster repositories.ActionBroadcaster,
	notifications repositories.NotificationRepository,
	receiptTimeout time.Duration,
) *ActionUsecase {
	if receiptTimeout <= 0 {
		receiptTimeout = defaultReceiptTimeout
	}
	return &ActionUsecase{
		reader:         reader,
		invalidator:    invalidator,
		broadcaster:    broadcaster,
		notifications:  notifications,
		receiptTimeout: receiptTimeout,
	}
}

// CreateWallet deploys a new wallet through the factory.
func (u *ActionUsecase) CreateWallet(ctx context.Context, owner common.Address, input *entities.CreateWalletInput) (*entities.ActionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if err := u.checkSigner(owner); err != nil {
		return nil, err
	}

	return u.broadcast(ctx, owner, entities.ActionRequest{
		Kind:     entities.ActionCreateWallet,
		Owners:   input.OwnerAddresses(),
		Required: input.Required,
	}, false, "")
}

// Submit proposes a transaction. The submission counts as the submitter's confirmation.
func (u *ActionUsecase) Submit(ctx context.Context, owner, wallet common.Address, input *entities.SubmitTransactionInput) (*entities.ActionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	record, err := input.Record()
	if err != nil {
		return nil, invalidInput(err)
	}
	if err := u.checkSigner(owner); err != nil {
		return nil, err
	}

	snap, err := u.freshSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if !snap.Wallet.IsOwner(owner) {
		return nil, domainerrors.ErrNotAnOwner
	}

	willExecute := snap.Wallet.Required <= 1
	notice := ""
	if willExecute {
		notice = submitExecutionNotice
	}
	return u.broadcast(ctx, owner, entities.ActionRequest{
		Kind:       entities.ActionSubmit,
		Wallet:     wallet,
		Submission: record,
	}, willExecute, notice)
}

// Confirm adds owner's confirmation to a transaction.
func (u *ActionUsecase) Confirm(ctx context.Context, owner, wallet common.Address, txID uint64) (*entities.ActionResult, error) {
	if err := u.checkSigner(owner); err != nil {
		return nil, err
	}
	snap, tx, err := u.loadTransaction(ctx, wallet, txID)
	if err != nil {
		return nil, err
	}

	if err := VerdictError(IsLegalConfirm(&snap.Wallet, &tx.Record, owner, tx.Confirmations)); err != nil {
		return nil, err
	}

	willExecute := WouldReachQuorum(&tx.Record, owner, tx.Confirmations, snap.Wallet.Required)
	notice := ""
	if willExecute {
		notice = executionNotice
	}
	return u.broadcast(ctx, owner, entities.ActionRequest{
		Kind:   entities.ActionConfirm,
		Wallet: wallet,
		TxID:   txID,
	}, willExecute, notice)
}

// Execute is the manual fallback for a READY transaction whose automatic
// execution did not happen.
func (u *ActionUsecase) Execute(ctx context.Context, owner, wallet common.Address, txID uint64) (*entities.ActionResult, error) {
	if err := u.checkSigner(owner); err != nil {
		return nil, err
	}
	snap, tx, err := u.loadTransaction(ctx, wallet, txID)
	if err != nil {
		return nil, err
	}

	if err := VerdictError(IsLegalExecute(&snap.Wallet, &tx.Record, owner, tx.Confirmations)); err != nil {
		return nil, err
	}
	return u.broadcast(ctx, owner, entities.ActionRequest{
		Kind:   entities.ActionExecute,
		Wallet: wallet,
		TxID:   txID,
	}, true, "")
}

// Wait blocks until every receipt watcher started so far has finished.
func (u *ActionUsecase) Wait() {
	u.wg.Wait()
}

func (u *ActionUsecase) checkSigner(owner common.Address) error {
	signer, ok := u.broadcaster.Signer()
	if !ok {
		return domainerrors.ErrSignerUnavailable
	}
	if signer != owner {
		return domainerrors.ErrSignerMismatch
	}
	return nil
}

func (u *ActionUsecase) freshSnapshot(ctx context.Context, wallet common.Address) (*entities.WalletSnapshot, error) {
	if u.invalidator != nil {
		if err := u.invalidator.Invalidate(ctx, wallet); err != nil {
			logger.Warn(ctx, "cache invalidation failed", zap.String("wallet", wallet.Hex()), zap.Error(err))
		}
	}
	snap, err := u.reader.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("read wallet %s: %w", wallet.Hex(), err)
	}
	return snap, nil
}

func (u *ActionUsecase) loadTransaction(ctx context.Context, wallet common.Address, txID uint64) (*entities.WalletSnapshot, *entities.WalletTransaction, error) {
	snap, err := u.freshSnapshot(ctx, wallet)
	if err != nil {
		return nil, nil, err
	}
	tx, ok := snap.Transaction(txID)
	if !ok {
		return nil, nil, domainerrors.ErrNotFound
	}
	return snap, tx, nil
}

func (u *ActionUsecase) broadcast(ctx context.Context, owner common.Address, req entities.ActionRequest, willExecute bool, notice string) (*entities.ActionResult, error) {
	handle, err := u.broadcaster.RequestAction(ctx, req)
	if err != nil {
		metrics.ActionsBroadcast.WithLabelValues(string(req.Kind), "failed").Inc()
		logger.Error(ctx, "action broadcast failed", zap.String("kind", string(req.Kind)), zap.Error(err))
		if errors.Is(err, domainerrors.ErrExternalActionFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrExternalActionFailure, err)
	}
	metrics.ActionsBroadcast.WithLabelValues(string(req.Kind), "sent").Inc()
	logger.Info(ctx, "action broadcast",
		zap.String("kind", string(req.Kind)),
		zap.String("tx_hash", handle.TxHash.Hex()),
		zap.String("wallet", req.Wallet.Hex()),
	)

	u.wg.Add(1)
	go u.watch(logger.WithOwner(context.Background(), owner.Hex()), owner, *handle)

	return &entities.ActionResult{Handle: *handle, WillExecute: willExecute, ExecutionNotice: notice}, nil
}

func (u *ActionUsecase) watch(ctx context.Context, owner common.Address, handle entities.ReceiptHandle) {
	defer u.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, u.receiptTimeout)
	defer cancel()

	outcome, err := u.broadcaster.WaitReceipt(ctx, handle)
	if err != nil {
		metrics.ActionsBroadcast.WithLabelValues(string(handle.Kind), "failed").Inc()
		logger.Error(ctx, "receipt unavailable", zap.String("tx_hash", handle.TxHash.Hex()), zap.Error(err))
		u.notify(ctx, owner, handle, entities.NotificationActionFailed, "Action failed",
			fmt.Sprintf("%s could not be confirmed: %v", actionLabel(handle.Kind), err))
		return
	}

	if handle.Wallet == (common.Address{}) {
		// wallet creation learns its address from the receipt
		handle.Wallet = outcome.Handle.Wallet
	}
	if handle.Wallet != (common.Address{}) && u.invalidator != nil {
		if err := u.invalidator.Invalidate(ctx, handle.Wallet); err != nil {
			logger.Warn(ctx, "cache invalidation failed", zap.String("wallet", handle.Wallet.Hex()), zap.Error(err))
		}
	}

	if !outcome.Success {
		metrics.ActionsBroadcast.WithLabelValues(string(handle.Kind), "reverted").Inc()
		reason := outcome.Reason
		if reason == "" {
			reason = "reverted"
		}
		u.notify(ctx, owner, handle, entities.NotificationActionFailed, "Action failed",
			fmt.Sprintf("%s failed on chain: %s", actionLabel(handle.Kind), reason))
		return
	}

	metrics.ActionsBroadcast.WithLabelValues(string(handle.Kind), "succeeded").Inc()
	u.notify(ctx, owner, handle, entities.NotificationActionSucceeded, "Action confirmed",
		fmt.Sprintf("%s was mined in block %d", actionLabel(handle.Kind), outcome.BlockNumber))
}

func (u *ActionUsecase) notify(ctx context.Context, owner common.Address, handle entities.ReceiptHandle, typ entities.NotificationType, title, message string) {
	if u.notifications == nil {
		return
	}
	n := &entities.Notification{
		ID:            utils.GenerateUUIDv7(),
		Recipient:     owner,
		Type:          typ,
		Title:         title,
		Message:       message,
		WalletAddress: handle.Wallet,
		TxID:          handle.TxID,
		EventKey:      "action:" + handle.TxHash.Hex(),
		CreatedAt:     time.Now(),
	}
	if _, err := u.notifications.Create(ctx, n); err != nil {
		logger.Error(ctx, "failed to store notification", zap.String("type", string(typ)), zap.Error(err))
	}
}

func actionLabel(kind entities.ActionKind) string {
	switch kind {
	case entities.ActionCreateWallet:
		return "Wallet creation"
	case entities.ActionSubmit:
		return "Submission"
	case entities.ActionConfirm:
		return "Confirmation"
	case entities.ActionExecute:
		return "Execution"
	default:
		return string(kind)
	}
}
