package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/usecases"
)

func TestWalletUsecase_GetWallet(t *testing.T) {
	reader := new(MockChainStateReader)
	tracked := new(MockTrackedWalletRepository)
	ctx := context.Background()

	erc20 := pendingTx(ownerA)
	erc20.Record.Kind = entities.TransactionKindERC20
	erc20.Record.Token = tokenUSDC
	erc20.Record.Value = wei("2500000")
	snap := snapshotOf(walletOne, []common.Address{ownerA, ownerB, ownerC}, 2,
		pendingTx(ownerA),
		erc20,
		executedTx(ownerA, ownerB),
	)
	snap.Transactions = append(snap.Transactions, entities.WalletTransaction{
		Record: entities.TransactionRecord{ID: 3, Kind: entities.TransactionKind(9)},
	})

	reader.On("GetWalletSnapshot", ctx, walletOne).Return(snap, nil).Once()
	reader.On("GetTokenMetadata", mock.Anything, tokenUSDC).Return(&entities.TokenMetadata{Symbol: "USDC", Decimals: 6}, nil).Once()
	tracked.On("GetByAddress", ctx, walletOne).Return(&entities.TrackedWallet{Address: walletOne, DisplayName: null.StringFrom("Ops")}, nil).Once()

	uc := usecases.NewWalletUsecase(reader, nil, tracked, nil, 0)
	view, err := uc.GetWallet(ctx, ownerB, walletOne)
	require.NoError(t, err)
	assert.Equal(t, "Ops", view.DisplayName)
	require.Len(t, view.Transactions, 4)

	first := view.Transactions[0]
	assert.Equal(t, entities.StatePending, first.State)
	assert.True(t, first.CanConfirm.Allowed)
	assert.True(t, first.WouldExecute)
	assert.Equal(t, []common.Address{ownerA}, first.ConfirmedBy)

	assert.Equal(t, "2.5", view.Transactions[1].Display.DisplayValue)
	assert.Equal(t, "USDC", view.Transactions[1].Display.Symbol)

	executed := view.Transactions[2]
	assert.Equal(t, entities.StateExecuted, executed.State)
	assert.Equal(t, entities.ReasonAlreadyExecuted, executed.CanConfirm.Reason)
	assert.False(t, executed.WouldExecute)

	broken := view.Transactions[3]
	assert.Nil(t, broken.Display)
	assert.NotEmpty(t, broken.Error)

	assert.Equal(t, 4, view.Stats.Total)
	assert.Equal(t, 1, view.Stats.Executed)
}

func TestWalletUsecase_StaleReadDoesNotRegress(t *testing.T) {
	reader := new(MockChainStateReader)
	ctx := context.Background()
	owners := []common.Address{ownerA, ownerB}

	reader.On("GetWalletSnapshot", ctx, walletOne).Return(snapshotOf(walletOne, owners, 2, executedTx(ownerA, ownerB)), nil).Once()
	reader.On("GetWalletSnapshot", ctx, walletOne).Return(snapshotOf(walletOne, owners, 2, pendingTx(ownerA)), nil).Once()

	uc := usecases.NewWalletUsecase(reader, nil, nil, usecases.NewStateLedger(), 1)
	_, err := uc.GetWallet(ctx, ownerB, walletOne)
	require.NoError(t, err)

	stale, err := uc.GetWallet(ctx, ownerB, walletOne)
	require.NoError(t, err)
	assert.Equal(t, entities.StateExecuted, stale.Transactions[0].State)
	assert.Equal(t, entities.ReasonAlreadyExecuted, stale.Transactions[0].CanConfirm.Reason)
	assert.Equal(t, 1, stale.Stats.Executed)
	assert.Zero(t, stale.Stats.Pending)
	assert.Zero(t, stale.Stats.AwaitingMyInput)
}

func TestWalletUsecase_GetTransaction(t *testing.T) {
	reader := new(MockChainStateReader)
	ctx := context.Background()
	reader.On("GetWalletSnapshot", ctx, walletOne).Return(snapshotOf(walletOne, []common.Address{ownerA, ownerB}, 2, pendingTx(ownerA)), nil).Twice()

	uc := usecases.NewWalletUsecase(reader, nil, nil, nil, 1)
	view, err := uc.GetTransaction(ctx, ownerA, walletOne, 0)
	require.NoError(t, err)
	assert.Equal(t, entities.ReasonAlreadyConfirmed, view.CanConfirm.Reason)

	_, err = uc.GetTransaction(ctx, ownerA, walletOne, 5)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestWalletUsecase_GetWalletUnavailable(t *testing.T) {
	reader := new(MockChainStateReader)
	reader.On("GetWalletSnapshot", mock.Anything, walletOne).Return(nil, domainerrors.ErrDataUnavailable).Once()

	_, err := usecases.NewWalletUsecase(reader, nil, nil, nil, 1).GetWallet(context.Background(), ownerA, walletOne)
	assert.ErrorIs(t, err, domainerrors.ErrDataUnavailable)
}

func TestWalletUsecase_ListWallets(t *testing.T) {
	reader := new(MockChainStateReader)
	tracked := new(MockTrackedWalletRepository)
	ctx := context.Background()

	reader.On("GetWalletsForOwner", ctx, ownerA).Return([]common.Address{walletOne, walletTwo}, nil).Once()
	reader.On("GetWalletSnapshot", ctx, walletOne).Return(snapshotOf(walletOne, []common.Address{ownerA, ownerB}, 2, pendingTx(ownerB)), nil).Once()
	reader.On("GetWalletSnapshot", ctx, walletTwo).Return(nil, domainerrors.ErrDataUnavailable).Once()
	tracked.On("GetByAddress", ctx, mock.Anything).Return(nil, domainerrors.ErrNotFound)

	rows, err := usecases.NewWalletUsecase(reader, nil, tracked, nil, 2).ListWallets(ctx, ownerA)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, walletOne, rows[0].Address)
	assert.Equal(t, uint64(2), rows[0].Required)
	assert.Equal(t, 1, rows[0].Stats.AwaitingMyInput)
	assert.Equal(t, entities.ShortAddress(walletOne), rows[0].DisplayName)
	assert.True(t, rows[1].Unavailable)
}

func TestWalletUsecase_Rename(t *testing.T) {
	reader := new(MockChainStateReader)
	tracked := new(MockTrackedWalletRepository)
	ctx := context.Background()

	reader.On("GetOwners", ctx, walletOne).Return([]common.Address{ownerA, ownerB}, nil).Once()
	tracked.On("GetByAddress", ctx, walletOne).Return(nil, domainerrors.ErrNotFound).Once()
	tracked.On("Upsert", ctx, mock.MatchedBy(func(w *entities.TrackedWallet) bool {
		return w.Address == walletOne && w.Creator == ownerA
	})).Return(nil).Once()
	tracked.On("SetDisplayName", ctx, walletOne, "Treasury").Return(nil).Once()
	tracked.On("GetByAddress", ctx, walletOne).Return(&entities.TrackedWallet{Address: walletOne, DisplayName: null.StringFrom("Treasury")}, nil).Once()

	uc := usecases.NewWalletUsecase(reader, nil, tracked, nil, 1)
	got, err := uc.Rename(ctx, ownerB, walletOne, &entities.RenameWalletInput{DisplayName: "  Treasury "})
	require.NoError(t, err)
	assert.Equal(t, "Treasury", got.Name())
	tracked.AssertExpectations(t)
}

func TestWalletUsecase_RenameRejected(t *testing.T) {
	reader := new(MockChainStateReader)
	tracked := new(MockTrackedWalletRepository)
	ctx := context.Background()
	uc := usecases.NewWalletUsecase(reader, nil, tracked, nil, 1)

	_, err := uc.Rename(ctx, ownerA, walletOne, &entities.RenameWalletInput{DisplayName: "   "})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	var appErr *domainerrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Fields, "displayName")

	reader.On("GetOwners", ctx, walletOne).Return([]common.Address{ownerA}, nil).Once()
	_, err = uc.Rename(ctx, outsider, walletOne, &entities.RenameWalletInput{DisplayName: "Mine"})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
	tracked.AssertNotCalled(t, "SetDisplayName", mock.Anything, mock.Anything, mock.Anything)
}

func TestWalletUsecase_Refresh(t *testing.T) {
	reader := new(MockChainStateReader)
	invalidator := new(MockSnapshotInvalidator)
	ctx := context.Background()

	invalidator.On("Invalidate", ctx, walletOne).Return(errors.New("redis down")).Once()
	reader.On("GetWalletSnapshot", ctx, walletOne).Return(snapshotOf(walletOne, []common.Address{ownerA}, 1), nil).Once()

	view, err := usecases.NewWalletUsecase(reader, invalidator, nil, nil, 1).Refresh(ctx, ownerA, walletOne)
	require.NoError(t, err)
	assert.Empty(t, view.Transactions)
	invalidator.AssertExpectations(t)
}
