package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
)

// ChainStateReader fetches raw on-chain facts about the factory and its wallets.
// Every method may fail with errors.ErrDataUnavailable.
type ChainStateReader interface {
	GetOwners(ctx context.Context, wallet common.Address) ([]common.Address, error)
	GetRequired(ctx context.Context, wallet common.Address) (uint64, error)
	GetTransactionCount(ctx context.Context, wallet common.Address) (uint64, error)
	GetTransaction(ctx context.Context, wallet common.Address, txID uint64) (*entities.TransactionRecord, error)
	HasConfirmed(ctx context.Context, wallet common.Address, txID uint64, owner common.Address) (bool, error)
	GetConfirmers(ctx context.Context, wallet common.Address, txID uint64) ([]common.Address, error)
	GetTokenMetadata(ctx context.Context, token common.Address) (*entities.TokenMetadata, error)
	GetDeployedWallets(ctx context.Context) ([]common.Address, error)
	GetWalletsForOwner(ctx context.Context, owner common.Address) ([]common.Address, error)

	// GetWalletSnapshot reads the wallet header, every transaction and every
	// confirmation set in batched round trips.
	GetWalletSnapshot(ctx context.Context, wallet common.Address) (*entities.WalletSnapshot, error)
}

// SnapshotInvalidator drops cached chain state so the next read hits the chain.
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, wallet common.Address) error
}
