package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
)

// TrackedWalletRepository stores the wallets the service follows and their display names
type TrackedWalletRepository interface {
	Upsert(ctx context.Context, wallet *entities.TrackedWallet) error
	GetByAddress(ctx context.Context, address common.Address) (*entities.TrackedWallet, error)
	ListByOwner(ctx context.Context, owner common.Address) ([]*entities.TrackedWallet, error)
	ListAll(ctx context.Context) ([]*entities.TrackedWallet, error)
	SetDisplayName(ctx context.Context, address common.Address, name string) error
}
