package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/infrastructure/models"
)

// TrackedWalletRepository implements tracked wallet persistence
type TrackedWalletRepository struct {
	db *gorm.DB
}

// NewTrackedWalletRepository creates a new tracked wallet repository
func NewTrackedWalletRepository(db *gorm.DB) *TrackedWalletRepository {
	return &TrackedWalletRepository{db: db}
}

// Upsert records wallet and its owners. An existing display name is kept.
func (r *TrackedWalletRepository) Upsert(ctx context.Context, wallet *entities.TrackedWallet) error {
	m := r.toModel(wallet)
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"owners", "creator", "updated_at"}),
		}).Create(m).Error; err != nil {
			return err
		}

		if err := tx.Where("wallet_address = ?", m.Address).Delete(&models.TrackedWalletOwner{}).Error; err != nil {
			return err
		}
		links := make([]models.TrackedWalletOwner, 0, len(m.Owners))
		seen := make(map[string]struct{}, len(m.Owners))
		for _, o := range m.Owners {
			if _, dup := seen[o]; dup {
				continue
			}
			seen[o] = struct{}{}
			links = append(links, models.TrackedWalletOwner{WalletAddress: m.Address, Owner: o})
		}
		if len(links) == 0 {
			return nil
		}
		return tx.Create(&links).Error
	})
}

func (r *TrackedWalletRepository) GetByAddress(ctx context.Context, address common.Address) (*entities.TrackedWallet, error) {
	var m models.TrackedWallet
	if err := r.db.WithContext(ctx).Where("address = ?", address.Hex()).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListByOwner returns the wallets owner belongs to, newest first.
func (r *TrackedWalletRepository) ListByOwner(ctx context.Context, owner common.Address) ([]*entities.TrackedWallet, error) {
	var ms []models.TrackedWallet
	if err := r.db.WithContext(ctx).
		Joins("JOIN tracked_wallet_owners ON tracked_wallet_owners.wallet_address = tracked_wallets.address").
		Where("tracked_wallet_owners.owner = ?", owner.Hex()).
		Order("tracked_wallets.created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *TrackedWalletRepository) ListAll(ctx context.Context) ([]*entities.TrackedWallet, error) {
	var ms []models.TrackedWallet
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.toEntities(ms), nil
}

func (r *TrackedWalletRepository) SetDisplayName(ctx context.Context, address common.Address, name string) error {
	result := r.db.WithContext(ctx).
		Model(&models.TrackedWallet{}).
		Where("address = ?", address.Hex()).
		Updates(map[string]interface{}{
			"display_name": null.StringFrom(name),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *TrackedWalletRepository) toModel(w *entities.TrackedWallet) *models.TrackedWallet {
	owners := make(pq.StringArray, 0, len(w.Owners))
	for _, o := range w.Owners {
		owners = append(owners, o.Hex())
	}
	return &models.TrackedWallet{
		Address:     w.Address.Hex(),
		Owners:      owners,
		Creator:     w.Creator.Hex(),
		DisplayName: w.DisplayName,
	}
}

func (r *TrackedWalletRepository) toEntity(m *models.TrackedWallet) *entities.TrackedWallet {
	owners := make([]common.Address, 0, len(m.Owners))
	for _, o := range m.Owners {
		owners = append(owners, common.HexToAddress(o))
	}
	return &entities.TrackedWallet{
		Address:     common.HexToAddress(m.Address),
		Owners:      owners,
		Creator:     common.HexToAddress(m.Creator),
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r *TrackedWalletRepository) toEntities(ms []models.TrackedWallet) []*entities.TrackedWallet {
	items := make([]*entities.TrackedWallet, 0, len(ms))
	for i := range ms {
		items = append(items, r.toEntity(&ms[i]))
	}
	return items
}
