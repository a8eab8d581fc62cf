package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/infrastructure/models"
	"multisig-hub.backend/pkg/utils"
)

const maxNotificationPage = 200

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts n once per (recipient, event key). Redelivered events are dropped.
func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = utils.GenerateUUIDv7()
	}
	m := r.toModel(n)
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recipient"}, {Name: "event_key"}},
			DoNothing: true,
		}).
		Create(m)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByRecipient returns notifications newest first. A zero limit is capped
// at maxNotificationPage.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipient common.Address, unreadOnly bool, page utils.PaginationParams) ([]*entities.Notification, int64, error) {
	page = page.Clamp(maxNotificationPage)
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient = ?", recipient.Hex())
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.Notification
	if err := query.Order("created_at DESC").
		Offset(page.CalculateOffset()).
		Limit(page.Limit).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	items := make([]*entities.Notification, 0, len(ms))
	for i := range ms {
		items = append(items, r.toEntity(&ms[i]))
	}
	return items, total, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, recipient common.Address, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND recipient = ?", id, recipient.Hex()).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *NotificationRepository) toModel(n *entities.Notification) *models.Notification {
	m := &models.Notification{
		ID:            n.ID,
		Recipient:     n.Recipient.Hex(),
		EventKey:      n.EventKey,
		Type:          string(n.Type),
		Title:         n.Title,
		Message:       n.Message,
		WalletAddress: n.WalletAddress.Hex(),
		IsRead:        n.Read,
		CreatedAt:     n.CreatedAt,
	}
	if n.TxID != nil {
		m.TxID = null.Uint64From(*n.TxID)
	}
	return m
}

func (r *NotificationRepository) toEntity(m *models.Notification) *entities.Notification {
	n := &entities.Notification{
		ID:            m.ID,
		Recipient:     common.HexToAddress(m.Recipient),
		Type:          entities.NotificationType(m.Type),
		Title:         m.Title,
		Message:       m.Message,
		WalletAddress: common.HexToAddress(m.WalletAddress),
		EventKey:      m.EventKey,
		Read:          m.IsRead,
		CreatedAt:     m.CreatedAt,
	}
	if m.TxID.Valid {
		id := m.TxID.Uint64
		n.TxID = &id
	}
	return n
}
