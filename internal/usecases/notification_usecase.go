package usecases

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/pkg/utils"
)

const defaultNotificationPage = 20

// NotificationUsecase serves an owner's notification feed
type NotificationUsecase struct {
	notifications repositories.NotificationRepository
}

// NewNotificationUsecase creates a new notification usecase
func NewNotificationUsecase(notifications repositories.NotificationRepository) *NotificationUsecase {
	return &NotificationUsecase{notifications: notifications}
}

// List returns one page of owner's notifications, newest first.
func (u *NotificationUsecase) List(ctx context.Context, owner common.Address, unreadOnly bool, page utils.PaginationParams) (*utils.Page[*entities.Notification], error) {
	if page.Limit <= 0 {
		page.Limit = defaultNotificationPage
	}
	items, total, err := u.notifications.ListByRecipient(ctx, owner, unreadOnly, page)
	if err != nil {
		return nil, err
	}
	out := utils.NewPage(items, total, page)
	return &out, nil
}

// MarkRead flags one notification of owner as read.
func (u *NotificationUsecase) MarkRead(ctx context.Context, owner common.Address, id uuid.UUID) error {
	return u.notifications.MarkRead(ctx, owner, id)
}
