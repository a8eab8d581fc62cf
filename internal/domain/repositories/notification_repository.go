package repositories

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/pkg/utils"
)

// NotificationRepository persists notifications per recipient
type NotificationRepository interface {
	// Create stores n unless a notification with the same recipient and event key exists.
	// It reports whether a row was written.
	Create(ctx context.Context, n *entities.Notification) (bool, error)
	// ListByRecipient returns one page, newest first, and the total matching count.
	ListByRecipient(ctx context.Context, recipient common.Address, unreadOnly bool, page utils.PaginationParams) ([]*entities.Notification, int64, error)
	MarkRead(ctx context.Context, recipient common.Address, id uuid.UUID) error
}
