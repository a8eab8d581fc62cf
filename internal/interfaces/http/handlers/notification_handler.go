package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/interfaces/http/response"
	"multisig-hub.backend/internal/usecases"
	"multisig-hub.backend/pkg/utils"
)

type notificationService interface {
	List(ctx context.Context, owner common.Address, unreadOnly bool, page utils.PaginationParams) (*utils.Page[*entities.Notification], error)
	MarkRead(ctx context.Context, owner common.Address, id uuid.UUID) error
}

// NotificationHandler serves the owner's notification feed
type NotificationHandler struct {
	notificationUsecase notificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationUsecase *usecases.NotificationUsecase) *NotificationHandler {
	return &NotificationHandler{notificationUsecase: notificationUsecase}
}

// List returns a page of notifications
// GET /api/v1/notifications?page=1&limit=20&unread=true
func (h *NotificationHandler) List(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	var params utils.PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid pagination parameters"))
		return
	}
	unreadOnly := false
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, domainerrors.InvalidInput(map[string]string{"unread": "must be a boolean"}, err))
			return
		}
		unreadOnly = v
	}

	page, err := h.notificationUsecase.List(c.Request.Context(), owner, unreadOnly, utils.GetPaginationParams(params.Page, params.Limit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// MarkRead flags a notification as read
// POST /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid notification ID"))
		return
	}

	if err := h.notificationUsecase.MarkRead(c.Request.Context(), owner, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}
