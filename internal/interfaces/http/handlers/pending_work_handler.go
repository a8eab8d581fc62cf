package handlers

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"multisig-hub.backend/internal/domain/entities"
	"multisig-hub.backend/internal/interfaces/http/response"
	"multisig-hub.backend/internal/usecases"
)

type pendingWorkService interface {
	Collect(ctx context.Context, owner common.Address) (*entities.PendingWorkReport, error)
}

// PendingWorkHandler lists transactions waiting on the owner
type PendingWorkHandler struct {
	pendingUsecase pendingWorkService
}

// NewPendingWorkHandler creates a new pending work handler
func NewPendingWorkHandler(pendingUsecase *usecases.PendingWorkUsecase) *PendingWorkHandler {
	return &PendingWorkHandler{pendingUsecase: pendingUsecase}
}

// Collect aggregates pending work across every wallet of the owner
// GET /api/v1/pending-work
func (h *PendingWorkHandler) Collect(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	report, err := h.pendingUsecase.Collect(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, report)
}
