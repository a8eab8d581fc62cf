package handlers

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/interfaces/http/response"
	"multisig-hub.backend/internal/usecases"
)

type actionService interface {
	CreateWallet(ctx context.Context, owner common.Address, input *entities.CreateWalletInput) (*entities.ActionResult, error)
	Submit(ctx context.Context, owner, wallet common.Address, input *entities.SubmitTransactionInput) (*entities.ActionResult, error)
	Confirm(ctx context.Context, owner, wallet common.Address, txID uint64) (*entities.ActionResult, error)
	Execute(ctx context.Context, owner, wallet common.Address, txID uint64) (*entities.ActionResult, error)
}

// ActionHandler broadcasts owner actions. Every action answers 202: the
// receipt is settled in the background and reflected by later reads.
type ActionHandler struct {
	actionUsecase actionService
}

// NewActionHandler creates a new action handler
func NewActionHandler(actionUsecase *usecases.ActionUsecase) *ActionHandler {
	return &ActionHandler{actionUsecase: actionUsecase}
}

// CreateWallet deploys a wallet through the factory
// POST /api/v1/wallets
func (h *ActionHandler) CreateWallet(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	var input entities.CreateWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	result, err := h.actionUsecase.CreateWallet(c.Request.Context(), owner, &input)
	h.respond(c, result, err)
}

// Submit proposes a transaction
// POST /api/v1/wallets/:address/transactions
func (h *ActionHandler) Submit(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	var input entities.SubmitTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	result, err := h.actionUsecase.Submit(c.Request.Context(), owner, wallet, &input)
	h.respond(c, result, err)
}

// Confirm adds the owner's confirmation
// POST /api/v1/wallets/:address/transactions/:txId/confirm
func (h *ActionHandler) Confirm(c *gin.Context) {
	h.onTransaction(c, h.actionUsecase.Confirm)
}

// Execute runs a transaction that already reached quorum
// POST /api/v1/wallets/:address/transactions/:txId/execute
func (h *ActionHandler) Execute(c *gin.Context) {
	h.onTransaction(c, h.actionUsecase.Execute)
}

func (h *ActionHandler) onTransaction(c *gin.Context, act func(context.Context, common.Address, common.Address, uint64) (*entities.ActionResult, error)) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	txID, ok := txIDParam(c)
	if !ok {
		return
	}

	result, err := act(c.Request.Context(), owner, wallet, txID)
	h.respond(c, result, err)
}

func (h *ActionHandler) respond(c *gin.Context, result *entities.ActionResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, result)
}
