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

type walletService interface {
	ListWallets(ctx context.Context, owner common.Address) ([]*entities.WalletSummary, error)
	GetWallet(ctx context.Context, owner, wallet common.Address) (*entities.WalletView, error)
	GetTransaction(ctx context.Context, owner, wallet common.Address, txID uint64) (*entities.TransactionView, error)
	Rename(ctx context.Context, owner, wallet common.Address, input *entities.RenameWalletInput) (*entities.TrackedWallet, error)
	Refresh(ctx context.Context, owner, wallet common.Address) (*entities.WalletView, error)
}

// WalletHandler serves wallet reads for the authenticated owner
type WalletHandler struct {
	walletUsecase walletService
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletUsecase *usecases.WalletUsecase) *WalletHandler {
	return &WalletHandler{walletUsecase: walletUsecase}
}

// ListWallets lists the wallets the owner belongs to
// GET /api/v1/wallets
func (h *WalletHandler) ListWallets(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}

	wallets, err := h.walletUsecase.ListWallets(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	if wallets == nil {
		wallets = []*entities.WalletSummary{}
	}
	response.Success(c, http.StatusOK, gin.H{"wallets": wallets})
}

// GetWallet returns the wallet with its interpreted transactions
// GET /api/v1/wallets/:address
func (h *WalletHandler) GetWallet(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	wallet, ok := walletParam(c)
	if !ok {
		return
	}

	view, err := h.walletUsecase.GetWallet(c.Request.Context(), owner, wallet)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// GetTransaction returns one transaction with the owner's confirm verdict
// GET /api/v1/wallets/:address/transactions/:txId
func (h *WalletHandler) GetTransaction(c *gin.Context) {
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

	view, err := h.walletUsecase.GetTransaction(c.Request.Context(), owner, wallet, txID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Rename sets the display name of a wallet
// PATCH /api/v1/wallets/:address
func (h *WalletHandler) Rename(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	var input entities.RenameWalletInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	tracked, err := h.walletUsecase.Rename(c.Request.Context(), owner, wallet, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"wallet": tracked})
}

// Refresh drops cached state and re-reads the wallet from chain
// POST /api/v1/wallets/:address/refresh
func (h *WalletHandler) Refresh(c *gin.Context) {
	owner, ok := requireOwner(c)
	if !ok {
		return
	}
	wallet, ok := walletParam(c)
	if !ok {
		return
	}

	view, err := h.walletUsecase.Refresh(c.Request.Context(), owner, wallet)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}
