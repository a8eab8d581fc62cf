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
	"multisig-hub.backend/pkg/jwt"
)

type authService interface {
	IssueNonce(ctx context.Context, input *entities.NonceInput) (*entities.AuthChallenge, error)
	Verify(ctx context.Context, input *entities.VerifySignatureInput) (*jwt.TokenPair, common.Address, error)
	Refresh(ctx context.Context, input *entities.RefreshTokenInput) (*jwt.TokenPair, error)
}

// AuthHandler handles wallet-signature login
type AuthHandler struct {
	authUsecase authService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authUsecase *usecases.AuthUsecase) *AuthHandler {
	return &AuthHandler{authUsecase: authUsecase}
}

// IssueNonce returns the message the owner must sign
// POST /api/v1/auth/nonce
func (h *AuthHandler) IssueNonce(c *gin.Context) {
	var input entities.NonceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	challenge, err := h.authUsecase.IssueNonce(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, challenge)
}

// Verify exchanges a signed challenge for a token pair
// POST /api/v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var input entities.VerifySignatureInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	tokens, owner, err := h.authUsecase.Verify(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"owner":        owner.Hex(),
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
		"expiresAt":    tokens.ExpiresAt,
	})
}

// Refresh rotates the token pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var input entities.RefreshTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid request body"))
		return
	}

	tokens, err := h.authUsecase.Refresh(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tokens)
}
