package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/pkg/jwt"
)

type authServiceStub struct {
	issueNonce func(ctx context.Context, input *entities.NonceInput) (*entities.AuthChallenge, error)
	verify     func(ctx context.Context, input *entities.VerifySignatureInput) (*jwt.TokenPair, common.Address, error)
	refresh    func(ctx context.Context, input *entities.RefreshTokenInput) (*jwt.TokenPair, error)
}

func (s *authServiceStub) IssueNonce(ctx context.Context, input *entities.NonceInput) (*entities.AuthChallenge, error) {
	return s.issueNonce(ctx, input)
}

func (s *authServiceStub) Verify(ctx context.Context, input *entities.VerifySignatureInput) (*jwt.TokenPair, common.Address, error) {
	return s.verify(ctx, input)
}

func (s *authServiceStub) Refresh(ctx context.Context, input *entities.RefreshTokenInput) (*jwt.TokenPair, error) {
	return s.refresh(ctx, input)
}

func newAuthHandler(stub *authServiceStub) *AuthHandler {
	return &AuthHandler{authUsecase: stub}
}

func TestAuthHandler_IssueNonce(t *testing.T) {
	h := newAuthHandler(&authServiceStub{
		issueNonce: func(_ context.Context, input *entities.NonceInput) (*entities.AuthChallenge, error) {
			if input.Address == "bad" {
				return nil, domainerrors.InvalidInput(map[string]string{"address": "must be a valid address"}, nil)
			}
			return &entities.AuthChallenge{Address: input.Address, Nonce: "n-1", Message: "sign me"}, nil
		},
	})
	r := newRouter(nil)
	r.POST("/auth/nonce", h.IssueNonce)

	rec := doRequest(r, http.MethodPost, "/auth/nonce", map[string]string{"address": testOwner.Hex()})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "n-1", body["nonce"])
	assert.Equal(t, "sign me", body["message"])

	rec = doRequest(r, http.MethodPost, "/auth/nonce", map[string]string{"address": "bad"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domainerrors.CodeInvalidInput, decodeBody(t, rec)["code"])

	rec = doRequest(r, http.MethodPost, "/auth/nonce", "{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Verify(t *testing.T) {
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := newAuthHandler(&authServiceStub{
		verify: func(_ context.Context, input *entities.VerifySignatureInput) (*jwt.TokenPair, common.Address, error) {
			if input.Signature == "wrong" {
				return nil, common.Address{}, fmt.Errorf("%w: signature mismatch", domainerrors.ErrUnauthorized)
			}
			return &jwt.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresAt: expires}, testOwner, nil
		},
	})
	r := newRouter(nil)
	r.POST("/auth/verify", h.Verify)

	rec := doRequest(r, http.MethodPost, "/auth/verify", map[string]string{"address": testOwner.Hex(), "signature": "0x01"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, testOwner.Hex(), body["owner"])
	assert.Equal(t, "a", body["accessToken"])
	assert.Equal(t, "r", body["refreshToken"])

	rec = doRequest(r, http.MethodPost, "/auth/verify", map[string]string{"address": testOwner.Hex(), "signature": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(r, http.MethodPost, "/auth/verify", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Refresh(t *testing.T) {
	h := newAuthHandler(&authServiceStub{
		refresh: func(_ context.Context, input *entities.RefreshTokenInput) (*jwt.TokenPair, error) {
			if input.RefreshToken == "expired" {
				return nil, domainerrors.ErrTokenExpired
			}
			return &jwt.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	})
	r := newRouter(nil)
	r.POST("/auth/refresh", h.Refresh)

	rec := doRequest(r, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "ok"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a2", decodeBody(t, rec)["accessToken"])

	rec = doRequest(r, http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": "expired"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(r, http.MethodPost, "/auth/refresh", "[")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
