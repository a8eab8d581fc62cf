package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/pkg/jwt"
	"multisig-hub.backend/pkg/logger"
)

const (
	defaultNonceTTL = 5 * time.Minute
	loginStatement  = "Sign in to Multisig Hub"
)

// LoginObserver is told about every successful login and session refresh.
type LoginObserver interface {
	Ensure(ctx context.Context, owner common.Address) error
}

// AuthUsecase authenticates owners by a signed one-time challenge
type AuthUsecase struct {
	nonces     repositories.NonceStore
	jwtService *jwt.JWTService
	observer   LoginObserver
	nonceTTL   time.Duration
	now        func() time.Time
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(nonces repositories.NonceStore, jwtService *jwt.JWTService, observer LoginObserver, nonceTTL time.Duration) *AuthUsecase {
	if nonceTTL <= 0 {
		nonceTTL = defaultNonceTTL
	}
	return &AuthUsecase{
		nonces:     nonces,
		jwtService: jwtService,
		observer:   observer,
		nonceTTL:   nonceTTL,
		now:        time.Now,
	}
}

// LoginMessage is the exact text an owner signs with personal_sign.
func LoginMessage(address common.Address, nonce string) string {
	return fmt.Sprintf("%s\n\nAddress: %s\nNonce: %s", loginStatement, address.Hex(), nonce)
}

// IssueNonce creates a challenge for address, replacing any pending one.
func (u *AuthUsecase) IssueNonce(ctx context.Context, input *entities.NonceInput) (*entities.AuthChallenge, error) {
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	address := common.HexToAddress(input.Address)
	nonce := uuid.NewString()

	if err := u.nonces.Put(ctx, address.Hex(), nonce, u.nonceTTL); err != nil {
		return nil, fmt.Errorf("store nonce: %w", err)
	}
	return &entities.AuthChallenge{
		Address:   address.Hex(),
		Nonce:     nonce,
		Message:   LoginMessage(address, nonce),
		ExpiresAt: u.now().Add(u.nonceTTL),
	}, nil
}

// Verify checks the signature over the pending challenge and issues tokens.
func (u *AuthUsecase) Verify(ctx context.Context, input *entities.VerifySignatureInput) (*jwt.TokenPair, common.Address, error) {
	if err := input.Validate(); err != nil {
		return nil, common.Address{}, invalidInput(err)
	}
	address := common.HexToAddress(input.Address)

	nonce, err := u.nonces.Consume(ctx, address.Hex())
	if err != nil {
		logger.Warn(ctx, "login without pending nonce", zap.String("address", address.Hex()), zap.Error(err))
		return nil, common.Address{}, domainerrors.ErrUnauthorized
	}

	signer, err := RecoverSigner(LoginMessage(address, nonce), input.Signature)
	if err != nil || signer != address {
		return nil, common.Address{}, domainerrors.ErrUnauthorized
	}

	pair, err := u.jwtService.GenerateTokenPair(address)
	if err != nil {
		return nil, common.Address{}, err
	}

	u.observe(address)

	logger.Info(ctx, "owner logged in", zap.String("owner", address.Hex()))
	return pair, address, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (u *AuthUsecase) Refresh(ctx context.Context, input *entities.RefreshTokenInput) (*jwt.TokenPair, error) {
	if err := input.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	claims, err := u.jwtService.ValidateToken(input.RefreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, domainerrors.ErrTokenExpired
		}
		return nil, domainerrors.ErrUnauthorized
	}
	if claims.TokenType != jwt.TokenTypeRefresh {
		return nil, domainerrors.ErrUnauthorized
	}
	owner := claims.OwnerAddress()
	pair, err := u.jwtService.GenerateTokenPair(owner)
	if err != nil {
		return nil, err
	}
	u.observe(owner)
	return pair, nil
}

// observe tells the observer the owner is active, off the request path.
func (u *AuthUsecase) observe(owner common.Address) {
	if u.observer == nil {
		return
	}
	go func() {
		bg := logger.WithOwner(context.Background(), owner.Hex())
		if err := u.observer.Ensure(bg, owner); err != nil {
			logger.Warn(bg, "event bridge not started", zap.Error(err))
		}
	}()
}

// RecoverSigner returns the address that produced an EIP-191 personal_sign
// signature over message. Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
