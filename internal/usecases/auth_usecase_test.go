package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/usecases"
	"multisig-hub.backend/pkg/jwt"
)

type recordingObserver struct {
	seen chan common.Address
}

func (o *recordingObserver) Ensure(_ context.Context, owner common.Address) error {
	o.seen <- owner
	return nil
}

func (o *recordingObserver) next(t *testing.T) common.Address {
	t.Helper()
	select {
	case owner := <-o.seen:
		return owner
	case <-time.After(time.Second):
		t.Fatal("observer was not notified")
		return common.Address{}
	}
}

func signLogin(t *testing.T, message string) (common.Address, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return crypto.PubkeyToAddress(key.PublicKey), hexutil.Encode(sig)
}

func TestAuthUsecase_IssueNonce(t *testing.T) {
	nonces := new(MockNonceStore)
	uc := usecases.NewAuthUsecase(nonces, jwt.NewJWTService("secret", time.Minute, time.Hour), nil, time.Minute)

	nonces.On("Put", mock.Anything, ownerA.Hex(), mock.AnythingOfType("string"), time.Minute).Return(nil).Once()
	challenge, err := uc.IssueNonce(context.Background(), &entities.NonceInput{Address: ownerA.Hex()})
	require.NoError(t, err)
	assert.NotEmpty(t, challenge.Nonce)
	assert.Equal(t, usecases.LoginMessage(ownerA, challenge.Nonce), challenge.Message)

	_, err = uc.IssueNonce(context.Background(), &entities.NonceInput{Address: "0x123"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	nonces.AssertExpectations(t)
}

func TestAuthUsecase_VerifyAndRefresh(t *testing.T) {
	nonces := new(MockNonceStore)
	observer := &recordingObserver{seen: make(chan common.Address, 4)}
	jwtSvc := jwt.NewJWTService("secret", time.Minute, time.Hour)
	uc := usecases.NewAuthUsecase(nonces, jwtSvc, observer, time.Minute)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey)
	sig, err := crypto.Sign(accounts.TextHash([]byte(usecases.LoginMessage(address, "nonce-1"))), key)
	require.NoError(t, err)

	nonces.On("Consume", mock.Anything, address.Hex()).Return("nonce-1", nil).Once()
	pair, owner, err := uc.Verify(context.Background(), &entities.VerifySignatureInput{Address: address.Hex(), Signature: hexutil.Encode(sig)})
	require.NoError(t, err)
	assert.Equal(t, address, owner)

	claims, err := jwtSvc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, address, claims.OwnerAddress())

	assert.Equal(t, address, observer.next(t))

	refreshed, err := uc.Refresh(context.Background(), &entities.RefreshTokenInput{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	// a session refresh keeps the owner's bridge alive
	assert.Equal(t, address, observer.next(t))

	_, err = uc.Refresh(context.Background(), &entities.RefreshTokenInput{RefreshToken: pair.AccessToken})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthUsecase_VerifyRejectsWrongSigner(t *testing.T) {
	nonces := new(MockNonceStore)
	uc := usecases.NewAuthUsecase(nonces, jwt.NewJWTService("secret", time.Minute, time.Hour), nil, 0)

	_, sig := signLogin(t, usecases.LoginMessage(ownerA, "nonce-2"))
	nonces.On("Consume", mock.Anything, ownerA.Hex()).Return("nonce-2", nil).Once()

	_, _, err := uc.Verify(context.Background(), &entities.VerifySignatureInput{Address: ownerA.Hex(), Signature: sig})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthUsecase_VerifyWithoutNonce(t *testing.T) {
	nonces := new(MockNonceStore)
	uc := usecases.NewAuthUsecase(nonces, jwt.NewJWTService("secret", time.Minute, time.Hour), nil, 0)

	address, sig := signLogin(t, "anything")
	nonces.On("Consume", mock.Anything, address.Hex()).Return("", errors.New("nonce not found")).Once()

	_, _, err := uc.Verify(context.Background(), &entities.VerifySignatureInput{Address: address.Hex(), Signature: sig})
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestAuthUsecase_VerifyValidatesInput(t *testing.T) {
	uc := usecases.NewAuthUsecase(new(MockNonceStore), jwt.NewJWTService("secret", time.Minute, time.Hour), nil, 0)

	_, _, err := uc.Verify(context.Background(), &entities.VerifySignatureInput{Address: ownerA.Hex(), Signature: "0x1234"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidInput)
}

func TestRecoverSigner(t *testing.T) {
	address, sig := signLogin(t, "hello")

	got, err := usecases.RecoverSigner("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, address, got)

	other, err := usecases.RecoverSigner("goodbye", sig)
	require.NoError(t, err)
	assert.NotEqual(t, address, other)

	_, err = usecases.RecoverSigner("hello", "0x00")
	assert.Error(t, err)
	_, err = usecases.RecoverSigner("hello", "zz")
	assert.Error(t, err)
}
