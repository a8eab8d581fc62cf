package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/pkg/logger"
)

const (
	defaultReceiptPoll = 2 * time.Second
	gasBufferPercent   = 120
)

// Transactor signs wallet actions with the operator key and sends them as
// EIP-1559 transactions.
type Transactor struct {
	client       *EVMClient
	factory      common.Address
	key          *ecdsa.PrivateKey
	from         common.Address
	pollInterval time.Duration
	now          func() time.Time

	// serializes nonce selection
	mu sync.Mutex
}

// NewTransactor creates a transactor. An empty hexKey yields a read-only
// transactor whose Signer reports false.
func NewTransactor(client *EVMClient, factory common.Address, hexKey string, pollInterval time.Duration) (*Transactor, error) {
	if pollInterval <= 0 {
		pollInterval = defaultReceiptPoll
	}
	t := &Transactor{
		client:       client,
		factory:      factory,
		pollInterval: pollInterval,
		now:          time.Now,
	}
	if hexKey == "" {
		return t, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	t.key = key
	t.from = crypto.PubkeyToAddress(key.PublicKey)
	return t, nil
}

func (t *Transactor) Signer() (common.Address, bool) {
	return t.from, t.key != nil
}

// RequestAction estimates, signs and broadcasts req. A revert during gas
// estimation is reported with its decoded reason and nothing is sent.
func (t *Transactor) RequestAction(ctx context.Context, req entities.ActionRequest) (*entities.ReceiptHandle, error) {
	if t.key == nil {
		return nil, domainerrors.ErrSignerUnavailable
	}
	to, data, err := t.encode(req)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	gas, err := t.client.EstimateGas(ctx, ethereum.CallMsg{From: t.from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrExternalActionFailure, describeRevert(err))
	}
	nonce, err := t.client.PendingNonceAt(ctx, t.from)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %w", domainerrors.ErrExternalActionFailure, err)
	}
	tip, err := t.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: tip: %w", domainerrors.ErrExternalActionFailure, err)
	}
	baseFee, err := t.client.LatestBaseFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: base fee: %w", domainerrors.ErrExternalActionFailure, err)
	}
	if baseFee == nil {
		baseFee = new(big.Int)
	}

	chainID := t.client.ChainID()
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2))),
		Gas:       gas * gasBufferPercent / 100,
		To:        &to,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), t.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrExternalActionFailure, describeRevert(err))
	}

	handle := &entities.ReceiptHandle{
		TxHash:      signed.Hash(),
		Kind:        req.Kind,
		Wallet:      req.Wallet,
		SubmittedAt: t.now(),
	}
	if req.Kind == entities.ActionConfirm || req.Kind == entities.ActionExecute {
		id := req.TxID
		handle.TxID = &id
	}
	return handle, nil
}

// WaitReceipt polls until the transaction is mined or ctx ends.
func (t *Transactor) WaitReceipt(ctx context.Context, handle entities.ReceiptHandle) (*entities.ActionOutcome, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.client.GetTransactionReceipt(ctx, handle.TxHash)
		switch {
		case err == nil:
			return t.outcome(ctx, handle, receipt), nil
		case errors.Is(err, ethereum.NotFound):
		default:
			logger.Warn(ctx, "receipt lookup failed", zap.String("tx_hash", handle.TxHash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Transactor) outcome(ctx context.Context, handle entities.ReceiptHandle, receipt *types.Receipt) *entities.ActionOutcome {
	out := &entities.ActionOutcome{
		Handle:  handle,
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if !out.Success {
		out.Reason = t.revertReason(ctx, handle, receipt)
		return out
	}

	for _, l := range receipt.Logs {
		if l == nil {
			continue
		}
		ev, ok := decodeLog(t.factory, *l)
		if !ok {
			continue
		}
		switch {
		case handle.Kind == entities.ActionCreateWallet && ev.Type == entities.EventWalletCreated:
			out.Handle.Wallet = ev.WalletAddress
		case handle.Kind == entities.ActionSubmit && ev.Type == entities.EventTransactionSubmitted:
			out.Handle.TxID = ev.TxID
		}
	}
	return out
}

// revertReason replays the failed transaction on the parent block state.
func (t *Transactor) revertReason(ctx context.Context, handle entities.ReceiptHandle, receipt *types.Receipt) string {
	tx, _, err := t.client.GetTransaction(ctx, handle.TxHash)
	if err != nil || receipt.BlockNumber == nil {
		return "reverted"
	}
	block := new(big.Int).Set(receipt.BlockNumber)
	if block.Sign() > 0 {
		block.Sub(block, big.NewInt(1))
	}
	_, err = t.client.CallAt(ctx, ethereum.CallMsg{
		From:  t.from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}, block)
	if err == nil {
		if receipt.GasUsed >= tx.Gas() {
			return "out of gas"
		}
		return "reverted"
	}
	return describeRevert(err)
}

func (t *Transactor) encode(req entities.ActionRequest) (common.Address, []byte, error) {
	var (
		data []byte
		err  error
	)
	to := req.Wallet

	switch req.Kind {
	case entities.ActionCreateWallet:
		to = t.factory
		data, err = factoryABI.Pack("createWallet", req.Owners, new(big.Int).SetUint64(req.Required))
	case entities.ActionSubmit:
		if req.Submission == nil {
			return common.Address{}, nil, fmt.Errorf("%w: submission missing", domainerrors.ErrInvalidInput)
		}
		s := req.Submission
		value := s.Value
		if value == nil {
			value = new(big.Int)
		}
		payload := s.Data
		if payload == nil {
			payload = []byte{}
		}
		data, err = walletABI.Pack("submitTransaction", uint8(s.Kind), s.Destination, value, s.Token, payload)
	case entities.ActionConfirm:
		data, err = walletABI.Pack("confirmTransaction", new(big.Int).SetUint64(req.TxID))
	case entities.ActionExecute:
		data, err = walletABI.Pack("executeTransaction", new(big.Int).SetUint64(req.TxID))
	default:
		return common.Address{}, nil, fmt.Errorf("unknown action kind %q", req.Kind)
	}
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("pack %s: %w", req.Kind, err)
	}
	return to, data, nil
}
