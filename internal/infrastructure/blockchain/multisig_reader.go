package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/infrastructure/metrics"
)

// MultisigReader reads factory, wallet and token state over JSON-RPC.
type MultisigReader struct {
	client  *EVMClient
	factory common.Address
	now     func() time.Time
}

// NewMultisigReader creates a reader for wallets deployed by factory
func NewMultisigReader(client *EVMClient, factory common.Address) *MultisigReader {
	return &MultisigReader{client: client, factory: factory, now: time.Now}
}

func (r *MultisigReader) GetOwners(ctx context.Context, wallet common.Address) ([]common.Address, error) {
	data, err := r.call(ctx, wallet, walletABI, "getOwners")
	if err != nil {
		return nil, err
	}
	return decode[[]common.Address](walletABI, "getOwners", data)
}

func (r *MultisigReader) GetRequired(ctx context.Context, wallet common.Address) (uint64, error) {
	data, err := r.call(ctx, wallet, walletABI, "required")
	if err != nil {
		return 0, err
	}
	return decodeUint64(walletABI, "required", data)
}

func (r *MultisigReader) GetTransactionCount(ctx context.Context, wallet common.Address) (uint64, error) {
	data, err := r.call(ctx, wallet, walletABI, "transactionCount")
	if err != nil {
		return 0, err
	}
	return decodeUint64(walletABI, "transactionCount", data)
}

func (r *MultisigReader) GetTransaction(ctx context.Context, wallet common.Address, txID uint64) (*entities.TransactionRecord, error) {
	data, err := r.call(ctx, wallet, walletABI, "transactions", new(big.Int).SetUint64(txID))
	if err != nil {
		return nil, err
	}
	rec, err := decodeTransaction(txID, data)
	if err != nil {
		return nil, unavailable("transactions", err)
	}
	return rec, nil
}

func (r *MultisigReader) HasConfirmed(ctx context.Context, wallet common.Address, txID uint64, owner common.Address) (bool, error) {
	data, err := r.call(ctx, wallet, walletABI, "confirmations", new(big.Int).SetUint64(txID), owner)
	if err != nil {
		return false, err
	}
	return decode[bool](walletABI, "confirmations", data)
}

func (r *MultisigReader) GetConfirmers(ctx context.Context, wallet common.Address, txID uint64) ([]common.Address, error) {
	data, err := r.call(ctx, wallet, walletABI, "getConfirmations", new(big.Int).SetUint64(txID))
	if err != nil {
		return nil, err
	}
	return decode[[]common.Address](walletABI, "getConfirmations", data)
}

func (r *MultisigReader) GetDeployedWallets(ctx context.Context) ([]common.Address, error) {
	data, err := r.call(ctx, r.factory, factoryABI, "getDeployedWallets")
	if err != nil {
		return nil, err
	}
	return decode[[]common.Address](factoryABI, "getDeployedWallets", data)
}

func (r *MultisigReader) GetWalletsForOwner(ctx context.Context, owner common.Address) ([]common.Address, error) {
	data, err := r.call(ctx, r.factory, factoryABI, "getWalletsForOwner", owner)
	if err != nil {
		return nil, err
	}
	return decode[[]common.Address](factoryABI, "getWalletsForOwner", data)
}

// GetTokenMetadata reads symbol and decimals in one batch.
func (r *MultisigReader) GetTokenMetadata(ctx context.Context, token common.Address) (*entities.TokenMetadata, error) {
	calls, err := viewCalls(
		packed{token, erc20ABI, "symbol", nil},
		packed{token, erc20ABI, "decimals", nil},
	)
	if err != nil {
		return nil, err
	}
	if err := r.batch(ctx, "token", calls); err != nil {
		return nil, err
	}

	symbol, err := decode[string](erc20ABI, "symbol", calls[0].Result)
	if err != nil {
		return nil, err
	}
	decimals, err := decode[uint8](erc20ABI, "decimals", calls[1].Result)
	if err != nil {
		return nil, err
	}
	return &entities.TokenMetadata{Address: token, Symbol: symbol, Decimals: decimals}, nil
}

// GetWalletSnapshot reads the header in one batch, then every transaction
// and its confirmers in a second one.
func (r *MultisigReader) GetWalletSnapshot(ctx context.Context, wallet common.Address) (*entities.WalletSnapshot, error) {
	header, err := viewCalls(
		packed{wallet, walletABI, "getOwners", nil},
		packed{wallet, walletABI, "required", nil},
		packed{wallet, walletABI, "transactionCount", nil},
	)
	if err != nil {
		return nil, err
	}
	if err := r.batch(ctx, "header", header); err != nil {
		return nil, err
	}

	owners, err := decode[[]common.Address](walletABI, "getOwners", header[0].Result)
	if err != nil {
		return nil, err
	}
	required, err := decodeUint64(walletABI, "required", header[1].Result)
	if err != nil {
		return nil, err
	}
	count, err := decodeUint64(walletABI, "transactionCount", header[2].Result)
	if err != nil {
		return nil, err
	}

	snap := &entities.WalletSnapshot{
		Wallet: entities.MultisigWallet{
			Address:          wallet,
			Owners:           owners,
			Required:         required,
			TransactionCount: count,
		},
		Transactions: make([]entities.WalletTransaction, 0, count),
	}

	if count > 0 {
		specs := make([]packed, 0, 2*count)
		for id := uint64(0); id < count; id++ {
			arg := []interface{}{new(big.Int).SetUint64(id)}
			specs = append(specs,
				packed{wallet, walletABI, "transactions", arg},
				packed{wallet, walletABI, "getConfirmations", arg},
			)
		}
		calls, err := viewCalls(specs...)
		if err != nil {
			return nil, err
		}
		if err := r.batch(ctx, "transactions", calls); err != nil {
			return nil, err
		}

		for id := uint64(0); id < count; id++ {
			rec, err := decodeTransaction(id, calls[2*id].Result)
			if err != nil {
				return nil, unavailable("transactions", err)
			}
			confirmers, err := decode[[]common.Address](walletABI, "getConfirmations", calls[2*id+1].Result)
			if err != nil {
				return nil, err
			}
			snap.Transactions = append(snap.Transactions, entities.WalletTransaction{
				Record:        *rec,
				Confirmations: entities.ConfirmationSet(confirmers),
			})
		}
	}

	snap.FetchedAt = r.now()
	return snap, nil
}

func (r *MultisigReader) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]byte, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := r.client.CallView(ctx, to, input)
	if err != nil {
		return nil, unavailable(method, err)
	}
	return out, nil
}

// batch fails as a whole if any single call failed; a snapshot is never
// assembled from a partial read.
func (r *MultisigReader) batch(ctx context.Context, stage string, calls []*ViewCall) error {
	start := time.Now()
	err := r.client.BatchCallView(ctx, calls)
	metrics.ChainBatchDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		return unavailable(stage, err)
	}
	for _, c := range calls {
		if c.Err != nil {
			return unavailable(stage, c.Err)
		}
	}
	return nil
}

type packed struct {
	to     common.Address
	abi    abi.ABI
	method string
	args   []interface{}
}

func viewCalls(specs ...packed) ([]*ViewCall, error) {
	calls := make([]*ViewCall, len(specs))
	for i, s := range specs {
		input, err := s.abi.Pack(s.method, s.args...)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", s.method, err)
		}
		calls[i] = &ViewCall{To: s.to, Data: input}
	}
	return calls, nil
}

func decode[T any](contract abi.ABI, method string, data []byte) (T, error) {
	var zero T
	out, err := contract.Unpack(method, data)
	if err != nil {
		return zero, unavailable(method, err)
	}
	if len(out) != 1 {
		return zero, unavailable(method, fmt.Errorf("expected 1 output, got %d", len(out)))
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, unavailable(method, fmt.Errorf("unexpected output type %T", out[0]))
	}
	return v, nil
}

func decodeUint64(contract abi.ABI, method string, data []byte) (uint64, error) {
	v, err := decode[*big.Int](contract, method, data)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, unavailable(method, fmt.Errorf("value %s overflows uint64", v))
	}
	return v.Uint64(), nil
}

func decodeTransaction(id uint64, data []byte) (*entities.TransactionRecord, error) {
	out, err := walletABI.Unpack("transactions", data)
	if err != nil {
		return nil, err
	}
	if len(out) != 6 {
		return nil, fmt.Errorf("expected 6 outputs, got %d", len(out))
	}
	kind, ok1 := out[0].(uint8)
	dest, ok2 := out[1].(common.Address)
	value, ok3 := out[2].(*big.Int)
	token, ok4 := out[3].(common.Address)
	payload, ok5 := out[4].([]byte)
	executed, ok6 := out[5].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, fmt.Errorf("unexpected transaction tuple %T", out)
	}
	return &entities.TransactionRecord{
		ID:          id,
		Kind:        entities.TransactionKind(kind),
		Destination: dest,
		Value:       value,
		Token:       token,
		Data:        payload,
		Executed:    executed,
	}, nil
}

func unavailable(method string, err error) error {
	metrics.ChainReadErrors.WithLabelValues(method).Inc()
	return fmt.Errorf("%w: %s: %w", domainerrors.ErrDataUnavailable, method, err)
}
