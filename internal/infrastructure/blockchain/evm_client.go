package blockchain

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/infrastructure/metrics"
	"multisig-hub.backend/pkg/logger"
)

const (
	defaultBatchSize     = 100
	defaultRetryAttempts = 3
	defaultRetryDelay    = 250 * time.Millisecond
)

var dialRPC = rpc.DialContext

// RetryConfig controls how transport failures are retried
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
}

// ViewCall is one eth_call inside a batch. Result and Err are filled in per call.
type ViewCall struct {
	To     common.Address
	Data   []byte
	Result []byte
	Err    error
}

// EVMClient provides EVM blockchain interaction
type EVMClient struct {
	rpc       *rpc.Client
	client    *ethclient.Client
	chainID   *big.Int
	rpcURL    string
	batchSize int
	retry     RetryConfig
}

// NewEVMClient dials rpcURL and reads the chain id.
func NewEVMClient(ctx context.Context, rpcURL string, batchSize int, retryCfg RetryConfig) (*EVMClient, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if retryCfg.Attempts == 0 {
		retryCfg.Attempts = defaultRetryAttempts
	}
	if retryCfg.Delay <= 0 {
		retryCfg.Delay = defaultRetryDelay
	}

	raw, err := dialRPC(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	c := &EVMClient{
		rpc:       raw,
		client:    ethclient.NewClient(raw),
		rpcURL:    rpcURL,
		batchSize: batchSize,
		retry:     retryCfg,
	}

	err = c.withRetry(ctx, "eth_chainId", func(ctx context.Context) error {
		id, err := c.client.ChainID(ctx)
		if err != nil {
			return err
		}
		c.chainID = id
		return nil
	})
	if err != nil {
		raw.Close()
		return nil, err
	}
	return c, nil
}

// ChainID returns the chain ID
func (c *EVMClient) ChainID() *big.Int {
	return c.chainID
}

// CallView executes a read-only contract call
func (c *EVMClient) CallView(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	var out []byte
	err := c.withRetry(ctx, "eth_call", func(ctx context.Context) error {
		res, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// BatchCallView sends calls as JSON-RPC batches of at most batchSize.
// A transport failure fails the whole batch; a reverted call only sets its own Err.
func (c *EVMClient) BatchCallView(ctx context.Context, calls []*ViewCall) error {
	for start := 0; start < len(calls); start += c.batchSize {
		end := min(start+c.batchSize, len(calls))
		chunk := calls[start:end]

		results := make([]hexutil.Bytes, len(chunk))
		elems := make([]rpc.BatchElem, len(chunk))
		for i, call := range chunk {
			elems[i] = rpc.BatchElem{
				Method: "eth_call",
				Args: []interface{}{
					map[string]interface{}{"to": call.To, "data": hexutil.Bytes(call.Data)},
					"latest",
				},
				Result: &results[i],
			}
		}

		err := c.withRetry(ctx, "eth_call_batch", func(ctx context.Context) error {
			return c.rpc.BatchCallContext(ctx, elems)
		})
		if err != nil {
			return err
		}
		for i := range chunk {
			chunk[i].Result = results[i]
			chunk[i].Err = elems[i].Error
		}
	}
	return nil
}

// GetBlockNumber gets the latest block number
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	var n uint64
	err := c.withRetry(ctx, "eth_blockNumber", func(ctx context.Context) error {
		v, err := c.client.BlockNumber(ctx)
		n = v
		return err
	})
	return n, err
}

// FilterLogs returns the logs matching q
func (c *EVMClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.withRetry(ctx, "eth_getLogs", func(ctx context.Context) error {
		v, err := c.client.FilterLogs(ctx, q)
		logs = v
		return err
	})
	return logs, err
}

// PendingNonceAt returns the next nonce for account
func (c *EVMClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.client.PendingNonceAt(ctx, account)
}

// SuggestGasTipCap returns a priority fee suggestion
func (c *EVMClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasTipCap(ctx)
}

// LatestBaseFee returns the base fee of the head block, or nil on pre-London chains
func (c *EVMClient) LatestBaseFee(ctx context.Context) (*big.Int, error) {
	head, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, err
	}
	return head.BaseFee, nil
}

// EstimateGas estimates gas for a transaction
func (c *EVMClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

// SendTransaction broadcasts a signed transaction. It is never retried.
func (c *EVMClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.client.SendTransaction(ctx, tx)
}

// GetTransaction gets transaction details
func (c *EVMClient) GetTransaction(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	return c.client.TransactionByHash(ctx, hash)
}

// GetTransactionReceipt gets transaction receipt
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, hash)
}

// CallAt replays msg against the state at block
func (c *EVMClient) CallAt(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	return c.client.CallContract(ctx, msg, block)
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *EVMClient) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	return retry.Do(
		func() error { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(c.retry.Attempts),
		retry.Delay(c.retry.Delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			metrics.ChainReadErrors.WithLabelValues(op).Inc()
			logger.Warn(ctx, "rpc call failed, retrying",
				zap.String("op", op),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

// isTransient reports whether err is worth retrying. JSON-RPC error
// responses (reverts, bad params) are answers, not transport failures.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rpcErr rpc.Error
	return !errors.As(err, &rpcErr)
}
