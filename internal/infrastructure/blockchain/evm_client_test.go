package blockchain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = RetryConfig{Attempts: 3, Delay: time.Millisecond}

func echoCalls(method string, params []json.RawMessage) (interface{}, *rpcErr) {
	switch method {
	case "eth_call":
		to, data := decodeCallParams(params)
		if to == common.HexToAddress("0xdead") {
			return nil, revertError("nope")
		}
		return hexutil.Encode(data), nil
	case "eth_blockNumber":
		return "0x2a", nil
	}
	return nil, &rpcErr{Code: -32601, Message: "method not found"}
}

func TestEVMClient_DialAndChainID(t *testing.T) {
	srv := newFakeRPC(t, echoCalls)

	client, err := NewEVMClient(context.Background(), srv.URL(), 0, fastRetry)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, big.NewInt(1337), client.ChainID())

	block, err := client.GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), block)

	out, err := client.CallView(context.Background(), common.HexToAddress("0x01"), []byte{0x12, 0x34})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x34}, out)
}

func TestEVMClient_BatchCallViewChunksAndKeepsPerCallErrors(t *testing.T) {
	srv := newFakeRPC(t, echoCalls)
	client, err := NewEVMClient(context.Background(), srv.URL(), 2, fastRetry)
	require.NoError(t, err)
	defer client.Close()

	calls := []*ViewCall{
		{To: common.HexToAddress("0x01"), Data: []byte{1}},
		{To: common.HexToAddress("0x02"), Data: []byte{2}},
		{To: common.HexToAddress("0xdead"), Data: []byte{3}},
		{To: common.HexToAddress("0x04"), Data: []byte{4}},
		{To: common.HexToAddress("0x05"), Data: []byte{5}},
	}
	require.NoError(t, client.BatchCallView(context.Background(), calls))

	assert.Equal(t, 3, srv.batchCount())
	for i, c := range calls {
		if i == 2 {
			require.Error(t, c.Err)
			assert.Contains(t, c.Err.Error(), "execution reverted")
			continue
		}
		require.NoError(t, c.Err)
		assert.Equal(t, []byte{byte(i + 1)}, c.Result)
	}
}

func TestEVMClient_RetriesTransportFailures(t *testing.T) {
	srv := newFakeRPC(t, echoCalls)
	client, err := NewEVMClient(context.Background(), srv.URL(), 0, fastRetry)
	require.NoError(t, err)
	defer client.Close()

	srv.failRequests(2)
	block, err := client.GetBlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), block)

	srv.failRequests(5)
	_, err = client.GetBlockNumber(context.Background())
	assert.Error(t, err)
}

func TestEVMClient_DoesNotRetryRevert(t *testing.T) {
	srv := newFakeRPC(t, echoCalls)
	client, err := NewEVMClient(context.Background(), srv.URL(), 0, fastRetry)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.CallView(context.Background(), common.HexToAddress("0xdead"), []byte{1})
	require.Error(t, err)
	assert.Equal(t, 1, srv.called("eth_call"))
	assert.Equal(t, "nope", describeRevert(err))
}

func TestNewEVMClient_InvalidURL(t *testing.T) {
	_, err := NewEVMClient(context.Background(), "://bad-url", 0, fastRetry)
	require.Error(t, err)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(errors.New("connection refused")))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(context.DeadlineExceeded))
}
