package blockchain

import (
	"context"
	"fmt"
	"sync"
)

// ClientFactory manages blockchain clients so the reader, the event
// subscriber and the transactor share one connection per endpoint.
type ClientFactory struct {
	evmClients map[string]*EVMClient
	batchSize  int
	retry      RetryConfig
	mu         sync.RWMutex
}

// NewClientFactory creates a new client factory
func NewClientFactory(batchSize int, retryCfg RetryConfig) *ClientFactory {
	return &ClientFactory{
		evmClients: make(map[string]*EVMClient),
		batchSize:  batchSize,
		retry:      retryCfg,
	}
}

// GetEVMClient returns an EVM client for the given RPC URL
// If a client already exists for the URL, it returns the cached client
func (f *ClientFactory) GetEVMClient(ctx context.Context, rpcURL string) (*EVMClient, error) {
	f.mu.RLock()
	client, ok := f.evmClients[rpcURL]
	f.mu.RUnlock()
	if ok {
		return client, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double check
	if client, ok := f.evmClients[rpcURL]; ok {
		return client, nil
	}

	newClient, err := NewEVMClient(ctx, rpcURL, f.batchSize, f.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to create EVM client: %w", err)
	}

	f.evmClients[rpcURL] = newClient
	return newClient, nil
}

// Close closes every cached client
func (f *ClientFactory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for url, c := range f.evmClients {
		c.Close()
		delete(f.evmClients, url)
	}
}
