package main

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"multisig-hub.backend/internal/config"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/internal/infrastructure/blockchain"
	"multisig-hub.backend/internal/infrastructure/cache"
	"multisig-hub.backend/internal/infrastructure/demo"
	"multisig-hub.backend/pkg/logger"
)

// chainStack is everything the usecases need from the chain side.
type chainStack struct {
	reader      repositories.ChainStateReader
	invalidator repositories.SnapshotInvalidator
	events      repositories.EventSource
	broadcaster repositories.ActionBroadcaster
	canSign     bool
	close       func()
}

func buildChainStack(ctx context.Context, cfg *config.Config) (*chainStack, error) {
	if cfg.Demo.Enabled {
		return buildDemoStack(cfg)
	}

	if !common.IsHexAddress(cfg.Chain.FactoryAddress) {
		return nil, fmt.Errorf("MULTISIG_FACTORY_ADDRESS %q is not an address", cfg.Chain.FactoryAddress)
	}
	factory := common.HexToAddress(cfg.Chain.FactoryAddress)

	clients := blockchain.NewClientFactory(cfg.Chain.BatchSize, blockchain.RetryConfig{
		Attempts: cfg.Chain.RetryAttempts,
		Delay:    cfg.Chain.RetryDelay,
	})
	client, err := clients.GetEVMClient(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, err
	}
	if cfg.Chain.ChainID != 0 && client.ChainID().Cmp(big.NewInt(cfg.Chain.ChainID)) != 0 {
		clients.Close()
		return nil, fmt.Errorf("rpc serves chain %s, configured chain is %d", client.ChainID(), cfg.Chain.ChainID)
	}

	transactor, err := blockchain.NewTransactor(client, factory, cfg.Chain.OperatorKey, cfg.Chain.PollInterval)
	if err != nil {
		clients.Close()
		return nil, fmt.Errorf("operator key: %w", err)
	}
	_, canSign := transactor.Signer()

	cached := cache.NewCachedReader(blockchain.NewMultisigReader(client, factory), cfg.Cache.SnapshotTTL, cfg.Cache.TokenLRUCapacity)
	logger.Info(ctx, "Chain client ready",
		zap.String("chain_id", client.ChainID().String()),
		zap.String("factory", factory.Hex()),
	)
	return &chainStack{
		reader:      cached,
		invalidator: cached,
		events:      blockchain.NewEventSubscriber(client, factory, cfg.Chain.PollInterval),
		broadcaster: transactor,
		canSign:     canSign,
		close:       clients.Close,
	}, nil
}

// buildDemoStack serves fixtures and never signs.
func buildDemoStack(cfg *config.Config) (*chainStack, error) {
	if !common.IsHexAddress(cfg.Demo.Viewer) {
		return nil, fmt.Errorf("DEMO_VIEWER_ADDRESS %q is not an address", cfg.Demo.Viewer)
	}
	fixtures := demo.NewFixtureReader(demo.DefaultFixture(common.HexToAddress(cfg.Demo.Viewer)))
	readOnly, err := blockchain.NewTransactor(nil, demo.Factory(), "", 0)
	if err != nil {
		return nil, err
	}
	return &chainStack{
		reader:      fixtures,
		invalidator: fixtures,
		events:      demo.NewQuietEventSource(),
		broadcaster: readOnly,
		close:       func() {},
	}, nil
}
