package demo

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
)

// Fixture is the canned chain state served in demo mode.
type Fixture struct {
	Wallets []entities.WalletSnapshot `json:"wallets"`
	Tokens  []entities.TokenMetadata  `json:"tokens"`
	// Unavailable wallets fail every read, which exercises loading states.
	Unavailable []common.Address `json:"unavailable,omitempty"`
}

// FixtureReader serves a Fixture through the ChainStateReader contract.
// It never touches a node.
type FixtureReader struct {
	mu          sync.RWMutex
	order       []common.Address
	wallets     map[common.Address]entities.WalletSnapshot
	tokens      map[common.Address]entities.TokenMetadata
	unavailable map[common.Address]struct{}
	now         func() time.Time
}

// NewFixtureReader indexes f. Later duplicates of a wallet replace earlier ones.
func NewFixtureReader(f Fixture) *FixtureReader {
	r := &FixtureReader{
		wallets:     make(map[common.Address]entities.WalletSnapshot, len(f.Wallets)),
		tokens:      make(map[common.Address]entities.TokenMetadata, len(f.Tokens)),
		unavailable: make(map[common.Address]struct{}, len(f.Unavailable)),
		now:         time.Now,
	}
	for _, w := range f.Wallets {
		addr := w.Wallet.Address
		if _, seen := r.wallets[addr]; !seen {
			r.order = append(r.order, addr)
		}
		w.Wallet.TransactionCount = uint64(len(w.Transactions))
		r.wallets[addr] = w
	}
	for _, t := range f.Tokens {
		r.tokens[t.Address] = t
	}
	for _, a := range f.Unavailable {
		r.unavailable[a] = struct{}{}
		if _, seen := r.wallets[a]; !seen {
			r.order = append(r.order, a)
		}
	}
	return r
}

func (r *FixtureReader) snapshot(wallet common.Address) (entities.WalletSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, down := r.unavailable[wallet]; down {
		return entities.WalletSnapshot{}, fmt.Errorf("%w: demo wallet %s is offline", domainerrors.ErrDataUnavailable, wallet.Hex())
	}
	snap, ok := r.wallets[wallet]
	if !ok {
		return entities.WalletSnapshot{}, fmt.Errorf("%w: no contract at %s", domainerrors.ErrDataUnavailable, wallet.Hex())
	}
	return snap, nil
}

func (r *FixtureReader) GetWalletSnapshot(_ context.Context, wallet common.Address) (*entities.WalletSnapshot, error) {
	snap, err := r.snapshot(wallet)
	if err != nil {
		return nil, err
	}
	out := entities.WalletSnapshot{
		Wallet: entities.MultisigWallet{
			Address:          snap.Wallet.Address,
			Owners:           append([]common.Address(nil), snap.Wallet.Owners...),
			Required:         snap.Wallet.Required,
			TransactionCount: snap.Wallet.TransactionCount,
		},
		Transactions: make([]entities.WalletTransaction, len(snap.Transactions)),
		FetchedAt:    r.now(),
	}
	for i, tx := range snap.Transactions {
		out.Transactions[i] = entities.WalletTransaction{
			Record:        copyRecord(tx.Record),
			Confirmations: append(entities.ConfirmationSet(nil), tx.Confirmations...),
		}
	}
	return &out, nil
}

func (r *FixtureReader) GetOwners(ctx context.Context, wallet common.Address) ([]common.Address, error) {
	snap, err := r.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return snap.Wallet.Owners, nil
}

func (r *FixtureReader) GetRequired(_ context.Context, wallet common.Address) (uint64, error) {
	snap, err := r.snapshot(wallet)
	if err != nil {
		return 0, err
	}
	return snap.Wallet.Required, nil
}

func (r *FixtureReader) GetTransactionCount(_ context.Context, wallet common.Address) (uint64, error) {
	snap, err := r.snapshot(wallet)
	if err != nil {
		return 0, err
	}
	return snap.Wallet.TransactionCount, nil
}

func (r *FixtureReader) GetTransaction(ctx context.Context, wallet common.Address, txID uint64) (*entities.TransactionRecord, error) {
	snap, err := r.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	tx, ok := snap.Transaction(txID)
	if !ok {
		return nil, fmt.Errorf("%w: transaction %d of %s", domainerrors.ErrDataUnavailable, txID, wallet.Hex())
	}
	return &tx.Record, nil
}

func (r *FixtureReader) HasConfirmed(ctx context.Context, wallet common.Address, txID uint64, owner common.Address) (bool, error) {
	confirmers, err := r.GetConfirmers(ctx, wallet, txID)
	if err != nil {
		return false, err
	}
	return entities.ConfirmationSet(confirmers).Contains(owner), nil
}

func (r *FixtureReader) GetConfirmers(ctx context.Context, wallet common.Address, txID uint64) ([]common.Address, error) {
	snap, err := r.GetWalletSnapshot(ctx, wallet)
	if err != nil {
		return nil, err
	}
	tx, ok := snap.Transaction(txID)
	if !ok {
		return nil, fmt.Errorf("%w: transaction %d of %s", domainerrors.ErrDataUnavailable, txID, wallet.Hex())
	}
	return tx.Confirmations, nil
}

func (r *FixtureReader) GetTokenMetadata(_ context.Context, token common.Address) (*entities.TokenMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: token %s has no metadata", domainerrors.ErrDataUnavailable, token.Hex())
	}
	return &meta, nil
}

func (r *FixtureReader) GetDeployedWallets(context.Context) ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]common.Address(nil), r.order...), nil
}

// GetWalletsForOwner lists fixture wallets that include owner. Unavailable
// wallets are listed for everyone so the loading state is visible.
func (r *FixtureReader) GetWalletsForOwner(_ context.Context, owner common.Address) ([]common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []common.Address
	for _, addr := range r.order {
		if _, down := r.unavailable[addr]; down {
			out = append(out, addr)
			continue
		}
		snap := r.wallets[addr]
		if snap.Wallet.IsOwner(owner) {
			out = append(out, addr)
		}
	}
	return out, nil
}

// Invalidate is a no-op; fixtures never go stale.
func (r *FixtureReader) Invalidate(context.Context, common.Address) error {
	return nil
}

func copyRecord(rec entities.TransactionRecord) entities.TransactionRecord {
	if rec.Value != nil {
		rec.Value = new(big.Int).Set(rec.Value)
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return rec
}

var (
	demoFactory  = common.HexToAddress("0x00000000000000000000000000000000000FAC70")
	demoTreasury = common.HexToAddress("0x5AFE000000000000000000000000000000000001")
	demoPayroll  = common.HexToAddress("0x5AFE000000000000000000000000000000000002")
	demoOffline  = common.HexToAddress("0x5AFE000000000000000000000000000000000003")
	demoUSDC     = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	demoCarol    = common.HexToAddress("0xCA401000000000000000000000000000000000C1")
	demoDave     = common.HexToAddress("0xDA7E0000000000000000000000000000000000D1")
)

// Factory is the factory address reported in demo mode.
func Factory() common.Address { return demoFactory }

// DefaultFixture builds a small portfolio in which viewer is an owner of two
// wallets: a 2-of-3 treasury with work in every state and a 1-of-2 payroll
// wallet. A third wallet is permanently unavailable.
func DefaultFixture(viewer common.Address) Fixture {
	eth := func(whole int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(whole), big.NewInt(1e18))
	}
	usdc := func(whole int64) *big.Int {
		return new(big.Int).Mul(big.NewInt(whole), big.NewInt(1e6))
	}
	transfer := erc20Transfer(demoDave, usdc(250))

	treasury := entities.WalletSnapshot{
		Wallet: entities.MultisigWallet{Address: demoTreasury, Owners: []common.Address{viewer, demoCarol, demoDave}, Required: 2},
		Transactions: []entities.WalletTransaction{
			{
				Record:        entities.TransactionRecord{ID: 0, Kind: entities.TransactionKindETH, Destination: demoCarol, Value: eth(1), Executed: true},
				Confirmations: entities.ConfirmationSet{viewer, demoCarol},
			},
			{
				Record:        entities.TransactionRecord{ID: 1, Kind: entities.TransactionKindERC20, Destination: demoDave, Value: usdc(250), Token: demoUSDC, Data: transfer},
				Confirmations: entities.ConfirmationSet{demoCarol},
			},
			{
				Record:        entities.TransactionRecord{ID: 2, Kind: entities.TransactionKindCustom, Destination: demoUSDC, Value: new(big.Int), Data: common.FromHex("0x095ea7b3")},
				Confirmations: entities.ConfirmationSet{viewer},
			},
		},
	}
	payroll := entities.WalletSnapshot{
		Wallet: entities.MultisigWallet{Address: demoPayroll, Owners: []common.Address{demoDave, viewer}, Required: 1},
		Transactions: []entities.WalletTransaction{
			{
				Record:        entities.TransactionRecord{ID: 0, Kind: entities.TransactionKindETH, Destination: demoCarol, Value: eth(2), Executed: true},
				Confirmations: entities.ConfirmationSet{demoDave},
			},
		},
	}

	return Fixture{
		Wallets:     []entities.WalletSnapshot{treasury, payroll},
		Tokens:      []entities.TokenMetadata{{Address: demoUSDC, Symbol: "USDC", Decimals: 6}},
		Unavailable: []common.Address{demoOffline},
	}
}

func erc20Transfer(to common.Address, amount *big.Int) []byte {
	data := common.FromHex("0xa9059cbb")
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	return append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
}
