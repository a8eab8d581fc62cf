package usecases

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"multisig-hub.backend/internal/domain/entities"
	domainerrors "multisig-hub.backend/internal/domain/errors"
	"multisig-hub.backend/internal/domain/repositories"
	"multisig-hub.backend/pkg/logger"
)

const (
	ethSymbol             = "ETH"
	ethDecimals           = 18
	placeholderSymbol     = "TOKEN"
	defaultTokenDecimals  = 18
	tokenMetadataParallel = 4
)

// FormatUnits renders an integer amount of base units as a decimal string
// without losing precision: 500000000000000000 with 18 decimals is "0.5".
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// Classify turns a raw record into its display form. Kind is taken from the
// record's explicit tag; calldata shape is never used to infer it.
func Classify(tx *entities.TransactionRecord, meta *entities.TokenMetadata) (*entities.DisplayTransaction, error) {
	if tx == nil {
		return nil, fmt.Errorf("classify: nil record: %w", domainerrors.ErrUnknownTransactionKind)
	}
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	out := &entities.DisplayTransaction{
		ID:        tx.ID,
		Kind:      tx.Kind,
		KindLabel: tx.Kind.String(),
		Recipient: tx.Destination,
		RawValue:  value.String(),
		Executed:  tx.Executed,
	}

	switch tx.Kind {
	case entities.TransactionKindETH:
		out.DisplayValue = FormatUnits(value, ethDecimals)
		out.Symbol = ethSymbol
	case entities.TransactionKindERC20:
		token := tx.Token
		out.TokenAddress = &token
		decimals := uint8(defaultTokenDecimals)
		out.Symbol = placeholderSymbol
		if meta != nil {
			decimals = meta.Decimals
			if meta.Symbol != "" {
				out.Symbol = meta.Symbol
			} else {
				out.TokenMetadataMissing = true
			}
		} else {
			out.TokenMetadataMissing = true
		}
		out.DisplayValue = FormatUnits(value, decimals)
	case entities.TransactionKindCustom:
		out.DisplayValue = FormatUnits(value, ethDecimals)
		out.Symbol = ethSymbol
		out.Calldata = hexutil.Encode(tx.Data)
	default:
		return nil, fmt.Errorf("classify transaction %d: kind %d: %w", tx.ID, uint8(tx.Kind), domainerrors.ErrUnknownTransactionKind)
	}

	return out, nil
}

// ClassifiedTransaction is the per-record outcome of ClassifyAll
type ClassifiedTransaction struct {
	ID      uint64
	Display *entities.DisplayTransaction
	Err     error
}

// ClassifyAll classifies every record. A failing record is reported in its own
// slot and does not affect the others.
func ClassifyAll(records []entities.TransactionRecord, metas map[common.Address]*entities.TokenMetadata) []ClassifiedTransaction {
	out := make([]ClassifiedTransaction, len(records))
	for i := range records {
		rec := &records[i]
		var meta *entities.TokenMetadata
		if rec.Kind == entities.TransactionKindERC20 {
			meta = metas[rec.Token]
		}
		display, err := Classify(rec, meta)
		out[i] = ClassifiedTransaction{ID: rec.ID, Display: display, Err: err}
	}
	return out
}

// TransactionInterpreter classifies a wallet's transactions, resolving ERC20
// metadata through the chain reader.
type TransactionInterpreter struct {
	reader repositories.ChainStateReader
}

// NewTransactionInterpreter creates a new interpreter
func NewTransactionInterpreter(reader repositories.ChainStateReader) *TransactionInterpreter {
	return &TransactionInterpreter{reader: reader}
}

// InterpretWallet classifies all transactions of a snapshot. Token metadata
// that cannot be fetched degrades to TokenMetadataMissing.
func (i *TransactionInterpreter) InterpretWallet(ctx context.Context, snapshot *entities.WalletSnapshot) []ClassifiedTransaction {
	records := make([]entities.TransactionRecord, len(snapshot.Transactions))
	for idx, tx := range snapshot.Transactions {
		records[idx] = tx.Record
	}
	return ClassifyAll(records, i.ResolveTokenMetadata(ctx, records))
}

// ResolveTokenMetadata looks up metadata for every distinct ERC20 token in records.
func (i *TransactionInterpreter) ResolveTokenMetadata(ctx context.Context, records []entities.TransactionRecord) map[common.Address]*entities.TokenMetadata {
	tokens := make(map[common.Address]struct{})
	for _, rec := range records {
		if rec.Kind == entities.TransactionKindERC20 {
			tokens[rec.Token] = struct{}{}
		}
	}

	metas := make(map[common.Address]*entities.TokenMetadata, len(tokens))
	if len(tokens) == 0 {
		return metas
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(tokenMetadataParallel)
	for token := range tokens {
		p.Go(func() {
			meta, err := i.reader.GetTokenMetadata(ctx, token)
			if err != nil {
				logger.Warn(ctx, "token metadata unavailable", zap.String("token", token.Hex()), zap.Error(err))
				return
			}
			mu.Lock()
			metas[token] = meta
			mu.Unlock()
		})
	}
	p.Wait()
	return metas
}
