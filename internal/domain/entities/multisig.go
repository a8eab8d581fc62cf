package entities

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TransactionKind is the explicit kind tag stored with every multisig transaction.
type TransactionKind uint8

const (
	TransactionKindETH TransactionKind = iota
	TransactionKindERC20
	TransactionKindCustom
)

func (k TransactionKind) String() string {
	switch k {
	case TransactionKindETH:
		return "ETH"
	case TransactionKindERC20:
		return "ERC20"
	case TransactionKindCustom:
		return "CUSTOM"
	default:
		return "UNKNOWN"
	}
}

// IsKnown reports whether k is one of the supported kind tags.
func (k TransactionKind) IsKnown() bool {
	return k <= TransactionKindCustom
}

// ParseTransactionKind maps the API spelling of a kind to its tag.
func ParseTransactionKind(s string) (TransactionKind, bool) {
	switch s {
	case "ETH":
		return TransactionKindETH, true
	case "ERC20":
		return TransactionKindERC20, true
	case "CUSTOM":
		return TransactionKindCustom, true
	default:
		return 0, false
	}
}

// MultisigWallet mirrors the on-chain header of a multisig wallet
type MultisigWallet struct {
	Address          common.Address   `json:"address"`
	Owners           []common.Address `json:"owners"`
	Required         uint64           `json:"required"`
	TransactionCount uint64           `json:"transactionCount"`
}

// IsOwner reports whether addr belongs to the wallet's owner set.
func (w *MultisigWallet) IsOwner(addr common.Address) bool {
	for _, o := range w.Owners {
		if o == addr {
			return true
		}
	}
	return false
}

// Creator returns owners[0], which is conventionally the deployer.
func (w *MultisigWallet) Creator() (common.Address, bool) {
	if len(w.Owners) == 0 {
		return common.Address{}, false
	}
	return w.Owners[0], true
}

// TransactionRecord is a proposal stored in a multisig wallet.
// Only Executed ever changes after creation.
type TransactionRecord struct {
	ID          uint64          `json:"id"`
	Kind        TransactionKind `json:"kind"`
	Destination common.Address  `json:"destination"`
	Value       *big.Int        `json:"value"`
	Token       common.Address  `json:"token"`
	Data        []byte          `json:"data"`
	Executed    bool            `json:"executed"`
}

// ConfirmationSet holds the owners that confirmed one transaction, in acquisition order.
type ConfirmationSet []common.Address

// Contains reports whether owner already confirmed.
func (s ConfirmationSet) Contains(owner common.Address) bool {
	for _, o := range s {
		if o == owner {
			return true
		}
	}
	return false
}

// Count returns the number of distinct confirmers.
func (s ConfirmationSet) Count() int {
	seen := make(map[common.Address]struct{}, len(s))
	for _, o := range s {
		seen[o] = struct{}{}
	}
	return len(seen)
}

// WalletTransaction pairs a record with its confirmations.
type WalletTransaction struct {
	Record        TransactionRecord `json:"record"`
	Confirmations ConfirmationSet   `json:"confirmations"`
}

// WalletSnapshot is one consistent read of a wallet and all of its transactions.
type WalletSnapshot struct {
	Wallet       MultisigWallet      `json:"wallet"`
	Transactions []WalletTransaction `json:"transactions"`
	FetchedAt    time.Time           `json:"fetchedAt"`
}

// Transaction returns the transaction with the given id.
func (s *WalletSnapshot) Transaction(id uint64) (*WalletTransaction, bool) {
	if id < uint64(len(s.Transactions)) && s.Transactions[id].Record.ID == id {
		return &s.Transactions[id], true
	}
	for i := range s.Transactions {
		if s.Transactions[i].Record.ID == id {
			return &s.Transactions[i], true
		}
	}
	return nil, false
}

// TokenMetadata describes an ERC20 contract
type TokenMetadata struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
}

// PendingWorkItem is the count of transactions awaiting one owner's confirmation in a wallet.
type PendingWorkItem struct {
	WalletAddress     common.Address `json:"walletAddress"`
	WalletDisplayName string         `json:"walletDisplayName"`
	PendingCount      int            `json:"pendingCount"`
}

// PendingWorkReport is the gathered result of a pending-work scan.
// Provisional is set when at least one wallet could not be read.
type PendingWorkReport struct {
	Owner       common.Address    `json:"owner"`
	Items       []PendingWorkItem `json:"items"`
	Provisional bool              `json:"provisional"`
	Unavailable []common.Address  `json:"unavailable,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// WalletTransactionStats summarizes a wallet from one owner's point of view.
type WalletTransactionStats struct {
	Total           int `json:"total"`
	Executed        int `json:"executed"`
	Pending         int `json:"pending"`
	Ready           int `json:"ready"`
	AwaitingMyInput int `json:"awaitingMyInput"`
}
