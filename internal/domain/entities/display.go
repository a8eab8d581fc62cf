package entities

import "github.com/ethereum/go-ethereum/common"

// ProjectedState is the client-side view of where a transaction sits in its lifecycle.
type ProjectedState string

const (
	StatePending  ProjectedState = "PENDING"
	StateReady    ProjectedState = "READY"
	StateExecuted ProjectedState = "EXECUTED"
)

// Rank orders states along PENDING < READY < EXECUTED.
func (s ProjectedState) Rank() int {
	switch s {
	case StatePending:
		return 0
	case StateReady:
		return 1
	case StateExecuted:
		return 2
	default:
		return -1
	}
}

// DisplayTransaction is a classified, display-ready transaction
type DisplayTransaction struct {
	ID                   uint64          `json:"id"`
	Kind                 TransactionKind `json:"-"`
	KindLabel            string          `json:"kind"`
	Recipient            common.Address  `json:"recipient"`
	TokenAddress         *common.Address `json:"tokenAddress,omitempty"`
	DisplayValue         string          `json:"displayValue"`
	RawValue             string          `json:"rawValue"`
	Symbol               string          `json:"symbol"`
	Calldata             string          `json:"calldata,omitempty"`
	TokenMetadataMissing bool            `json:"tokenMetadataMissing"`
	Executed             bool            `json:"executed"`
}

// TransactionView is what the API returns for one transaction of a wallet.
type TransactionView struct {
	Display       *DisplayTransaction `json:"display,omitempty"`
	Error         string              `json:"error,omitempty"`
	State         ProjectedState      `json:"state"`
	Confirmations int                 `json:"confirmations"`
	Required      uint64              `json:"required"`
	ConfirmedBy   []common.Address    `json:"confirmedBy"`
	CanConfirm    Verdict             `json:"canConfirm"`
	WouldExecute  bool                `json:"wouldExecute"`
}

// WalletView is the detail view of a wallet.
type WalletView struct {
	Wallet       MultisigWallet         `json:"wallet"`
	DisplayName  string                 `json:"displayName"`
	Stats        WalletTransactionStats `json:"stats"`
	Transactions []TransactionView      `json:"transactions"`
}

// WalletSummary is one row of the owner's wallet list.
type WalletSummary struct {
	Address          common.Address         `json:"address"`
	DisplayName      string                 `json:"displayName"`
	Owners           []common.Address       `json:"owners,omitempty"`
	Required         uint64                 `json:"required,omitempty"`
	TransactionCount uint64                 `json:"transactionCount,omitempty"`
	Stats            WalletTransactionStats `json:"stats"`
	Unavailable      bool                   `json:"unavailable,omitempty"`
}
