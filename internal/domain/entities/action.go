package entities

import (
	"errors"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jellydator/validation"
)

// ActionKind is a user-initiated write forwarded to the signer
type ActionKind string

const (
	ActionCreateWallet ActionKind = "CREATE_WALLET"
	ActionSubmit       ActionKind = "SUBMIT"
	ActionConfirm      ActionKind = "CONFIRM"
	ActionExecute      ActionKind = "EXECUTE"
)

// ActionRequest carries everything the broadcaster needs to build one call.
type ActionRequest struct {
	Kind       ActionKind
	Wallet     common.Address
	TxID       uint64
	Submission *TransactionRecord
	Owners     []common.Address
	Required   uint64
}

// ReceiptHandle refers to a broadcast transaction whose outcome is not known yet
type ReceiptHandle struct {
	TxHash      common.Hash    `json:"txHash"`
	Kind        ActionKind     `json:"kind"`
	Wallet      common.Address `json:"wallet"`
	TxID        *uint64        `json:"txId,omitempty"`
	SubmittedAt time.Time      `json:"submittedAt"`
}

// ActionOutcome is the settled result of a ReceiptHandle.
type ActionOutcome struct {
	Handle      ReceiptHandle
	Success     bool
	BlockNumber uint64
	Reason      string
}

// ActionResult is returned to the API caller after an action has been broadcast.
type ActionResult struct {
	Handle          ReceiptHandle `json:"handle"`
	WillExecute     bool          `json:"willExecute"`
	ExecutionNotice string        `json:"executionNotice,omitempty"`
}

var hexDataPattern = regexp.MustCompile(`^0x([0-9a-fA-F]{2})*$`)

var (
	errNotAddress   = errors.New("must be a valid 0x-prefixed address")
	errZeroAddress  = errors.New("must not be the zero address")
	errNotInteger   = errors.New("must be a base-10 unsigned integer")
	errNotPositive  = errors.New("must be greater than zero")
	errNotHexData   = errors.New("must be 0x-prefixed hex with an even number of digits")
	errUnknownKind  = errors.New("must be one of ETH, ERC20, CUSTOM")
	errDuplicate    = errors.New("must not contain duplicates")
	errRequiredSize = errors.New("must be between 1 and the number of owners")
)

func isAddress(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return errNotAddress
	}
	if common.HexToAddress(s) == (common.Address{}) {
		return errZeroAddress
	}
	return nil
}

// ParseAmount parses a base-10 unsigned integer amount in base units.
func ParseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, false
	}
	return v, true
}

// CreateWalletInput is the request to deploy a wallet through the factory
type CreateWalletInput struct {
	Owners   []string `json:"owners"`
	Required uint64   `json:"required"`
}

// Validate checks the owner set and threshold before anything is sent.
func (in CreateWalletInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Owners,
			validation.Required,
			validation.Each(validation.Required, validation.By(isAddress)),
			validation.By(func(value interface{}) error {
				seen := make(map[common.Address]struct{}, len(in.Owners))
				for _, o := range in.Owners {
					a := common.HexToAddress(o)
					if _, dup := seen[a]; dup {
						return errDuplicate
					}
					seen[a] = struct{}{}
				}
				return nil
			}),
		),
		validation.Field(&in.Required,
			validation.By(func(value interface{}) error {
				if in.Required < 1 || in.Required > uint64(len(in.Owners)) {
					return errRequiredSize
				}
				return nil
			}),
		),
	)
}

// OwnerAddresses returns the validated owners as addresses.
func (in CreateWalletInput) OwnerAddresses() []common.Address {
	out := make([]common.Address, len(in.Owners))
	for i, o := range in.Owners {
		out[i] = common.HexToAddress(o)
	}
	return out
}

// SubmitTransactionInput is the request to propose a transaction
type SubmitTransactionInput struct {
	Kind        string `json:"kind"`
	Destination string `json:"destination"`
	Value       string `json:"value"`
	Token       string `json:"token,omitempty"`
	Calldata    string `json:"calldata,omitempty"`
}

// Validate enforces kind-specific rules: positive amounts for transfers,
// a token address for ERC20, and hex calldata only for CUSTOM calls.
func (in SubmitTransactionInput) Validate() error {
	kind, known := ParseTransactionKind(in.Kind)
	return validation.ValidateStruct(&in,
		validation.Field(&in.Kind, validation.Required, validation.By(func(interface{}) error {
			if !known {
				return errUnknownKind
			}
			return nil
		})),
		validation.Field(&in.Destination, validation.Required, validation.By(isAddress)),
		validation.Field(&in.Value, validation.By(func(interface{}) error {
			if in.Value == "" && known && kind == TransactionKindCustom {
				return nil
			}
			v, ok := ParseAmount(in.Value)
			if !ok {
				return errNotInteger
			}
			if known && kind != TransactionKindCustom && v.Sign() == 0 {
				return errNotPositive
			}
			return nil
		})),
		validation.Field(&in.Token,
			validation.When(known && kind == TransactionKindERC20, validation.Required),
			validation.When(known && kind != TransactionKindERC20, validation.Empty),
			validation.By(isAddress),
		),
		validation.Field(&in.Calldata,
			validation.When(known && kind != TransactionKindCustom, validation.Empty),
			validation.When(known && kind == TransactionKindCustom, validation.Required, validation.Match(hexDataPattern).Error(errNotHexData.Error())),
		),
	)
}

// Record converts a validated input into the record shape sent to the wallet.
func (in SubmitTransactionInput) Record() (*TransactionRecord, error) {
	kind, ok := ParseTransactionKind(in.Kind)
	if !ok {
		return nil, errUnknownKind
	}
	value := new(big.Int)
	if in.Value != "" {
		v, ok := ParseAmount(in.Value)
		if !ok {
			return nil, errNotInteger
		}
		value = v
	}
	rec := &TransactionRecord{
		Kind:        kind,
		Destination: common.HexToAddress(in.Destination),
		Value:       value,
	}
	if kind == TransactionKindERC20 {
		rec.Token = common.HexToAddress(in.Token)
	}
	if kind == TransactionKindCustom {
		data, err := hexutil.Decode(in.Calldata)
		if err != nil {
			return nil, errNotHexData
		}
		rec.Data = data
	}
	return rec, nil
}
