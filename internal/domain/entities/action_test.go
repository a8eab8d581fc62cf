package entities

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
	addrC = "0x3333333333333333333333333333333333333333"
)

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	require.Error(t, err)
	errs, ok := err.(validation.Errors)
	require.True(t, ok, "expected validation.Errors, got %T", err)
	return errs
}

func TestCreateWalletInput_Validate(t *testing.T) {
	ok := CreateWalletInput{Owners: []string{addrA, addrB, addrC}, Required: 2}
	require.NoError(t, ok.Validate())
	assert.Equal(t, common.HexToAddress(addrB), ok.OwnerAddresses()[1])

	tooHigh := CreateWalletInput{Owners: []string{addrA, addrB, addrC}, Required: 4}
	assert.Contains(t, fieldErrors(t, tooHigh.Validate()), "required")

	zero := CreateWalletInput{Owners: []string{addrA}, Required: 0}
	assert.Contains(t, fieldErrors(t, zero.Validate()), "required")

	dup := CreateWalletInput{Owners: []string{addrA, addrA}, Required: 1}
	assert.Contains(t, fieldErrors(t, dup.Validate()), "owners")

	bad := CreateWalletInput{Owners: []string{"0x1234"}, Required: 1}
	assert.Contains(t, fieldErrors(t, bad.Validate()), "owners")

	none := CreateWalletInput{Required: 1}
	errs := fieldErrors(t, none.Validate())
	assert.Contains(t, errs, "owners")
	assert.Contains(t, errs, "required")
}

func TestSubmitTransactionInput_Validate(t *testing.T) {
	require.NoError(t, SubmitTransactionInput{Kind: "ETH", Destination: addrA, Value: "500000000000000000"}.Validate())
	require.NoError(t, SubmitTransactionInput{Kind: "ERC20", Destination: addrA, Value: "1", Token: addrB}.Validate())
	require.NoError(t, SubmitTransactionInput{Kind: "CUSTOM", Destination: addrA, Calldata: "0x"}.Validate())
	require.NoError(t, SubmitTransactionInput{Kind: "CUSTOM", Destination: addrA, Value: "0", Calldata: "0xa9059cbb"}.Validate())

	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ETH", Destination: addrA, Value: "0"}.Validate()), "value")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ETH", Destination: addrA, Value: "-5"}.Validate()), "value")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ETH", Destination: addrA, Value: "1.5"}.Validate()), "value")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ETH", Destination: "not-an-address", Value: "1"}.Validate()), "destination")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ETH", Destination: addrA, Value: "1", Calldata: "0x00"}.Validate()), "calldata")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ERC20", Destination: addrA, Value: "1"}.Validate()), "token")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "CUSTOM", Destination: addrA, Calldata: "a9059cbb"}.Validate()), "calldata")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "CUSTOM", Destination: addrA, Calldata: "0xabc"}.Validate()), "calldata")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "NFT", Destination: addrA, Value: "1"}.Validate()), "kind")
	assert.Contains(t, fieldErrors(t, SubmitTransactionInput{Kind: "ETH", Destination: "0x0000000000000000000000000000000000000000", Value: "1"}.Validate()), "destination")
}

func TestSubmitTransactionInput_Record(t *testing.T) {
	rec, err := SubmitTransactionInput{Kind: "ERC20", Destination: addrA, Value: "42", Token: addrB}.Record()
	require.NoError(t, err)
	assert.Equal(t, TransactionKindERC20, rec.Kind)
	assert.Equal(t, common.HexToAddress(addrA), rec.Destination)
	assert.Equal(t, common.HexToAddress(addrB), rec.Token)
	assert.Equal(t, "42", rec.Value.String())

	custom, err := SubmitTransactionInput{Kind: "CUSTOM", Destination: addrA, Calldata: "0x"}.Record()
	require.NoError(t, err)
	assert.Equal(t, TransactionKindCustom, custom.Kind)
	assert.Empty(t, custom.Data)
	assert.Equal(t, int64(0), custom.Value.Int64())

	_, err = SubmitTransactionInput{Kind: "???"}.Record()
	assert.Error(t, err)
}

func TestTransactionKind(t *testing.T) {
	for _, s := range []string{"ETH", "ERC20", "CUSTOM"} {
		k, ok := ParseTransactionKind(s)
		require.True(t, ok)
		assert.Equal(t, s, k.String())
		assert.True(t, k.IsKnown())
	}
	assert.False(t, TransactionKind(7).IsKnown())
	assert.Equal(t, "UNKNOWN", TransactionKind(7).String())
}

func TestConfirmationSet_And_Wallet(t *testing.T) {
	a, b := common.HexToAddress(addrA), common.HexToAddress(addrB)
	set := ConfirmationSet{a, b, a}
	assert.True(t, set.Contains(b))
	assert.False(t, set.Contains(common.HexToAddress(addrC)))
	assert.Equal(t, 2, set.Count())

	w := MultisigWallet{Owners: []common.Address{a, b}}
	assert.True(t, w.IsOwner(a))
	assert.False(t, w.IsOwner(common.HexToAddress(addrC)))
	creator, ok := w.Creator()
	assert.True(t, ok)
	assert.Equal(t, a, creator)

	snap := WalletSnapshot{Transactions: []WalletTransaction{{Record: TransactionRecord{ID: 0}}, {Record: TransactionRecord{ID: 1}}}}
	tx, ok := snap.Transaction(1)
	require.True(t, ok)
	assert.Equal(t, uint64(1), tx.Record.ID)
	_, ok = snap.Transaction(9)
	assert.False(t, ok)
}

func TestProjectedStateRank(t *testing.T) {
	assert.Less(t, StatePending.Rank(), StateReady.Rank())
	assert.Less(t, StateReady.Rank(), StateExecuted.Rank())
	assert.Equal(t, -1, ProjectedState("other").Rank())
}
