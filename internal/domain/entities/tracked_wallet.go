package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"
	"github.com/volatiletech/null/v8"
)

// TrackedWallet is a wallet the service follows on behalf of its owners
type TrackedWallet struct {
	Address     common.Address   `json:"address"`
	Owners      []common.Address `json:"owners"`
	Creator     common.Address   `json:"creator"`
	DisplayName null.String      `json:"displayName"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Name returns the chosen display name, or a shortened address.
func (w *TrackedWallet) Name() string {
	if w != nil && w.DisplayName.Valid && w.DisplayName.String != "" {
		return w.DisplayName.String
	}
	if w == nil {
		return ""
	}
	return ShortAddress(w.Address)
}

// ShortAddress renders 0x1234…abcd.
func ShortAddress(a common.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

var errBlankName = errors.New("cannot be blank")

// RenameWalletInput sets the display name of a tracked wallet
type RenameWalletInput struct {
	DisplayName string `json:"displayName"`
}

// Validate rejects blank and overlong names.
func (in RenameWalletInput) Validate() error {
	name := strings.TrimSpace(in.DisplayName)
	return validation.ValidateStruct(&in,
		validation.Field(&in.DisplayName, validation.Required, validation.By(func(interface{}) error {
			if name == "" {
				return errBlankName
			}
			return nil
		}), validation.RuneLength(1, 64)),
	)
}
