package entities

import (
	"regexp"
	"time"

	"github.com/jellydator/validation"
)

var signaturePattern = regexp.MustCompile(`^0x[0-9a-fA-F]{130}$`)

// AuthChallenge is the message an owner signs to log in
type AuthChallenge struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NonceInput requests a login challenge
type NonceInput struct {
	Address string `json:"address"`
}

func (in NonceInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Address, validation.Required, validation.By(isAddress)),
	)
}

// VerifySignatureInput answers a login challenge
type VerifySignatureInput struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

func (in VerifySignatureInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Address, validation.Required, validation.By(isAddress)),
		validation.Field(&in.Signature, validation.Required, validation.Match(signaturePattern).Error("must be a 65-byte 0x-prefixed hex signature")),
	)
}

// RefreshTokenInput exchanges a refresh token for a new pair
type RefreshTokenInput struct {
	RefreshToken string `json:"refreshToken"`
}

func (in RefreshTokenInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.RefreshToken, validation.Required),
	)
}
