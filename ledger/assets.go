package ledger

import (
	"fmt"
	"strings"

	"github.com/link2pay/link2pay.go/common"
	"github.com/stellar/go/strkey"
)

const nativeAssetType = "native"

type Asset struct {
	Code   string `json:"code"`
	Issuer string `json:"issuer"`
}

func (a Asset) IsNative() bool {
	return a.Issuer == ""
}

func (a Asset) Equal(other Asset) bool {
	return a.Code == other.Code && a.Issuer == other.Issuer
}

func (a Asset) String() string {
	if a.IsNative() {
		return a.Code
	}
	return a.Code + ":" + a.Issuer
}

// AssetRegistry maps invoice currencies to ledger assets.
type AssetRegistry map[string]Asset

func NewAssetRegistry(c *Config) AssetRegistry {
	return AssetRegistry{
		common.CurrencyXLM:  {Code: common.CurrencyXLM},
		common.CurrencyUSDC: {Code: common.CurrencyUSDC, Issuer: c.USDCIssuer},
		common.CurrencyEURC: {Code: common.CurrencyEURC, Issuer: c.EURCIssuer},
	}
}

func (r AssetRegistry) Resolve(currency string) (Asset, error) {
	asset, ok := r[strings.ToUpper(currency)]
	if !ok {
		return Asset{}, fmt.Errorf("%w: %s", common.ErrUnknownAsset, currency)
	}
	return asset, nil
}

func (r AssetRegistry) Supports(currency string) bool {
	_, ok := r[strings.ToUpper(currency)]
	return ok
}

// IsValidAddress reports whether address is a well-formed account public key.
func IsValidAddress(address string) bool {
	return strkey.IsValidEd25519PublicKey(address)
}
