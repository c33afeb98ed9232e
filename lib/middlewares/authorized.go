package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/link2pay/link2pay.go/lib/responses"
)

const WalletAddressKey = "WalletAddress"

// WalletAuthorized : requires a well-formed account address in the
// X-Wallet-Address header and stores it on the context.
func WalletAuthorized(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		address := strings.TrimSpace(c.Request().Header.Get(common.WalletAddressHeader))
		if address == "" || !ledger.IsValidAddress(address) {
			return c.JSON(http.StatusUnauthorized, responses.BadAuthError)
		}

		c.Set(WalletAddressKey, address)

		return next(c)
	}
}

// WalletAddress returns the address set by WalletAuthorized.
func WalletAddress(c echo.Context) string {
	address, _ := c.Get(WalletAddressKey).(string)
	return address
}
