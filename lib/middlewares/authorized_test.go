package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/common"
	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(header string) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(common.WalletAddressHeader, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen string
	handler := WalletAuthorized(func(c echo.Context) error {
		seen = WalletAddress(c)
		return c.NoContent(http.StatusNoContent)
	})
	_ = handler(c)
	return rec, seen
}

func TestWalletAuthorized(t *testing.T) {
	address := keypair.MustRandom().Address()
	rec, seen := serve(address)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, address, seen)
}

func TestWalletAuthorizedRejectsMissingOrMalformed(t *testing.T) {
	for _, header := range []string{"", "not-an-address", "GABC"} {
		rec, seen := serve(header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Empty(t, seen)
	}
}
