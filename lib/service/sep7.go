package service

import (
	"encoding/base64"
	"net/url"

	"github.com/link2pay/link2pay.go/ledger"
	"github.com/skip2/go-qrcode"
)

const (
	paymentURIPrefix = "web+stellar:pay?"
	qrCodeSize       = 256
)

// BuildPaymentURI renders a SEP-7 pay link. Asset fields are omitted for the
// native asset.
func BuildPaymentURI(destination, amount string, asset ledger.Asset, memo string) string {
	params := url.Values{}
	params.Set("destination", destination)
	params.Set("amount", amount)
	if !asset.IsNative() {
		params.Set("asset_code", asset.Code)
		params.Set("asset_issuer", asset.Issuer)
	}
	params.Set("memo", memo)
	params.Set("memo_type", "MEMO_TEXT")
	return paymentURIPrefix + params.Encode()
}

// QRCodeDataURI encodes content as a PNG QR code data URI.
func QRCodeDataURI(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrCodeSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
