package service

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/link2pay/link2pay.go/common"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePayIntent(t *testing.T) {
	f := newFixture(t)
	invoice := f.pendingInvoice(t, f.payee, "USDC", "100")

	intent, err := f.svc.CreatePayIntent(context.Background(), invoice.ID, f.payer)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, intent.InvoiceID)
	assert.NotEmpty(t, intent.UnsignedTransactionBlob)
	assert.Len(t, intent.TransactionHash, 64)
	assert.Equal(t, f.payee, intent.Destination)
	assert.Equal(t, "100.0000000", intent.Amount)
	assert.Equal(t, "USDC", intent.Asset.Code)
	require.NotNil(t, intent.Asset.Issuer)
	assert.Equal(t, f.asset(t, "USDC").Issuer, *intent.Asset.Issuer)
	assert.Equal(t, invoice.InvoiceNumber, intent.Memo)
	assert.Equal(t, 300, intent.ExpirySeconds)
	assert.Equal(t, network.TestNetworkPassphrase, intent.NetworkPassphrase)
	assert.True(t, strings.HasPrefix(intent.QrCode, "data:image/png;base64,"))

	uri, err := url.Parse(intent.ShareableUri)
	require.NoError(t, err)
	assert.Equal(t, "web+stellar", uri.Scheme)
	query := uri.Query()
	assert.Equal(t, f.payee, query.Get("destination"))
	assert.Equal(t, "USDC", query.Get("asset_code"))
	assert.Equal(t, invoice.InvoiceNumber, query.Get("memo"))

	stored := f.invoice(t, invoice.ID)
	assert.Equal(t, common.InvoiceStatusProcessing, stored.Status)
	assert.Equal(t, f.now.Add(common.PayIntentTimeout), stored.IntentExpiresAt.Time)
}

func TestCreatePayIntentNativeAsset(t *testing.T) {
	f := newFixture(t)
	invoice := f.pendingInvoice(t, f.payee, "XLM", "12.5")

	intent, err := f.svc.CreatePayIntent(context.Background(), invoice.ID, f.payer)
	require.NoError(t, err)
	assert.Equal(t, "XLM", intent.Asset.Code)
	assert.Nil(t, intent.Asset.Issuer)
	assert.NotContains(t, intent.ShareableUri, "asset_code")
	assert.Contains(t, intent.ShareableUri, "amount=12.5000000")
}

func TestCreatePayIntentAgainWhileProcessing(t *testing.T) {
	f := newFixture(t)
	invoice := f.pendingInvoice(t, f.payee, "XLM", "1")
	_, err := f.svc.CreatePayIntent(context.Background(), invoice.ID, f.payer)
	require.NoError(t, err)

	_, err = f.svc.CreatePayIntent(context.Background(), invoice.ID, f.payer)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestCreatePayIntentRejectsSelfPaymentBeforeTouchingLedger(t *testing.T) {
	f := newFixture(t)
	invoice := f.pendingInvoice(t, f.payee, "XLM", "1")

	_, err := f.svc.CreatePayIntent(context.Background(), invoice.ID, f.payee)
	assert.ErrorIs(t, err, common.ErrSelfPayment)
	assert.Zero(t, f.ledger.loadCount())
	assert.Equal(t, common.InvoiceStatusPending, f.invoice(t, invoice.ID).Status)
}

func TestCreatePayIntentErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := keypair.MustRandom().Address()

	invoice := f.pendingInvoice(t, f.payee, "XLM", "1")
	_, err := f.svc.CreatePayIntent(ctx, invoice.ID, "GBAD")
	assert.ErrorIs(t, err, common.ErrInvalidAddress)

	_, err = f.svc.CreatePayIntent(ctx, invoice.ID, stranger)
	assert.ErrorIs(t, err, common.ErrPayerAccountNotFound)

	unfunded := f.pendingInvoice(t, stranger, "XLM", "1")
	_, err = f.svc.CreatePayIntent(ctx, unfunded.ID, f.payer)
	assert.ErrorIs(t, err, common.ErrPayeeAccountNotFound)

	_, err = f.svc.CreatePayIntent(ctx, "missing", f.payer)
	assert.ErrorIs(t, err, common.ErrInvoiceNotFound)

	cancelled, err := f.svc.CancelInvoice(ctx, f.payee, invoice.ID)
	require.NoError(t, err)
	_, err = f.svc.CreatePayIntent(ctx, cancelled.ID, f.payer)
	assert.ErrorIs(t, err, common.ErrInvalidState)

	// failed validations leave invoices untouched
	assert.Equal(t, common.InvoiceStatusPending, f.invoice(t, unfunded.ID).Status)
}

func TestCreatePayIntentForPaidInvoice(t *testing.T) {
	f := newFixture(t)
	invoice := f.pendingInvoice(t, f.payee, "XLM", "1")
	tx := f.pay(f.payee, invoice.InvoiceNumber, "1", f.asset(t, "XLM"))
	_, err := f.svc.ConfirmPayment(context.Background(), invoice.ID, tx.Hash)
	require.NoError(t, err)

	_, err = f.svc.CreatePayIntent(context.Background(), invoice.ID, f.payer)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestBuildPaymentURI(t *testing.T) {
	f := newFixture(t)
	uri := BuildPaymentURI(f.payee, "5.0000000", f.asset(t, "EURC"), "INV-AB CD")
	assert.True(t, strings.HasPrefix(uri, "web+stellar:pay?"))
	values, err := url.ParseQuery(strings.TrimPrefix(uri, "web+stellar:pay?"))
	require.NoError(t, err)
	assert.Equal(t, "EURC", values.Get("asset_code"))
	assert.Equal(t, f.asset(t, "EURC").Issuer, values.Get("asset_issuer"))
	assert.Equal(t, "INV-AB CD", values.Get("memo"))
	assert.Equal(t, "MEMO_TEXT", values.Get("memo_type"))
}
