package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/uptrace/bun"
)

type PayIntentAsset struct {
	Code   string  `json:"code"`
	Issuer *string `json:"issuer"`
}

// PayIntent is the unsigned transfer descriptor handed to the payer's wallet.
type PayIntent struct {
	InvoiceID               string         `json:"invoiceId"`
	UnsignedTransactionBlob string         `json:"unsignedTransactionBlob"`
	TransactionHash         string         `json:"transactionHash"`
	ShareableUri            string         `json:"shareableUri"`
	Destination             string         `json:"destination"`
	Amount                  string         `json:"amount"`
	Asset                   PayIntentAsset `json:"asset"`
	Memo                    string         `json:"memo"`
	ExpirySeconds           int            `json:"expirySeconds"`
	NetworkPassphrase       string         `json:"networkPassphrase"`
	QrCode                  string         `json:"qrCode,omitempty"`
}

// CreatePayIntent validates the invoice and the payer, builds the unsigned
// transaction and moves the invoice to PROCESSING. Nothing is built for a
// payment the invoice could never accept.
func (svc *Link2payService) CreatePayIntent(ctx context.Context, invoiceID, payer string) (*PayIntent, error) {
	invoice, err := svc.Invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status != common.InvoiceStatusDraft && invoice.Status != common.InvoiceStatusPending {
		return nil, fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, invoice.Status)
	}
	if payer == invoice.PayeeAddress {
		return nil, common.ErrSelfPayment
	}
	if !ledger.IsValidAddress(payer) {
		return nil, fmt.Errorf("%w: payer %s", common.ErrInvalidAddress, payer)
	}
	if !ledger.IsValidAddress(invoice.PayeeAddress) {
		return nil, fmt.Errorf("%w: payee %s", common.ErrInvalidAddress, invoice.PayeeAddress)
	}
	asset, err := svc.Assets.Resolve(invoice.Currency)
	if err != nil {
		return nil, err
	}
	if _, err := svc.Ledger.LoadAccount(ctx, invoice.PayeeAddress); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrPayeeAccountNotFound, invoice.PayeeAddress)
		}
		return nil, err
	}
	source, err := svc.Ledger.LoadAccount(ctx, payer)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", common.ErrPayerAccountNotFound, payer)
		}
		return nil, err
	}

	memo := invoice.Memo()
	unsigned, err := svc.TxBuilder.BuildPayment(ledger.PaymentParams{
		Source:      *source,
		Destination: invoice.PayeeAddress,
		Amount:      invoice.Total,
		Asset:       asset,
		Memo:        memo,
		Timeout:     common.PayIntentTimeout,
	})
	if err != nil {
		return nil, err
	}

	expiresAt := svc.now().Add(common.PayIntentTimeout)
	from := SourcesOf(common.InvoiceStatusProcessing, common.InvoiceStatusDraft, common.InvoiceStatusPending)
	_, err = svc.Invoices.TransitionInvoice(ctx, invoice.ID, from, common.InvoiceStatusProcessing, func(i *models.Invoice) error {
		i.IntentExpiresAt = bun.NullTime{Time: expiresAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Pay intent created: invoice_id:%s payer:%s amount:%s %s tx:%s", invoice.ID, payer, unsigned.Amount, asset.Code, unsigned.Hash)

	intent := &PayIntent{
		InvoiceID:               invoice.ID,
		UnsignedTransactionBlob: unsigned.Blob,
		TransactionHash:         unsigned.Hash,
		Destination:             invoice.PayeeAddress,
		Amount:                  unsigned.Amount,
		Asset:                   PayIntentAsset{Code: asset.Code},
		Memo:                    memo,
		ExpirySeconds:           int(common.PayIntentTimeout.Seconds()),
		NetworkPassphrase:       svc.TxBuilder.NetworkPassphrase(),
	}
	if !asset.IsNative() {
		issuer := asset.Issuer
		intent.Asset.Issuer = &issuer
	}
	intent.ShareableUri = BuildPaymentURI(invoice.PayeeAddress, unsigned.Amount, asset, memo)
	qr, err := QRCodeDataURI(intent.ShareableUri)
	if err != nil {
		// the descriptor is usable without the image
		svc.Logger.Errorf("Failed to render pay intent QR code: invoice_id:%s error:%v", invoice.ID, err)
	}
	intent.QrCode = qr
	return intent, nil
}
