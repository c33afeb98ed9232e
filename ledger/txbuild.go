package ledger

import (
	"fmt"

	"github.com/link2pay/link2pay.go/common"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/txnbuild"
)

// StellarTxBuilder builds unsigned payment transactions. It never signs.
type StellarTxBuilder struct {
	passphrase string
}

func NewStellarTxBuilder(networkPassphrase string) *StellarTxBuilder {
	return &StellarTxBuilder{passphrase: networkPassphrase}
}

func (b *StellarTxBuilder) NetworkPassphrase() string {
	return b.passphrase
}

func (b *StellarTxBuilder) BuildPayment(params PaymentParams) (*UnsignedTransaction, error) {
	amount := FormatAmount(params.Amount)
	var asset txnbuild.Asset = txnbuild.NativeAsset{}
	if !params.Asset.IsNative() {
		asset = txnbuild.CreditAsset{Code: params.Asset.Code, Issuer: params.Asset.Issuer}
	}
	timeout := int64(params.Timeout.Seconds())
	if timeout <= 0 {
		timeout = int64(common.PayIntentTimeout.Seconds())
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: params.Source.Address, Sequence: params.Source.Sequence},
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: params.Destination,
				Amount:      amount,
				Asset:       asset,
			},
		},
		BaseFee:       txnbuild.MinBaseFee,
		Memo:          txnbuild.MemoText(params.Memo),
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(timeout)},
	})
	if err != nil {
		return nil, fmt.Errorf("build payment transaction: %w", err)
	}
	blob, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("encode payment transaction: %w", err)
	}
	hash, err := tx.HashHex(b.passphrase)
	if err != nil {
		return nil, fmt.Errorf("hash payment transaction: %w", err)
	}
	return &UnsignedTransaction{Blob: blob, Hash: hash, Amount: amount}, nil
}

// FormatAmount renders d with the ledger's fixed precision.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(common.LedgerAmountPrecision)
}
