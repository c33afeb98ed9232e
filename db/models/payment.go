package models

import (
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Payment : Settlement record, one per settled invoice.
// Rows are append-only: created in the same transaction that marks the invoice paid.
type Payment struct {
	ID              int64           `json:"id" bun:",pk,autoincrement"`
	InvoiceID       string          `json:"invoiceId" bun:",unique,notnull"`
	Invoice         *Invoice        `json:"-" bun:"rel:belongs-to,join:invoice_id=id"`
	TransactionHash string          `json:"transactionHash" bun:",unique,notnull"`
	LedgerSequence  int64           `json:"ledgerSequence" bun:",notnull"`
	FromAddress     string          `json:"fromAddress" bun:",notnull"`
	ToAddress       string          `json:"toAddress" bun:",notnull"`
	Amount          decimal.Decimal `json:"amount" bun:"type:numeric(20,7),notnull"`
	AssetCode       string          `json:"assetCode" bun:",notnull"`
	AssetIssuer     string          `json:"assetIssuer,omitempty" bun:",nullzero"`
	CreatedAt       time.Time       `json:"createdAt" bun:",nullzero,notnull,default:current_timestamp"`
}

// Settlement carries everything the commit step writes: the invoice's
// settlement fields and the payment row.
type Settlement struct {
	InvoiceID       string
	TransactionHash string
	LedgerSequence  int64
	FromAddress     string
	ToAddress       string
	Amount          decimal.Decimal
	AssetCode       string
	AssetIssuer     string
	PaidAt          time.Time
}

func (s Settlement) Payment() Payment {
	return Payment{
		InvoiceID:       s.InvoiceID,
		TransactionHash: s.TransactionHash,
		LedgerSequence:  s.LedgerSequence,
		FromAddress:     s.FromAddress,
		ToAddress:       s.ToAddress,
		Amount:          s.Amount,
		AssetCode:       s.AssetCode,
		AssetIssuer:     s.AssetIssuer,
	}
}

// Apply writes the settlement fields onto the invoice.
func (s Settlement) Apply(invoice *Invoice) {
	invoice.Status = common.InvoiceStatusPaid
	invoice.TransactionHash = s.TransactionHash
	invoice.LedgerSequence = s.LedgerSequence
	invoice.PayerAddress = s.FromAddress
	invoice.PaidAt = bun.NullTime{Time: s.PaidAt}
	invoice.IntentExpiresAt = bun.NullTime{}
}
