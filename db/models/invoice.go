package models

import (
	"context"
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Invoice : Invoice Model
type Invoice struct {
	ID              string              `json:"id" bun:",pk"`
	InvoiceNumber   string              `json:"invoiceNumber" bun:",unique,notnull"`
	PayeeAddress    string              `json:"payeeAddress" bun:",notnull"`
	Title           string              `json:"title" bun:",notnull"`
	Description     string              `json:"description,omitempty" bun:",nullzero"`
	ClientName      string              `json:"clientName" bun:",notnull"`
	ClientEmail     string              `json:"clientEmail" bun:",notnull"`
	ClientCompany   string              `json:"clientCompany,omitempty" bun:",nullzero"`
	ClientAddress   string              `json:"clientAddress,omitempty" bun:",nullzero"`
	Notes           string              `json:"notes,omitempty" bun:",nullzero"`
	Currency        string              `json:"currency" bun:",notnull"`
	Subtotal        decimal.Decimal     `json:"subtotal" bun:"type:numeric(20,7),notnull"`
	TaxRate         decimal.NullDecimal `json:"taxRate" bun:"type:numeric(5,2)"`
	TaxAmount       decimal.Decimal     `json:"taxAmount" bun:"type:numeric(20,7),notnull"`
	Discount        decimal.Decimal     `json:"discount" bun:"type:numeric(20,7),notnull"`
	Total           decimal.Decimal     `json:"total" bun:"type:numeric(20,7),notnull"`
	Status          string              `json:"status" bun:",notnull,default:'DRAFT'"`
	DueDate         bun.NullTime        `json:"dueDate" bun:",nullzero"`
	TransactionHash string              `json:"transactionHash,omitempty" bun:",nullzero,unique"`
	LedgerSequence  int64               `json:"ledgerSequence,omitempty" bun:",nullzero"`
	PayerAddress    string              `json:"payerAddress,omitempty" bun:",nullzero"`
	PaidAt          bun.NullTime        `json:"paidAt" bun:",nullzero"`
	IntentExpiresAt bun.NullTime        `json:"-" bun:",nullzero"`
	SentAt          bun.NullTime        `json:"sentAt" bun:",nullzero"`
	CreatedAt       time.Time           `json:"createdAt" bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt       bun.NullTime        `json:"updatedAt"`
	LineItems       []LineItem          `json:"lineItems" bun:"rel:has-many,join:id=invoice_id"`
}

func (i *Invoice) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		i.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

// IsSettled reports whether the settlement fields have been written.
func (i *Invoice) IsSettled() bool {
	return i.Status == common.InvoiceStatusPaid && i.TransactionHash != ""
}

// Memo is the text memo a payer attaches to reference this invoice.
func (i *Invoice) Memo() string {
	return TruncateMemo(i.InvoiceNumber)
}

// TruncateMemo cuts s to the ledger memo limit without splitting a rune.
func TruncateMemo(s string) string {
	if len(s) <= common.MemoMaxBytes {
		return s
	}
	cut := 0
	for i := range s {
		if i > common.MemoMaxBytes {
			break
		}
		cut = i
	}
	return s[:cut]
}

var _ bun.BeforeAppendModelHook = (*Invoice)(nil)

// InvoiceFilter narrows ListInvoices.
type InvoiceFilter struct {
	PayeeAddress string
	Statuses     []string
	// PaidFrom and PaidTo bound paid_at when set.
	PaidFrom time.Time
	PaidTo   time.Time
	Limit    int
}
