package common

import "time"

const (
	InvoiceStatusDraft      = "DRAFT"
	InvoiceStatusPending    = "PENDING"
	InvoiceStatusProcessing = "PROCESSING"
	InvoiceStatusPaid       = "PAID"
	InvoiceStatusFailed     = "FAILED"
	InvoiceStatusExpired    = "EXPIRED"
	InvoiceStatusCancelled  = "CANCELLED"

	CurrencyXLM  = "XLM"
	CurrencyUSDC = "USDC"
	CurrencyEURC = "EURC"

	// text memos on the ledger carry at most 28 bytes
	MemoMaxBytes = 28

	InvoiceNumberPrefix   = "INV-"
	InvoiceNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	InvoiceNumberLength   = 8

	// ledger amounts carry 7 decimal places
	LedgerAmountPrecision = 7

	PayIntentTimeout = 300 * time.Second

	WalletAddressHeader = "X-Wallet-Address"

	MaxLineItems = 50

	InvoiceEventPaid = "invoice.paid"
)
