package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountInfo struct {
	Address  string
	Sequence int64
}

type SubmitResult struct {
	Hash           string
	LedgerSequence int64
}

type TransactionSummary struct {
	Hash           string
	Successful     bool
	LedgerSequence int64
	Memo           string
	MemoType       string
	Source         string
	CreatedAt      time.Time
}

type VerifiedTransaction struct {
	Hash           string        `json:"hash"`
	Successful     bool          `json:"successful"`
	LedgerSequence int64         `json:"ledgerSequence"`
	Memo           string        `json:"memo"`
	MemoType       string        `json:"memoType"`
	Source         string        `json:"source"`
	CreatedAt      time.Time     `json:"createdAt"`
	Legs           []TransferLeg `json:"legs"`
}

// TransferLeg is one payment sub-operation of a transaction.
type TransferLeg struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
	Asset  Asset           `json:"asset"`
}

type PaymentParams struct {
	Source      AccountInfo
	Destination string
	Amount      decimal.Decimal
	Asset       Asset
	Memo        string
	Timeout     time.Duration
}

type UnsignedTransaction struct {
	Blob   string
	Hash   string
	Amount string
}
