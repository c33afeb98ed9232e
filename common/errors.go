package common

import "errors"

var (
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrInvalidState           = errors.New("invoice is not in a valid state for this operation")
	ErrForbidden              = errors.New("invoice belongs to another wallet")
	ErrSelfPayment            = errors.New("payer and payee address are the same")
	ErrInvalidAddress         = errors.New("invalid ledger address")
	ErrUnknownAsset           = errors.New("unknown asset")
	ErrPayeeAccountNotFound   = errors.New("payee account does not exist on the ledger")
	ErrPayerAccountNotFound   = errors.New("payer account does not exist on the ledger")
	ErrInvalidTransactionHash = errors.New("invalid transaction hash")
	ErrTransactionNotFound    = errors.New("transaction not found on the ledger")
	ErrTransactionFailed      = errors.New("transaction was not successful on the ledger")
	ErrMemoMismatch           = errors.New("transaction memo does not reference the invoice")
	ErrNoQualifyingTransfer   = errors.New("transaction has no transfer that settles the invoice")
	ErrDuplicatePayment       = errors.New("transaction already settled another invoice")
	ErrInvalidInvoice         = errors.New("invalid invoice")
	ErrInvoiceNumberCollision = errors.New("invoice number already in use")
	ErrPaymentNotFound        = errors.New("payment not found")
)
