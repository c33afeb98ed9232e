package ledger

import (
	"context"
)

// Gateway is the contract the reconciliation core consumes. Implementations
// carry no business logic.
type Gateway interface {
	// LoadAccount returns ErrAccountNotFound when the address has no ledger presence.
	LoadAccount(ctx context.Context, address string) (*AccountInfo, error)
	// SubmitTransaction returns a *SubmissionError when the ledger rejects the blob.
	SubmitTransaction(ctx context.Context, signedBlob string) (*SubmitResult, error)
	// GetTransaction returns ErrTransactionNotFound while the ledger has no record of hash.
	GetTransaction(ctx context.Context, hash string) (*VerifiedTransaction, error)
	// ListRecentTransactions returns up to limit transactions, most recent first.
	ListRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionSummary, error)
}

// TxBuilder encodes unsigned transfer descriptors.
type TxBuilder interface {
	BuildPayment(params PaymentParams) (*UnsignedTransaction, error)
	NetworkPassphrase() string
}
