package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrUnavailable wraps transport and server failures of the ledger API.
	ErrUnavailable = errors.New("ledger unavailable")
)

// SubmissionError carries the ledger-native result codes of a rejected submission.
type SubmissionError struct {
	TransactionCode string
	OperationCodes  []string
	Err             error
}

func (e *SubmissionError) Error() string {
	if len(e.OperationCodes) == 0 {
		return fmt.Sprintf("transaction failed: %s", e.TransactionCode)
	}
	return fmt.Sprintf("transaction failed: %s [%s]", e.TransactionCode, strings.Join(e.OperationCodes, ", "))
}

func (e *SubmissionError) Unwrap() error { return e.Err }
