package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/ledger"
)

// TransactionVerifier normalizes a ledger transaction into a VerifiedTransaction.
type TransactionVerifier struct {
	gateway ledger.Gateway
}

func NewTransactionVerifier(gateway ledger.Gateway) *TransactionVerifier {
	return &TransactionVerifier{gateway: gateway}
}

// Verify fetches the transaction with its transfer legs. found is false while
// the ledger has no record of hash, which callers must treat as "not yet
// observable" rather than as a failure.
func (v *TransactionVerifier) Verify(ctx context.Context, hash string) (tx *ledger.VerifiedTransaction, found bool, err error) {
	hash, err = NormalizeHash(hash)
	if err != nil {
		return nil, false, err
	}
	tx, err = v.gateway.GetTransaction(ctx, hash)
	if errors.Is(err, ledger.ErrTransactionNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return tx, true, nil
}

// NormalizeHash lowercases a transaction hash and checks it is 32 hex-encoded bytes.
func NormalizeHash(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if len(hash) != 64 {
		return "", fmt.Errorf("%w: expected 64 hex characters", common.ErrInvalidTransactionHash)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidTransactionHash, err)
	}
	return hash, nil
}

func (svc *Link2payService) verifier() *TransactionVerifier {
	return NewTransactionVerifier(svc.Ledger)
}

// VerifyTransaction returns the normalized record or common.ErrTransactionNotFound.
func (svc *Link2payService) VerifyTransaction(ctx context.Context, hash string) (*ledger.VerifiedTransaction, error) {
	tx, found, err := svc.verifier().Verify(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrTransactionNotFound
	}
	return tx, nil
}
