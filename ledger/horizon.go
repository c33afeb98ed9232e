package ledger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/base"
	"github.com/stellar/go/protocols/horizon/operations"
)

const maxOperationsPerTransaction = 100

// horizonAPI is the slice of the horizon client the gateway uses.
type horizonAPI interface {
	AccountDetail(request horizonclient.AccountRequest) (horizon.Account, error)
	TransactionDetail(txHash string) (horizon.Transaction, error)
	Transactions(request horizonclient.TransactionRequest) (horizon.TransactionsPage, error)
	Operations(request horizonclient.OperationRequest) (operations.OperationsPage, error)
	SubmitTransactionXDR(transactionXdr string) (horizon.Transaction, error)
}

// HorizonGateway implements Gateway over the Horizon REST API.
type HorizonGateway struct {
	client  horizonAPI
	timeout time.Duration
}

func NewHorizonGateway(c *Config) *HorizonGateway {
	return NewHorizonGatewayWithClient(&horizonclient.Client{
		HorizonURL: c.HorizonURL,
		HTTP:       &http.Client{Timeout: c.Timeout},
	}, c.Timeout)
}

func NewHorizonGatewayWithClient(client horizonAPI, timeout time.Duration) *HorizonGateway {
	return &HorizonGateway{client: client, timeout: timeout}
}

func (g *HorizonGateway) LoadAccount(ctx context.Context, address string) (*AccountInfo, error) {
	account, err := call(ctx, g.timeout, func() (horizon.Account, error) {
		return g.client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: load account %s: %w", ErrUnavailable, address, err)
	}
	sequence, err := account.GetSequenceNumber()
	if err != nil {
		return nil, fmt.Errorf("%w: load account %s: %w", ErrUnavailable, address, err)
	}
	return &AccountInfo{Address: address, Sequence: sequence}, nil
}

func (g *HorizonGateway) SubmitTransaction(ctx context.Context, signedBlob string) (*SubmitResult, error) {
	tx, err := call(ctx, g.timeout, func() (horizon.Transaction, error) {
		return g.client.SubmitTransactionXDR(signedBlob)
	})
	if err != nil {
		return nil, submissionError(err)
	}
	return &SubmitResult{Hash: tx.Hash, LedgerSequence: int64(tx.Ledger)}, nil
}

func (g *HorizonGateway) GetTransaction(ctx context.Context, hash string) (*VerifiedTransaction, error) {
	tx, err := call(ctx, g.timeout, func() (horizon.Transaction, error) {
		return g.client.TransactionDetail(hash)
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: get transaction %s: %w", ErrUnavailable, hash, err)
	}
	page, err := call(ctx, g.timeout, func() (operations.OperationsPage, error) {
		return g.client.Operations(horizonclient.OperationRequest{
			ForTransaction: hash,
			Limit:          maxOperationsPerTransaction,
			IncludeFailed:  true,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get operations for %s: %w", ErrUnavailable, hash, err)
	}
	summary := toSummary(tx)
	return &VerifiedTransaction{
		Hash:           summary.Hash,
		Successful:     summary.Successful,
		LedgerSequence: summary.LedgerSequence,
		Memo:           summary.Memo,
		MemoType:       summary.MemoType,
		Source:         summary.Source,
		CreatedAt:      summary.CreatedAt,
		Legs:           TransferLegs(page.Embedded.Records),
	}, nil
}

func (g *HorizonGateway) ListRecentTransactions(ctx context.Context, address string, limit int) ([]TransactionSummary, error) {
	page, err := call(ctx, g.timeout, func() (horizon.TransactionsPage, error) {
		return g.client.Transactions(horizonclient.TransactionRequest{
			ForAccount: address,
			Limit:      uint(limit),
			Order:      horizonclient.OrderDesc,
		})
	})
	if err != nil {
		// an account without ledger presence has no history
		if horizonclient.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list transactions for %s: %w", ErrUnavailable, address, err)
	}
	result := make([]TransactionSummary, 0, len(page.Embedded.Records))
	for _, tx := range page.Embedded.Records {
		result = append(result, toSummary(tx))
	}
	return result, nil
}

// TransferLegs extracts the payment-like operations of a transaction.
func TransferLegs(records []operations.Operation) []TransferLeg {
	legs := []TransferLeg{}
	for _, record := range records {
		var payment *operations.Payment
		switch op := record.(type) {
		case operations.Payment:
			payment = &op
		case *operations.Payment:
			payment = op
		case operations.PathPayment:
			payment = &op.Payment
		case *operations.PathPayment:
			payment = &op.Payment
		case operations.PathPaymentStrictSend:
			payment = &op.Payment
		case *operations.PathPaymentStrictSend:
			payment = &op.Payment
		default:
			continue
		}
		amount, err := decimal.NewFromString(payment.Amount)
		if err != nil {
			continue
		}
		legs = append(legs, TransferLeg{
			From:   payment.From,
			To:     payment.To,
			Amount: amount,
			Asset:  assetFromHorizon(payment.Asset),
		})
	}
	return legs
}

func assetFromHorizon(a base.Asset) Asset {
	if a.Type == nativeAssetType {
		return Asset{Code: "XLM"}
	}
	return Asset{Code: a.Code, Issuer: a.Issuer}
}

func toSummary(tx horizon.Transaction) TransactionSummary {
	return TransactionSummary{
		Hash:           tx.Hash,
		Successful:     tx.Successful,
		LedgerSequence: int64(tx.Ledger),
		Memo:           tx.Memo,
		MemoType:       tx.MemoType,
		Source:         tx.Account,
		CreatedAt:      tx.LedgerCloseTime,
	}
}

func submissionError(err error) error {
	var hErr *horizonclient.Error
	if !errors.As(err, &hErr) {
		return fmt.Errorf("%w: submit transaction: %w", ErrUnavailable, err)
	}
	codes, codesErr := hErr.ResultCodes()
	if codesErr != nil || codes == nil {
		return &SubmissionError{TransactionCode: hErr.Problem.Title, Err: err}
	}
	return &SubmissionError{
		TransactionCode: codes.TransactionCode,
		OperationCodes:  codes.OperationCodes,
		Err:             err,
	}
}

// call bounds a blocking horizon request by ctx and timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn()
		done <- result{value, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.value, r.err
	}
}
