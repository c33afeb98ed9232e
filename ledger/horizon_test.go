package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/base"
	"github.com/stellar/go/protocols/horizon/operations"
	"github.com/stellar/go/support/render/problem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "3389e9f0f1a65f19736cacf544c2e825313e8447f569233bb8db39aa607c8889"

func notFound() error {
	return &horizonclient.Error{Problem: problem.P{
		Type:   "https://stellar.org/horizon-errors/not_found",
		Title:  "Resource Missing",
		Status: 404,
	}}
}

func TestLoadAccountNotFound(t *testing.T) {
	hmock := &horizonclient.MockClient{}
	address := keypair.MustRandom().Address()
	hmock.On("AccountDetail", horizonclient.AccountRequest{AccountID: address}).
		Return(horizon.Account{}, notFound())

	gateway := NewHorizonGatewayWithClient(hmock, time.Second)
	_, err := gateway.LoadAccount(context.Background(), address)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	hmock.AssertExpectations(t)
}

func TestGetTransactionNotFound(t *testing.T) {
	hmock := &horizonclient.MockClient{}
	hmock.On("TransactionDetail", testHash).Return(horizon.Transaction{}, notFound())

	gateway := NewHorizonGatewayWithClient(hmock, time.Second)
	tx, err := gateway.GetTransaction(context.Background(), testHash)
	assert.Nil(t, tx)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestGetTransactionNormalizesLegs(t *testing.T) {
	payer := keypair.MustRandom().Address()
	payee := keypair.MustRandom().Address()
	issuer := keypair.MustRandom().Address()
	closedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	hmock := &horizonclient.MockClient{}
	hmock.On("TransactionDetail", testHash).Return(horizon.Transaction{
		Hash:            testHash,
		Ledger:          4242,
		Successful:      true,
		Memo:            "INV-AB12CD34",
		MemoType:        "text",
		Account:         payer,
		LedgerCloseTime: closedAt,
	}, nil)

	var page operations.OperationsPage
	page.Embedded.Records = []operations.Operation{
		operations.Payment{
			Asset:  base.Asset{Type: "credit_alphanum4", Code: "USDC", Issuer: issuer},
			From:   payer,
			To:     payee,
			Amount: "100.0000000",
		},
		operations.CreateAccount{Account: payee, Funder: payer, StartingBalance: "1.0000000"},
		operations.Payment{
			Asset:  base.Asset{Type: "native"},
			From:   payer,
			To:     payee,
			Amount: "2.5000000",
		},
	}
	hmock.On("Operations", horizonclient.OperationRequest{
		ForTransaction: testHash,
		Limit:          maxOperationsPerTransaction,
		IncludeFailed:  true,
	}).Return(page, nil)

	gateway := NewHorizonGatewayWithClient(hmock, time.Second)
	tx, err := gateway.GetTransaction(context.Background(), testHash)
	require.NoError(t, err)
	assert.True(t, tx.Successful)
	assert.Equal(t, int64(4242), tx.LedgerSequence)
	assert.Equal(t, "INV-AB12CD34", tx.Memo)
	assert.Equal(t, closedAt, tx.CreatedAt)
	require.Len(t, tx.Legs, 2)
	assert.Equal(t, Asset{Code: "USDC", Issuer: issuer}, tx.Legs[0].Asset)
	assert.True(t, decimal.RequireFromString("100").Equal(tx.Legs[0].Amount))
	assert.Equal(t, payee, tx.Legs[0].To)
	assert.Equal(t, Asset{Code: "XLM"}, tx.Legs[1].Asset)
	assert.True(t, tx.Legs[1].Asset.IsNative())
}

func TestListRecentTransactions(t *testing.T) {
	address := keypair.MustRandom().Address()
	var page horizon.TransactionsPage
	page.Embedded.Records = []horizon.Transaction{
		{Hash: "b", Ledger: 11, Successful: true, Memo: "INV-2"},
		{Hash: "a", Ledger: 10, Successful: false, Memo: "INV-1"},
	}
	hmock := &horizonclient.MockClient{}
	hmock.On("Transactions", horizonclient.TransactionRequest{
		ForAccount: address,
		Limit:      20,
		Order:      horizonclient.OrderDesc,
	}).Return(page, nil)

	gateway := NewHorizonGatewayWithClient(hmock, time.Second)
	txs, err := gateway.ListRecentTransactions(context.Background(), address, 20)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "b", txs[0].Hash)
	assert.Equal(t, int64(11), txs[0].LedgerSequence)
	assert.False(t, txs[1].Successful)
}

func TestSubmitTransactionSurfacesResultCodes(t *testing.T) {
	hmock := &horizonclient.MockClient{}
	hmock.On("SubmitTransactionXDR", "AAAA").Return(horizon.Transaction{}, &horizonclient.Error{
		Problem: problem.P{
			Title:  "Transaction Failed",
			Status: 400,
			Extras: map[string]interface{}{
				"result_codes": map[string]interface{}{
					"transaction": "tx_failed",
					"operations":  []interface{}{"op_underfunded"},
				},
			},
		},
	})

	gateway := NewHorizonGatewayWithClient(hmock, time.Second)
	_, err := gateway.SubmitTransaction(context.Background(), "AAAA")
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, "tx_failed", subErr.TransactionCode)
	assert.Equal(t, []string{"op_underfunded"}, subErr.OperationCodes)
	assert.Contains(t, err.Error(), "op_underfunded")
}

func TestCallHonoursTimeout(t *testing.T) {
	_, err := call(context.Background(), 10*time.Millisecond, func() (int, error) {
		time.Sleep(200 * time.Millisecond)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	hmock := &horizonclient.MockClient{}
	address := keypair.MustRandom().Address()
	hmock.On("AccountDetail", horizonclient.AccountRequest{AccountID: address}).
		Return(horizon.Account{}, &horizonclient.Error{Problem: problem.P{Title: "Internal Server Error", Status: 500}})

	gateway := NewHorizonGatewayWithClient(hmock, time.Second)
	_, err := gateway.LoadAccount(context.Background(), address)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, errors.Is(err, ErrAccountNotFound))
}
