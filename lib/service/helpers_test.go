package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/link2pay/link2pay.go/db/memstore"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/shopspring/decimal"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stretchr/testify/require"
	"github.com/ziflex/lecho/v3"
)

// fakeLedger is an in-memory ledger. History is kept most recent first, as
// the real gateway returns it.
type fakeLedger struct {
	mu        sync.Mutex
	accounts  map[string]int64
	txs       map[string]ledger.VerifiedTransaction
	history   map[string][]string
	listErr   map[string]error
	submit    func(blob string) (*ledger.SubmitResult, error)
	listHook  func(address string)
	loads     int
	lastHash  int
	ledgerSeq int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:  map[string]int64{},
		txs:       map[string]ledger.VerifiedTransaction{},
		history:   map[string][]string{},
		listErr:   map[string]error{},
		ledgerSeq: 1000,
	}
}

func (l *fakeLedger) LoadAccount(ctx context.Context, address string) (*ledger.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads++
	sequence, ok := l.accounts[address]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &ledger.AccountInfo{Address: address, Sequence: sequence}, nil
}

func (l *fakeLedger) SubmitTransaction(ctx context.Context, signedBlob string) (*ledger.SubmitResult, error) {
	if l.submit == nil {
		return nil, &ledger.SubmissionError{TransactionCode: "tx_bad_auth"}
	}
	return l.submit(signedBlob)
}

func (l *fakeLedger) GetTransaction(ctx context.Context, hash string) (*ledger.VerifiedTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[hash]
	if !ok {
		return nil, ledger.ErrTransactionNotFound
	}
	tx.Legs = append([]ledger.TransferLeg(nil), tx.Legs...)
	return &tx, nil
}

func (l *fakeLedger) ListRecentTransactions(ctx context.Context, address string, limit int) ([]ledger.TransactionSummary, error) {
	if l.listHook != nil {
		l.listHook(address)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.listErr[address]; err != nil {
		return nil, err
	}
	result := []ledger.TransactionSummary{}
	for _, hash := range l.history[address] {
		if len(result) == limit {
			break
		}
		tx := l.txs[hash]
		result = append(result, ledger.TransactionSummary{
			Hash:           tx.Hash,
			Successful:     tx.Successful,
			LedgerSequence: tx.LedgerSequence,
			Memo:           tx.Memo,
			MemoType:       "text",
			Source:         tx.Source,
			CreatedAt:      tx.CreatedAt,
		})
	}
	return result, nil
}

func (l *fakeLedger) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// record closes tx into a new ledger and indexes it for every account it touches.
func (l *fakeLedger) record(tx ledger.VerifiedTransaction) ledger.VerifiedTransaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tx.Hash == "" {
		l.lastHash++
		tx.Hash = fmt.Sprintf("%064x", l.lastHash)
	}
	l.ledgerSeq++
	tx.LedgerSequence = l.ledgerSeq
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(l.ledgerSeq) * time.Second)
	}
	l.txs[tx.Hash] = tx
	touched := map[string]bool{tx.Source: true}
	for _, leg := range tx.Legs {
		touched[leg.To] = true
	}
	for address := range touched {
		l.history[address] = append([]string{tx.Hash}, l.history[address]...)
	}
	return tx
}

type fixture struct {
	svc    *Link2payService
	store  *memstore.Store
	ledger *fakeLedger
	assets ledger.AssetRegistry
	payee  string
	payer  string
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		ledger: newFakeLedger(),
		payee:  keypair.MustRandom().Address(),
		payer:  keypair.MustRandom().Address(),
		now:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	f.assets = ledger.NewAssetRegistry(&ledger.Config{
		USDCIssuer: keypair.MustRandom().Address(),
		EURCIssuer: keypair.MustRandom().Address(),
	})
	f.ledger.accounts[f.payee] = 100
	f.ledger.accounts[f.payer] = 200
	f.svc = &Link2payService{
		Config: &Config{
			WatcherInterval:    10 * time.Millisecond,
			WatcherLookback:    20,
			WatcherConcurrency: 2,
			PayIntentGrace:     10 * time.Minute,
		},
		Invoices:      f.store,
		Payments:      f.store,
		Ledger:        f.ledger,
		TxBuilder:     ledger.NewStellarTxBuilder(network.TestNetworkPassphrase),
		Assets:        f.assets,
		Logger:        lecho.New(io.Discard),
		InvoicePubSub: NewPubsub(),
		Now:           func() time.Time { return f.now },
	}
	return f
}

func (f *fixture) asset(t *testing.T, currency string) ledger.Asset {
	t.Helper()
	asset, err := f.assets.Resolve(currency)
	require.NoError(t, err)
	return asset
}

func invoiceInput(currency, rate string) InvoiceInput {
	return InvoiceInput{
		Title:       "Design work",
		ClientName:  "Ada",
		ClientEmail: "ada@example.com",
		Currency:    currency,
		LineItems: []LineItemInput{
			{Description: "Logo", Quantity: decimal.NewFromInt(1), Rate: decimal.RequireFromString(rate)},
		},
	}
}

// pendingInvoice creates and sends an invoice for payee.
func (f *fixture) pendingInvoice(t *testing.T, payee, currency, total string) *models.Invoice {
	t.Helper()
	ctx := context.Background()
	invoice, err := f.svc.CreateInvoice(ctx, payee, invoiceInput(currency, total))
	require.NoError(t, err)
	invoice, err = f.svc.SendInvoice(ctx, payee, invoice.ID)
	require.NoError(t, err)
	return invoice
}

// pay records a successful transfer from the fixture payer.
func (f *fixture) pay(to, memo, amount string, asset ledger.Asset) ledger.VerifiedTransaction {
	return f.ledger.record(ledger.VerifiedTransaction{
		Successful: true,
		Memo:       memo,
		MemoType:   "text",
		Source:     f.payer,
		Legs: []ledger.TransferLeg{{
			From:   f.payer,
			To:     to,
			Amount: decimal.RequireFromString(amount),
			Asset:  asset,
		}},
	})
}

func (f *fixture) invoice(t *testing.T, id string) *models.Invoice {
	t.Helper()
	invoice, err := f.store.GetInvoice(context.Background(), id)
	require.NoError(t, err)
	return invoice
}
