package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookReceivesPaidInvoices(t *testing.T) {
	f := newFixture(t)
	received := make(chan WebhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload WebhookPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.svc.StartWebhookSubscription(ctx, server.URL)
	require.Eventually(t, func() bool {
		return f.svc.InvoicePubSub.SubscriberCount(common.InvoiceEventPaid) == 1
	}, time.Second, 5*time.Millisecond)

	invoice := f.pendingInvoice(t, f.payee, "XLM", "10")
	tx := f.pay(f.payee, invoice.InvoiceNumber, "10", f.asset(t, "XLM"))
	_, err := f.svc.ConfirmPayment(ctx, invoice.ID, tx.Hash)
	require.NoError(t, err)

	select {
	case payload := <-received:
		assert.Equal(t, common.InvoiceEventPaid, payload.Event)
		assert.Equal(t, invoice.ID, payload.Invoice.ID)
		assert.Equal(t, tx.Hash, payload.Invoice.TransactionHash)
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
}

func TestPubsub(t *testing.T) {
	ps := NewPubsub()
	id, ch := ps.Subscribe(common.InvoiceEventPaid)
	assert.Equal(t, 1, ps.SubscriberCount(common.InvoiceEventPaid))

	f := newFixture(t)
	invoice := f.pendingInvoice(t, f.payee, "XLM", "1")
	ps.Publish(common.InvoiceEventPaid, *invoice)
	ps.Publish("other", *invoice)
	assert.Equal(t, invoice.ID, (<-ch).ID)

	ps.Unsubscribe(id, common.InvoiceEventPaid)
	ps.Unsubscribe(id, common.InvoiceEventPaid)
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, ps.SubscriberCount(common.InvoiceEventPaid))
}

func TestPaidInvoicesBetweenAndReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	invoice := f.pendingInvoice(t, f.payee, "XLM", "10")
	f.pendingInvoice(t, f.payee, "XLM", "10")
	tx := f.pay(f.payee, invoice.InvoiceNumber, "10", f.asset(t, "XLM"))
	_, err := f.svc.ConfirmPayment(ctx, invoice.ID, tx.Hash)
	require.NoError(t, err)

	paid, err := f.svc.PaidInvoicesBetween(ctx, tx.CreatedAt.Add(-time.Minute), tx.CreatedAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, invoice.ID, paid[0].ID)

	none, err := f.svc.PaidInvoicesBetween(ctx, tx.CreatedAt.Add(time.Second), tx.CreatedAt.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	stream, unsubscribe, err := ReplayInvoices(paid)()
	require.NoError(t, err)
	defer unsubscribe()
	assert.Equal(t, invoice.ID, (<-stream).ID)
	_, open := <-stream
	assert.False(t, open)
}
