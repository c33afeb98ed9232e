package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
)

var webhookClient = &http.Client{Timeout: 10 * time.Second}

type WebhookPayload struct {
	Event   string         `json:"event"`
	Invoice models.Invoice `json:"invoice"`
}

// StartWebhookSubscription posts every settled invoice to the configured url
// until ctx is done.
func (svc *Link2payService) StartWebhookSubscription(ctx context.Context, url string) {
	svc.Logger.Infof("Starting webhook subscription with webhook url %s", url)
	subId, paidInvoices := svc.InvoicePubSub.Subscribe(common.InvoiceEventPaid)
	defer svc.InvoicePubSub.Unsubscribe(subId, common.InvoiceEventPaid)
	for {
		select {
		case <-ctx.Done():
			return
		case invoice := <-paidInvoices:
			svc.postToWebhook(ctx, url, invoice)
		}
	}
}

func (svc *Link2payService) postToWebhook(ctx context.Context, url string, invoice models.Invoice) {
	payload := new(bytes.Buffer)
	err := json.NewEncoder(payload).Encode(WebhookPayload{Event: common.InvoiceEventPaid, Invoice: invoice})
	if err != nil {
		svc.Logger.Error(err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, payload)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := webhookClient.Do(req)
	if err != nil {
		svc.Logger.Error(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, err := io.ReadAll(resp.Body)
		if err != nil {
			svc.Logger.Error(err)
		}
		svc.Logger.Errorf("Webhook status code was %d, body: %s", resp.StatusCode, msg)
	}
}
