package service

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/rabbitmq"
)

// StartRabbitMqPublisher forwards settled invoices to the broker until ctx is done.
func (svc *Link2payService) StartRabbitMqPublisher(ctx context.Context, client rabbitmq.Client) error {
	svc.Logger.Infof("Starting rabbitmq publisher: exchange:%s", svc.Config.RabbitMQInvoiceExchange)
	err := client.StartPublishInvoices(ctx, svc.SubscribePaidInvoices, svc.EncodeInvoiceForPublish)
	if err == context.Canceled {
		return nil
	}
	return err
}

func (svc *Link2payService) SubscribePaidInvoices() (<-chan models.Invoice, func(), error) {
	subId, paid := svc.InvoicePubSub.Subscribe(common.InvoiceEventPaid)
	return paid, func() { svc.InvoicePubSub.Unsubscribe(subId, common.InvoiceEventPaid) }, nil
}

// EncodeInvoiceForPublish writes the event payload shared by the broker and
// the webhook.
func (svc *Link2payService) EncodeInvoiceForPublish(ctx context.Context, w io.Writer, invoice models.Invoice) error {
	return json.NewEncoder(w).Encode(WebhookPayload{Event: common.InvoiceEventPaid, Invoice: invoice})
}

// PaidInvoicesBetween lists invoices settled in [from, to).
func (svc *Link2payService) PaidInvoicesBetween(ctx context.Context, from, to time.Time) ([]models.Invoice, error) {
	return svc.Invoices.ListInvoices(ctx, models.InvoiceFilter{
		Statuses: []string{common.InvoiceStatusPaid},
		PaidFrom: from,
		PaidTo:   to,
	})
}

// ReplayInvoices feeds invoices to a publisher once, closing the stream
// afterwards so the publisher returns when done.
func ReplayInvoices(invoices []models.Invoice) rabbitmq.SubscribeToInvoicesFunc {
	return func() (<-chan models.Invoice, func(), error) {
		stream := make(chan models.Invoice, len(invoices))
		for _, invoice := range invoices {
			stream <- invoice
		}
		close(stream)
		return stream, func() {}, nil
	}
}
