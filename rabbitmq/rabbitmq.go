package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/gommon/log"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

// bufPool reuses encoding buffers across published invoices.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	DefaultInvoiceExchange = "link2pay_invoice"
)

type (
	// SubscribeToInvoicesFunc returns the stream of settled invoices and a
	// function that ends the subscription.
	SubscribeToInvoicesFunc = func() (paid <-chan models.Invoice, unsubscribe func(), err error)
	EncodeInvoiceFunc       = func(ctx context.Context, w io.Writer, invoice models.Invoice) error
)

type Client interface {
	StartPublishInvoices(context.Context, SubscribeToInvoicesFunc, EncodeInvoiceFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	invoiceExchange string
}

type ClientOption = func(client *DefaultClient)

func WithInvoiceExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		if exchange != "" {
			client.invoiceExchange = exchange
		}
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

func newDefaultClient(options ...ClientOption) *DefaultClient {
	client := &DefaultClient{
		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		invoiceExchange: DefaultInvoiceExchange,
	}

	for _, opt := range options {
		opt(client)
	}

	return client
}

// NewClient wraps an AMQP connection in an invoice publisher.
func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := newDefaultClient(options...)
	client.amqpClient = amqpClient
	return client, nil
}

// Dial connects to uri and returns a publisher on that connection.
func Dial(uri string, options ...ClientOption) (Client, error) {
	client := newDefaultClient(options...)
	amqpClient, err := DialAMQP(uri, client.logger)
	if err != nil {
		return nil, err
	}
	client.amqpClient = amqpClient
	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

// StartPublishInvoices publishes every settled invoice to the invoice
// exchange until ctx is done. A nil payloadFunc publishes the invoice as JSON.
func (client *DefaultClient) StartPublishInvoices(ctx context.Context, invoicesSubscribeFunc SubscribeToInvoicesFunc, payloadFunc EncodeInvoiceFunc) error {
	if payloadFunc == nil {
		payloadFunc = encodeInvoiceJSON
	}
	err := client.amqpClient.ExchangeDeclare(
		client.invoiceExchange,
		// topic exchanges route on the routing key
		"topic",
		// durable, not auto-deleted
		true,
		false,
		// non-internal exchanges accept direct publishing
		false,
		// wait for the server to confirm the declaration
		false,
		nil,
	)
	if err != nil {
		return err
	}

	client.logger.Info("Starting rabbitmq publisher")

	paid, unsubscribe, err := invoicesSubscribeFunc()
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case invoice, ok := <-paid:
			if !ok {
				return nil
			}
			err = client.publishInvoice(ctx, invoice, payloadFunc)
			if err != nil {
				captureErr(client.logger, err)
			}
		}
	}
}

func (client *DefaultClient) publishInvoice(ctx context.Context, invoice models.Invoice, payloadFunc EncodeInvoiceFunc) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	err := payloadFunc(ctx, payload, invoice)
	if err != nil {
		return err
	}

	err = client.amqpClient.PublishWithContext(ctx,
		client.invoiceExchange,
		common.InvoiceEventPaid,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		return err
	}

	client.logger.Debugf("Successfully published invoice to rabbitmq: invoice_id:%s tx:%s", invoice.ID, invoice.TransactionHash)

	return nil
}

func encodeInvoiceJSON(ctx context.Context, w io.Writer, invoice models.Invoice) error {
	return json.NewEncoder(w).Encode(invoice)
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
