package service

import (
	"context"

	"github.com/link2pay/link2pay.go/db/models"
)

// InvoiceStore persists invoices and their line items.
// Lookups of unknown ids return common.ErrInvoiceNotFound.
type InvoiceStore interface {
	// CreateInvoice returns common.ErrInvoiceNumberCollision when the number is taken.
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, error)
	// UpdateDraftInvoice replaces the editable fields and line items while the
	// stored invoice is still DRAFT, otherwise common.ErrInvalidState.
	UpdateDraftInvoice(ctx context.Context, invoice *models.Invoice) error
	DeleteDraftInvoice(ctx context.Context, id string) error
	// TransitionInvoice moves the invoice to status `to` if its current status
	// is one of `from`, applying mutate inside the same transaction. It returns
	// common.ErrInvalidState when the current status does not match.
	TransitionInvoice(ctx context.Context, id string, from []string, to string, mutate func(*models.Invoice) error) (*models.Invoice, error)
}

// PaymentStore persists settlement records.
type PaymentStore interface {
	// GetPaymentByHash returns common.ErrPaymentNotFound when no row exists.
	GetPaymentByHash(ctx context.Context, hash string) (*models.Payment, error)
	GetPaymentForInvoice(ctx context.Context, invoiceID string) (*models.Payment, error)
	// SettleInvoice marks the invoice PAID and inserts the payment row in one
	// storage transaction. It reports false without writing when the invoice is
	// already PAID or a payment for the hash already exists.
	SettleInvoice(ctx context.Context, settlement models.Settlement) (bool, error)
}
