package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

const invoiceNumberAttempts = 5

var hundred = decimal.NewFromInt(100)

type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
}

type InvoiceInput struct {
	Title         string
	Description   string
	ClientName    string
	ClientEmail   string
	ClientCompany string
	ClientAddress string
	Notes         string
	Currency      string
	TaxRate       decimal.NullDecimal
	Discount      decimal.Decimal
	DueDate       *time.Time
	LineItems     []LineItemInput
}

type InvoiceStats struct {
	Total         int                        `json:"total"`
	ByStatus      map[string]int             `json:"byStatus"`
	PaidRevenue   map[string]decimal.Decimal `json:"paidRevenue"`
	PendingAmount map[string]decimal.Decimal `json:"pendingAmount"`
}

// GenerateInvoiceNumber returns INV- followed by characters that cannot be
// confused with each other when read aloud or copied by hand.
func GenerateInvoiceNumber() string {
	return common.InvoiceNumberPrefix + random.String(common.InvoiceNumberLength, common.InvoiceNumberAlphabet)
}

func (svc *Link2payService) CreateInvoice(ctx context.Context, payee string, input InvoiceInput) (*models.Invoice, error) {
	if !ledger.IsValidAddress(payee) {
		return nil, fmt.Errorf("%w: payee %s", common.ErrInvalidAddress, payee)
	}
	invoice := &models.Invoice{
		ID:           uuid.NewString(),
		PayeeAddress: payee,
		Status:       common.InvoiceStatusDraft,
	}
	if err := svc.applyInput(invoice, input); err != nil {
		return nil, err
	}

	var err error
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		invoice.InvoiceNumber = GenerateInvoiceNumber()
		err = svc.Invoices.CreateInvoice(ctx, invoice)
		if !errors.Is(err, common.ErrInvoiceNumberCollision) {
			break
		}
		svc.Logger.Infof("Invoice number collision, retrying: number:%s", invoice.InvoiceNumber)
	}
	if err != nil {
		return nil, err
	}
	svc.Logger.Infof("Invoice created: id:%s number:%s payee:%s total:%s %s", invoice.ID, invoice.InvoiceNumber, payee, invoice.Total, invoice.Currency)
	return invoice, nil
}

func (svc *Link2payService) UpdateInvoice(ctx context.Context, payee, id string, input InvoiceInput) (*models.Invoice, error) {
	invoice, err := svc.GetInvoiceForPayee(ctx, payee, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != common.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: only drafts can be edited, invoice is %s", common.ErrInvalidState, invoice.Status)
	}
	if err := svc.applyInput(invoice, input); err != nil {
		return nil, err
	}
	if err := svc.Invoices.UpdateDraftInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (svc *Link2payService) DeleteInvoice(ctx context.Context, payee, id string) error {
	invoice, err := svc.GetInvoiceForPayee(ctx, payee, id)
	if err != nil {
		return err
	}
	if invoice.Status != common.InvoiceStatusDraft {
		return fmt.Errorf("%w: only drafts can be deleted, invoice is %s", common.ErrInvalidState, invoice.Status)
	}
	return svc.Invoices.DeleteDraftInvoice(ctx, id)
}

// SendInvoice publishes a draft to the payer.
func (svc *Link2payService) SendInvoice(ctx context.Context, payee, id string) (*models.Invoice, error) {
	if _, err := svc.GetInvoiceForPayee(ctx, payee, id); err != nil {
		return nil, err
	}
	now := svc.now()
	return svc.Invoices.TransitionInvoice(ctx, id, SourcesOf(common.InvoiceStatusPending, common.InvoiceStatusDraft), common.InvoiceStatusPending, func(invoice *models.Invoice) error {
		invoice.SentAt = bun.NullTime{Time: now}
		return nil
	})
}

func (svc *Link2payService) CancelInvoice(ctx context.Context, payee, id string) (*models.Invoice, error) {
	if _, err := svc.GetInvoiceForPayee(ctx, payee, id); err != nil {
		return nil, err
	}
	// an invoice with a pay-intent in flight can no longer be cancelled
	from := SourcesOf(common.InvoiceStatusCancelled, common.InvoiceStatusDraft, common.InvoiceStatusPending)
	return svc.Invoices.TransitionInvoice(ctx, id, from, common.InvoiceStatusCancelled, nil)
}

// GetInvoice is the public payer view.
func (svc *Link2payService) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return svc.Invoices.GetInvoice(ctx, id)
}

func (svc *Link2payService) GetInvoiceForPayee(ctx context.Context, payee, id string) (*models.Invoice, error) {
	invoice, err := svc.Invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.PayeeAddress != payee {
		return nil, common.ErrForbidden
	}
	return invoice, nil
}

func (svc *Link2payService) ListInvoices(ctx context.Context, payee string, status string) ([]models.Invoice, error) {
	filter := models.InvoiceFilter{PayeeAddress: payee}
	if status != "" {
		filter.Statuses = []string{strings.ToUpper(status)}
	}
	return svc.Invoices.ListInvoices(ctx, filter)
}

func (svc *Link2payService) InvoiceStats(ctx context.Context, payee string) (*InvoiceStats, error) {
	invoices, err := svc.Invoices.ListInvoices(ctx, models.InvoiceFilter{PayeeAddress: payee})
	if err != nil {
		return nil, err
	}
	stats := &InvoiceStats{
		Total:         len(invoices),
		ByStatus:      map[string]int{},
		PaidRevenue:   map[string]decimal.Decimal{},
		PendingAmount: map[string]decimal.Decimal{},
	}
	for _, invoice := range invoices {
		stats.ByStatus[invoice.Status]++
		switch invoice.Status {
		case common.InvoiceStatusPaid:
			stats.PaidRevenue[invoice.Currency] = stats.PaidRevenue[invoice.Currency].Add(invoice.Total)
		case common.InvoiceStatusPending, common.InvoiceStatusProcessing:
			stats.PendingAmount[invoice.Currency] = stats.PendingAmount[invoice.Currency].Add(invoice.Total)
		}
	}
	return stats, nil
}

// applyInput validates input and writes it, with computed totals, onto invoice.
func (svc *Link2payService) applyInput(invoice *models.Invoice, input InvoiceInput) error {
	currency := strings.ToUpper(input.Currency)
	if !svc.Assets.Supports(currency) {
		return fmt.Errorf("%w: %s", common.ErrUnknownAsset, input.Currency)
	}
	lineItems, totals, err := ComputeTotals(input.LineItems, input.TaxRate, input.Discount)
	if err != nil {
		return err
	}
	invoice.Title = input.Title
	invoice.Description = input.Description
	invoice.ClientName = input.ClientName
	invoice.ClientEmail = input.ClientEmail
	invoice.ClientCompany = input.ClientCompany
	invoice.ClientAddress = input.ClientAddress
	invoice.Notes = input.Notes
	invoice.Currency = currency
	invoice.LineItems = lineItems
	invoice.Subtotal = totals.Subtotal
	invoice.TaxRate = input.TaxRate
	invoice.TaxAmount = totals.TaxAmount
	invoice.Discount = input.Discount
	invoice.Total = totals.Total
	invoice.DueDate = bun.NullTime{}
	if input.DueDate != nil {
		invoice.DueDate = bun.NullTime{Time: *input.DueDate}
	}
	return nil
}

type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals derives line amounts, subtotal, tax and total. Amounts are
// rounded to ledger precision so the total is exactly payable.
func ComputeTotals(items []LineItemInput, taxRate decimal.NullDecimal, discount decimal.Decimal) ([]models.LineItem, Totals, error) {
	if len(items) == 0 || len(items) > common.MaxLineItems {
		return nil, Totals{}, fmt.Errorf("%w: between 1 and %d line items required", common.ErrInvalidInvoice, common.MaxLineItems)
	}
	if discount.IsNegative() {
		return nil, Totals{}, fmt.Errorf("%w: discount must not be negative", common.ErrInvalidInvoice)
	}
	if taxRate.Valid && (taxRate.Decimal.IsNegative() || taxRate.Decimal.GreaterThan(hundred)) {
		return nil, Totals{}, fmt.Errorf("%w: tax rate must be between 0 and 100", common.ErrInvalidInvoice)
	}

	lineItems := make([]models.LineItem, 0, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		if !item.Quantity.IsPositive() || item.Rate.IsNegative() {
			return nil, Totals{}, fmt.Errorf("%w: line item %d needs a positive quantity and a non-negative rate", common.ErrInvalidInvoice, i+1)
		}
		amount := item.Quantity.Mul(item.Rate).Round(common.LedgerAmountPrecision)
		subtotal = subtotal.Add(amount)
		lineItems = append(lineItems, models.LineItem{
			Position:    i,
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      amount,
		})
	}

	taxAmount := decimal.Zero
	if taxRate.Valid {
		taxAmount = subtotal.Mul(taxRate.Decimal).Div(hundred).Round(common.LedgerAmountPrecision)
	}
	total := subtotal.Add(taxAmount).Sub(discount).Round(common.LedgerAmountPrecision)
	if !total.IsPositive() {
		return nil, Totals{}, fmt.Errorf("%w: total must be positive", common.ErrInvalidInvoice)
	}
	return lineItems, Totals{Subtotal: subtotal, TaxAmount: taxAmount, Total: total}, nil
}
