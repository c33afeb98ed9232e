// Package memstore is an in-process invoice and payment store used by tests
// and local development. It mirrors the transactional guarantees of db.Store
// with a single mutex.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
)

type Store struct {
	mu       sync.Mutex
	invoices map[string]*models.Invoice
	payments map[string]*models.Payment
	nextID   int64
}

func New() *Store {
	return &Store{
		invoices: map[string]*models.Invoice{},
		payments: map[string]*models.Payment{},
	}
}

func (s *Store) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[invoice.ID]; ok {
		return fmt.Errorf("invoice %s already exists", invoice.ID)
	}
	for _, existing := range s.invoices {
		if existing.InvoiceNumber == invoice.InvoiceNumber {
			return common.ErrInvoiceNumberCollision
		}
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now()
	}
	s.assignLineItemIDs(invoice)
	s.invoices[invoice.ID] = clone(invoice)
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, common.ErrInvoiceNotFound
	}
	return clone(invoice), nil
}

func (s *Store) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.Invoice{}
	for _, invoice := range s.invoices {
		if filter.PayeeAddress != "" && invoice.PayeeAddress != filter.PayeeAddress {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, invoice.Status) {
			continue
		}
		if !filter.PaidFrom.IsZero() && (invoice.PaidAt.IsZero() || invoice.PaidAt.Time.Before(filter.PaidFrom)) {
			continue
		}
		if !filter.PaidTo.IsZero() && (invoice.PaidAt.IsZero() || !invoice.PaidAt.Time.Before(filter.PaidTo)) {
			continue
		}
		result = append(result, *clone(invoice))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) UpdateDraftInvoice(ctx context.Context, invoice *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.invoices[invoice.ID]
	if !ok {
		return common.ErrInvoiceNotFound
	}
	if existing.Status != common.InvoiceStatusDraft {
		return fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, existing.Status)
	}
	updated := clone(invoice)
	updated.InvoiceNumber = existing.InvoiceNumber
	updated.PayeeAddress = existing.PayeeAddress
	updated.Status = existing.Status
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt.Time = time.Now()
	s.assignLineItemIDs(updated)
	s.invoices[invoice.ID] = updated
	*invoice = *clone(updated)
	return nil
}

func (s *Store) DeleteDraftInvoice(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.invoices[id]
	if !ok {
		return common.ErrInvoiceNotFound
	}
	if existing.Status != common.InvoiceStatusDraft {
		return fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, existing.Status)
	}
	delete(s.invoices, id)
	return nil
}

func (s *Store) TransitionInvoice(ctx context.Context, id string, from []string, to string, mutate func(*models.Invoice) error) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.invoices[id]
	if !ok {
		return nil, common.ErrInvoiceNotFound
	}
	if !slices.Contains(from, existing.Status) {
		return nil, fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, existing.Status)
	}
	updated := clone(existing)
	if mutate != nil {
		if err := mutate(updated); err != nil {
			return nil, err
		}
	}
	updated.Status = to
	updated.UpdatedAt.Time = time.Now()
	s.invoices[id] = updated
	return clone(updated), nil
}

func (s *Store) GetPaymentByHash(ctx context.Context, hash string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[hash]
	if !ok {
		return nil, common.ErrPaymentNotFound
	}
	copied := *payment
	return &copied, nil
}

func (s *Store) GetPaymentForInvoice(ctx context.Context, invoiceID string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payment := range s.payments {
		if payment.InvoiceID == invoiceID {
			copied := *payment
			return &copied, nil
		}
	}
	return nil, common.ErrPaymentNotFound
}

func (s *Store) SettleInvoice(ctx context.Context, settlement models.Settlement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoice, ok := s.invoices[settlement.InvoiceID]
	if !ok {
		return false, common.ErrInvoiceNotFound
	}
	if invoice.Status == common.InvoiceStatusPaid {
		return false, nil
	}
	if _, ok := s.payments[settlement.TransactionHash]; ok {
		return false, nil
	}
	switch invoice.Status {
	case common.InvoiceStatusCancelled, common.InvoiceStatusExpired, common.InvoiceStatusFailed:
		return false, fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, invoice.Status)
	}
	updated := clone(invoice)
	settlement.Apply(updated)
	updated.UpdatedAt.Time = time.Now()
	s.nextID++
	payment := settlement.Payment()
	payment.ID = s.nextID
	payment.CreatedAt = time.Now()
	s.invoices[updated.ID] = updated
	s.payments[payment.TransactionHash] = &payment
	return true, nil
}

// PaymentCount returns the number of stored payment rows.
func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *Store) assignLineItemIDs(invoice *models.Invoice) {
	for i := range invoice.LineItems {
		s.nextID++
		invoice.LineItems[i].ID = s.nextID
		invoice.LineItems[i].InvoiceID = invoice.ID
		invoice.LineItems[i].Position = i
	}
}

func clone(invoice *models.Invoice) *models.Invoice {
	copied := *invoice
	copied.LineItems = slices.Clone(invoice.LineItems)
	return &copied
}
