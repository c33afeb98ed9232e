package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const pgUniqueViolation = "23505"

// Store implements the invoice and payment stores on PostgreSQL.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(invoice).Exec(ctx); err != nil {
			return err
		}
		return insertLineItems(ctx, tx, invoice)
	})
	if isUniqueViolation(err) {
		return common.ErrInvoiceNumberCollision
	}
	return err
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	invoice := models.Invoice{}
	err := s.db.NewSelect().
		Model(&invoice).
		Relation("LineItems", orderLineItems).
		Where("invoice.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, error) {
	invoices := []models.Invoice{}
	query := s.db.NewSelect().
		Model(&invoices).
		Relation("LineItems", orderLineItems).
		Order("invoice.created_at DESC")
	if filter.PayeeAddress != "" {
		query = query.Where("invoice.payee_address = ?", filter.PayeeAddress)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("invoice.status IN (?)", bun.In(filter.Statuses))
	}
	if !filter.PaidFrom.IsZero() {
		query = query.Where("invoice.paid_at >= ?", filter.PaidFrom)
	}
	if !filter.PaidTo.IsZero() {
		query = query.Where("invoice.paid_at < ?", filter.PaidTo)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) UpdateDraftInvoice(ctx context.Context, invoice *models.Invoice) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		existing, err := lockInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		if existing.Status != common.InvoiceStatusDraft {
			return fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, existing.Status)
		}
		invoice.InvoiceNumber = existing.InvoiceNumber
		invoice.PayeeAddress = existing.PayeeAddress
		invoice.Status = existing.Status
		invoice.CreatedAt = existing.CreatedAt
		if _, err := tx.NewUpdate().Model(invoice).ExcludeColumn("created_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.LineItem)(nil)).Where("invoice_id = ?", invoice.ID).Exec(ctx); err != nil {
			return err
		}
		return insertLineItems(ctx, tx, invoice)
	})
}

func (s *Store) DeleteDraftInvoice(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		existing, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if existing.Status != common.InvoiceStatusDraft {
			return fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, existing.Status)
		}
		if _, err := tx.NewDelete().Model((*models.LineItem)(nil)).Where("invoice_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model(existing).WherePK().Exec(ctx)
		return err
	})
}

func (s *Store) TransitionInvoice(ctx context.Context, id string, from []string, to string, mutate func(*models.Invoice) error) (*models.Invoice, error) {
	var result *models.Invoice
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		invoice, err := lockInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		if !slices.Contains(from, invoice.Status) {
			return fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, invoice.Status)
		}
		if mutate != nil {
			if err := mutate(invoice); err != nil {
				return err
			}
		}
		invoice.Status = to
		if _, err := tx.NewUpdate().Model(invoice).ExcludeColumn("created_at").WherePK().Exec(ctx); err != nil {
			return err
		}
		result = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) GetPaymentByHash(ctx context.Context, hash string) (*models.Payment, error) {
	return s.getPayment(ctx, "transaction_hash = ?", hash)
}

func (s *Store) GetPaymentForInvoice(ctx context.Context, invoiceID string) (*models.Payment, error) {
	return s.getPayment(ctx, "invoice_id = ?", invoiceID)
}

func (s *Store) getPayment(ctx context.Context, where string, arg string) (*models.Payment, error) {
	payment := models.Payment{}
	err := s.db.NewSelect().Model(&payment).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// SettleInvoice locks the invoice row, re-checks that it is unsettled and that
// the hash is unused, then writes the settlement fields and the payment row.
// The unique indexes on payments turn a lost race into a no-op.
func (s *Store) SettleInvoice(ctx context.Context, settlement models.Settlement) (bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, err
	}
	settled, err := settle(ctx, tx, settlement)
	if err != nil {
		tx.Rollback()
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	if !settled {
		tx.Rollback()
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func settle(ctx context.Context, tx bun.Tx, settlement models.Settlement) (bool, error) {
	invoice, err := lockInvoice(ctx, tx, settlement.InvoiceID)
	if err != nil {
		return false, err
	}
	if invoice.Status == common.InvoiceStatusPaid {
		return false, nil
	}
	exists, err := tx.NewSelect().Model((*models.Payment)(nil)).
		Where("transaction_hash = ?", settlement.TransactionHash).
		Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	switch invoice.Status {
	case common.InvoiceStatusCancelled, common.InvoiceStatusExpired, common.InvoiceStatusFailed:
		return false, fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, invoice.Status)
	}

	settlement.Apply(invoice)
	result, err := tx.NewUpdate().
		Model(invoice).
		Column("status", "transaction_hash", "ledger_sequence", "payer_address", "paid_at", "intent_expires_at", "updated_at").
		WherePK().
		Where("status <> ?", common.InvoiceStatusPaid).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return false, nil
	}
	payment := settlement.Payment()
	if _, err := tx.NewInsert().Model(&payment).Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func lockInvoice(ctx context.Context, tx bun.Tx, id string) (*models.Invoice, error) {
	invoice := models.Invoice{}
	err := tx.NewSelect().Model(&invoice).Where("id = ?", id).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func insertLineItems(ctx context.Context, tx bun.Tx, invoice *models.Invoice) error {
	if len(invoice.LineItems) == 0 {
		return nil
	}
	for i := range invoice.LineItems {
		invoice.LineItems[i].ID = 0
		invoice.LineItems[i].InvoiceID = invoice.ID
		invoice.LineItems[i].Position = i
	}
	_, err := tx.NewInsert().Model(&invoice.LineItems).Exec(ctx)
	return err
}

func orderLineItems(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("line_item.position ASC")
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}
