package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/uptrace/bun"
)

type SubmitOutcome struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	LedgerSequence  int64  `json:"ledgerSequence"`
	Settled         bool   `json:"settled"`
}

type PaymentStatus struct {
	InvoiceID       string     `json:"invoiceId"`
	Status          string     `json:"status"`
	TransactionHash *string    `json:"transactionHash"`
	LedgerSequence  *int64     `json:"ledgerSequence"`
	PaidAt          *time.Time `json:"paidAt"`
	PayerAddress    *string    `json:"payerAddress"`
}

// SubmitPayment relays a payer-signed transaction to the ledger and settles
// the invoice once the ledger has accepted it. When the transaction is not
// yet observable the outcome reports Settled false and the watcher finishes
// the job.
func (svc *Link2payService) SubmitPayment(ctx context.Context, invoiceID, signedBlob string) (*SubmitOutcome, error) {
	invoice, err := svc.Invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == common.InvoiceStatusPaid || IsTerminal(invoice.Status) {
		return nil, fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, invoice.Status)
	}

	result, err := svc.Ledger.SubmitTransaction(ctx, signedBlob)
	if err != nil {
		var submissionErr *ledger.SubmissionError
		if errors.As(err, &submissionErr) {
			svc.releaseIntent(ctx, invoice.ID)
		}
		svc.Logger.Errorf("Transaction submission failed: invoice_id:%s error:%v", invoice.ID, err)
		return nil, err
	}
	outcome := &SubmitOutcome{Success: true, TransactionHash: result.Hash, LedgerSequence: result.LedgerSequence}

	tx, found, err := svc.verifier().Verify(ctx, result.Hash)
	if err != nil {
		svc.Logger.Errorf("Could not verify submitted transaction: invoice_id:%s tx:%s error:%v", invoice.ID, result.Hash, err)
		return outcome, nil
	}
	if !found {
		svc.Logger.Infof("Submitted transaction not indexed yet: invoice_id:%s tx:%s", invoice.ID, result.Hash)
		return outcome, nil
	}
	settled, err := svc.reconcile(ctx, invoice, tx)
	if err != nil {
		return nil, err
	}
	outcome.Settled = settled
	if tx.LedgerSequence != 0 {
		outcome.LedgerSequence = tx.LedgerSequence
	}
	return outcome, nil
}

// releaseIntent puts a PROCESSING invoice back to PENDING so the payer can
// request a new intent. Failures are logged only.
func (svc *Link2payService) releaseIntent(ctx context.Context, invoiceID string) {
	_, err := svc.Invoices.TransitionInvoice(ctx, invoiceID, []string{common.InvoiceStatusProcessing}, common.InvoiceStatusPending, clearIntent)
	if err != nil && !errors.Is(err, common.ErrInvalidState) {
		svc.Logger.Errorf("Failed to release pay intent: invoice_id:%s error:%v", invoiceID, err)
	}
}

func clearIntent(invoice *models.Invoice) error {
	invoice.IntentExpiresAt = bun.NullTime{}
	return nil
}

// ConfirmPayment settles the invoice with a transaction the payer reports by
// hash. Confirming an invoice that is already PAID is a no-op.
func (svc *Link2payService) ConfirmPayment(ctx context.Context, invoiceID, hash string) (*models.Invoice, error) {
	hash, err := NormalizeHash(hash)
	if err != nil {
		return nil, err
	}
	invoice, err := svc.Invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == common.InvoiceStatusPaid {
		return invoice, nil
	}
	if IsTerminal(invoice.Status) {
		return nil, fmt.Errorf("%w: invoice is %s", common.ErrInvalidState, invoice.Status)
	}

	payment, err := svc.Payments.GetPaymentByHash(ctx, hash)
	switch {
	case err == nil && payment.InvoiceID != invoice.ID:
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicatePayment, hash)
	case err != nil && !errors.Is(err, common.ErrPaymentNotFound):
		return nil, err
	}

	tx, found, err := svc.verifier().Verify(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", common.ErrTransactionNotFound, hash)
	}
	settled, err := svc.reconcile(ctx, invoice, tx)
	if err != nil {
		return nil, err
	}
	if settled {
		return invoice, nil
	}
	return svc.Invoices.GetInvoice(ctx, invoice.ID)
}

func (svc *Link2payService) PaymentStatus(ctx context.Context, invoiceID string) (*PaymentStatus, error) {
	invoice, err := svc.Invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	status := &PaymentStatus{InvoiceID: invoice.ID, Status: invoice.Status}
	if invoice.IsSettled() {
		hash, sequence, payer, paidAt := invoice.TransactionHash, invoice.LedgerSequence, invoice.PayerAddress, invoice.PaidAt.Time
		status.TransactionHash = &hash
		status.LedgerSequence = &sequence
		status.PayerAddress = &payer
		status.PaidAt = &paidAt
	}
	return status, nil
}
