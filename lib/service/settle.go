package service

import (
	"context"
	"fmt"

	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/ledger"
)

// reconcile checks a verified transaction against invoice and commits the
// settlement when a leg qualifies. settled is false when the invoice or the
// hash had already been committed by another path.
func (svc *Link2payService) reconcile(ctx context.Context, invoice *models.Invoice, tx *ledger.VerifiedTransaction) (settled bool, err error) {
	if !tx.Successful {
		return false, fmt.Errorf("%w: %s", common.ErrTransactionFailed, tx.Hash)
	}
	if !MemoReferences(invoice, tx.Memo) {
		return false, fmt.Errorf("%w: memo %q", common.ErrMemoMismatch, tx.Memo)
	}
	asset, err := svc.Assets.Resolve(invoice.Currency)
	if err != nil {
		return false, err
	}
	leg := FindQualifyingLeg(tx.Legs, invoice.PayeeAddress, asset, invoice.Total)
	if leg == nil {
		return false, fmt.Errorf("%w: need %s %s to %s", common.ErrNoQualifyingTransfer, ledger.FormatAmount(invoice.Total), asset, invoice.PayeeAddress)
	}
	return svc.commitSettlement(ctx, invoice, tx, *leg)
}

// commitSettlement is the single write path to PAID shared by the watcher and
// the submit and confirm requests.
func (svc *Link2payService) commitSettlement(ctx context.Context, invoice *models.Invoice, tx *ledger.VerifiedTransaction, leg ledger.TransferLeg) (bool, error) {
	paidAt := tx.CreatedAt
	if paidAt.IsZero() {
		paidAt = svc.now()
	}
	settlement := models.Settlement{
		InvoiceID:       invoice.ID,
		TransactionHash: tx.Hash,
		LedgerSequence:  tx.LedgerSequence,
		FromAddress:     leg.From,
		ToAddress:       leg.To,
		Amount:          leg.Amount,
		AssetCode:       leg.Asset.Code,
		AssetIssuer:     leg.Asset.Issuer,
		PaidAt:          paidAt,
	}
	settled, err := svc.Payments.SettleInvoice(ctx, settlement)
	if err != nil {
		return false, err
	}
	if !settled {
		svc.Logger.Infof("Settlement skipped, already recorded: invoice_id:%s tx:%s", invoice.ID, tx.Hash)
		return false, nil
	}
	settlement.Apply(invoice)
	svc.Logger.Infof("Invoice settled: invoice_id:%s number:%s tx:%s ledger:%d payer:%s amount:%s %s",
		invoice.ID, invoice.InvoiceNumber, tx.Hash, tx.LedgerSequence, leg.From, ledger.FormatAmount(leg.Amount), leg.Asset.Code)
	if leg.Amount.GreaterThan(invoice.Total) {
		svc.Logger.Infof("Invoice overpaid: invoice_id:%s total:%s paid:%s", invoice.ID, ledger.FormatAmount(invoice.Total), ledger.FormatAmount(leg.Amount))
	}
	if svc.InvoicePubSub != nil {
		if dropped := svc.InvoicePubSub.Publish(common.InvoiceEventPaid, *invoice); dropped > 0 {
			svc.Logger.Warnf("Paid event dropped for slow subscribers: invoice_id:%s subscribers:%d", invoice.ID, dropped)
		}
	}
	return true, nil
}
