package service

import (
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/shopspring/decimal"
)

// MatchInvoice returns the candidate whose id or invoice number equals memo
// exactly, or nil. Substrings and case variants never match.
func MatchInvoice(candidates []models.Invoice, memo string) *models.Invoice {
	if memo == "" {
		return nil
	}
	for i := range candidates {
		if candidates[i].ID == memo || candidates[i].InvoiceNumber == memo {
			return &candidates[i]
		}
	}
	return nil
}

// MemoReferences reports whether memo identifies invoice.
func MemoReferences(invoice *models.Invoice, memo string) bool {
	return MatchInvoice([]models.Invoice{*invoice}, memo) != nil
}

// FindQualifyingLeg returns the first leg paying at least total of asset to payee.
// Underpayments never qualify; overpayments do.
func FindQualifyingLeg(legs []ledger.TransferLeg, payee string, asset ledger.Asset, total decimal.Decimal) *ledger.TransferLeg {
	for i := range legs {
		leg := legs[i]
		if leg.To != payee || !leg.Asset.Equal(asset) {
			continue
		}
		if leg.Amount.GreaterThanOrEqual(total) {
			return &legs[i]
		}
	}
	return nil
}
