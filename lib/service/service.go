package service

import (
	"time"

	"github.com/link2pay/link2pay.go/ledger"
	"github.com/ziflex/lecho/v3"
)

type Link2payService struct {
	Config        *Config
	Invoices      InvoiceStore
	Payments      PaymentStore
	Ledger        ledger.Gateway
	TxBuilder     ledger.TxBuilder
	Assets        ledger.AssetRegistry
	Logger        *lecho.Logger
	InvoicePubSub *Pubsub
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (svc *Link2payService) now() time.Time {
	if svc.Now != nil {
		return svc.Now()
	}
	return time.Now()
}
