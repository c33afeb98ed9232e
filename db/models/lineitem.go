package models

import (
	"github.com/shopspring/decimal"
)

// LineItem : Invoice Line Item Model
type LineItem struct {
	ID          int64           `json:"id" bun:",pk,autoincrement"`
	InvoiceID   string          `json:"-" bun:",notnull"`
	Position    int             `json:"-" bun:",notnull"`
	Description string          `json:"description" bun:",notnull"`
	Quantity    decimal.Decimal `json:"quantity" bun:"type:numeric(20,7),notnull"`
	Rate        decimal.Decimal `json:"rate" bun:"type:numeric(20,7),notnull"`
	Amount      decimal.Decimal `json:"amount" bun:"type:numeric(20,7),notnull"`
}
