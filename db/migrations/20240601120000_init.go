package migrations

import (
	"context"

	"github.com/link2pay/link2pay.go/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.NewCreateTable().Model((*models.Invoice)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.LineItem)(nil)).IfNotExists().
			ForeignKey(`("invoice_id") REFERENCES "invoices" ("id") ON DELETE CASCADE`).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Payment)(nil)).IfNotExists().
			ForeignKey(`("invoice_id") REFERENCES "invoices" ("id") ON DELETE RESTRICT`).
			Exec(ctx); err != nil {
			return err
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []interface{}{(*models.Payment)(nil), (*models.LineItem)(nil), (*models.Invoice)(nil)} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
