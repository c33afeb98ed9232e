package db_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db"
	"github.com/link2pay/link2pay.go/db/migrations"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/link2pay/link2pay.go/lib/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/bun"
)

// StoreTestSuite runs against a real PostgreSQL database when DATABASE_URI is set.
type StoreTestSuite struct {
	suite.Suite
	conn  *bun.DB
	store *db.Store
}

func (suite *StoreTestSuite) SetupSuite() {
	uri, ok := os.LookupEnv("DATABASE_URI")
	if !ok {
		suite.T().Skip("DATABASE_URI not set")
	}
	conn, err := db.Open(&service.Config{
		DatabaseUri:             uri,
		DatabaseMaxConns:        4,
		DatabaseMaxIdleConns:    1,
		DatabaseConnMaxLifetime: 10,
	})
	suite.Require().NoError(err)
	suite.Require().NoError(migrations.Migrate(context.Background(), conn))
	suite.conn = conn
	suite.store = db.NewStore(conn)
}

func (suite *StoreTestSuite) TearDownTest() {
	if suite.conn == nil {
		return
	}
	ctx := context.Background()
	for _, table := range []string{"payments", "line_items", "invoices"} {
		_, err := suite.conn.NewTruncateTable().TableExpr(table).Cascade().Exec(ctx)
		suite.Require().NoError(err)
	}
}

func (suite *StoreTestSuite) TearDownSuite() {
	if suite.conn != nil {
		suite.conn.Close()
	}
}

func (suite *StoreTestSuite) newInvoice(status string) *models.Invoice {
	id := uuid.NewString()
	invoice := &models.Invoice{
		ID:            id,
		InvoiceNumber: "INV-" + id[:8],
		PayeeAddress:  "GPAYEE",
		Title:         "Consulting",
		ClientName:    "Ada",
		ClientEmail:   "ada@example.com",
		Currency:      common.CurrencyUSDC,
		Subtotal:      decimal.RequireFromString("100"),
		Total:         decimal.RequireFromString("100"),
		Status:        status,
		LineItems: []models.LineItem{
			{Description: "hours", Quantity: decimal.RequireFromString("2"), Rate: decimal.RequireFromString("50"), Amount: decimal.RequireFromString("100")},
		},
	}
	suite.Require().NoError(suite.store.CreateInvoice(context.Background(), invoice))
	return invoice
}

func (suite *StoreTestSuite) settlement(invoiceID, hash string) models.Settlement {
	return models.Settlement{
		InvoiceID:       invoiceID,
		TransactionHash: hash,
		LedgerSequence:  77,
		FromAddress:     "GPAYER",
		ToAddress:       "GPAYEE",
		Amount:          decimal.RequireFromString("100"),
		AssetCode:       "USDC",
		AssetIssuer:     "GISSUER",
		PaidAt:          time.Now().UTC().Truncate(time.Second),
	}
}

func (suite *StoreTestSuite) TestCreateAndGetInvoice() {
	created := suite.newInvoice(common.InvoiceStatusDraft)
	invoice, err := suite.store.GetInvoice(context.Background(), created.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), created.InvoiceNumber, invoice.InvoiceNumber)
	assert.True(suite.T(), decimal.RequireFromString("100").Equal(invoice.Total))
	assert.Len(suite.T(), invoice.LineItems, 1)

	_, err = suite.store.GetInvoice(context.Background(), uuid.NewString())
	assert.ErrorIs(suite.T(), err, common.ErrInvoiceNotFound)
}

func (suite *StoreTestSuite) TestTransitionIsCompareAndSet() {
	invoice := suite.newInvoice(common.InvoiceStatusPending)
	ctx := context.Background()
	from := []string{common.InvoiceStatusDraft, common.InvoiceStatusPending}

	_, err := suite.store.TransitionInvoice(ctx, invoice.ID, from, common.InvoiceStatusProcessing, nil)
	suite.Require().NoError(err)
	_, err = suite.store.TransitionInvoice(ctx, invoice.ID, from, common.InvoiceStatusProcessing, nil)
	assert.ErrorIs(suite.T(), err, common.ErrInvalidState)
}

func (suite *StoreTestSuite) TestSettleInvoiceIsIdempotent() {
	invoice := suite.newInvoice(common.InvoiceStatusPending)
	ctx := context.Background()
	hash := "aa" + uuid.NewString()

	settled, err := suite.store.SettleInvoice(ctx, suite.settlement(invoice.ID, hash))
	suite.Require().NoError(err)
	assert.True(suite.T(), settled)

	settled, err = suite.store.SettleInvoice(ctx, suite.settlement(invoice.ID, hash))
	suite.Require().NoError(err)
	assert.False(suite.T(), settled)

	settled, err = suite.store.SettleInvoice(ctx, suite.settlement(invoice.ID, "bb"+uuid.NewString()))
	suite.Require().NoError(err)
	assert.False(suite.T(), settled)

	stored, err := suite.store.GetInvoice(ctx, invoice.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), common.InvoiceStatusPaid, stored.Status)
	assert.Equal(suite.T(), hash, stored.TransactionHash)
	count, err := suite.conn.NewSelect().Model((*models.Payment)(nil)).Count(ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *StoreTestSuite) TestConcurrentSettlementWritesOnce() {
	invoice := suite.newInvoice(common.InvoiceStatusProcessing)
	ctx := context.Background()
	hash := "cc" + uuid.NewString()

	var wg sync.WaitGroup
	results := make(chan bool, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			settled, err := suite.store.SettleInvoice(ctx, suite.settlement(invoice.ID, hash))
			assert.NoError(suite.T(), err)
			results <- settled
		}()
	}
	wg.Wait()
	close(results)
	writes := 0
	for settled := range results {
		if settled {
			writes++
		}
	}
	assert.Equal(suite.T(), 1, writes)
}

func (suite *StoreTestSuite) TestDraftOnlyEdits() {
	invoice := suite.newInvoice(common.InvoiceStatusPending)
	ctx := context.Background()
	invoice.Title = "changed"
	assert.ErrorIs(suite.T(), suite.store.UpdateDraftInvoice(ctx, invoice), common.ErrInvalidState)
	assert.ErrorIs(suite.T(), suite.store.DeleteDraftInvoice(ctx, invoice.ID), common.ErrInvalidState)

	draft := suite.newInvoice(common.InvoiceStatusDraft)
	draft.LineItems = append(draft.LineItems, models.LineItem{
		Description: "extra", Quantity: decimal.RequireFromString("1"), Rate: decimal.RequireFromString("5"), Amount: decimal.RequireFromString("5"),
	})
	suite.Require().NoError(suite.store.UpdateDraftInvoice(ctx, draft))
	stored, err := suite.store.GetInvoice(ctx, draft.ID)
	suite.Require().NoError(err)
	assert.Len(suite.T(), stored.LineItems, 2)
	suite.Require().NoError(suite.store.DeleteDraftInvoice(ctx, draft.ID))
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
