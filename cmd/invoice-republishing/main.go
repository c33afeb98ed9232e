package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/link2pay/link2pay.go/db"
	"github.com/link2pay/link2pay.go/lib/logging"
	"github.com/link2pay/link2pay.go/lib/service"
	"github.com/link2pay/link2pay.go/rabbitmq"
)

// publishes the invoices settled between START_DATE and END_DATE to the
// invoice exchange again, for consumers that missed them
func main() {
	c := &service.Config{}
	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}
	logger := logging.Logger(c.LogFilePath)
	startDate, endDate, err := loadStartAndEndDateFromEnv()
	if err != nil {
		logger.Fatalf("Could not load start and end date from env: %v", err)
	}
	if c.RabbitMQUri == "" {
		logger.Fatal("RABBITMQ_URI is required")
	}

	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()
	store := db.NewStore(dbConn)
	svc := &service.Link2payService{
		Config:   c,
		Invoices: store,
		Payments: store,
		Logger:   logger,
	}

	ctx := context.Background()
	invoices, err := svc.PaidInvoicesBetween(ctx, startDate, endDate)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infof("Found %d paid invoices between %s and %s", len(invoices), startDate.Format(time.RFC3339), endDate.Format(time.RFC3339))
	if os.Getenv("DRY_RUN") == "true" {
		for _, invoice := range invoices {
			logger.Infof("Would publish invoice: invoice_id:%s tx:%s", invoice.ID, invoice.TransactionHash)
		}
		return
	}

	rabbitmqClient, err := rabbitmq.Dial(c.RabbitMQUri,
		rabbitmq.WithLogger(logger),
		rabbitmq.WithInvoiceExchange(c.RabbitMQInvoiceExchange),
	)
	if err != nil {
		logger.Fatal(err)
	}
	// close the connection gently at the end of the runtime
	defer rabbitmqClient.Close()

	err = rabbitmqClient.StartPublishInvoices(ctx, service.ReplayInvoices(invoices), svc.EncodeInvoiceForPublish)
	if err != nil {
		sentry.CaptureException(err)
		logger.Errorf("Republishing failed: %v", err)
		return
	}
	logger.Infof("Published %d invoices", len(invoices))
}

func loadStartAndEndDateFromEnv() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, os.Getenv("START_DATE"))
	if err != nil {
		return
	}
	end, err = time.Parse(time.RFC3339, os.Getenv("END_DATE"))
	return
}
