package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/link2pay/link2pay.go/db"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/link2pay/link2pay.go/lib/logging"
	"github.com/link2pay/link2pay.go/lib/service"
)

// job that runs one reconciliation pass, with a deeper ledger lookback than
// the server's watcher, and exits
func main() {
	lookback := flag.Int("lookback", 200, "recent transactions to scan per payee")
	flag.Parse()

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
	ledgerCfg, err := ledger.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading ledger config: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := logging.Logger(c.LogFilePath)

	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{Dsn: c.SentryDSN}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}
	defer dbConn.Close()

	store := db.NewStore(dbConn)
	svc := &service.Link2payService{
		Config:    c,
		Invoices:  store,
		Payments:  store,
		Ledger:    ledger.NewHorizonGateway(ledgerCfg),
		TxBuilder: ledger.NewStellarTxBuilder(ledgerCfg.NetworkPassphrase),
		Assets:    ledger.NewAssetRegistry(ledgerCfg),
		Logger:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	report, err := service.NewWatcher(svc, service.WithLookback(*lookback)).Tick(ctx)
	if err != nil {
		sentry.CaptureException(err)
		logger.Errorf("Reconciliation failed: %v", err)
		os.Exit(1)
	}
	logger.Infof("Reconciliation done: candidates:%d payees:%d settled:%d released:%d failures:%d",
		report.Candidates, report.Payees, report.Settled, report.Released, report.Failures)
	if report.Failures > 0 {
		os.Exit(1)
	}
}
