package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/link2pay/link2pay.go/controllers"
	"github.com/link2pay/link2pay.go/db"
	"github.com/link2pay/link2pay.go/db/migrations"
	"github.com/link2pay/link2pay.go/ledger"
	"github.com/link2pay/link2pay.go/lib/lease"
	"github.com/link2pay/link2pay.go/lib/logging"
	"github.com/link2pay/link2pay.go/lib/service"
	"github.com/link2pay/link2pay.go/lib/transport"
	"github.com/link2pay/link2pay.go/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title        link2pay.go
// @version      0.1.0
// @description  Invoices settled on the Stellar ledger, reconciled without a trusted intermediary.

// @BasePath  /

// @securitydefinitions.apikey  WalletAddress
// @in                          header
// @name                        X-Wallet-Address
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
	ledgerCfg, err := ledger.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading ledger config: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStartup()
	if err = migrations.Migrate(startupCtx, dbConn); err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	store := db.NewStore(dbConn)
	svc := &service.Link2payService{
		Config:        c,
		Invoices:      store,
		Payments:      store,
		Ledger:        ledger.NewHorizonGateway(ledgerCfg),
		TxBuilder:     ledger.NewStellarTxBuilder(ledgerCfg.NetworkPassphrase),
		Assets:        ledger.NewAssetRegistry(ledgerCfg),
		Logger:        logger,
		InvoicePubSub: service.NewPubsub(),
	}
	logger.Infof("Using ledger: horizon:%s network:%q", ledgerCfg.HorizonURL, ledgerCfg.NetworkPassphrase)

	// If no RABBITMQ_URI was provided we will not attempt to create a client
	// No rabbitmq features will be available in this case.
	var rabbitmqClient rabbitmq.Client
	if c.RabbitMQUri != "" {
		rabbitmqClient, err = rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithInvoiceExchange(c.RabbitMQInvoiceExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}
		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
	}

	watcherOpts := []service.WatcherOption{}
	if c.RedisUrl != "" {
		watcherLease, redisClient, err := lease.NewFromURL(c.RedisUrl, lease.DefaultKey, c.WatcherLeaseTTL)
		if err != nil {
			logger.Fatalf("Error initializing redis lease: %v", err)
		}
		defer redisClient.Close()
		watcherOpts = append(watcherOpts, service.WithLease(watcherLease))
	}
	if c.EnablePrometheus {
		watcherOpts = append(watcherOpts, service.WithMetrics(service.NewWatcherMetrics(prometheus.DefaultRegisterer)))
	}
	watcher := service.NewWatcher(svc, watcherOpts...)

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("link2pay.go")))
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if c.EnablePrometheus {
		echoPrometheus = transport.StartPrometheusEcho(logger, c, e)
	}

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for building and relaying payments
	payIntentRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.PayIntentRateLimit, c.BurstRateLimit)

	var watcherState controllers.WatcherState
	if c.WatcherEnabled {
		watcherState = watcher
	}
	transport.RegisterEndpoints(svc, e, watcherState, payIntentRateLimitMiddleware, logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.WatcherEnabled {
		watcher.Start(backGroundCtx)
	}

	//Start webhook subscription
	if c.WebhookUrl != "" {
		backgroundWg.Add(1)
		go func() {
			svc.StartWebhookSubscription(backGroundCtx, c.WebhookUrl)
			svc.Logger.Info("Webhook routine done")
			backgroundWg.Done()
		}()
	}
	//Start rabbit publisher
	if rabbitmqClient != nil {
		backgroundWg.Add(1)
		go func() {
			if err := svc.StartRabbitMqPublisher(backGroundCtx, rabbitmqClient); err != nil {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}
			svc.Logger.Info("Rabbit invoice publisher done")
			backgroundWg.Done()
		}()
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	// finish the in-flight tick before the store goes away
	watcher.Stop()
	watcher.Wait()
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("link2pay exiting gracefully. Goodbye.")
}
