package service

import "time"

type Config struct {
	DatabaseUri             string        `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int           `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int           `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN               string        `envconfig:"SENTRY_DSN"`
	DatadogAgentUrl         string        `envconfig:"DATADOG_AGENT_URL"`
	SentryTracesSampleRate  float64       `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string        `envconfig:"LOG_FILE_PATH"`
	Port                    int           `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int           `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int           `envconfig:"BURST_RATE_LIMIT" default:"1"`
	PayIntentRateLimit      int           `envconfig:"PAY_INTENT_RATE_LIMIT" default:"1"`
	CorsAllowOrigins        []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"*"`
	EnablePrometheus        bool          `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int           `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WatcherEnabled          bool          `envconfig:"WATCHER_ENABLED" default:"true"`
	WatcherInterval         time.Duration `envconfig:"WATCHER_INTERVAL" default:"5s"`
	WatcherLookback         int           `envconfig:"WATCHER_LOOKBACK" default:"20"`
	WatcherConcurrency      int           `envconfig:"WATCHER_CONCURRENCY" default:"4"`
	WatcherLeaseTTL         time.Duration `envconfig:"WATCHER_LEASE_TTL" default:"30s"`
	PayIntentGrace          time.Duration `envconfig:"PAY_INTENT_GRACE" default:"10m"` // ledger close lag after the intent window
	RedisUrl                string        `envconfig:"REDIS_URL"`
	WebhookUrl              string        `envconfig:"WEBHOOK_URL"`
	RabbitMQUri             string        `envconfig:"RABBITMQ_URI"`
	RabbitMQInvoiceExchange string        `envconfig:"RABBITMQ_INVOICE_EXCHANGE" default:"link2pay_invoice"`
}
