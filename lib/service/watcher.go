package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/link2pay/link2pay.go/common"
	"github.com/link2pay/link2pay.go/db/models"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

const (
	WatcherStopped = "STOPPED"
	WatcherRunning = "RUNNING"

	defaultWatcherInterval    = 5 * time.Second
	defaultWatcherLookback    = 20
	defaultWatcherConcurrency = 4
	defaultPayIntentGrace     = 10 * time.Minute
)

var errIntentActive = errors.New("pay intent still active")

// Lease grants one instance the right to run a tick.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type TickReport struct {
	Skipped    bool
	Released   int
	Candidates int
	Payees     int
	Settled    int
	Failures   int
}

// Watcher is the reconciliation loop. It polls the ledger for transactions
// paying invoices that await settlement and commits them.
type Watcher struct {
	svc         *Link2payService
	interval    time.Duration
	lookback    int
	concurrency int
	grace       time.Duration
	lease       Lease
	metrics     *WatcherMetrics

	mu     sync.Mutex
	state  string
	cancel context.CancelFunc
	done   chan struct{}
}

type WatcherOption func(*Watcher)

func WithInterval(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithLookback(lookback int) WatcherOption {
	return func(w *Watcher) {
		if lookback > 0 {
			w.lookback = lookback
		}
	}
}

func WithConcurrency(concurrency int) WatcherOption {
	return func(w *Watcher) {
		if concurrency > 0 {
			w.concurrency = concurrency
		}
	}
}

// WithIntentGrace sets how long after expiry a pay intent is held before
// the invoice returns to PENDING.
func WithIntentGrace(grace time.Duration) WatcherOption {
	return func(w *Watcher) {
		if grace > 0 {
			w.grace = grace
		}
	}
}

func WithLease(lease Lease) WatcherOption {
	return func(w *Watcher) {
		w.lease = lease
	}
}

func WithMetrics(metrics *WatcherMetrics) WatcherOption {
	return func(w *Watcher) {
		w.metrics = metrics
	}
}

func NewWatcher(svc *Link2payService, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		svc:         svc,
		interval:    defaultWatcherInterval,
		lookback:    defaultWatcherLookback,
		concurrency: defaultWatcherConcurrency,
		grace:       defaultPayIntentGrace,
		state:       WatcherStopped,
	}
	if c := svc.Config; c != nil {
		WithInterval(c.WatcherInterval)(w)
		WithLookback(c.WatcherLookback)(w)
		WithConcurrency(c.WatcherConcurrency)(w)
		WithIntentGrace(c.PayIntentGrace)(w)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) State() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start runs a tick immediately and then one per interval until Stop is
// called or ctx is done. Starting a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WatcherRunning {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	prevDone := w.done
	done := make(chan struct{})
	w.state = WatcherRunning
	w.cancel = cancel
	w.done = done
	w.svc.Logger.Infof("Watcher started: interval:%s lookback:%d concurrency:%d", w.interval, w.lookback, w.concurrency)
	go w.run(loopCtx, prevDone, done)
}

// Stop prevents further ticks. A tick already in flight runs to completion;
// use Wait to block until it has.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == WatcherStopped {
		return
	}
	w.cancel()
	w.state = WatcherStopped
	w.svc.Logger.Info("Watcher stopped")
}

// Wait blocks until the loop goroutine of the last Start has exited.
func (w *Watcher) Wait() {
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// run waits for the loop of the previous Start, whose last tick may still be
// in flight, so that ticks never overlap.
func (w *Watcher) run(ctx context.Context, prevDone <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer func() {
		w.mu.Lock()
		if w.done == done {
			w.state = WatcherStopped
		}
		w.mu.Unlock()
	}()

	if prevDone != nil {
		<-prevDone
	}
	if ctx.Err() != nil {
		return
	}
	w.runTick(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

func (w *Watcher) runTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// stopping must not abort a half-done commit
	report, err := w.Tick(context.WithoutCancel(ctx))
	if err != nil {
		w.svc.Logger.Errorf("Watcher tick failed: error:%v", err)
		sentry.CaptureException(err)
		return
	}
	if report.Settled > 0 || report.Released > 0 || report.Failures > 0 {
		w.svc.Logger.Infof("Watcher tick: candidates:%d payees:%d settled:%d released:%d failures:%d",
			report.Candidates, report.Payees, report.Settled, report.Released, report.Failures)
	}
}

// Tick runs one reconciliation pass.
func (w *Watcher) Tick(ctx context.Context) (report *TickReport, err error) {
	start := time.Now()
	report = &TickReport{}
	defer func() {
		w.metrics.observeTick(report, err, time.Since(start))
	}()

	if w.lease != nil {
		acquired, err := w.lease.Acquire(ctx)
		if err != nil {
			return report, err
		}
		if !acquired {
			report.Skipped = true
			return report, nil
		}
		defer func() {
			if err := w.lease.Release(ctx); err != nil {
				w.svc.Logger.Errorf("Failed to release watcher lease: error:%v", err)
			}
		}()
	}

	report.Released = w.releaseStaleIntents(ctx)

	invoices, err := w.svc.Invoices.ListInvoices(ctx, models.InvoiceFilter{Statuses: AwaitingSettlement})
	if err != nil {
		return report, err
	}
	report.Candidates = len(invoices)
	groups := groupByPayee(invoices)
	report.Payees = len(groups)

	var settled, failures atomic.Int64
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, payee := range sortedKeys(groups) {
		payee := payee
		candidates := groups[payee]
		g.Go(func() error {
			n, err := w.reconcilePayee(ctx, payee, candidates)
			settled.Add(int64(n))
			if err != nil {
				failures.Add(1)
				w.svc.Logger.Errorf("Watcher failed for payee: payee:%s error:%v", payee, err)
				sentry.CaptureException(err)
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Settled = int(settled.Load())
	report.Failures = int(failures.Load())
	return report, nil
}

// reconcilePayee settles the payee's candidates from its recent ledger
// history, oldest transaction first.
func (w *Watcher) reconcilePayee(ctx context.Context, payee string, candidates []models.Invoice) (int, error) {
	summaries, err := w.svc.Ledger.ListRecentTransactions(ctx, payee, w.lookback)
	if err != nil {
		return 0, err
	}
	settled := 0
	verifier := w.svc.verifier()
	for i := len(summaries) - 1; i >= 0 && len(candidates) > 0; i-- {
		summary := summaries[i]
		if !summary.Successful {
			continue
		}
		invoice := MatchInvoice(candidates, summary.Memo)
		if invoice == nil {
			continue
		}
		if _, err := w.svc.Payments.GetPaymentByHash(ctx, summary.Hash); err == nil {
			continue
		} else if !errors.Is(err, common.ErrPaymentNotFound) {
			return settled, err
		}
		tx, found, err := verifier.Verify(ctx, summary.Hash)
		if err != nil {
			return settled, err
		}
		if !found {
			continue
		}
		ok, err := w.svc.reconcile(ctx, invoice, tx)
		switch {
		case errors.Is(err, common.ErrNoQualifyingTransfer),
			errors.Is(err, common.ErrMemoMismatch),
			errors.Is(err, common.ErrTransactionFailed),
			errors.Is(err, common.ErrInvalidState):
			w.svc.Logger.Infof("Transaction does not settle invoice: invoice_id:%s tx:%s reason:%v", invoice.ID, tx.Hash, err)
			continue
		case err != nil:
			return settled, err
		}
		if ok {
			settled++
			candidates = withoutInvoice(candidates, invoice.ID)
		}
	}
	return settled, nil
}

// releaseStaleIntents returns PROCESSING invoices whose pay intent expired
// more than the grace period ago to PENDING.
func (w *Watcher) releaseStaleIntents(ctx context.Context) int {
	invoices, err := w.svc.Invoices.ListInvoices(ctx, models.InvoiceFilter{Statuses: []string{common.InvoiceStatusProcessing}})
	if err != nil {
		w.svc.Logger.Errorf("Failed to load processing invoices: error:%v", err)
		return 0
	}
	now := w.svc.now()
	released := 0
	for _, invoice := range invoices {
		if !intentStale(&invoice, now, w.grace) {
			continue
		}
		_, err := w.svc.Invoices.TransitionInvoice(ctx, invoice.ID, []string{common.InvoiceStatusProcessing}, common.InvoiceStatusPending, func(i *models.Invoice) error {
			if !intentStale(i, now, w.grace) {
				return errIntentActive
			}
			i.IntentExpiresAt = bun.NullTime{}
			return nil
		})
		if err != nil {
			if !errors.Is(err, errIntentActive) && !errors.Is(err, common.ErrInvalidState) {
				w.svc.Logger.Errorf("Failed to release pay intent: invoice_id:%s error:%v", invoice.ID, err)
			}
			continue
		}
		w.svc.Logger.Infof("Released stale pay intent: invoice_id:%s expired_at:%s", invoice.ID, invoice.IntentExpiresAt.Time.Format(time.RFC3339))
		released++
	}
	return released
}

func intentStale(invoice *models.Invoice, now time.Time, grace time.Duration) bool {
	if invoice.IntentExpiresAt.IsZero() {
		return false
	}
	return invoice.IntentExpiresAt.Time.Add(grace).Before(now)
}

func groupByPayee(invoices []models.Invoice) map[string][]models.Invoice {
	groups := map[string][]models.Invoice{}
	for _, invoice := range invoices {
		groups[invoice.PayeeAddress] = append(groups[invoice.PayeeAddress], invoice)
	}
	return groups
}

func sortedKeys(groups map[string][]models.Invoice) []string {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func withoutInvoice(invoices []models.Invoice, id string) []models.Invoice {
	result := make([]models.Invoice, 0, len(invoices))
	for _, invoice := range invoices {
		if invoice.ID != id {
			result = append(result, invoice)
		}
	}
	return result
}
