/*
scheduler.go - Automated monthly billing

PURPOSE:
  Periodically runs GenerateMonthlyPayments so every occupied house is
  billed once per month without an operator pressing the button.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on Start
  - Relies on generation being idempotent: ticks after the first one in a
    month create nothing and log nothing above debug

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewBillingScheduler(store, amount)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: GeneratePayments endpoint (manual generation)
  - society/generator.go: GenerateMonthlyPayments
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/society-engine/society"
)

// BillingScheduler handles automated monthly payment generation.
type BillingScheduler struct {
	Store         *society.Store
	Amount        decimal.Decimal
	CheckInterval time.Duration
	Enabled       bool
	Metrics       *Metrics
	Logger        *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBillingScheduler creates a new scheduler billing amount per house.
func NewBillingScheduler(store *society.Store, amount decimal.Decimal) *BillingScheduler {
	return &BillingScheduler{
		Store:         store,
		Amount:        amount,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Logger:        slog.Default(),
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (bs *BillingScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		bs.Logger.Info("billing scheduler disabled")
		return
	}
	if bs.ticker != nil {
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.stop = make(chan struct{})
	bs.wg.Add(1)

	go bs.run(bs.ticker, bs.stop)

	bs.Logger.Info("billing scheduler started", "interval", bs.CheckInterval)
}

// Stop stops the scheduler and waits for a running check to finish.
func (bs *BillingScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		bs.ticker = nil
		bs.Logger.Info("billing scheduler stopped")
	}
}

func (bs *BillingScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer bs.wg.Done()

	// Run immediately on start
	bs.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			bs.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce performs one generation pass and returns the number of payments
// created. Errors are logged, not returned.
func (bs *BillingScheduler) RunOnce(ctx context.Context) int {
	n, err := bs.Store.GenerateMonthlyPayments(ctx, bs.Amount)
	if err != nil {
		bs.Logger.Error("scheduled billing failed", "error", err)
		return 0
	}
	if n == 0 {
		bs.Logger.Debug("scheduled billing: nothing due")
		return 0
	}
	bs.Metrics.PaymentsGenerated(n)
	bs.Logger.Info("scheduled billing", "created", n)
	return n
}
