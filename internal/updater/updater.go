// Package updater drives the refresh cycle: positions, pool shares, fee
// ledgers, prices, then the derived analytics. One step failing never
// stops the others, so a flaky upstream degrades exactly one data set.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/juicedollar/protocol-api/internal/analytics"
	"github.com/juicedollar/protocol-api/internal/dedup"
	"github.com/juicedollar/protocol-api/internal/ecosystem"
	"github.com/juicedollar/protocol-api/internal/metrics"
	"github.com/juicedollar/protocol-api/internal/positions"
	"github.com/juicedollar/protocol-api/internal/prices"
	"github.com/juicedollar/protocol-api/internal/store"
)

const updateInterval = 1 * time.Minute

// Notifier pushes an operator alert. Nil disables alerting.
type Notifier interface {
	SendMessage(ctx context.Context, text string) error
}

type Updater struct {
	logger     *slog.Logger
	positions  *positions.Service
	poolShares *ecosystem.PoolSharesService
	ledger     *ecosystem.FeeLedger
	minters    *ecosystem.MinterRegistry
	savings    *ecosystem.SavingsTracker
	prices     *prices.Service
	analytics  *analytics.Service
	chainID    int64

	store    *store.Store        // optional price checkpoint
	dedup    *dedup.Deduplicator // optional alert dedup
	notifier Notifier            // optional
}

func New(
	pos *positions.Service,
	ps *ecosystem.PoolSharesService,
	ledger *ecosystem.FeeLedger,
	minters *ecosystem.MinterRegistry,
	savings *ecosystem.SavingsTracker,
	priceCache *prices.Service,
	an *analytics.Service,
	chainID int64,
	logger *slog.Logger,
) *Updater {
	return &Updater{
		logger:     logger,
		positions:  pos,
		poolShares: ps,
		ledger:     ledger,
		minters:    minters,
		savings:    savings,
		prices:     priceCache,
		analytics:  an,
		chainID:    chainID,
	}
}

// WithCheckpoint enables price-cache persistence.
func (u *Updater) WithCheckpoint(s *store.Store) *Updater {
	u.store = s
	return u
}

// WithAlerting enables drift alerts through the notifier, deduplicated
// via Redis when d is non-nil.
func (u *Updater) WithAlerting(n Notifier, d *dedup.Deduplicator) *Updater {
	u.notifier = n
	u.dedup = d
	return u
}

// Run executes one immediate cycle, then ticks until the context ends.
func (u *Updater) Run(ctx context.Context) {
	u.RunOnce(ctx)

	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single full update cycle.
func (u *Updater) RunOnce(ctx context.Context) {
	u.step(ctx, "positions", u.positions.Update)
	u.step(ctx, "poolshares", u.poolShares.Update)
	u.step(ctx, "ledger", u.ledger.Update)
	u.step(ctx, "minters", u.minters.Update)
	u.step(ctx, "savings", u.savings.Update)
	u.step(ctx, "prices", u.refreshPrices)
	u.step(ctx, "analytics", u.recompute)
}

func (u *Updater) step(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	metrics.UpdateDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpdateTotal.WithLabelValues(name, "error").Inc()
		u.logger.Error("update step failed", "step", name, "error", err)
		return
	}
	metrics.UpdateTotal.WithLabelValues(name, "success").Inc()
	metrics.UpdateLastSuccess.WithLabelValues(name).SetToCurrentTime()
}

func (u *Updater) refreshPrices(ctx context.Context) error {
	rep := u.prices.Refresh(ctx)

	metrics.PriceFetchesTotal.WithLabelValues("new").Add(float64(rep.New - rep.NewFailed))
	metrics.PriceFetchesTotal.WithLabelValues("new_failed").Add(float64(rep.NewFailed))
	metrics.PriceFetchesTotal.WithLabelValues("updated").Add(float64(rep.Updated - rep.UpdatedFailed))
	metrics.PriceFetchesTotal.WithLabelValues("updated_failed").Add(float64(rep.UpdatedFailed))

	list := u.prices.List()
	metrics.PriceCacheAssets.Set(float64(len(list)))
	for _, e := range list {
		metrics.PriceValue.WithLabelValues(e.Symbol).Set(e.Price.USD)
	}

	if u.store != nil && len(list) > 0 {
		if err := u.store.SavePrices(ctx, list); err != nil {
			return fmt.Errorf("checkpoint prices: %w", err)
		}
	}
	return nil
}

// recompute refreshes the exposure memo, exports the business gauges and
// runs the drift check. Not-ready upstreams are normal during startup.
func (u *Updater) recompute(ctx context.Context) error {
	expo, err := u.analytics.Exposure()
	if err != nil {
		if err == analytics.ErrNotReady {
			u.logger.Debug("analytics skipped, snapshots not ready")
			return nil
		}
		return err
	}

	metrics.EquityInReserve.Set(expo.General.EquityInReserve)
	metrics.PoolSharePrice.Set(expo.General.PoolSharesPrice)
	var open int
	for _, item := range expo.Exposures {
		open += item.Positions.Open
		metrics.TotalMinted.WithLabelValues(item.Collateral.Symbol).Set(item.Mint.TotalMinted)
	}
	metrics.OpenPositions.Set(float64(open))

	breakdown, err := u.analytics.Earnings()
	if err != nil {
		return err
	}
	metrics.EarningsDrift.Set(breakdown.OtherContributions)
	u.checkDrift(ctx, breakdown.OtherContributions)
	return nil
}

// checkDrift alerts once per episode of negative reconciliation residual.
// The dedup key lives until the residual recovers, then the next episode
// alerts again.
func (u *Updater) checkDrift(ctx context.Context, residual float64) {
	key := fmt.Sprintf("drift:%d:earnings", u.chainID)

	if residual >= 0 {
		if u.dedup != nil {
			u.dedup.Clear(ctx, key)
		}
		return
	}

	u.logger.Warn("earnings reconciliation drift", "residual", residual)
	if u.notifier == nil {
		return
	}
	if u.dedup != nil && u.dedup.AlreadySent(ctx, key) {
		metrics.AlertsDeduplicatedTotal.WithLabelValues("drift").Inc()
		return
	}

	msg := fmt.Sprintf("⚠️ earnings reconciliation drift on chain %d: residual %.6f", u.chainID, residual)
	if err := u.notifier.SendMessage(ctx, msg); err != nil {
		metrics.AlertsFailedTotal.WithLabelValues("drift").Inc()
		u.logger.Error("send drift alert failed", "error", err)
		return
	}
	metrics.AlertsSentTotal.WithLabelValues("drift").Inc()
	if u.dedup != nil {
		u.dedup.Record(ctx, key, 0)
	}
}
