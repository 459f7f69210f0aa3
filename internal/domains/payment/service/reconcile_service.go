package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"epay-gateway/internal/domains/payment/gateway"
	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
	"epay-gateway/internal/domains/payment/repository"
	"epay-gateway/pkg/cache"
	"epay-gateway/pkg/logger"
)

// reconcileLockKey guards cycles across processes when a Locker is set.
const reconcileLockKey = "payment:epay:reconcile:lock"

// Scheduler runs a task every interval. With mutuallyExclusive set, a tick
// that fires while the previous run is still going is skipped.
type Scheduler interface {
	RunPeriodic(ctx context.Context, interval time.Duration, mutuallyExclusive bool, task func(context.Context)) error
}

// ReconcilerConfig tunes one cycle. Zero values fall back to defaults.
type ReconcilerConfig struct {
	Workers      int           // Parallel status queries per cycle
	Window       time.Duration // Only orders newer than now-Window are polled
	QueryTimeout time.Duration // Per-query bound used for the cycle ceiling
	CycleSlack   time.Duration // Added on top of the computed ceiling
	RateLimit    float64       // Outbound queries per second, 0 = unlimited
	RateBurst    int
	LockTTL      time.Duration // Lease for the distributed lock
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.Workers <= 0 {
		c.Workers = model.DefaultReconcileWorkers
	}
	if c.Window <= 0 {
		c.Window = model.ReconcileWindow
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = model.QueryTimeout
	}
	if c.CycleSlack <= 0 {
		c.CycleSlack = 5 * time.Second
	}
	if c.RateBurst <= 0 {
		c.RateBurst = c.Workers
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
	return c
}

// =====================================================
// RECONCILER
// =====================================================

// Reconciler polls the gateway for pending orders and marks confirmed ones
// paid. It keeps no state between cycles.
type Reconciler struct {
	store    repository.OrderStore
	gateway  gateway.EpayGateway
	provider epay.ConfigProvider
	locker   cache.Locker
	cfg      ReconcilerConfig
	limiter  *rate.Limiter
	now      func() time.Time

	running sync.Mutex
}

// NewReconciler wires a reconciler. locker may be nil for single-instance
// deployments.
func NewReconciler(
	store repository.OrderStore,
	gw gateway.EpayGateway,
	provider epay.ConfigProvider,
	locker cache.Locker,
	cfg ReconcilerConfig,
) *Reconciler {
	cfg = cfg.withDefaults()

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Reconciler{
		store:    store,
		gateway:  gw,
		provider: provider,
		locker:   locker,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, cfg.RateBurst),
		now:      time.Now,
	}
}

type outcome int

const (
	outcomeConfirmed outcome = iota
	outcomeNotConfirmed
	outcomeError
	outcomeSkipped
)

// Schedule registers Run with s to fire every ReconcileInterval without
// overlapping runs.
func (r *Reconciler) Schedule(ctx context.Context, s Scheduler) error {
	return s.RunPeriodic(ctx, model.ReconcileInterval, true, func(ctx context.Context) {
		if _, err := r.Run(ctx); err != nil {
			if errors.Is(err, model.ErrCycleInProgress) {
				logger.Warn("reconcile cycle skipped: previous cycle still running", nil)
				return
			}
			logger.Error("reconcile cycle failed", err)
		}
	})
}

// Run executes one reconciliation cycle. It returns ErrCycleInProgress
// without doing anything when another cycle holds the guard. Per-order
// failures are counted in the report and never abort the cycle.
func (r *Reconciler) Run(ctx context.Context) (*model.ReconcileReport, error) {
	if !r.running.TryLock() {
		return nil, model.ErrCycleInProgress
	}
	defer r.running.Unlock()

	if r.locker != nil {
		unlock, ok, err := r.locker.TryLock(ctx, reconcileLockKey, r.cfg.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire reconcile lock: %w", err)
		}
		if !ok {
			return nil, model.ErrCycleInProgress
		}
		defer func() {
			if err := unlock(context.Background()); err != nil {
				logger.Error("failed to release reconcile lock", err)
			}
		}()
	}

	start := time.Now()
	now := r.now()
	report := &model.ReconcileReport{
		CycleID:   uuid.NewString(),
		StartedAt: now,
	}
	defer func() {
		report.Duration = time.Since(start)
	}()

	gwCfg, err := epay.LoadConfig(ctx, r.provider)
	if err != nil {
		return report, err
	}

	channelIDs, err := r.store.EnabledChannelIDs(ctx, model.GatewayCode)
	if err != nil {
		return report, fmt.Errorf("list channels: %w", err)
	}
	if len(channelIDs) == 0 {
		logger.Debug("reconcile cycle skipped: no enabled " + model.GatewayCode + " channels")
		return report, nil
	}
	report.Channels = len(channelIDs)

	candidates, err := r.store.PendingOrders(ctx, channelIDs, now.Add(-r.cfg.Window))
	if err != nil {
		return report, fmt.Errorf("list pending orders: %w", err)
	}

	candidates = r.eligible(candidates, now)
	report.Scanned = len(candidates)
	if len(candidates) == 0 {
		return report, nil
	}

	// No gateway URL: every query would fail the same way, so report once.
	if gwCfg.BaseURL() == "" {
		report.Errors = len(candidates)
		report.Duration = time.Since(start)
		logger.ErrorWithFields("reconcile cycle skipped: gateway url is not configured",
			model.NewConfigurationError(epay.SettingURL), report.Fields())
		return report, nil
	}

	r.dispatch(ctx, gwCfg, candidates, report)

	report.Duration = time.Since(start)
	logger.Info("reconcile cycle finished", report.Fields())
	return report, nil
}

// eligible drops duplicates and anything outside the window.
func (r *Reconciler) eligible(candidates []model.ReconciliationCandidate, now time.Time) []model.ReconciliationCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]model.ReconciliationCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.MerchantOrderID == "" || !c.InWindow(now, r.cfg.Window) {
			continue
		}
		if _, dup := seen[c.MerchantOrderID]; dup {
			continue
		}
		seen[c.MerchantOrderID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// cycleCeiling is QueryTimeout per round of Workers queries plus slack.
func (r *Reconciler) cycleCeiling(n int) time.Duration {
	rounds := (n + r.cfg.Workers - 1) / r.cfg.Workers
	return time.Duration(rounds)*r.cfg.QueryTimeout + r.cfg.CycleSlack
}

func (r *Reconciler) dispatch(ctx context.Context, gwCfg epay.GatewayConfig, candidates []model.ReconciliationCandidate, report *model.ReconcileReport) {
	cycleCtx, cancel := context.WithTimeout(ctx, r.cycleCeiling(len(candidates)))
	defer cancel()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.Workers)

	record := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeConfirmed:
			report.Confirmed++
		case outcomeNotConfirmed:
			report.NotConfirmed++
		case outcomeError:
			report.Errors++
		default:
			report.Skipped++
		}
	}

	for i, c := range candidates {
		if err := cycleCtx.Err(); err != nil {
			remaining := len(candidates) - i
			logger.Warn("reconcile cycle stopped dispatching", map[string]interface{}{
				"cycle_id":  report.CycleID,
				"remaining": remaining,
				"reason":    err.Error(),
			})
			mu.Lock()
			report.Skipped += remaining
			mu.Unlock()
			break
		}

		c := c
		g.Go(func() error {
			record(r.reconcileOne(cycleCtx, gwCfg, c, report.CycleID))
			return nil
		})
	}

	_ = g.Wait()
}

// reconcileOne queries one order and marks it paid on confirmation.
// A panic is recovered and counted as an error.
func (r *Reconciler) reconcileOne(ctx context.Context, gwCfg epay.GatewayConfig, c model.ReconciliationCandidate, cycleID string) (result outcome) {
	fields := map[string]interface{}{
		"cycle_id":   cycleID,
		"trade_no":   c.MerchantOrderID,
		"payment_id": c.PaymentChannelID,
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorWithFields("reconcile order panicked",
				model.NewReconcileOrderError(c.MerchantOrderID, fmt.Errorf("panic: %v", p)), fields)
			result = outcomeError
		}
	}()

	if err := r.limiter.Wait(ctx); err != nil {
		return outcomeSkipped
	}

	res := r.gateway.QueryStatus(ctx, gwCfg, c.MerchantOrderID)
	switch res.Status {
	case model.QueryConfirmed:
		if err := r.store.MarkPaid(ctx, c, res.GatewayOrderID); err != nil {
			if errors.Is(err, model.ErrOrderNotPending) {
				logger.Info("order already settled elsewhere", fields)
				return outcomeSkipped
			}
			logger.ErrorWithFields("failed to mark order paid",
				model.NewReconcileOrderError(c.MerchantOrderID, err), fields)
			return outcomeError
		}
		fields["callback_no"] = res.GatewayOrderID
		logger.Info("order marked paid via active query", fields)
		return outcomeConfirmed

	case model.QueryNotConfirmed:
		return outcomeNotConfirmed

	default:
		logger.ErrorWithFields("status query failed",
			model.NewReconcileOrderError(c.MerchantOrderID, res.Err), fields)
		return outcomeError
	}
}
