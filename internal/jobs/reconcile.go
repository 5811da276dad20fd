package jobs

import (
	"context"
	"time"

	"sickfits-be/internal/config"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/order"

	"go.uber.org/zap"
)

// Reconciler is the order service operation the job drives.
type Reconciler interface {
	Reconcile(ctx context.Context, staleAfter time.Duration) (order.ReconcileResult, error)
}

// StartReconcileJob periodically resolves checkouts that were charged but never
// turned into orders, and abandons stale ones the provider never charged.
func StartReconcileJob(ctx context.Context, cfg *config.Config, svc Reconciler) {
	log := logger.L().With(zap.String("job", "reconcile"))

	if !cfg.ReconcileEnabled {
		log.Info("reconcile job disabled")
		return
	}
	if svc == nil {
		log.Warn("reconcile job disabled: order service not configured")
		return
	}

	interval := cfg.ReconcileInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.ReconcileTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	staleAfter := cfg.ReconcileStaleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce(ctx, log, svc, timeout, staleAfter)
			}
		}
	}()
}

func runOnce(ctx context.Context, log *zap.Logger, svc Reconciler, timeout, staleAfter time.Duration) {
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := svc.Reconcile(tickCtx, staleAfter)
	if err != nil {
		log.Error("reconcile job error", zap.Error(err))
		return
	}
	if res.Errors > 0 {
		log.Warn("reconcile job left checkouts unresolved", zap.Int("errors", res.Errors))
	}
}
