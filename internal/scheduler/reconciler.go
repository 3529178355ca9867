// Package scheduler runs timer reconciliation on a fixed interval so phase
// changes are announced even when no overlay is polling.
package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"overlay-widgets/internal/services"
)

// Syncer reconciles every running timer
type Syncer interface {
	SyncRunningTimers(ctx context.Context) ([]*services.TimerSnapshot, error)
}

// Reconciler periodically syncs running timers
type Reconciler struct {
	syncer   Syncer
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
}

// NewReconciler creates a reconciler that sweeps every interval. Each sweep
// is bounded by timeout when it is positive.
func NewReconciler(syncer Syncer, clock clockwork.Clock, interval, timeout time.Duration) *Reconciler {
	return &Reconciler{
		syncer:   syncer,
		clock:    clock,
		interval: interval,
		timeout:  timeout,
	}
}

// Start sweeps on every tick until ctx is cancelled
func (r *Reconciler) Start(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Dur("timeout", r.timeout).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconciler stopped")
			return
		case <-ticker.Chan():
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("reconciliation sweep failed")
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many timers changed phase
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	snapshots, err := r.syncer.SyncRunningTimers(ctx)

	changed := 0
	for _, snapshot := range snapshots {
		if snapshot.PhaseChanged {
			changed++
		}
	}
	log.Debug().Int("running", len(snapshots)).Int("changed", changed).Msg("reconciliation sweep")
	return changed, err
}
