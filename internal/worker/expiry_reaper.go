package worker

import (
	"context"
	"time"

	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// ExpiryReaper periodically sweeps pending payments whose deadline passed
// and retires them through the lifecycle manager. Losing a race against the
// watcher is normal: the payment found its transaction at the last moment
// and expiry is simply skipped.
type ExpiryReaper struct {
	svc         ports.PaymentService
	paymentRepo ports.PaymentRepository
	interval    time.Duration
	batchSize   int
	log         zerolog.Logger
}

// NewExpiryReaper creates a reaper sweeping at the given interval.
func NewExpiryReaper(
	svc ports.PaymentService,
	paymentRepo ports.PaymentRepository,
	interval time.Duration,
	batchSize int,
	log zerolog.Logger,
) *ExpiryReaper {
	return &ExpiryReaper{
		svc:         svc,
		paymentRepo: paymentRepo,
		interval:    interval,
		batchSize:   batchSize,
		log:         log.With().Str("worker", "expiry_reaper").Logger(),
	}
}

// Run blocks sweeping until ctx is cancelled.
func (r *ExpiryReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep runs one expiry round.
func (r *ExpiryReaper) sweep(ctx context.Context) {
	now := time.Now().UTC()
	payments, err := r.paymentRepo.ListExpired(ctx, now, r.batchSize)
	if err != nil {
		r.log.Error().Err(err).Msg("list expired payments failed")
		return
	}

	expired := 0
	for i := range payments {
		if ctx.Err() != nil {
			return
		}
		if err := r.svc.Expire(ctx, payments[i].ID); err != nil {
			if apperror.IsVersionConflict(err) {
				// The watcher moved the payment first; leave it alone.
				continue
			}
			r.log.Error().Err(err).Str("payment_id", payments[i].ID.String()).Msg("expire payment failed")
			continue
		}
		expired++
	}
	if expired > 0 {
		r.log.Info().Int("count", expired).Msg("expired overdue payments")
	}
}
