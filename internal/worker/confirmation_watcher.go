package worker

import (
	"context"
	"sync"
	"time"

	"stablecoin-gateway/config"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// ConfirmationWatcher polls each configured network and feeds observed chain
// state into the payment lifecycle. It never decides transitions itself: it
// reports what the chain shows and lets the lifecycle manager apply the
// state machine.
type ConfirmationWatcher struct {
	svc         ports.PaymentService
	paymentRepo ports.PaymentRepository
	chain       ports.ChainClient
	cfg         config.ChainConfig
	networks    []domain.Network
	log         zerolog.Logger
}

// NewConfirmationWatcher creates a watcher for the configured networks.
func NewConfirmationWatcher(
	svc ports.PaymentService,
	paymentRepo ports.PaymentRepository,
	chain ports.ChainClient,
	cfg config.ChainConfig,
	log zerolog.Logger,
) *ConfirmationWatcher {
	networks := make([]domain.Network, 0, len(cfg.Networks))
	for name := range cfg.Networks {
		networks = append(networks, domain.Network(name))
	}
	return &ConfirmationWatcher{
		svc:         svc,
		paymentRepo: paymentRepo,
		chain:       chain,
		cfg:         cfg,
		networks:    networks,
		log:         log.With().Str("worker", "confirmation_watcher").Logger(),
	}
}

// Run starts one polling goroutine per network and blocks until ctx is
// cancelled and all of them have drained.
func (w *ConfirmationWatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, network := range w.networks {
		wg.Add(1)
		go func(network domain.Network) {
			defer wg.Done()
			w.watchNetwork(ctx, network)
		}(network)
	}
	wg.Wait()
}

func (w *ConfirmationWatcher) watchNetwork(ctx context.Context, network domain.Network) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.Info().Str("network", string(network)).Msg("watcher started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Str("network", string(network)).Msg("watcher stopped")
			return
		case <-ticker.C:
			w.pollNetwork(ctx, network)
		}
	}
}

// pollNetwork runs one observation round. RPC failures are transient: they
// are logged and the round moves on, leaving payments untouched until the
// next tick.
func (w *ConfirmationWatcher) pollNetwork(ctx context.Context, network domain.Network) {
	head, err := w.chain.HeadBlock(ctx, network)
	if err != nil {
		w.log.Warn().Err(err).Str("network", string(network)).Msg("head block unavailable, skipping round")
		return
	}

	payments, err := w.paymentRepo.ListOpenByNetwork(ctx, network, w.cfg.BatchSize)
	if err != nil {
		w.log.Error().Err(err).Str("network", string(network)).Msg("list open payments failed")
		return
	}

	for i := range payments {
		if ctx.Err() != nil {
			return
		}
		w.observePayment(ctx, network, head, &payments[i])
	}
}

func (w *ConfirmationWatcher) observePayment(ctx context.Context, network domain.Network, head uint64, payment *domain.Payment) {
	// A pending payment with no submitted hash has nothing to check yet.
	if payment.TransactionHash == nil {
		return
	}
	hash := *payment.TransactionHash

	found, mempool, err := w.chain.TransactionByHash(ctx, network, hash)
	if err != nil {
		w.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("transaction lookup failed")
		return
	}

	obs := ports.ChainObservation{PaymentID: payment.ID, TxHash: hash}
	switch {
	case !found:
		// A previously observed transaction the node no longer knows was
		// dropped in a reorg.
		obs = ports.ChainObservation{PaymentID: payment.ID}

	case mempool:
		if payment.ConfirmationCount >= 1 {
			// Mined before, back in the mempool: the containing block was
			// reorged out.
			obs = ports.ChainObservation{PaymentID: payment.ID}
		} else {
			return
		}

	default:
		receipt, err := w.chain.TransactionReceipt(ctx, network, hash)
		if err != nil {
			w.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("receipt lookup failed")
			return
		}
		if receipt == nil {
			if payment.ConfirmationCount >= 1 {
				obs = ports.ChainObservation{PaymentID: payment.ID}
			} else {
				return
			}
		} else {
			obs.Reverted = receipt.Reverted
			if head >= receipt.BlockNumber {
				obs.Confirmations = int(head-receipt.BlockNumber) + 1
			}
		}
	}

	if err := w.svc.ObserveChainActivity(ctx, obs); err != nil {
		if apperror.IsVersionConflict(err) {
			// Another writer got there first; the next tick re-reads.
			return
		}
		w.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("apply chain observation failed")
	}
}
