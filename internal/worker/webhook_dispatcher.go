package worker

import (
	"bytes"
	"context"
	"hash/fnv"
	"io"
	"net/http"
	"sync"
	"time"

	"stablecoin-gateway/config"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"

	"github.com/rs/zerolog"
)

// maxResponseBodyBytes bounds how much of a merchant's response is recorded
// on the delivery row.
const maxResponseBodyBytes = 1024

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookDispatcher drains the durable delivery queue. A fixed worker pool
// consumes claimed deliveries; routing by payment ID keeps each payment's
// events in order while different payments deliver in parallel.
type WebhookDispatcher struct {
	deliveryRepo ports.WebhookDeliveryRepository
	merchantRepo ports.MerchantRepository
	encSvc       ports.EncryptionService
	sigSvc       ports.SignatureService
	httpClient   HTTPClient
	cfg          config.WebhookConfig
	log          zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher with the given retry policy.
func NewWebhookDispatcher(
	deliveryRepo ports.WebhookDeliveryRepository,
	merchantRepo ports.MerchantRepository,
	encSvc ports.EncryptionService,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	cfg config.WebhookConfig,
	log zerolog.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		deliveryRepo: deliveryRepo,
		merchantRepo: merchantRepo,
		encSvc:       encSvc,
		sigSvc:       sigSvc,
		httpClient:   httpClient,
		cfg:          cfg,
		log:          log.With().Str("worker", "webhook_dispatcher").Logger(),
	}
}

// Run starts the worker pool and the claim loop, blocking until ctx is
// cancelled and every in-flight delivery attempt finished.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	workers := d.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	lanes := make([]chan domain.WebhookDelivery, workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan domain.WebhookDelivery, d.cfg.BatchSize)
		wg.Add(1)
		go func(lane <-chan domain.WebhookDelivery) {
			defer wg.Done()
			for delivery := range lane {
				d.attempt(ctx, delivery)
			}
		}(lanes[i])
	}

	d.log.Info().Int("workers", workers).Msg("dispatcher started")

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			d.claimAndRoute(ctx, lanes)
		}
	}

	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()
	d.log.Info().Msg("dispatcher stopped")
}

// claimAndRoute claims due deliveries and distributes them to the lanes.
// The claim pushes next_attempt_at forward by the lease, so a delivery that
// sits in a lane past the poll interval is not claimed again.
func (d *WebhookDispatcher) claimAndRoute(ctx context.Context, lanes []chan domain.WebhookDelivery) {
	deliveries, err := d.deliveryRepo.ClaimDue(ctx, time.Now().UTC(), d.cfg.ClaimLease, d.cfg.BatchSize)
	if err != nil {
		d.log.Error().Err(err).Msg("claim due deliveries failed")
		return
	}
	for _, delivery := range deliveries {
		lanes[laneFor(delivery.PaymentID.String(), len(lanes))] <- delivery
	}
}

// laneFor routes a payment's deliveries to a stable lane so its events stay
// ordered.
func laneFor(paymentID string, lanes int) int {
	h := fnv.New32a()
	h.Write([]byte(paymentID))
	return int(h.Sum32() % uint32(lanes))
}

// attempt performs one delivery attempt and records its outcome.
func (d *WebhookDispatcher) attempt(ctx context.Context, delivery domain.WebhookDelivery) {
	logger := d.log.With().
		Str("delivery_id", delivery.ID.String()).
		Str("payment_id", delivery.PaymentID.String()).
		Str("event_type", string(delivery.EventType)).
		Logger()

	merchant, err := d.merchantRepo.GetByID(ctx, delivery.MerchantID)
	if err != nil {
		logger.Error().Err(err).Msg("fetch merchant failed, delivery stays claimed until lease expiry")
		return
	}
	if merchant == nil || !merchant.HasWebhook() {
		// Nothing to deliver to. Resolve the row so it never becomes due again.
		delivery.Attempts = delivery.MaxAttempts
		d.resolve(ctx, &delivery, domain.DeliveryStatusFailed, logger)
		logger.Warn().Msg("merchant has no webhook URL, delivery marked failed")
		return
	}

	secret, err := d.encSvc.Decrypt(merchant.WebhookSecretEnc)
	if err != nil {
		logger.Error().Err(err).Msg("decrypt webhook secret failed")
		d.recordFailure(ctx, &delivery, nil, logger)
		return
	}

	status, body, err := d.send(ctx, *merchant.WebhookURL, secret, &delivery)
	if err != nil {
		logger.Warn().Err(err).Int("attempt", delivery.Attempts+1).Msg("delivery attempt failed")
		d.recordFailure(ctx, &delivery, nil, logger)
		return
	}

	delivery.LastResponseStatus = &status
	delivery.LastResponseBody = &body

	if status >= 200 && status < 300 {
		d.resolve(ctx, &delivery, domain.DeliveryStatusDelivered, logger)
		logger.Info().Int("attempt", delivery.Attempts).Int("status", status).Msg("webhook delivered")
		return
	}

	logger.Warn().Int("attempt", delivery.Attempts+1).Int("status", status).Msg("non-2xx webhook response")
	d.recordFailure(ctx, &delivery, &status, logger)
}

// send posts the stored payload snapshot, signed with the merchant's current
// secret. The body bytes go out exactly as stored.
func (d *WebhookDispatcher) send(ctx context.Context, url, secret string, delivery *domain.WebhookDelivery) (int, string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, d.cfg.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(delivery.Payload))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", d.sigSvc.Sign(secret, delivery.Payload))
	req.Header.Set("X-Webhook-Event", string(delivery.EventType))
	req.Header.Set("X-Webhook-Delivery", delivery.ID.String())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	return resp.StatusCode, string(body), nil
}

// recordFailure bumps the attempt counter and either schedules a retry or
// marks the delivery exhausted.
func (d *WebhookDispatcher) recordFailure(ctx context.Context, delivery *domain.WebhookDelivery, status *int, logger zerolog.Logger) {
	delivery.Attempts++
	if status != nil {
		delivery.LastResponseStatus = status
	}

	if delivery.Attempts >= delivery.MaxAttempts {
		d.resolve(ctx, delivery, domain.DeliveryStatusFailed, logger)
		logger.Error().Int("attempts", delivery.Attempts).Msg("webhook delivery exhausted")
		return
	}

	next := time.Now().UTC().Add(retryBackoff(delivery.Attempts, d.cfg.BackoffBase, d.cfg.BackoffCap))
	delivery.NextAttemptAt = &next
	delivery.UpdatedAt = time.Now().UTC()
	if err := d.deliveryRepo.Update(ctx, delivery); err != nil {
		logger.Error().Err(err).Msg("persist delivery retry failed")
	}
}

// resolve moves a delivery to a terminal status.
func (d *WebhookDispatcher) resolve(ctx context.Context, delivery *domain.WebhookDelivery, status domain.DeliveryStatus, logger zerolog.Logger) {
	delivery.Status = status
	delivery.NextAttemptAt = nil
	delivery.UpdatedAt = time.Now().UTC()
	if err := d.deliveryRepo.Update(ctx, delivery); err != nil {
		logger.Error().Err(err).Msg("persist delivery resolution failed")
	}
}

// retryBackoff doubles the base per prior attempt, capped.
func retryBackoff(attempts int, base, limit time.Duration) time.Duration {
	backoff := base
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	if backoff > limit {
		return limit
	}
	return backoff
}
