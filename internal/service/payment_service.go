package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"stablecoin-gateway/config"
	"stablecoin-gateway/internal/core/domain"
	"stablecoin-gateway/internal/core/ports"
	"stablecoin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// amountPattern accepts positive decimal strings with up to 6 fractional
// digits, matching USDC's on-chain precision.
var amountPattern = regexp.MustCompile(`^\d+(\.\d{1,6})?$`)

// WebhookEventPayload is the JSON body delivered to merchant webhooks. The
// snapshot is taken at enqueue time and signed byte-for-byte at send time.
type WebhookEventPayload struct {
	EventType         domain.EventType     `json:"event_type"`
	PaymentID         uuid.UUID            `json:"payment_id"`
	MerchantID        uuid.UUID            `json:"merchant_id"`
	Status            domain.PaymentStatus `json:"status"`
	Amount            string               `json:"amount"`
	Currency          string               `json:"currency"`
	Network           domain.Network       `json:"network"`
	TransactionHash   *string              `json:"transaction_hash,omitempty"`
	MerchantReference *string              `json:"merchant_reference,omitempty"`
	Timestamp         int64                `json:"timestamp"`
}

// PaymentLifecycleManager implements ports.PaymentService. It is the single
// writer of payment status: every transition goes through applyTransition,
// which enforces the state machine and the optimistic-concurrency check.
type PaymentLifecycleManager struct {
	paymentRepo  ports.PaymentRepository
	deliveryRepo ports.WebhookDeliveryRepository
	queue        ports.WebhookQueue
	cache        ports.PaymentCache
	cfg          config.PaymentConfig
	depths       map[domain.Network]int
	log          zerolog.Logger
}

// NewPaymentLifecycleManager creates a new PaymentLifecycleManager.
// depths maps each network to its required confirmation depth.
func NewPaymentLifecycleManager(
	paymentRepo ports.PaymentRepository,
	deliveryRepo ports.WebhookDeliveryRepository,
	queue ports.WebhookQueue,
	cache ports.PaymentCache,
	cfg config.PaymentConfig,
	depths map[domain.Network]int,
	log zerolog.Logger,
) *PaymentLifecycleManager {
	return &PaymentLifecycleManager{
		paymentRepo:  paymentRepo,
		deliveryRepo: deliveryRepo,
		queue:        queue,
		cache:        cache,
		cfg:          cfg,
		depths:       depths,
		log:          log,
	}
}

// Create validates the amount, builds a pending payment and persists it.
// The amount string is stored exactly as received: currency amounts never
// round-trip through a float.
func (s *PaymentLifecycleManager) Create(ctx context.Context, req ports.CreatePaymentRequest) (*domain.Payment, error) {
	if !amountPattern.MatchString(req.Amount) {
		return nil, apperror.ErrInvalidAmount("amount must be a decimal string with at most 6 fractional digits")
	}
	value, err := decimal.NewFromString(req.Amount)
	if err != nil || !value.IsPositive() {
		return nil, apperror.ErrInvalidAmount("amount must be positive")
	}
	if req.Currency != s.cfg.Currency {
		return nil, apperror.Validation(fmt.Sprintf("unsupported currency: %s", req.Currency))
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:                uuid.New(),
		MerchantID:        req.MerchantID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Network:           domain.Network(s.cfg.DefaultNetwork),
		Status:            domain.PaymentStatusPending,
		MerchantReference: req.MerchantReference,
		ExpiresAt:         now.Add(s.cfg.TTL),
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	payment.PaymentURL = fmt.Sprintf("%s/pay/%s", s.cfg.PayBaseURL, payment.ID)

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("merchant_id", req.MerchantID.String()).
		Str("amount", payment.Amount).
		Str("network", string(payment.Network)).
		Msg("payment created")

	return payment, nil
}

// GetPayment returns a payment by ID, read-through the cache.
func (s *PaymentLifecycleManager) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("payment_id", id.String()).Msg("payment cache read failed")
	} else if cached != nil {
		return cached, nil
	}

	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return nil, apperror.ErrNotFound("payment")
	}

	if err := s.cache.Set(ctx, payment, s.cfg.CacheTTL); err != nil {
		s.log.Warn().Err(err).Str("payment_id", id.String()).Msg("payment cache write failed")
	}
	return payment, nil
}

// ListPayments returns the merchant's payments, newest first.
func (s *PaymentLifecycleManager) ListPayments(ctx context.Context, merchantID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	payments, total, err := s.paymentRepo.ListByMerchant(ctx, merchantID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return payments, total, nil
}

// ObserveChainActivity applies one round of observed chain state.
//
// The transition table:
//   - pending + tx hash observed        -> confirming (records the hash)
//   - confirming + reverted receipt     -> failed
//   - confirming + depth reached        -> completed
//   - confirming + empty hash (reorg)   -> pending (hash cleared, count reset)
//
// Observations against terminal payments are accepted no-ops, and repeating
// an observation leaves the payment unchanged, so watcher retries after a
// conflict are always safe.
func (s *PaymentLifecycleManager) ObserveChainActivity(ctx context.Context, obs ports.ChainObservation) error {
	payment, err := s.paymentRepo.GetByID(ctx, obs.PaymentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return apperror.ErrNotFound("payment")
	}
	if payment.IsTerminal() {
		return nil
	}

	switch payment.Status {
	case domain.PaymentStatusPending:
		if obs.TxHash == "" {
			return nil
		}
		hash := obs.TxHash
		return s.applyTransition(ctx, payment, domain.PaymentStatusConfirming, func(p *domain.Payment) {
			p.TransactionHash = &hash
			p.ConfirmationCount = obs.Confirmations
		})

	case domain.PaymentStatusConfirming:
		if obs.TxHash == "" {
			// Reorg reset: the previously observed transaction is no longer
			// canonical. Clear the hash and return to pending.
			return s.applyTransition(ctx, payment, domain.PaymentStatusPending, func(p *domain.Payment) {
				p.TransactionHash = nil
				p.ConfirmationCount = 0
			})
		}
		if obs.Reverted {
			return s.applyTransition(ctx, payment, domain.PaymentStatusFailed, func(p *domain.Payment) {
				p.ConfirmationCount = obs.Confirmations
			})
		}
		if obs.Confirmations >= s.requiredDepth(payment.Network) {
			return s.applyTransition(ctx, payment, domain.PaymentStatusCompleted, func(p *domain.Payment) {
				p.ConfirmationCount = obs.Confirmations
			})
		}
		// Confirmation count only moves forward outside a reorg reset.
		if obs.Confirmations > payment.ConfirmationCount {
			return s.updateInPlace(ctx, payment, func(p *domain.Payment) {
				p.ConfirmationCount = obs.Confirmations
			})
		}
		return nil
	}
	return nil
}

// Expire transitions a pending payment to expired. Any other status is an
// accepted no-op: the payment already won a different race.
func (s *PaymentLifecycleManager) Expire(ctx context.Context, paymentID uuid.UUID) error {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil {
		return apperror.ErrNotFound("payment")
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil
	}
	return s.applyTransition(ctx, payment, domain.PaymentStatusExpired, nil)
}

// Refund transitions a completed payment to refunded on explicit merchant
// request.
func (s *PaymentLifecycleManager) Refund(ctx context.Context, merchantID, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, apperror.ErrNotFound("payment")
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return nil, apperror.ErrRefundNotAllowed(string(payment.Status))
	}
	if err := s.applyTransition(ctx, payment, domain.PaymentStatusRefunded, nil); err != nil {
		return nil, err
	}
	return payment, nil
}

// ListDeliveries returns the webhook delivery history of a merchant's payment.
func (s *PaymentLifecycleManager) ListDeliveries(ctx context.Context, merchantID, paymentID uuid.UUID) ([]domain.WebhookDelivery, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get payment: %w", err))
	}
	if payment == nil || payment.MerchantID != merchantID {
		return nil, apperror.ErrNotFound("payment")
	}
	deliveries, err := s.deliveryRepo.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list deliveries: %w", err))
	}
	return deliveries, nil
}

// requiredDepth returns the confirmation depth for a network, defaulting to
// the deepest configured value when the network is unknown.
func (s *PaymentLifecycleManager) requiredDepth(network domain.Network) int {
	if depth, ok := s.depths[network]; ok {
		return depth
	}
	max := 0
	for _, d := range s.depths {
		if d > max {
			max = d
		}
	}
	return max
}

// applyTransition applies a status change under the version check and
// enqueues exactly one lifecycle event for it. mutate, when non-nil, adjusts
// the payment fields that go with the transition.
func (s *PaymentLifecycleManager) applyTransition(
	ctx context.Context,
	payment *domain.Payment,
	next domain.PaymentStatus,
	mutate func(*domain.Payment),
) error {
	from := payment.Status
	if !payment.CanTransitionTo(next) {
		return apperror.ErrInvalidTransition(string(from), string(next))
	}

	expectedVersion := payment.Version
	payment.Status = next
	if mutate != nil {
		mutate(payment)
	}
	payment.UpdatedAt = time.Now().UTC()

	if err := s.paymentRepo.Update(ctx, payment, expectedVersion); err != nil {
		if apperror.IsVersionConflict(err) {
			s.log.Debug().
				Str("payment_id", payment.ID.String()).
				Str("from", string(from)).
				Str("to", string(next)).
				Msg("transition lost optimistic-concurrency race")
			return err
		}
		return apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}

	if err := s.cache.Invalidate(ctx, payment.ID); err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("payment cache invalidation failed")
	}

	s.log.Info().
		Str("payment_id", payment.ID.String()).
		Str("from", string(from)).
		Str("to", string(next)).
		Int("confirmations", payment.ConfirmationCount).
		Msg("payment transitioned")

	s.enqueueEvent(ctx, payment, domain.EventForStatus(from, next))
	return nil
}

// updateInPlace persists field changes that do not move the state machine
// (confirmation count progress). No event is emitted.
func (s *PaymentLifecycleManager) updateInPlace(ctx context.Context, payment *domain.Payment, mutate func(*domain.Payment)) error {
	expectedVersion := payment.Version
	mutate(payment)
	payment.UpdatedAt = time.Now().UTC()

	if err := s.paymentRepo.Update(ctx, payment, expectedVersion); err != nil {
		if apperror.IsVersionConflict(err) {
			return err
		}
		return apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}
	if err := s.cache.Invalidate(ctx, payment.ID); err != nil {
		s.log.Warn().Err(err).Str("payment_id", payment.ID.String()).Msg("payment cache invalidation failed")
	}
	return nil
}

// enqueueEvent snapshots the payment into an event payload and hands it to
// the durable delivery queue. Failing to enqueue does not roll back an
// already-committed transition; it is logged for operator attention.
func (s *PaymentLifecycleManager) enqueueEvent(ctx context.Context, payment *domain.Payment, eventType domain.EventType) {
	if eventType == "" {
		return
	}
	payload := WebhookEventPayload{
		EventType:         eventType,
		PaymentID:         payment.ID,
		MerchantID:        payment.MerchantID,
		Status:            payment.Status,
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		Network:           payment.Network,
		TransactionHash:   payment.TransactionHash,
		MerchantReference: payment.MerchantReference,
		Timestamp:         time.Now().UTC().Unix(),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("payment_id", payment.ID.String()).Msg("marshal webhook payload")
		return
	}
	if err := s.queue.Enqueue(ctx, payment.MerchantID, payment.ID, eventType, body); err != nil {
		s.log.Error().Err(err).
			Str("payment_id", payment.ID.String()).
			Str("event_type", string(eventType)).
			Msg("enqueue webhook event failed")
	}
}
