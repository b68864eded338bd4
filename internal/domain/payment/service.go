package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/courseforge/billing-api/internal/domain/catalog"
	"github.com/courseforge/billing-api/internal/domain/ledger"
	"github.com/courseforge/billing-api/internal/domain/referral"
	"github.com/courseforge/billing-api/internal/pkg/razorpay"
)

// Service drives the credit purchase flow: order creation against the
// gateway, then reconciliation of the two completion signals, the
// client's checkout callback and the gateway webhook. Whichever signal
// arrives first credits the ledger; the other collapses into a no-op
// under the order's row lock.
type Service struct {
	repo        *Repository
	ledgerSvc   *ledger.Service
	referralSvc *referral.Service
	catalogSvc  *catalog.Service
	gateway     *razorpay.Client
	gatewayCfg  razorpay.Config
}

func NewService(
	repo *Repository,
	ledgerSvc *ledger.Service,
	referralSvc *referral.Service,
	catalogSvc *catalog.Service,
	gateway *razorpay.Client,
	gatewayCfg razorpay.Config,
) *Service {
	return &Service{
		repo:        repo,
		ledgerSvc:   ledgerSvc,
		referralSvc: referralSvc,
		catalogSvc:  catalogSvc,
		gateway:     gateway,
		gatewayCfg:  gatewayCfg,
	}
}

// CreateOrder opens a pending order for a pricing tier. Amount and credit
// count come from the catalog; the client only names the tier.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, tierID string) (*Order, error) {
	tier, err := s.catalogSvc.GetTier(ctx, tierID)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	gwOrder, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:   tier.AmountMinor,
		Currency: tier.Currency,
		Receipt:  orderID.String(),
		Notes:    map[string]string{"user_id": userID.String(), "tier_id": tier.ID},
	})
	if err != nil {
		log.Error().Err(err).Str("tier_id", tierID).Msg("gateway order creation failed")
		return nil, err
	}

	now := time.Now()
	order := &Order{
		ID:             orderID,
		UserID:         userID,
		TierID:         tier.ID,
		GatewayOrderID: gwOrder.ID,
		Credits:        tier.Credits,
		AmountMinor:    tier.AmountMinor,
		Currency:       tier.Currency,
		Status:         StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		log.Error().Err(err).Str("gateway_order_id", gwOrder.ID).Msg("failed to persist order")
		return nil, ErrInternal
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("gateway_order_id", order.GatewayOrderID).
		Int("credits", order.Credits).
		Msg("payment order created")
	return order, nil
}

// ConfirmPayment handles the client's checkout callback. The signature is
// checked before any database work; a tampered callback never reaches the
// order at all.
func (s *Service) ConfirmPayment(ctx context.Context, userID uuid.UUID, gatewayOrderID, gatewayPaymentID, signature string) (*Order, error) {
	if !razorpay.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature, s.gatewayCfg.KeySecret) {
		log.Warn().Str("gateway_order_id", gatewayOrderID).Msg("payment confirmation with bad signature")
		return nil, ErrInvalidSignature
	}

	order, err := s.complete(ctx, gatewayOrderID, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		// signature was valid, but the caller is not the order's owner
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// HandleWebhook processes a gateway webhook after verifying its signature
// over the raw body.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !razorpay.VerifyWebhookSignature(body, signature, s.gatewayCfg.WebhookSecret) {
		log.Warn().Msg("webhook with bad signature rejected")
		return ErrInvalidSignature
	}

	event, err := razorpay.ParseWebhook(body)
	if err != nil {
		log.Warn().Err(err).Msg("malformed webhook body")
		return ErrInvalidSignature
	}

	switch event.Kind {
	case razorpay.EventPaymentCaptured:
		_, err := s.complete(ctx, event.Payment.OrderID, event.Payment.ID)
		return err
	case razorpay.EventPaymentFailed:
		return s.fail(ctx, event.Payment.OrderID, event.Payment.ErrorDescription)
	case razorpay.EventRefundCreated:
		return s.refund(ctx, event.Refund.PaymentID)
	default:
		// unrecognized events are acknowledged and dropped
		log.Debug().Str("event", event.Kind).Msg("ignoring webhook event")
		return nil
	}
}

func (s *Service) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list orders")
		return nil, ErrInternal
	}
	return orders, nil
}

// complete is the single reconciliation path for both completion signals.
// It locks the order, walks it through captured and completed, and
// credits the ledger only when the completed transition actually fired.
func (s *Service) complete(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*Order, error) {
	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return nil, ErrInternal
	}
	defer tx.Rollback()

	order, err := s.repo.GetByGatewayOrderIDTx(ctx, tx, gatewayOrderID)
	if err != nil {
		return nil, ErrInternal
	}
	if order == nil {
		// unknown gateway order ids are never materialized into orders
		return nil, ErrOrderNotFound
	}

	now := time.Now()
	if _, err := MarkCaptured(order, gatewayPaymentID, now); err != nil {
		log.Warn().
			Str("order_id", order.ID.String()).
			Str("gateway_payment_id", gatewayPaymentID).
			Msg("capture rejected")
		return nil, err
	}

	credited, err := Complete(order, now)
	if err != nil {
		return nil, err
	}

	affected := []uuid.UUID{}
	if credited {
		if _, err := s.ledgerSvc.PurchaseTx(ctx, tx, order.UserID, order.Credits, order.ID); err != nil {
			return nil, err
		}
		affected = append(affected, order.UserID)

		bonused, err := s.referralSvc.OnPurchaseCompletedTx(ctx, tx, order.UserID, order.ID, order.Credits)
		if err != nil {
			return nil, err
		}
		affected = append(affected, bonused...)
	}

	if err := s.repo.UpdateTx(ctx, tx, order); err != nil {
		return nil, ErrInternal
	}
	if err := tx.Commit(); err != nil {
		return nil, ErrInternal
	}

	for _, id := range affected {
		s.ledgerSvc.InvalidateBalance(ctx, id)
	}
	if credited {
		log.Info().
			Str("order_id", order.ID.String()).
			Int("credits", order.Credits).
			Msg("payment completed, credits added")
	}
	return order, nil
}

func (s *Service) fail(ctx context.Context, gatewayOrderID, reason string) error {
	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return ErrInternal
	}
	defer tx.Rollback()

	order, err := s.repo.GetByGatewayOrderIDTx(ctx, tx, gatewayOrderID)
	if err != nil {
		return ErrInternal
	}
	if order == nil {
		return ErrOrderNotFound
	}

	changed, err := MarkFailed(order, reason, time.Now())
	if err != nil {
		// a failure signal after completion is a gateway anomaly worth noise
		log.Warn().
			Str("order_id", order.ID.String()).
			Str("status", string(order.Status)).
			Msg("failure signal for settled order ignored")
		return err
	}
	if !changed {
		return nil
	}

	if err := s.repo.UpdateTx(ctx, tx, order); err != nil {
		return ErrInternal
	}
	if err := tx.Commit(); err != nil {
		return ErrInternal
	}

	log.Info().Str("order_id", order.ID.String()).Str("reason", reason).Msg("payment failed")
	return nil
}

func (s *Service) refund(ctx context.Context, gatewayPaymentID string) error {
	tx, err := s.repo.BeginTxx(ctx)
	if err != nil {
		return ErrInternal
	}
	defer tx.Rollback()

	order, err := s.repo.GetByGatewayPaymentIDTx(ctx, tx, gatewayPaymentID)
	if err != nil {
		return ErrInternal
	}
	if order == nil {
		return ErrOrderNotFound
	}

	changed, err := MarkRefunded(order, time.Now())
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if _, err := s.ledgerSvc.RefundTx(ctx, tx, order.UserID, order.Credits, order.ID); err != nil {
		if !errors.Is(err, ledger.ErrInsufficientCredits) {
			return err
		}
		// nothing left to reclaim, the order still flips to refunded
		log.Warn().Str("order_id", order.ID.String()).Msg("refund with no credits left to reclaim")
	}
	if err := s.repo.UpdateTx(ctx, tx, order); err != nil {
		return ErrInternal
	}
	if err := tx.Commit(); err != nil {
		return ErrInternal
	}

	s.ledgerSvc.InvalidateBalance(ctx, order.UserID)
	log.Info().
		Str("order_id", order.ID.String()).
		Int("credits", order.Credits).
		Msg("payment refunded, credits reclaimed")
	return nil
}
