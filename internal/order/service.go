package order

import (
	"context"
	"errors"
	"regexp"
	"time"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/auth"
	"sickfits-be/internal/cart"
	"sickfits-be/internal/lock"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/metrics"
	"sickfits-be/internal/payment"
	"sickfits-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	checkoutLockTTL = time.Minute
	reconcileBatch  = 100
)

// Keys end up in provider metadata and search queries.
var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

var (
	errChargeUnconfirmed = apperr.New(apperr.KindInternal,
		"we could not confirm your payment; if it went through your order will appear shortly")
	errFinalizePending = apperr.New(apperr.KindInternal,
		"your payment was received and your order is being created")
)

// CartReader loads a user's cart lines with their items.
type CartReader interface {
	GetCart(ctx context.Context, userID string) ([]*cart.CartItem, error)
}

type CreateOrderParams struct {
	Token          string
	IdempotencyKey *string
}

type Service interface {
	CreateOrder(ctx context.Context, caller *auth.Identity, params CreateOrderParams) (*Order, error)
	GetOrder(ctx context.Context, caller *auth.Identity, id string) (*Order, error)
	ListOrders(ctx context.Context, caller *auth.Identity) ([]*Order, error)

	// ConfirmCharge applies a provider-side success notification.
	ConfirmCharge(ctx context.Context, checkoutKey string, charge *payment.Charge) error
	// FailCheckout applies a provider-side failure notification.
	FailCheckout(ctx context.Context, checkoutKey, reason string) error
	// Reconcile resolves checkouts left CHARGED, or PENDING for longer than staleAfter.
	Reconcile(ctx context.Context, staleAfter time.Duration) (ReconcileResult, error)
}

type service struct {
	repo    Repository
	carts   CartReader
	gateway payment.Gateway
	locker  lock.Locker
	metrics metrics.Recorder
	now     func() time.Time
}

func NewService(
	repo Repository,
	carts CartReader,
	gateway payment.Gateway,
	locker lock.Locker,
	rec metrics.Recorder,
) Service {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &service{
		repo:    repo,
		carts:   carts,
		gateway: gateway,
		locker:  locker,
		metrics: rec,
		now:     time.Now,
	}
}

func (s *service) CreateOrder(ctx context.Context, caller *auth.Identity, params CreateOrderParams) (o *Order, err error) {
	timer := metrics.StartTimer()
	outcome := metrics.OutcomeFailed
	defer func() { s.metrics.CheckoutFinished(outcome, timer.Duration()) }()

	// ---------- AUTH ----------
	who, err := auth.MustIdentity(caller)
	if err != nil {
		outcome = metrics.OutcomeRejected
		return nil, err
	}
	if params.Token == "" {
		outcome = metrics.OutcomeRejected
		return nil, ErrMissingToken
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
	)

	// ---------- LOCK ----------
	release, err := s.locker.Acquire(ctx, lock.CheckoutKey(who.UserID), checkoutLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			outcome = metrics.OutcomeLocked
		}
		log.Warn("checkout lock unavailable", zap.Error(err))
		return nil, err
	}
	defer release()

	// ---------- IDEMPOTENCY ----------
	var existing *Checkout
	key := ""
	if params.IdempotencyKey != nil {
		key = *params.IdempotencyKey
	}
	if key != "" {
		if !idempotencyKeyPattern.MatchString(key) {
			outcome = metrics.OutcomeRejected
			return nil, ErrInvalidKey
		}
		log = log.With(zap.String("idempotency_key", key))

		existing, err = s.repo.FindCheckoutByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.UserID != who.UserID {
			outcome = metrics.OutcomeRejected
			return nil, ErrKeyInUse
		}
	} else {
		// Without a key the caller's unfinished checkout continues under its own key.
		existing, err = s.repo.FindOpenCheckout(ctx, who.UserID)
		if err != nil {
			return nil, err
		}
		key = uuid.NewString()
	}
	if existing != nil {
		log.Info("resuming checkout",
			zap.String("checkout_id", existing.ID),
			zap.String("status", string(existing.Status)),
		)
		o, outcome, err = s.resume(ctx, existing)
		return o, err
	}

	// ---------- CART SNAPSHOT ----------
	lines, err := s.carts.GetCart(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		outcome = metrics.OutcomeRejected
		return nil, ErrEmptyCart
	}

	snapshot := make([]CheckoutLine, 0, len(lines))
	for _, l := range lines {
		snapshot = append(snapshot, CheckoutLine{
			CartItemID:  l.ID,
			Title:       l.Item.Title,
			Description: l.Item.Description,
			Image:       l.Item.Image,
			LargeImage:  l.Item.LargeImage,
			Price:       l.Item.Price,
			Quantity:    l.Quantity,
		})
	}

	c, err := s.repo.CreateCheckout(ctx, &Checkout{
		UserID:         who.UserID,
		IdempotencyKey: key,
		Amount:         cart.Total(lines),
		Currency:       payment.DefaultCurrency,
		Source:         params.Token,
		Lines:          snapshot,
	})
	if err != nil {
		log.Error("failed to persist checkout", zap.Error(err))
		return nil, err
	}

	log.Info("checkout started",
		zap.String("checkout_id", c.ID),
		zap.Int("amount", c.Amount),
		zap.Int("line_count", len(c.Lines)),
	)

	o, outcome, err = s.chargeAndFinalize(ctx, c)
	return o, err
}

// resume continues a checkout found by idempotency key without charging twice.
func (s *service) resume(ctx context.Context, c *Checkout) (*Order, string, error) {
	switch c.Status {
	case CheckoutCompleted:
		o, err := s.orderByID(ctx, c.OrderID)
		if err != nil {
			return nil, metrics.OutcomeFailed, err
		}
		return o, metrics.OutcomeReplayed, nil
	case CheckoutCharged:
		o, err := s.finalize(ctx, c)
		if err != nil {
			return nil, metrics.OutcomeFailed, err
		}
		return o, metrics.OutcomeReplayed, nil
	case CheckoutPending:
		return s.chargeAndFinalize(ctx, c)
	default:
		return nil, metrics.OutcomeRejected, ErrCheckoutFailed
	}
}

func (s *service) chargeAndFinalize(ctx context.Context, c *Checkout) (*Order, string, error) {
	log := logger.FromCtx(ctx).With(zap.String("checkout_id", c.ID))

	// ---------- CHARGE ----------
	ch, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		Amount:         c.Amount,
		Currency:       c.Currency,
		Source:         c.Source,
		IdempotencyKey: c.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, payment.ErrPaymentDeclined) {
			if mfErr := s.repo.MarkFailed(ctx, c.ID, apperr.Public(err)); mfErr != nil {
				log.Error("failed to mark checkout failed", zap.Error(mfErr))
			}
			log.Info("charge declined", zap.Error(err))
			return nil, metrics.OutcomeDeclined, err
		}
		// The charge may or may not have happened; reconciliation will ask the provider.
		log.Error("charge outcome unknown", zap.Error(err))
		return nil, metrics.OutcomeFailed, apperr.Wrap(apperr.KindInternal, errChargeUnconfirmed.Message, err)
	}

	if err := s.repo.MarkCharged(ctx, c.ID, ch.ID, ch.Amount); err != nil {
		log.Error("failed to record charge", zap.String("charge_id", ch.ID), zap.Error(err))
		return nil, metrics.OutcomeFailed, apperr.Wrap(apperr.KindInternal, errFinalizePending.Message, err)
	}

	// ---------- FINALIZE ----------
	o, err := s.finalize(ctx, c)
	if err != nil {
		return nil, metrics.OutcomeFailed, err
	}
	return o, metrics.OutcomeCompleted, nil
}

func (s *service) finalize(ctx context.Context, c *Checkout) (*Order, error) {
	o, err := s.repo.FinalizeTx(ctx, c.ID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to finalize checkout",
			zap.String("checkout_id", c.ID),
			zap.Error(err),
		)
		return nil, apperr.Wrap(apperr.KindInternal, errFinalizePending.Message, err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) orderByID(ctx context.Context, id *string) (*Order, error) {
	if id == nil {
		return nil, ErrOrderNotFound
	}
	o, err := s.repo.GetOrder(ctx, *id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, caller *auth.Identity, id string) (*Order, error) {
	who, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}
	if !utils.IsUUID(id) {
		return nil, ErrOrderNotFound
	}

	o, err := s.orderByID(ctx, &id)
	if err != nil {
		return nil, err
	}

	ownsOrder := o.UserID == who.UserID
	if !ownsOrder && !auth.Intersects(who.PermissionSet(), auth.PermissionAdmin) {
		logger.FromCtx(ctx).Warn("order access denied",
			zap.String("order_id", id),
			zap.String("caller_id", who.UserID),
		)
		return nil, ErrOrderForbidden
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, caller *auth.Identity) ([]*Order, error) {
	who, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUser(ctx, who.UserID)
}

func (s *service) ConfirmCharge(ctx context.Context, checkoutKey string, charge *payment.Charge) error {
	log := logger.FromCtx(ctx).With(
		zap.String("method", "ConfirmCharge"),
		zap.String("idempotency_key", checkoutKey),
	)

	c, err := s.repo.FindCheckoutByKey(ctx, checkoutKey)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCheckoutNotFound
	}

	switch c.Status {
	case CheckoutCompleted:
		return nil
	case CheckoutPending, CheckoutFailed:
		if err := s.repo.MarkCharged(ctx, c.ID, charge.ID, charge.Amount); err != nil {
			return err
		}
	}

	if _, err := s.finalize(ctx, c); err != nil {
		return err
	}
	log.Info("checkout confirmed by provider", zap.String("charge_id", charge.ID))
	return nil
}

func (s *service) FailCheckout(ctx context.Context, checkoutKey, reason string) error {
	c, err := s.repo.FindCheckoutByKey(ctx, checkoutKey)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrCheckoutNotFound
	}
	if c.Status != CheckoutPending {
		return nil
	}
	return s.repo.MarkFailed(ctx, c.ID, reason)
}

func (s *service) Reconcile(ctx context.Context, staleAfter time.Duration) (ReconcileResult, error) {
	var res ReconcileResult
	log := logger.FromCtx(ctx).With(zap.String("method", "Reconcile"))

	pending, err := s.repo.ListReconcilable(ctx, s.now().Add(-staleAfter), reconcileBatch)
	if err != nil {
		return res, err
	}

	for _, c := range pending {
		if ctx.Err() != nil {
			break
		}
		clog := log.With(zap.String("checkout_id", c.ID), zap.String("status", string(c.Status)))

		if c.Status == CheckoutPending {
			ch, err := s.gateway.FindCharge(ctx, c.IdempotencyKey)
			if err != nil {
				clog.Warn("charge lookup failed", zap.Error(err))
				res.Errors++
				continue
			}
			if ch == nil {
				if err := s.repo.MarkFailed(ctx, c.ID, "abandoned"); err != nil {
					clog.Error("failed to abandon checkout", zap.Error(err))
					res.Errors++
					continue
				}
				res.Abandoned++
				continue
			}
			if err := s.repo.MarkCharged(ctx, c.ID, ch.ID, ch.Amount); err != nil {
				clog.Error("failed to record charge", zap.Error(err))
				res.Errors++
				continue
			}
		}

		if _, err := s.repo.FinalizeTx(ctx, c.ID); err != nil {
			clog.Error("failed to finalize checkout", zap.Error(err))
			res.Errors++
			continue
		}
		res.Finalized++
	}

	s.metrics.Reconciled(metrics.ResultFinalized, res.Finalized)
	s.metrics.Reconciled(metrics.ResultAbandoned, res.Abandoned)
	s.metrics.Reconciled(metrics.ResultError, res.Errors)

	if res.Finalized+res.Abandoned+res.Errors > 0 {
		log.Info("reconciliation pass finished",
			zap.Int("finalized", res.Finalized),
			zap.Int("abandoned", res.Abandoned),
			zap.Int("errors", res.Errors),
		)
	}
	return res, nil
}
