package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/payment"

	"go.uber.org/zap"
)

const (
	SignatureHeader  = "Stripe-Signature"
	DefaultTolerance = 5 * time.Minute

	maxBodyBytes = 64 << 10

	EventChargeSucceeded = "charge.succeeded"
	EventChargeFailed    = "charge.failed"
)

var (
	ErrMissingSignature = errors.New("missing signature header")
	ErrBadSignature     = errors.New("signature mismatch")
	ErrStaleSignature   = errors.New("signature timestamp outside tolerance")
)

// Checkouts is the part of the order service a provider notification drives.
type Checkouts interface {
	ConfirmCharge(ctx context.Context, checkoutKey string, charge *payment.Charge) error
	FailCheckout(ctx context.Context, checkoutKey, reason string) error
}

// Event is the envelope of a provider notification.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object payment.Charge `json:"object"`
	} `json:"data"`
}

type Handler struct {
	checkouts Checkouts
	repo      payment.Repository
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewWebhookHandler(checkouts Checkouts, repo payment.Repository, secret string) *Handler {
	return &Handler{
		checkouts: checkouts,
		repo:      repo,
		secret:    []byte(secret),
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// PaymentWebhookHandler verifies, records and applies one provider event.
// Failures the provider should retry answer 5xx; everything else answers 200.
func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(zap.String("handler", "PaymentWebhook"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.Verify(body, r.Header.Get(SignatureHeader)); err != nil {
		log.Warn("webhook signature rejected", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil || evt.ID == "" {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}

	log = log.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type))

	if evt.Type != EventChargeSucceeded && evt.Type != EventChargeFailed {
		log.Debug("ignoring webhook event")
		writeAck(w)
		return
	}

	charge := evt.Data.Object
	key := charge.Metadata.CheckoutKey

	stored := &payment.WebhookEvent{EventID: evt.ID, Type: evt.Type, CheckoutKey: key, Payload: body}
	fresh, err := h.repo.RecordWebhook(ctx, stored)
	if err != nil {
		log.Error("failed to store webhook event", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !fresh {
		log.Info("duplicate webhook event")
		writeAck(w)
		return
	}
	webhookID := stored.ID
	log = log.With(zap.Int("attempt", stored.Attempts))

	if key == "" {
		h.markFailed(ctx, log, webhookID, "missing checkout key")
		writeAck(w)
		return
	}

	switch evt.Type {
	case EventChargeSucceeded:
		err = h.checkouts.ConfirmCharge(ctx, key, &charge)
	case EventChargeFailed:
		reason := charge.FailureMessage
		if reason == "" {
			reason = "charge failed"
		}
		err = h.checkouts.FailCheckout(ctx, key, reason)
	}

	if err != nil {
		h.markFailed(ctx, log, webhookID, err.Error())
		if apperr.IsKind(err, apperr.KindNotFound) {
			writeAck(w)
			return
		}
		log.Error("failed to apply webhook event", zap.Error(err))
		http.Error(w, "failed to apply event", http.StatusInternalServerError)
		return
	}

	if err := h.repo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Error("failed to mark webhook processed", zap.Error(err))
	}
	log.Info("webhook event applied", zap.String("checkout_key", key))
	writeAck(w)
}

func (h *Handler) markFailed(ctx context.Context, log *zap.Logger, webhookID int64, reason string) {
	if err := h.repo.MarkWebhookFailed(ctx, webhookID, reason); err != nil {
		log.Error("failed to mark webhook failed", zap.Error(err))
	}
}

// Verify checks a "t=<unix>,v1=<hex>" header: the HMAC-SHA256 of "<t>.<body>"
// under the endpoint secret must match one v1 entry.
func (h *Handler) Verify(body []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}

	var (
		ts   int64
		sigs [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrBadSignature
			}
			ts = n
		case "v1":
			if sig, err := hex.DecodeString(v); err == nil {
				sigs = append(sigs, sig)
			}
		}
	}
	if ts == 0 || len(sigs) == 0 {
		return ErrBadSignature
	}

	age := h.now().Sub(time.Unix(ts, 0))
	if age > h.tolerance || age < -h.tolerance {
		return ErrStaleSignature
	}

	expected := Sign(h.secret, ts, body)
	for _, sig := range sigs {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return ErrBadSignature
}

// Sign returns the raw v1 signature for a payload sent at ts.
func Sign(secret []byte, ts int64, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}
