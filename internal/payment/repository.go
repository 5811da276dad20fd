package payment

import (
	"context"
	"database/sql"
	"errors"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/logger"

	"go.uber.org/zap"
)

// maxFailureReason bounds the stored process_error text.
const maxFailureReason = 500

var ErrWebhookNotFound = apperr.New(apperr.KindNotFound, "webhook delivery not found")

// Repository is the webhook delivery log. Each provider event is applied at
// most once; a delivery whose processing failed is claimable again.
type Repository interface {
	// RecordWebhook stores evt, filling ID, Attempts and ReceivedAt. It reports
	// false when the event was already processed by an earlier delivery.
	RecordWebhook(ctx context.Context, evt *WebhookEvent) (bool, error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RecordWebhook(ctx context.Context, evt *WebhookEvent) (bool, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO payment_webhooks (event_id, event_type, checkout_key, payload)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (event_id) DO UPDATE
			SET received_at = NOW(), attempts = payment_webhooks.attempts + 1
			WHERE payment_webhooks.processed_at IS NULL
		RETURNING id, attempts, received_at`,
		evt.EventID, evt.Type, evt.CheckoutKey, []byte(evt.Payload),
	).Scan(&evt.ID, &evt.Attempts, &evt.ReceivedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// The conflict guard skipped the update: already processed.
		return false, nil
	case err != nil:
		logger.FromCtx(ctx).Error("failed to record webhook",
			zap.String("event_id", evt.EventID), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (r *repository) MarkWebhookProcessed(ctx context.Context, webhookID int64) error {
	return r.update(ctx, webhookID,
		`UPDATE payment_webhooks SET processed_at = NOW(), process_error = NULL WHERE id = $1`)
}

// MarkWebhookFailed leaves processed deliveries untouched.
func (r *repository) MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error {
	if len(reason) > maxFailureReason {
		reason = reason[:maxFailureReason]
	}
	return r.update(ctx, webhookID,
		`UPDATE payment_webhooks SET process_error = $2 WHERE id = $1 AND processed_at IS NULL`,
		reason)
}

func (r *repository) update(ctx context.Context, webhookID int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, append([]any{webhookID}, args...)...)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to update webhook",
			zap.Int64("webhook_id", webhookID), zap.Error(err))
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrWebhookNotFound
	}
	return nil
}
