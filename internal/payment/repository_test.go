package payment

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepository_RecordWebhook(t *testing.T) {
	received := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"id":"evt_1"}`)

	tests := []struct {
		name      string
		setup     func(mock sqlmock.Sqlmock)
		wantFresh bool
		wantErr   bool
		wantID    int64
		attempts  int
	}{
		{
			name: "first delivery",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO payment_webhooks`).
					WithArgs("evt_1", "charge.succeeded", "key-1", payload).
					WillReturnRows(sqlmock.NewRows([]string{"id", "attempts", "received_at"}).AddRow(10, 1, received))
			},
			wantFresh: true,
			wantID:    10,
			attempts:  1,
		},
		{
			name: "redelivery of a failed event",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`ON CONFLICT \(event_id\) DO UPDATE`).
					WillReturnRows(sqlmock.NewRows([]string{"id", "attempts", "received_at"}).AddRow(10, 3, received))
			},
			wantFresh: true,
			wantID:    10,
			attempts:  3,
		},
		{
			name: "already processed",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO payment_webhooks`).WillReturnError(sql.ErrNoRows)
			},
		},
		{
			name: "db error",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO payment_webhooks`).WillReturnError(errors.New("db error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			evt := &WebhookEvent{EventID: "evt_1", Type: "charge.succeeded", CheckoutKey: "key-1", Payload: payload}
			fresh, err := repo.RecordWebhook(context.Background(), evt)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantFresh, fresh)
			if tt.wantFresh {
				assert.Equal(t, tt.wantID, evt.ID)
				assert.Equal(t, tt.attempts, evt.Attempts)
				assert.Equal(t, received, evt.ReceivedAt)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_MarkWebhookProcessed(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payment_webhooks SET processed_at = NOW\(\), process_error = NULL`).
			WithArgs(int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookProcessed(context.Background(), 1))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown delivery", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payment_webhooks`).
			WithArgs(int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.MarkWebhookProcessed(context.Background(), 99), ErrWebhookNotFound)
	})

	t.Run("Exec error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payment_webhooks`).WillReturnError(errors.New("db error"))

		assert.EqualError(t, repo.MarkWebhookProcessed(context.Background(), 1), "db error")
	})
}

func TestRepository_MarkWebhookFailed(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payment_webhooks SET process_error = \$2 WHERE id = \$1 AND processed_at IS NULL`).
			WithArgs(int64(1), "boom").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookFailed(context.Background(), 1, "boom"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Long reason is truncated", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payment_webhooks`).
			WithArgs(int64(1), strings.Repeat("x", maxFailureReason)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkWebhookFailed(context.Background(), 1, strings.Repeat("x", 2*maxFailureReason)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already processed", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payment_webhooks`).
			WithArgs(int64(1), "late").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.MarkWebhookFailed(context.Background(), 1, "late"), ErrWebhookNotFound)
	})
}
