package order

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkoutCols = []string{
	"id", "user_id", "idempotency_key", "amount", "currency", "source", "status",
	"charge_id", "charged_amount", "lines", "order_id", "failure_reason", "created_at", "updated_at",
}

const linesJSON = `[{"cartItemId":"c1","title":"Shoe","description":"Red","image":null,"largeImage":null,"price":500,"quantity":2}]`

func checkoutRow(status CheckoutStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(checkoutCols).AddRow(
		"co-1", userID, "key-1", 1000, "USD", "tok_visa", string(status),
		nil, nil, linesJSON, nil, nil, now, now,
	)
}

func TestRepository_CreateCheckout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	in := &Checkout{
		UserID:         userID,
		IdempotencyKey: "key-1",
		Amount:         1000,
		Currency:       "USD",
		Source:         "tok_visa",
		Lines:          []CheckoutLine{{CartItemID: "c1", Title: "Shoe", Description: "Red", Price: 500, Quantity: 2}},
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO checkouts").
			WithArgs(userID, "key-1", 1000, "USD", "tok_visa", "PENDING", sqlmock.AnyArg()).
			WillReturnRows(checkoutRow(CheckoutPending))

		c, err := repo.CreateCheckout(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, "co-1", c.ID)
		assert.Equal(t, CheckoutPending, c.Status)
		require.Len(t, c.Lines, 1)
		assert.Equal(t, "c1", c.Lines[0].CartItemID)
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO checkouts").
			WillReturnError(&pq.Error{Code: pq.ErrorCode(PgUniqueViolation)})

		_, err := repo.CreateCheckout(ctx, in)
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindCheckoutByKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT .* FROM checkouts WHERE idempotency_key = \\$1").
		WithArgs("key-1").
		WillReturnRows(checkoutRow(CheckoutFailed))

	c, err := repo.FindCheckoutByKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Equal(t, CheckoutFailed, c.Status)

	mock.ExpectQuery("SELECT .* FROM checkouts WHERE idempotency_key = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(checkoutCols))

	c, err = repo.FindCheckoutByKey(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, c)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindOpenCheckout(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()
	query := regexp.QuoteMeta("WHERE user_id = $1 AND status IN ('PENDING', 'CHARGED')") + `\s+ORDER BY created_at DESC\s+LIMIT 1`

	mock.ExpectQuery(query).
		WithArgs(userID).
		WillReturnRows(checkoutRow(CheckoutPending))

	c, err := repo.FindOpenCheckout(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "key-1", c.IdempotencyKey)

	mock.ExpectQuery(query).
		WithArgs(otherID).
		WillReturnRows(sqlmock.NewRows(checkoutCols))

	c, err = repo.FindOpenCheckout(ctx, otherID)
	assert.NoError(t, err)
	assert.Nil(t, c)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkTransitions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status IN ('PENDING', 'FAILED')")).
		WithArgs("co-1", "CHARGED", "ch_1", 1000).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkCharged(ctx, "co-1", "ch_1", 1000))

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = 'PENDING'")).
		WithArgs("co-1", "FAILED", "abandoned").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.MarkFailed(ctx, "co-1", "abandoned"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListReconcilable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	cutoff := time.Now().Add(-10 * time.Minute)

	rows := checkoutRow(CheckoutCharged)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'CHARGED' OR (status = 'PENDING' AND updated_at < $1)")).
		WithArgs(cutoff, 50).
		WillReturnRows(rows)

	out, err := repo.ListReconcilable(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, CheckoutCharged, out[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FinalizeTx(t *testing.T) {
	ctx := context.Background()
	lockCols := []string{"status", "user_id", "charge_id", "charged_amount", "order_id", "lines"}
	lockQuery := regexp.QuoteMeta("FROM checkouts") + `\s+WHERE id = \$1\s+FOR UPDATE`

	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WithArgs("co-1").
			WillReturnRows(sqlmock.NewRows(lockCols).AddRow("CHARGED", userID, "ch_1", 990, nil, linesJSON))
		mock.ExpectQuery("INSERT INTO orders").
			WithArgs(userID, 990, "ch_1", "co-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "charge", "checkout_id", "created_at"}).
				AddRow("ord-1", userID, 990, "ch_1", "co-1", time.Now()))
		mock.ExpectQuery("INSERT INTO order_items").
			WithArgs("ord-1", "Shoe", "Red", nil, nil, 500, 2, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("oi-1"))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items c") + `[\s\S]+` + regexp.QuoteMeta("c.quantity <= s.qty")).
			WithArgs(userID, sqlmock.AnyArg(), "{2}").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("SET quantity = c.quantity - s.qty") + `[\s\S]+` + regexp.QuoteMeta("c.quantity > s.qty")).
			WithArgs(userID, sqlmock.AnyArg(), "{2}").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE checkouts SET status = \\$2, order_id = \\$3").
			WithArgs("co-1", "COMPLETED", "ord-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, err := repo.FinalizeTx(ctx, "co-1")
		require.NoError(t, err)
		assert.Equal(t, 990, o.Total)
		assert.Equal(t, "ch_1", o.Charge)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "oi-1", o.Items[0].ID)
		assert.Equal(t, 2, o.Items[0].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyCompletedReturnsExistingOrder", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WillReturnRows(sqlmock.NewRows(lockCols).AddRow("COMPLETED", userID, "ch_1", 990, "ord-1", linesJSON))
		mock.ExpectRollback()
		mock.ExpectQuery("SELECT .* FROM orders WHERE id = \\$1").
			WithArgs("ord-1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "charge", "checkout_id", "created_at"}).
				AddRow("ord-1", userID, 990, "ch_1", "co-1", time.Now()))
		mock.ExpectQuery("SELECT .* FROM order_items WHERE order_id = ANY\\(\\$1\\)").
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "title", "description", "image", "large_image", "price", "quantity"}).
				AddRow("oi-1", "ord-1", "Shoe", "Red", nil, nil, 500, 2))

		o, err := repo.FinalizeTx(ctx, "co-1")
		require.NoError(t, err)
		assert.Equal(t, "ord-1", o.ID)
		assert.Len(t, o.Items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotCharged", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WillReturnRows(sqlmock.NewRows(lockCols).AddRow("PENDING", userID, nil, nil, nil, linesJSON))
		mock.ExpectRollback()

		_, err = repo.FinalizeTx(ctx, "co-1")
		assert.ErrorIs(t, err, ErrCheckoutNotCharged)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CartDeleteFailsRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		repo := NewRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).
			WillReturnRows(sqlmock.NewRows(lockCols).AddRow("CHARGED", userID, "ch_1", 990, nil, linesJSON))
		mock.ExpectQuery("INSERT INTO orders").
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "charge", "checkout_id", "created_at"}).
				AddRow("ord-1", userID, 990, "ch_1", "co-1", time.Now()))
		mock.ExpectQuery("INSERT INTO order_items").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("oi-1"))
		mock.ExpectExec("DELETE FROM cart_items").
			WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		_, err = repo.FinalizeTx(ctx, "co-1")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT .* FROM orders WHERE user_id = \\$1 ORDER BY created_at DESC").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "charge", "checkout_id", "created_at"}).
			AddRow("ord-2", userID, 300, "ch_2", nil, now).
			AddRow("ord-1", userID, 990, "ch_1", "co-1", now.Add(-time.Hour)))
	mock.ExpectQuery("SELECT .* FROM order_items WHERE order_id = ANY\\(\\$1\\) ORDER BY order_id, position").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "title", "description", "image", "large_image", "price", "quantity"}).
			AddRow("oi-1", "ord-1", "Shoe", "Red", nil, nil, 500, 2).
			AddRow("oi-2", "ord-2", "Hat", "Blue", "hat.jpg", nil, 300, 1))

	orders, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ord-2", orders[0].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "hat.jpg", *orders[0].Items[0].Image)
	assert.Equal(t, "Shoe", orders[1].Items[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetOrder_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM orders WHERE id = \\$1").
		WithArgs("ord-x").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "total", "charge", "checkout_id", "created_at"}))

	o, err := NewRepository(db).GetOrder(context.Background(), "ord-x")
	assert.NoError(t, err)
	assert.Nil(t, o)
}
