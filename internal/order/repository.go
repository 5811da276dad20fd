package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

var ErrDuplicateKey = apperr.New(apperr.KindConflict, "a checkout with this idempotency key already exists")

type Repository interface {
	CreateCheckout(ctx context.Context, c *Checkout) (*Checkout, error)
	FindCheckoutByKey(ctx context.Context, key string) (*Checkout, error)
	// FindOpenCheckout returns the user's latest PENDING or CHARGED checkout.
	FindOpenCheckout(ctx context.Context, userID string) (*Checkout, error)
	MarkCharged(ctx context.Context, checkoutID, chargeID string, amount int) error
	MarkFailed(ctx context.Context, checkoutID, reason string) error
	ListReconcilable(ctx context.Context, staleBefore time.Time, limit int) ([]*Checkout, error)

	// FinalizeTx turns a CHARGED checkout into an order in one transaction.
	// A checkout that is already COMPLETED yields its existing order.
	FinalizeTx(ctx context.Context, checkoutID string) (*Order, error)

	GetOrder(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const checkoutColumns = `id, user_id, idempotency_key, amount, currency, source, status,
	charge_id, charged_amount, lines, order_id, failure_reason, created_at, updated_at`

const orderColumns = `id, user_id, total, charge, checkout_id, created_at`

const orderItemColumns = `id, order_id, title, description, image, large_image, price, quantity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckout(row rowScanner) (*Checkout, error) {
	var (
		c     Checkout
		lines []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.IdempotencyKey,
		&c.Amount,
		&c.Currency,
		&c.Source,
		&c.Status,
		&c.ChargeID,
		&c.ChargedAmount,
		&lines,
		&c.OrderID,
		&c.FailureReason,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &c.Lines); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Total, &o.Charge, &o.CheckoutID, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Items = []*OrderItem{}
	return &o, nil
}

func (r *repository) CreateCheckout(ctx context.Context, c *Checkout) (*Checkout, error) {
	lines, err := json.Marshal(c.Lines)
	if err != nil {
		return nil, err
	}

	created, err := scanCheckout(r.db.QueryRowContext(ctx, `
		INSERT INTO checkouts (user_id, idempotency_key, amount, currency, source, status, lines)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+checkoutColumns,
		c.UserID, c.IdempotencyKey, c.Amount, c.Currency, c.Source, CheckoutPending, lines,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
			return nil, ErrDuplicateKey
		}
		logger.FromCtx(ctx).Error("failed to insert checkout", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *repository) FindCheckoutByKey(ctx context.Context, key string) (*Checkout, error) {
	c, err := scanCheckout(r.db.QueryRowContext(ctx,
		`SELECT `+checkoutColumns+` FROM checkouts WHERE idempotency_key = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *repository) FindOpenCheckout(ctx context.Context, userID string) (*Checkout, error) {
	c, err := scanCheckout(r.db.QueryRowContext(ctx, `
		SELECT `+checkoutColumns+`
		FROM checkouts
		WHERE user_id = $1 AND status IN ('PENDING', 'CHARGED')
		ORDER BY created_at DESC
		LIMIT 1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// MarkCharged records the capture. A FAILED checkout may still be charged when
// the provider confirms a payment late.
func (r *repository) MarkCharged(ctx context.Context, checkoutID, chargeID string, amount int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE checkouts
		SET status = $2, charge_id = $3, charged_amount = $4, failure_reason = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'FAILED')`,
		checkoutID, CheckoutCharged, chargeID, amount,
	)
	return err
}

func (r *repository) MarkFailed(ctx context.Context, checkoutID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE checkouts
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`,
		checkoutID, CheckoutFailed, reason,
	)
	return err
}

func (r *repository) ListReconcilable(ctx context.Context, staleBefore time.Time, limit int) ([]*Checkout, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+checkoutColumns+`
		FROM checkouts
		WHERE status = 'CHARGED' OR (status = 'PENDING' AND updated_at < $1)
		ORDER BY created_at ASC
		LIMIT $2`,
		staleBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Checkout
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) FinalizeTx(ctx context.Context, checkoutID string) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "FinalizeTx"),
		zap.String("checkout_id", checkoutID),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}

	done := false
	defer func() {
		if !done {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	// Row lock serializes concurrent finalizers of the same checkout.
	var (
		status        CheckoutStatus
		userID        string
		chargeID      sql.NullString
		chargedAmount sql.NullInt64
		orderID       sql.NullString
		lines         []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT status, user_id, charge_id, charged_amount, order_id, lines
		FROM checkouts
		WHERE id = $1
		FOR UPDATE`, checkoutID,
	).Scan(&status, &userID, &chargeID, &chargedAmount, &orderID, &lines)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}

	switch status {
	case CheckoutCompleted:
		done = true
		_ = tx.Rollback()
		return r.GetOrder(ctx, orderID.String)
	case CheckoutCharged:
	default:
		return nil, ErrCheckoutNotCharged
	}

	var snapshot []CheckoutLine
	if err := json.Unmarshal(lines, &snapshot); err != nil {
		return nil, err
	}

	// 1. Insert order
	o, err := scanOrder(tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, total, charge, checkout_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+orderColumns,
		userID, chargedAmount.Int64, chargeID.String, checkoutID,
	))
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, err
	}

	// 2. Insert denormalized order items
	for i, l := range snapshot {
		oi := &OrderItem{
			OrderID:     o.ID,
			Title:       l.Title,
			Description: l.Description,
			Image:       l.Image,
			LargeImage:  l.LargeImage,
			Price:       l.Price,
			Quantity:    l.Quantity,
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, title, description, image, large_image, price, quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			o.ID, oi.Title, oi.Description, oi.Image, oi.LargeImage, oi.Price, oi.Quantity, i,
		).Scan(&oi.ID)
		if err != nil {
			log.Error("failed to insert order item", zap.Int("line_index", i), zap.Error(err))
			return nil, err
		}
		o.Items = append(o.Items, oi)
	}

	// 3. Consume the snapshotted quantities; units added to a line since the
	// snapshot stay in the cart
	ids, quantities := consumption(snapshot)
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items c
		USING unnest($2::uuid[], $3::int[]) AS s(id, qty)
		WHERE c.user_id = $1 AND c.id = s.id AND c.quantity <= s.qty`,
		userID, pq.Array(ids), pq.Array(quantities),
	); err != nil {
		log.Error("failed to clear cart lines", zap.Error(err))
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE cart_items c
		SET quantity = c.quantity - s.qty, updated_at = NOW()
		FROM unnest($2::uuid[], $3::int[]) AS s(id, qty)
		WHERE c.user_id = $1 AND c.id = s.id AND c.quantity > s.qty`,
		userID, pq.Array(ids), pq.Array(quantities),
	); err != nil {
		log.Error("failed to reduce cart lines", zap.Error(err))
		return nil, err
	}

	// 4. Complete the checkout
	if _, err := tx.ExecContext(ctx, `
		UPDATE checkouts SET status = $2, order_id = $3, updated_at = NOW()
		WHERE id = $1`,
		checkoutID, CheckoutCompleted, o.ID,
	); err != nil {
		log.Error("failed to complete checkout", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit finalize transaction", zap.Error(err))
		return nil, err
	}
	done = true

	log.Info("checkout finalized", zap.String("order_id", o.ID), zap.Int("item_count", len(o.Items)))
	return o, nil
}

func (r *repository) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, []*Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) loadItems(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[string]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`,
		pq.Array(ids),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var oi OrderItem
		if err := rows.Scan(
			&oi.ID, &oi.OrderID, &oi.Title, &oi.Description, &oi.Image, &oi.LargeImage, &oi.Price, &oi.Quantity,
		); err != nil {
			return err
		}
		if o, ok := byID[oi.OrderID]; ok {
			o.Items = append(o.Items, &oi)
		}
	}
	return rows.Err()
}
