package cart

import (
	"context"
	"database/sql"
	"errors"

	"sickfits-be/internal/item"
	"sickfits-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	// Add inserts a line with quantity 1 or increments the existing one in a
	// single statement.
	Add(ctx context.Context, userID, itemID string) (*CartItem, error)
	FindByID(ctx context.Context, id string) (*CartItem, error)
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]*CartItem, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const lineColumns = `c.id, c.user_id, c.item_id, c.quantity, c.created_at, c.updated_at,
	i.id, i.title, i.description, i.image, i.large_image, i.price, i.user_id, i.created_at, i.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLine(row rowScanner) (*CartItem, error) {
	var (
		c  CartItem
		it item.Item
	)
	if err := row.Scan(
		&c.ID, &c.UserID, &c.ItemID, &c.Quantity, &c.CreatedAt, &c.UpdatedAt,
		&it.ID, &it.Title, &it.Description, &it.Image, &it.LargeImage, &it.Price, &it.UserID, &it.CreatedAt, &it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Item = &it
	return &c, nil
}

func (r *repository) Add(ctx context.Context, userID, itemID string) (*CartItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Add"),
		zap.String("item_id", itemID),
	)

	line, err := scanLine(r.db.QueryRowContext(ctx, `
		WITH c AS (
			INSERT INTO cart_items (user_id, item_id, quantity)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id, item_id)
			DO UPDATE SET quantity = cart_items.quantity + 1, updated_at = NOW()
			RETURNING id, user_id, item_id, quantity, created_at, updated_at
		)
		SELECT `+lineColumns+`
		FROM c
		JOIN items i ON i.id = c.item_id`,
		userID, itemID,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgForeignKeyViolation {
			return nil, ErrItemNotFound
		}
		log.Error("failed to upsert cart item", zap.Error(err))
		return nil, err
	}
	return line, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*CartItem, error) {
	line, err := scanLine(r.db.QueryRowContext(ctx, `
		SELECT `+lineColumns+`
		FROM cart_items c
		JOIN items i ON i.id = c.item_id
		WHERE c.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return line, err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]*CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+lineColumns+`
		FROM cart_items c
		JOIN items i ON i.id = c.item_id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC, c.id ASC`, userID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to query cart", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	lines := []*CartItem{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
