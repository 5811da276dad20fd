package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"sickfits-be/internal/logger"
	"sickfits-be/internal/utils"

	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, q Query) ([]*Item, error)
	Count(ctx context.Context, f Filter) (int64, error)
	FindByID(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, userID string, in CreateItemInput) (*Item, error)
	Update(ctx context.Context, id string, in UpdateItemInput) (*Item, error)
	Delete(ctx context.Context, id string) (*Item, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const itemColumns = `id, title, description, image, large_image, price, user_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	if err := row.Scan(
		&it.ID,
		&it.Title,
		&it.Description,
		&it.Image,
		&it.LargeImage,
		&it.Price,
		&it.UserID,
		&it.CreatedAt,
		&it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *repository) findOne(ctx context.Context, query string, args ...any) (*Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return it, err
}

// buildWhere renders f as a WHERE clause with positional args starting at $1.
func buildWhere(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	argIndex := 1

	if f.Search != nil && *f.Search != "" {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+*f.Search+"%")
		argIndex++
	}
	if f.TitleContains != nil && *f.TitleContains != "" {
		conds = append(conds, fmt.Sprintf("title ILIKE $%d", argIndex))
		args = append(args, "%"+*f.TitleContains+"%")
		argIndex++
	}
	if f.DescriptionContains != nil && *f.DescriptionContains != "" {
		conds = append(conds, fmt.Sprintf("description ILIKE $%d", argIndex))
		args = append(args, "%"+*f.DescriptionContains+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *repository) List(ctx context.Context, q Query) ([]*Item, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
	)

	// ---------- PAGINATION ----------
	limit := q.Limit
	if limit <= 0 {
		limit = utils.DefaultPageSize
	}
	if limit > utils.MaxPageSize {
		limit = utils.MaxPageSize
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	// ---------- SORTING ----------
	orderBy, ok := orderColumns[q.OrderBy]
	if !ok {
		orderBy = orderColumns[OrderByCreatedAtDesc]
	}

	where, args := buildWhere(q.Filter)
	argIndex := len(args) + 1

	query := `SELECT ` + itemColumns + ` FROM items` + where +
		" ORDER BY " + orderBy + ", id" +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	log.Debug("executing query", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query items", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			log.Error("failed to scan item row", zap.Error(err))
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) Count(ctx context.Context, f Filter) (int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items"+where, args...).Scan(&total); err != nil {
		logger.FromCtx(ctx).Error("failed to count items", zap.Error(err))
		return 0, err
	}
	return total, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*Item, error) {
	return r.findOne(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
}

func (r *repository) Create(ctx context.Context, userID string, in CreateItemInput) (*Item, error) {
	return scanItem(r.db.QueryRowContext(ctx,
		`INSERT INTO items (title, description, image, large_image, price, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+itemColumns,
		in.Title, in.Description, in.Image, in.LargeImage, in.Price, userID,
	))
}

// Update writes only the non-nil fields of in. user_id is never part of the SET list.
func (r *repository) Update(ctx context.Context, id string, in UpdateItemInput) (*Item, error) {
	var (
		sets []string
		args []any
	)
	argIndex := 1
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if in.Title != nil {
		set("title", *in.Title)
	}
	if in.Description != nil {
		set("description", *in.Description)
	}
	if in.Price != nil {
		set("price", *in.Price)
	}
	if in.Image != nil {
		set("image", *in.Image)
	}
	if in.LargeImage != nil {
		set("large_image", *in.LargeImage)
	}

	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := `UPDATE items SET ` + strings.Join(sets, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", argIndex) + itemColumns

	return r.findOne(ctx, query, args...)
}

func (r *repository) Delete(ctx context.Context, id string) (*Item, error) {
	return r.findOne(ctx, `DELETE FROM items WHERE id = $1 RETURNING `+itemColumns, id)
}
