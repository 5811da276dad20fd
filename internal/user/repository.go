package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdatePermissions(ctx context.Context, id string, perms []auth.Permission) (*User, error)
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	// ResetPassword consumes token and sets the new hash. It returns nil when
	// the token was already used or expired at now.
	ResetPassword(ctx context.Context, id, token, passwordHash string, now time.Time) (*User, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const userColumns = `id, name, email, password, permissions, reset_token, reset_token_expiry, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u     User
		perms []string
	)
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Password,
		pq.Array(&perms),
		&u.ResetToken,
		&u.ResetTokenExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Permissions, err = auth.ParsePermissions(perms)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// findOne returns (nil, nil) when no row matches.
func (r *repository) findOne(ctx context.Context, query string, args ...any) (*User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *repository) Create(ctx context.Context, params CreateUserParams) (*User, error) {
	log := logger.FromCtx(ctx)

	u, err := scanUser(r.db.QueryRowContext(ctx,
		`INSERT INTO users (name, email, password, permissions)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		params.Name, params.Email, params.PasswordHash, pq.Array(auth.Strings(params.Permissions)),
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
			return nil, ErrEmailExists
		}
		log.Error("db: failed to insert user", zap.String("email", params.Email), zap.Error(err))
		return nil, err
	}

	return u, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *repository) FindByResetToken(ctx context.Context, token string) (*User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE reset_token = $1`, token)
}

func (r *repository) List(ctx context.Context) ([]*User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *repository) UpdatePermissions(ctx context.Context, id string, perms []auth.Permission) (*User, error) {
	return r.findOne(ctx,
		`UPDATE users SET permissions = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+userColumns,
		pq.Array(auth.Strings(perms)), id,
	)
}

func (r *repository) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $1, reset_token_expiry = $2, updated_at = NOW() WHERE id = $3`,
		token, expiry, id,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) ResetPassword(ctx context.Context, id, token, passwordHash string, now time.Time) (*User, error) {
	return r.findOne(ctx,
		`UPDATE users
		SET password = $1, reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE id = $2 AND reset_token = $3 AND reset_token_expiry >= $4
		RETURNING `+userColumns,
		passwordHash, id, token, now,
	)
}
