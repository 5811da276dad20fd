package user

import (
	"context"
	"time"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/mail"
	"sickfits-be/internal/utils"

	"go.uber.org/zap"
)

// ResetTokenTTL is how long a password-reset token stays valid.
const ResetTokenTTL = time.Hour

// TokenIssuer signs session tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type Service interface {
	Signup(ctx context.Context, params SignupParams) (string, *User, error)
	Signin(ctx context.Context, email, password string) (string, *User, error)
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, params ResetPasswordParams) (string, *User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, caller *auth.Identity) ([]*User, error)
	UpdatePermissions(ctx context.Context, caller *auth.Identity, userID string, perms []auth.Permission) (*User, error)
}

type service struct {
	repo        Repository
	tokens      TokenIssuer
	mailer      mail.Sender
	frontendURL string
	now         func() time.Time
}

func NewService(repo Repository, tokens TokenIssuer, mailer mail.Sender, frontendURL string) Service {
	return &service{
		repo:        repo,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: frontendURL,
		now:         time.Now,
	}
}

func (s *service) Signup(ctx context.Context, params SignupParams) (string, *User, error) {
	email := NormalizeEmail(params.Email)
	log := logger.FromCtx(ctx).With(zap.String("email", email))

	if email == "" || params.Password == "" || params.Name == "" {
		return "", nil, ErrMissingFields
	}

	hashed, err := HashPassword(params.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return "", nil, err
	}

	u, err := s.repo.Create(ctx, CreateUserParams{
		Name:         params.Name,
		Email:        email,
		PasswordHash: hashed,
		Permissions:  []auth.Permission{auth.PermissionUser},
	})
	if err != nil {
		log.Warn("failed to create user", zap.Error(err))
		return "", nil, err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		log.Error("failed to issue session", zap.String("user_id", u.ID), zap.Error(err))
		return "", nil, err
	}

	log.Info("signup completed", zap.String("user_id", u.ID))
	return token, u, nil
}

func (s *service) Signin(ctx context.Context, email, password string) (string, *User, error) {
	email = NormalizeEmail(email)
	log := logger.FromCtx(ctx).With(zap.String("email", email))

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if u == nil {
		log.Info("signin for unknown email")
		return "", nil, noSuchUser(email)
	}

	if !CheckPasswordHash(password, u.Password) {
		log.Info("signin with invalid password", zap.String("user_id", u.ID))
		return "", nil, ErrInvalidPassword
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *service) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	log := logger.FromCtx(ctx).With(zap.String("email", email))

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return noSuchUser(email)
	}

	token, err := NewResetToken()
	if err != nil {
		log.Error("failed to generate reset token", zap.Error(err))
		return err
	}

	if err := s.repo.SetResetToken(ctx, u.ID, token, s.now().Add(ResetTokenTTL)); err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, mail.PasswordResetEmail(s.frontendURL, u.Email, token)); err != nil {
		log.Error("failed to send reset email", zap.String("user_id", u.ID), zap.Error(err))
		return err
	}

	log.Info("password reset requested", zap.String("user_id", u.ID))
	return nil
}

func (s *service) ResetPassword(ctx context.Context, params ResetPasswordParams) (string, *User, error) {
	log := logger.FromCtx(ctx)

	if params.Password != params.ConfirmPassword {
		return "", nil, ErrPasswordMismatch
	}

	u, err := s.repo.FindByResetToken(ctx, params.ResetToken)
	if err != nil {
		return "", nil, err
	}
	if u == nil || u.ResetTokenExpiry == nil || s.now().After(*u.ResetTokenExpiry) {
		return "", nil, ErrInvalidResetToken
	}

	hashed, err := HashPassword(params.Password)
	if err != nil {
		return "", nil, err
	}

	updated, err := s.repo.ResetPassword(ctx, u.ID, params.ResetToken, hashed, s.now())
	if err != nil {
		return "", nil, err
	}
	if updated == nil {
		return "", nil, ErrInvalidResetToken
	}

	token, err := s.tokens.Issue(updated.ID)
	if err != nil {
		return "", nil, err
	}

	log.Info("password reset completed", zap.String("user_id", updated.ID))
	return token, updated, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	if !utils.IsUUID(id) {
		return nil, ErrUserNotFound
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *service) ListUsers(ctx context.Context, caller *auth.Identity) ([]*User, error) {
	if _, err := auth.MustIdentity(caller); err != nil {
		return nil, err
	}
	if err := auth.Require(caller, auth.PermissionAdmin, auth.PermissionPermissionUpdate); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

func (s *service) UpdatePermissions(
	ctx context.Context,
	caller *auth.Identity,
	userID string,
	perms []auth.Permission,
) (*User, error) {
	log := logger.FromCtx(ctx).With(zap.String("target_user_id", userID))

	if _, err := auth.MustIdentity(caller); err != nil {
		return nil, err
	}

	// Permissions are re-read from storage rather than trusted from the session.
	current, err := s.GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if err := auth.Require(current, auth.PermissionAdmin, auth.PermissionPermissionUpdate); err != nil {
		log.Warn("permission update denied", zap.String("caller_id", caller.UserID))
		return nil, err
	}

	for _, p := range perms {
		if !p.IsValid() {
			_, err := auth.ParsePermission(string(p))
			return nil, err
		}
	}

	if !utils.IsUUID(userID) {
		return nil, ErrUserNotFound
	}

	updated, err := s.repo.UpdatePermissions(ctx, userID, perms)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}

	log.Info("permissions updated",
		zap.String("caller_id", caller.UserID),
		zap.Strings("permissions", auth.Strings(perms)),
	)
	return updated, nil
}
