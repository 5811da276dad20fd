package graph

import (
	"context"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/auth"
	"sickfits-be/internal/cart"
	"sickfits-be/internal/graph/model"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/transport"
	"sickfits-be/internal/user"
	"sickfits-be/internal/utils"

	"go.uber.org/zap"
)

func (r *mutationResolver) Signup(ctx context.Context, email, password, name string) (*user.User, error) {
	log := logger.FromCtx(ctx)

	token, u, err := r.UserSvc.Signup(ctx, user.SignupParams{Email: email, Password: password, Name: name})
	if err != nil {
		log.Warn("signup failed", zap.Error(err))
		return nil, err
	}

	r.startSession(ctx, token)
	log.Info("user signed up", zap.String("user_id", u.ID))
	return u, nil
}

func (r *mutationResolver) Signin(ctx context.Context, email, password string) (*user.User, error) {
	token, u, err := r.UserSvc.Signin(ctx, email, password)
	if err != nil {
		return nil, err
	}

	r.startSession(ctx, token)
	return u, nil
}

func (r *mutationResolver) Signout(ctx context.Context) (*model.SuccessMessage, error) {
	if err := transport.ClearSessionCookie(ctx, r.Cookie); err != nil {
		logger.FromCtx(ctx).Warn("could not clear session cookie", zap.Error(err))
	}
	return &model.SuccessMessage{Message: utils.StrPtr("Goodbye!")}, nil
}

func (r *mutationResolver) RequestReset(ctx context.Context, email string) (*model.SuccessMessage, error) {
	if err := r.UserSvc.RequestReset(ctx, email); err != nil {
		return nil, err
	}
	return &model.SuccessMessage{Message: utils.StrPtr("Thanks!")}, nil
}

func (r *mutationResolver) ResetPassword(ctx context.Context, resetToken, password, confirmPassword string) (*user.User, error) {
	token, u, err := r.UserSvc.ResetPassword(ctx, user.ResetPasswordParams{
		ResetToken:      resetToken,
		Password:        password,
		ConfirmPassword: confirmPassword,
	})
	if err != nil {
		return nil, err
	}

	r.startSession(ctx, token)
	return u, nil
}

func (r *mutationResolver) UpdatePermissions(ctx context.Context, permissions []auth.Permission, userID string) (*user.User, error) {
	return r.UserSvc.UpdatePermissions(ctx, auth.IdentityFrom(ctx), userID, permissions)
}

func (r *mutationResolver) startSession(ctx context.Context, token string) {
	if err := transport.SetSessionCookie(ctx, r.Cookie, token); err != nil {
		logger.FromCtx(ctx).Error("failed to set session cookie", zap.Error(err))
	}
}

// Me returns null for anonymous callers.
func (r *queryResolver) Me(ctx context.Context) (*user.User, error) {
	who := auth.IdentityFrom(ctx)
	if who == nil {
		return nil, nil
	}

	u, err := r.UserSvc.GetByID(ctx, who.UserID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return u, err
}

func (r *queryResolver) Users(ctx context.Context) ([]*user.User, error) {
	return r.UserSvc.ListUsers(ctx, auth.IdentityFrom(ctx))
}

// Cart is visible to its owner and to admins.
func (r *userResolver) Cart(ctx context.Context, obj *user.User) ([]*cart.CartItem, error) {
	who, err := auth.MustIdentity(auth.IdentityFrom(ctx))
	if err != nil {
		return nil, err
	}
	if who.UserID != obj.ID {
		if err := auth.Require(who, auth.PermissionAdmin); err != nil {
			return nil, err
		}
	}
	return r.CartSvc.GetCart(ctx, obj.ID)
}
