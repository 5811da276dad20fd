package graph

import (
	"context"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/cart"
	"sickfits-be/internal/logger"

	"go.uber.org/zap"
)

func (r *mutationResolver) AddToCart(ctx context.Context, itemID string) (*cart.CartItem, error) {
	line, err := r.CartSvc.AddToCart(ctx, auth.IdentityFrom(ctx), itemID)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to add item to cart", zap.String("item_id", itemID), zap.Error(err))
		return nil, err
	}
	return line, nil
}

func (r *mutationResolver) RemoveFromCart(ctx context.Context, id string) (*cart.CartItem, error) {
	return r.CartSvc.RemoveFromCart(ctx, auth.IdentityFrom(ctx), id)
}
