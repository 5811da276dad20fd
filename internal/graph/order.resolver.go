package graph

import (
	"context"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/order"
	"sickfits-be/internal/user"
)

// --- MUTATIONS ---

func (r *mutationResolver) CreateOrder(ctx context.Context, token string, idempotencyKey *string) (*order.Order, error) {
	return r.OrderSvc.CreateOrder(ctx, auth.IdentityFrom(ctx), order.CreateOrderParams{
		Token:          token,
		IdempotencyKey: idempotencyKey,
	})
}

// --- QUERIES ---

func (r *queryResolver) Order(ctx context.Context, id string) (*order.Order, error) {
	return r.OrderSvc.GetOrder(ctx, auth.IdentityFrom(ctx), id)
}

func (r *queryResolver) Orders(ctx context.Context) ([]*order.Order, error) {
	return r.OrderSvc.ListOrders(ctx, auth.IdentityFrom(ctx))
}

// --- FIELDS ---

func (r *orderResolver) User(ctx context.Context, obj *order.Order) (*user.User, error) {
	return r.UserSvc.GetByID(ctx, obj.UserID)
}
