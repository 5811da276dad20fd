package cart

import (
	"context"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/utils"

	"go.uber.org/zap"
)

// Service defines the business logic for carts.
type Service interface {
	AddToCart(ctx context.Context, caller *auth.Identity, itemID string) (*CartItem, error)
	RemoveFromCart(ctx context.Context, caller *auth.Identity, cartItemID string) (*CartItem, error)
	GetCart(ctx context.Context, userID string) ([]*CartItem, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) AddToCart(ctx context.Context, caller *auth.Identity, itemID string) (*CartItem, error) {
	who, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}
	if !utils.IsUUID(itemID) {
		return nil, ErrItemNotFound
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AddToCart"),
		zap.String("item_id", itemID),
	)

	line, err := s.repo.Add(ctx, who.UserID, itemID)
	if err != nil {
		log.Warn("failed to add to cart", zap.Error(err))
		return nil, err
	}

	log.Info("added to cart", zap.String("cart_item_id", line.ID), zap.Int("quantity", line.Quantity))
	return line, nil
}

func (s *service) RemoveFromCart(ctx context.Context, caller *auth.Identity, cartItemID string) (*CartItem, error) {
	who, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}
	if !utils.IsUUID(cartItemID) {
		return nil, ErrCartItemNotFound
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RemoveFromCart"),
		zap.String("cart_item_id", cartItemID),
	)

	line, err := s.repo.FindByID(ctx, cartItemID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, ErrCartItemNotFound
	}
	if line.UserID != who.UserID {
		log.Warn("cart item owned by another user", zap.String("caller_id", who.UserID))
		return nil, ErrNotYourCartItem
	}

	if err := s.repo.Delete(ctx, cartItemID); err != nil {
		log.Error("failed to remove cart item", zap.Error(err))
		return nil, err
	}
	return line, nil
}

func (s *service) GetCart(ctx context.Context, userID string) ([]*CartItem, error) {
	return s.repo.ListByUser(ctx, userID)
}
