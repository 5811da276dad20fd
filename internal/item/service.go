package item

import (
	"context"
	"strings"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/logger"
	"sickfits-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	List(ctx context.Context, q Query) ([]*Item, error)
	Count(ctx context.Context, f Filter) (int64, error)
	GetByID(ctx context.Context, id string) (*Item, error)
	Create(ctx context.Context, caller *auth.Identity, in CreateItemInput) (*Item, error)
	Update(ctx context.Context, caller *auth.Identity, id string, in UpdateItemInput) (*Item, error)
	Delete(ctx context.Context, caller *auth.Identity, id string) (*Item, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, q Query) ([]*Item, error) {
	if q.OrderBy != "" {
		if _, ok := orderColumns[q.OrderBy]; !ok {
			return nil, ErrInvalidOrderBy
		}
	}
	return s.repo.List(ctx, q)
}

func (s *service) Count(ctx context.Context, f Filter) (int64, error) {
	return s.repo.Count(ctx, f)
}

func (s *service) GetByID(ctx context.Context, id string) (*Item, error) {
	if !utils.IsUUID(id) {
		return nil, ErrItemNotFound
	}
	it, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrItemNotFound
	}
	return it, nil
}

func (s *service) Create(ctx context.Context, caller *auth.Identity, in CreateItemInput) (*Item, error) {
	id, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.String("user_id", id.UserID),
	)

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, ErrTitleRequired
	}
	if in.Price < 0 {
		return nil, ErrNegativePrice
	}

	it, err := s.repo.Create(ctx, id.UserID, in)
	if err != nil {
		log.Error("failed to create item", zap.Error(err))
		return nil, err
	}

	log.Info("item created", zap.String("item_id", it.ID))
	return it, nil
}

// Update applies in to an item owned by caller, or to any item when caller
// holds ADMIN or ITEMUPDATE.
func (s *service) Update(ctx context.Context, caller *auth.Identity, id string, in UpdateItemInput) (*Item, error) {
	who, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Update"),
		zap.String("item_id", id),
	)

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != who.UserID && auth.Require(who, auth.PermissionAdmin, auth.PermissionItemUpdate) != nil {
		log.Warn("item update denied", zap.String("caller_id", who.UserID))
		return nil, ErrUpdateForbidden
	}

	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, ErrTitleRequired
		}
		in.Title = &t
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, ErrNegativePrice
	}

	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		log.Error("failed to update item", zap.Error(err))
		return nil, err
	}
	if updated == nil {
		return nil, ErrItemNotFound
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, caller *auth.Identity, id string) (*Item, error) {
	who, err := auth.MustIdentity(caller)
	if err != nil {
		return nil, err
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Delete"),
		zap.String("item_id", id),
	)

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ownsItem := existing.UserID == who.UserID
	hasPermission := auth.Intersects(who.PermissionSet(), auth.PermissionAdmin, auth.PermissionItemDelete)
	if !ownsItem && !hasPermission {
		log.Warn("item delete denied", zap.String("caller_id", who.UserID))
		return nil, ErrNotAllowed
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.Error("failed to delete item", zap.Error(err))
		return nil, err
	}
	if deleted == nil {
		return nil, ErrItemNotFound
	}

	log.Info("item deleted")
	return deleted, nil
}
