package graph

import (
	"context"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/auth"
	"sickfits-be/internal/graph/model"
	"sickfits-be/internal/item"
	"sickfits-be/internal/utils"
)

func toItemFilter(where *model.ItemWhereInput) item.Filter {
	if where == nil {
		return item.Filter{}
	}
	return item.Filter{
		Search:              where.Search,
		TitleContains:       where.TitleContains,
		DescriptionContains: where.DescriptionContains,
	}
}

func (r *queryResolver) Items(
	ctx context.Context,
	where *model.ItemWhereInput,
	orderBy *item.OrderBy,
	skip, first *int,
) ([]*item.Item, error) {
	offset, limit := utils.Paginate(skip, first)

	q := item.Query{
		Filter: toItemFilter(where),
		Offset: offset,
		Limit:  limit,
	}
	if orderBy != nil {
		q.OrderBy = *orderBy
	}
	return r.ItemSvc.List(ctx, q)
}

// Item returns null when nothing matches.
func (r *queryResolver) Item(ctx context.Context, where model.ItemWhereUniqueInput) (*item.Item, error) {
	it, err := r.ItemSvc.GetByID(ctx, where.ID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	return it, err
}

func (r *queryResolver) ItemsConnection(ctx context.Context, where *model.ItemWhereInput) (*model.ItemConnection, error) {
	n, err := r.ItemSvc.Count(ctx, toItemFilter(where))
	if err != nil {
		return nil, err
	}
	return &model.ItemConnection{Aggregate: &model.AggregateItem{Count: n}}, nil
}

func (r *mutationResolver) CreateItem(ctx context.Context, input model.CreateItemInput) (*item.Item, error) {
	return r.ItemSvc.Create(ctx, auth.IdentityFrom(ctx), item.CreateItemInput{
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Image:       input.Image,
		LargeImage:  input.LargeImage,
	})
}

// UpdateItem never forwards the id as a field to change.
func (r *mutationResolver) UpdateItem(ctx context.Context, input model.UpdateItemInput) (*item.Item, error) {
	return r.ItemSvc.Update(ctx, auth.IdentityFrom(ctx), input.ID, item.UpdateItemInput{
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
		Image:       input.Image,
		LargeImage:  input.LargeImage,
	})
}

func (r *mutationResolver) DeleteItem(ctx context.Context, id string) (*item.Item, error) {
	return r.ItemSvc.Delete(ctx, auth.IdentityFrom(ctx), id)
}
