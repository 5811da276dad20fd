package graph

import (
	"sickfits-be/internal/cart"
	"sickfits-be/internal/item"
	"sickfits-be/internal/order"
	"sickfits-be/internal/transport"
	"sickfits-be/internal/user"

	"github.com/99designs/gqlgen/graphql"
)

type Resolver struct {
	UserSvc  user.Service
	ItemSvc  item.Service
	CartSvc  cart.Service
	OrderSvc order.Service

	// Cookie describes the session cookie written by signup, signin and reset.
	Cookie transport.CookieOptions
}

type queryResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type userResolver struct{ *Resolver }
type orderResolver struct{ *Resolver }

func (r *Resolver) Query() *queryResolver       { return &queryResolver{r} }
func (r *Resolver) Mutation() *mutationResolver { return &mutationResolver{r} }
func (r *Resolver) User() *userResolver         { return &userResolver{r} }
func (r *Resolver) Order() *orderResolver       { return &orderResolver{r} }

func NewSchema(r *Resolver) graphql.ExecutableSchema {
	return NewExecutableSchema(Config{Resolvers: r})
}
