package graph

import (
	"context"

	"sickfits-be/internal/apperr"
	"sickfits-be/internal/auth"
	"sickfits-be/internal/graph/model"
	"sickfits-be/internal/item"
	"sickfits-be/internal/order"
	"sickfits-be/internal/user"

	"github.com/99designs/gqlgen/graphql"
)

// fieldTable binds schema fields to resolver methods. Fields absent here are
// read from the parent value.
func (r *Resolver) fieldTable() map[string]map[string]FieldFunc {
	q, m, u, o := r.Query(), r.Mutation(), r.User(), r.Order()

	return map[string]map[string]FieldFunc{
		"Query": {
			"items": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				where := a.itemWhere("where")
				orderBy := a.optString("orderBy")
				skip, first := a.optInt("skip"), a.optInt("first")
				if a.err != nil {
					return nil, a.err
				}
				var ob *item.OrderBy
				if orderBy != nil {
					v := item.OrderBy(*orderBy)
					ob = &v
				}
				return q.Items(ctx, where, ob, skip, first)
			},
			"item": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				w := argsOf(raw).object("where")
				id := w.id("id")
				if w.err != nil {
					return nil, w.err
				}
				return q.Item(ctx, model.ItemWhereUniqueInput{ID: id})
			},
			"itemsConnection": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				where := a.itemWhere("where")
				if a.err != nil {
					return nil, a.err
				}
				return q.ItemsConnection(ctx, where)
			},
			"me": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
				return q.Me(ctx)
			},
			"users": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
				return q.Users(ctx)
			},
			"order": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				id := a.id("id")
				if a.err != nil {
					return nil, a.err
				}
				return q.Order(ctx, id)
			},
			"orders": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
				return q.Orders(ctx)
			},
		},

		"Mutation": {
			"createItem": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				in := model.CreateItemInput{
					Title:       a.string("title"),
					Description: a.string("description"),
					Price:       a.int("price"),
					Image:       a.optString("image"),
					LargeImage:  a.optString("largeImage"),
				}
				if a.err != nil {
					return nil, a.err
				}
				return m.CreateItem(ctx, in)
			},
			"updateItem": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				in := model.UpdateItemInput{
					ID:          a.id("id"),
					Title:       a.optString("title"),
					Description: a.optString("description"),
					Price:       a.optInt("price"),
					Image:       a.optString("image"),
					LargeImage:  a.optString("largeImage"),
				}
				if a.err != nil {
					return nil, a.err
				}
				return m.UpdateItem(ctx, in)
			},
			"deleteItem": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				id := a.id("id")
				if a.err != nil {
					return nil, a.err
				}
				return m.DeleteItem(ctx, id)
			},
			"signup": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				email, password, name := a.string("email"), a.string("password"), a.string("name")
				if a.err != nil {
					return nil, a.err
				}
				return m.Signup(ctx, email, password, name)
			},
			"signin": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				email, password := a.string("email"), a.string("password")
				if a.err != nil {
					return nil, a.err
				}
				return m.Signin(ctx, email, password)
			},
			"signout": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
				return m.Signout(ctx)
			},
			"requestReset": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				email := a.string("email")
				if a.err != nil {
					return nil, a.err
				}
				return m.RequestReset(ctx, email)
			},
			"resetPassword": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				token, password, confirm := a.string("resetToken"), a.string("password"), a.string("confirmPassword")
				if a.err != nil {
					return nil, a.err
				}
				return m.ResetPassword(ctx, token, password, confirm)
			},
			"updatePermissions": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				names, userID := a.strings("permissions"), a.id("userId")
				if a.err != nil {
					return nil, a.err
				}
				perms, err := auth.ParsePermissions(names)
				if err != nil {
					return nil, err
				}
				return m.UpdatePermissions(ctx, perms, userID)
			},
			"addToCart": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				id := a.id("id")
				if a.err != nil {
					return nil, a.err
				}
				return m.AddToCart(ctx, id)
			},
			"removeFromCart": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				id := a.id("id")
				if a.err != nil {
					return nil, a.err
				}
				return m.RemoveFromCart(ctx, id)
			},
			"createOrder": func(ctx context.Context, _ any, raw map[string]any) (any, error) {
				a := argsOf(raw)
				token, key := a.string("token"), a.optString("idempotencyKey")
				if a.err != nil {
					return nil, a.err
				}
				return m.CreateOrder(ctx, token, key)
			},
		},

		"User": {
			"cart": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
				return u.Cart(ctx, obj.(*user.User))
			},
		},

		"Order": {
			"user": func(ctx context.Context, obj any, _ map[string]any) (any, error) {
				return o.User(ctx, obj.(*order.Order))
			},
		},
	}
}

// args decodes coerced field arguments with gqlgen's scalar unmarshalers.
// The first failure sticks in err and later reads return zero values.
type args struct {
	raw map[string]any
	err error
}

func argsOf(raw map[string]any) *args {
	return &args{raw: raw}
}

func (a *args) fail(name string, err error) {
	if a.err == nil && err != nil {
		a.err = apperr.Wrap(apperr.KindValidation, "invalid argument "+name, err)
	}
}

func (a *args) string(name string) string {
	if a.err != nil {
		return ""
	}
	s, err := graphql.UnmarshalString(a.raw[name])
	a.fail(name, err)
	return s
}

func (a *args) id(name string) string {
	if a.err != nil {
		return ""
	}
	s, err := graphql.UnmarshalID(a.raw[name])
	a.fail(name, err)
	return s
}

func (a *args) optString(name string) *string {
	if a.raw[name] == nil {
		return nil
	}
	s := a.string(name)
	if a.err != nil {
		return nil
	}
	return &s
}

func (a *args) int(name string) int {
	if a.err != nil {
		return 0
	}
	n, err := graphql.UnmarshalInt(a.raw[name])
	a.fail(name, err)
	return n
}

func (a *args) optInt(name string) *int {
	if a.raw[name] == nil {
		return nil
	}
	n := a.int(name)
	if a.err != nil {
		return nil
	}
	return &n
}

func (a *args) strings(name string) []string {
	list, _ := a.raw[name].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if a.err != nil {
			return nil
		}
		s, err := graphql.UnmarshalString(v)
		a.fail(name, err)
		out = append(out, s)
	}
	return out
}

// object reads an input object argument; a missing one yields empty args.
func (a *args) object(name string) *args {
	m, _ := a.raw[name].(map[string]any)
	return &args{raw: m, err: a.err}
}

func (a *args) itemWhere(name string) *model.ItemWhereInput {
	if a.raw[name] == nil {
		return nil
	}
	w := a.object(name)
	where := &model.ItemWhereInput{
		Search:              w.optString("search"),
		TitleContains:       w.optString("title_contains"),
		DescriptionContains: w.optString("description_contains"),
	}
	a.err = w.err
	return where
}
