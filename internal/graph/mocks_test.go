package graph

import (
	"context"
	"time"

	"sickfits-be/internal/auth"
	"sickfits-be/internal/cart"
	"sickfits-be/internal/item"
	"sickfits-be/internal/order"
	"sickfits-be/internal/payment"
	"sickfits-be/internal/user"

	"github.com/stretchr/testify/mock"
)

// --- Mocks ---

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, params user.SignupParams) (string, *user.User, error) {
	args := m.Called(ctx, params)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*user.User), args.Error(2)
}

func (m *MockUserService) Signin(ctx context.Context, email, password string) (string, *user.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*user.User), args.Error(2)
}

func (m *MockUserService) RequestReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) ResetPassword(ctx context.Context, params user.ResetPasswordParams) (string, *user.User, error) {
	args := m.Called(ctx, params)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*user.User), args.Error(2)
}

func (m *MockUserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, caller *auth.Identity) ([]*user.User, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}

func (m *MockUserService) UpdatePermissions(ctx context.Context, caller *auth.Identity, userID string, perms []auth.Permission) (*user.User, error) {
	args := m.Called(ctx, caller, userID, perms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) List(ctx context.Context, q item.Query) ([]*item.Item, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*item.Item), args.Error(1)
}

func (m *MockItemService) Count(ctx context.Context, f item.Filter) (int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockItemService) GetByID(ctx context.Context, id string) (*item.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemService) Create(ctx context.Context, caller *auth.Identity, in item.CreateItemInput) (*item.Item, error) {
	args := m.Called(ctx, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemService) Update(ctx context.Context, caller *auth.Identity, id string, in item.UpdateItemInput) (*item.Item, error) {
	args := m.Called(ctx, caller, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

func (m *MockItemService) Delete(ctx context.Context, caller *auth.Identity, id string) (*item.Item, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*item.Item), args.Error(1)
}

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddToCart(ctx context.Context, caller *auth.Identity, itemID string) (*cart.CartItem, error) {
	args := m.Called(ctx, caller, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartItem), args.Error(1)
}

func (m *MockCartService) RemoveFromCart(ctx context.Context, caller *auth.Identity, id string) (*cart.CartItem, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartItem), args.Error(1)
}

func (m *MockCartService) GetCart(ctx context.Context, userID string) ([]*cart.CartItem, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cart.CartItem), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, caller *auth.Identity, params order.CreateOrderParams) (*order.Order, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, caller *auth.Identity, id string) (*order.Order, error) {
	args := m.Called(ctx, caller, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, caller *auth.Identity) ([]*order.Order, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) ConfirmCharge(ctx context.Context, key string, charge *payment.Charge) error {
	return m.Called(ctx, key, charge).Error(0)
}

func (m *MockOrderService) FailCheckout(ctx context.Context, key, reason string) error {
	return m.Called(ctx, key, reason).Error(0)
}

func (m *MockOrderService) Reconcile(ctx context.Context, staleAfter time.Duration) (order.ReconcileResult, error) {
	args := m.Called(ctx, staleAfter)
	return args.Get(0).(order.ReconcileResult), args.Error(1)
}

type mocks struct {
	users  *MockUserService
	items  *MockItemService
	carts  *MockCartService
	orders *MockOrderService
}

func newTestResolver() (*Resolver, *mocks) {
	m := &mocks{
		users:  new(MockUserService),
		items:  new(MockItemService),
		carts:  new(MockCartService),
		orders: new(MockOrderService),
	}
	return &Resolver{
		UserSvc:  m.users,
		ItemSvc:  m.items,
		CartSvc:  m.carts,
		OrderSvc: m.orders,
		Cookie:   cookieOpts,
	}, m
}
