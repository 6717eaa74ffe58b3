package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

func TestCheckoutReturnsOrderWithItems(t *testing.T) {
	orders := &stubOrderRepo{
		CheckoutFunc: func(_ context.Context, userID string, _ *model.CheckoutRequest) (*model.Order, error) {
			return &model.Order{ID: "o1", UserID: userID, Status: model.OrderPending, TotalCents: 2424}, nil
		},
		ListItemsFunc: func(_ context.Context, orderID string) ([]*model.OrderItem, error) {
			return []*model.OrderItem{
				{OrderID: orderID, ProductID: "p1", Quantity: 2.5, UnitPriceCents: 450},
				{OrderID: orderID, ProductID: "p2", Quantity: 1, UnitPriceCents: 1299},
			}, nil
		},
	}
	svc := NewOrderService(OrderServiceOptions{Orders: orders})

	view, err := svc.Checkout(context.Background(), "u1", &model.CheckoutRequest{})
	require.NoError(t, err)
	require.Equal(t, "o1", view.Order.ID)
	require.Len(t, view.Items, 2)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc := NewOrderService(OrderServiceOptions{Orders: &stubOrderRepo{}})

	_, err := svc.Checkout(context.Background(), "u1", &model.CheckoutRequest{})
	require.ErrorIs(t, err, model.ErrEmptyCart)
}

func TestCheckoutTriggersAlertScan(t *testing.T) {
	alertRepo := newMemoryAlertRepo()
	_, err := alertRepo.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "low stock",
		Expression: "stock_quantity < `5`",
	})
	require.NoError(t, err)

	products := &stubProductRepo{
		ListFunc: func(context.Context, model.ProductsListOptions) ([]*model.Product, error) {
			return []*model.Product{{ID: "p1", Name: "Lentils", StockQuantity: 2, Active: true}}, nil
		},
	}
	alerts := NewStockAlertService(StockAlertServiceOptions{Alerts: alertRepo, Products: products})

	orders := &stubOrderRepo{
		CheckoutFunc: func(_ context.Context, userID string, _ *model.CheckoutRequest) (*model.Order, error) {
			return &model.Order{ID: "o2", UserID: userID, Status: model.OrderPending}, nil
		},
	}
	svc := NewOrderService(OrderServiceOptions{Orders: orders, Alerts: alerts})

	_, err = svc.Checkout(context.Background(), "u1", &model.CheckoutRequest{})
	require.NoError(t, err)

	open, err := alertRepo.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "p1", open[0].ProductID)
}

func TestGetScopesToRequester(t *testing.T) {
	orders := &stubOrderRepo{
		GetByIDFunc: func(_ context.Context, id string) (*model.Order, error) {
			return &model.Order{ID: id, UserID: "owner", Status: model.OrderPending}, nil
		},
	}
	svc := NewOrderService(OrderServiceOptions{Orders: orders})

	// Another customer's lookup must look like a miss.
	_, err := svc.Get(context.Background(), "o1", "intruder")
	require.ErrorIs(t, err, data.ErrOrderNotFound)

	// The owner sees it.
	view, err := svc.Get(context.Background(), "o1", "owner")
	require.NoError(t, err)
	require.Equal(t, "o1", view.Order.ID)

	// Staff pass an empty requester and see everything.
	view, err = svc.Get(context.Background(), "o1", "")
	require.NoError(t, err)
	require.Equal(t, "owner", view.Order.UserID)
}

func TestCancelOwnPendingOrder(t *testing.T) {
	orders := &stubOrderRepo{
		GetByIDFunc: func(_ context.Context, id string) (*model.Order, error) {
			return &model.Order{ID: id, UserID: "u1", Status: model.OrderPending}, nil
		},
		SetStatusFunc: func(_ context.Context, id string, status model.OrderStatus) (*model.Order, error) {
			require.Equal(t, model.OrderCanceled, status)
			return &model.Order{ID: id, UserID: "u1", Status: status}, nil
		},
	}
	svc := NewOrderService(OrderServiceOptions{Orders: orders})

	order, err := svc.Cancel(context.Background(), "o1", "u1")
	require.NoError(t, err)
	require.Equal(t, model.OrderCanceled, order.Status)
}

func TestCancelSomeoneElsesOrder(t *testing.T) {
	orders := &stubOrderRepo{
		GetByIDFunc: func(_ context.Context, id string) (*model.Order, error) {
			return &model.Order{ID: id, UserID: "owner", Status: model.OrderPending}, nil
		},
	}
	svc := NewOrderService(OrderServiceOptions{Orders: orders})

	_, err := svc.Cancel(context.Background(), "o1", "intruder")
	require.ErrorIs(t, err, data.ErrOrderNotFound)
}

func TestCancelShippedOrderRejected(t *testing.T) {
	orders := &stubOrderRepo{
		GetByIDFunc: func(_ context.Context, id string) (*model.Order, error) {
			return &model.Order{ID: id, UserID: "u1", Status: model.OrderShipped}, nil
		},
	}
	svc := NewOrderService(OrderServiceOptions{Orders: orders})

	_, err := svc.Cancel(context.Background(), "o1", "u1")
	require.ErrorIs(t, err, data.ErrInvalidOrderTransition)
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
		ok       bool
	}{
		{model.OrderPending, model.OrderConfirmed, true},
		{model.OrderPending, model.OrderCanceled, true},
		{model.OrderConfirmed, model.OrderShipped, true},
		{model.OrderConfirmed, model.OrderCanceled, true},
		{model.OrderShipped, model.OrderDelivered, true},
		{model.OrderShipped, model.OrderCanceled, false},
		{model.OrderDelivered, model.OrderCanceled, false},
		{model.OrderCanceled, model.OrderConfirmed, false},
		{model.OrderPending, model.OrderDelivered, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, model.CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}
