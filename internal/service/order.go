package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/metrics"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/statsd"
)

// OrderServiceOptions groups dependencies for OrderService.
type OrderServiceOptions struct {
	Orders  core.OrderRepository
	Alerts  *StockAlertService // optional; scanned after each checkout
	Metrics statsd.Sink        // optional
	Logger  *slog.Logger
}

// OrderService orchestrates checkout and the order lifecycle.
type OrderService struct {
	orders  core.OrderRepository
	alerts  *StockAlertService
	metrics statsd.Sink
	logger  *slog.Logger
}

// NewOrderService constructs a new OrderService.
func NewOrderService(opts OrderServiceOptions) *OrderService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "order_service")
	}
	return &OrderService{
		orders:  opts.Orders,
		alerts:  opts.Alerts,
		metrics: opts.Metrics,
		logger:  logger,
	}
}

// OrderView is an order with its line items.
type OrderView struct {
	Order *model.Order       `json:"order"`
	Items []*model.OrderItem `json:"items"`
}

// Checkout places an order from the user's cart. Stock is decremented
// inside the checkout transaction; alert rules run afterwards so low
// shelves get flagged right after a big purchase.
func (s *OrderService) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*OrderView, error) {
	start := time.Now()
	order, err := s.orders.Checkout(ctx, userID, req)
	if err != nil {
		metrics.EmitCheckout(s.metrics, metrics.CheckoutMetric{
			Result:   metrics.ResultError,
			Duration: time.Since(start),
			Err:      err,
		})
		return nil, err
	}

	if s.alerts != nil {
		if scanErr := s.alerts.Scan(ctx); scanErr != nil {
			s.logger.WarnContext(ctx, "post-checkout stock alert scan failed", "err", scanErr)
		}
	}

	items, err := s.orders.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	metrics.EmitCheckout(s.metrics, metrics.CheckoutMetric{
		Result:     metrics.ResultSuccess,
		TotalCents: order.TotalCents,
		Lines:      len(items),
		Duration:   time.Since(start),
	})
	return &OrderView{Order: order, Items: items}, nil
}

// Get returns one order with items. When requesterID is non-empty the
// order must belong to that user; staff pass an empty requesterID.
func (s *OrderService) Get(ctx context.Context, id, requesterID string) (*OrderView, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && order.UserID != requesterID {
		// Another user's order is indistinguishable from a missing one.
		return nil, data.ErrOrderNotFound
	}

	items, err := s.orders.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &OrderView{Order: order, Items: items}, nil
}

// List returns orders per the options.
func (s *OrderService) List(ctx context.Context, opts model.OrdersListOptions) ([]*model.Order, error) {
	return s.orders.List(ctx, opts)
}

// SetStatus transitions an order through its lifecycle (back-office).
func (s *OrderService) SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	return s.orders.SetStatus(ctx, id, status)
}

// Cancel cancels the user's own order while it is still cancellable.
func (s *OrderService) Cancel(ctx context.Context, id, userID string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, data.ErrOrderNotFound
	}
	if !model.CanTransition(order.Status, model.OrderCanceled) {
		return nil, fmt.Errorf("%w: order can no longer be canceled", data.ErrInvalidOrderTransition)
	}
	return s.orders.SetStatus(ctx, id, model.OrderCanceled)
}
