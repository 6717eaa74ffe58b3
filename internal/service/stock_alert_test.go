package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/notify"
)

// recordingSink captures ops events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []notify.OpsEventPayload
}

func (s *recordingSink) SendOpsEvent(_ context.Context, payload notify.OpsEventPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, payload)
	return nil
}

func (s *recordingSink) Events() []notify.OpsEventPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.OpsEventPayload(nil), s.events...)
}

func fixedProducts(products ...*model.Product) *stubProductRepo {
	return &stubProductRepo{
		ListFunc: func(context.Context, model.ProductsListOptions) ([]*model.Product, error) {
			return products, nil
		},
	}
}

func TestCreateRuleRejectsBadExpression(t *testing.T) {
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts:   newMemoryAlertRepo(),
		Products: &stubProductRepo{},
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "broken",
		Expression: "stock_quantity <<< oops",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid rule expression")
}

func TestScanTriggersMatchingRule(t *testing.T) {
	repo := newMemoryAlertRepo()
	sink := &recordingSink{}
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts:   repo,
		Products: fixedProducts(&model.Product{ID: "p1", Name: "Basmati Rice", StockQuantity: 3, Active: true}),
		Notifier: sink,
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "low stock",
		Expression: "stock_quantity < `20` && active",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Scan(context.Background()))

	open, err := svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "Basmati Rice", open[0].ProductName)

	events := sink.Events()
	require.Len(t, events, 1)
	require.Equal(t, "stock_alerts", events[0].Source)
	require.Contains(t, events[0].Summary, "Basmati Rice")
}

func TestScanSkipsNonMatchingProducts(t *testing.T) {
	repo := newMemoryAlertRepo()
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts: repo,
		Products: fixedProducts(
			&model.Product{ID: "p1", Name: "Full Shelf", StockQuantity: 500, Active: true},
			&model.Product{ID: "p2", Name: "Inactive", StockQuantity: 0, Active: false},
		),
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "out of stock",
		Expression: "stock_quantity <= `0` && active",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Scan(context.Background()))

	open, err := svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestScanHonorsCategoryScope(t *testing.T) {
	grains := "cat-grains"
	oils := "cat-oils"
	repo := newMemoryAlertRepo()
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts: repo,
		Products: fixedProducts(
			&model.Product{ID: "p1", Name: "Oats", CategoryID: &grains, StockQuantity: 1, Active: true},
			&model.Product{ID: "p2", Name: "Olive Oil", CategoryID: &oils, StockQuantity: 1, Active: true},
			&model.Product{ID: "p3", Name: "Uncategorized", StockQuantity: 1, Active: true},
		),
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "grains running low",
		Expression: "stock_quantity < `5`",
		CategoryID: &grains,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Scan(context.Background()))

	open, err := svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "p1", open[0].ProductID)
}

func TestRepeatedScanDoesNotReannounce(t *testing.T) {
	repo := newMemoryAlertRepo()
	sink := &recordingSink{}
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts:   repo,
		Products: fixedProducts(&model.Product{ID: "p1", Name: "Lentils", StockQuantity: 2, Active: true}),
		Notifier: sink,
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "low stock",
		Expression: "stock_quantity < `20`",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Scan(context.Background()))
	require.NoError(t, svc.Scan(context.Background()))

	open, err := svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1, "open alert is deduplicated per rule and product")
	require.Len(t, sink.Events(), 1, "only the first trigger is announced")
}

func TestScanWithDisabledRule(t *testing.T) {
	repo := newMemoryAlertRepo()
	disabled := false
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts:   repo,
		Products: fixedProducts(&model.Product{ID: "p1", Name: "Lentils", StockQuantity: 0, Active: true}),
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "disabled rule",
		Expression: "stock_quantity <= `0`",
		Enabled:    &disabled,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Scan(context.Background()))

	open, err := svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestResolveAlertReopensOnNextScan(t *testing.T) {
	repo := newMemoryAlertRepo()
	svc := NewStockAlertService(StockAlertServiceOptions{
		Alerts:   repo,
		Products: fixedProducts(&model.Product{ID: "p1", Name: "Lentils", StockQuantity: 2, Active: true}),
	})

	_, err := svc.CreateRule(context.Background(), &model.CreateStockAlertRuleRequest{
		Name:       "low stock",
		Expression: "stock_quantity < `20`",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Scan(context.Background()))

	open, err := svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)

	resolved, err := svc.ResolveAlert(context.Background(), open[0].ID)
	require.NoError(t, err)
	require.True(t, resolved)

	// Stock is still low, so the next scan opens a fresh alert.
	require.NoError(t, svc.Scan(context.Background()))
	open, err = svc.ListOpenAlerts(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
}

func TestIsTruthy(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"x", true},
		{[]any{}, false},
		{[]any{1}, true},
		{map[string]any{}, false},
		{map[string]any{"k": 1}, true},
		{float64(0), true},
		{time.Duration(0), true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, isTruthy(tc.value), "%#v", tc.value)
	}
}
