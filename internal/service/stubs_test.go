package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// Func-field repository stubs shared by the service tests. Unset fields
// return zero values so each test scripts only the calls it cares about.

type stubProductRepo struct {
	CreateFunc      func(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	GetByIDFunc     func(ctx context.Context, id string) (*model.Product, error)
	ListFunc        func(ctx context.Context, opts model.ProductsListOptions) ([]*model.Product, error)
	UpdateFunc      func(ctx context.Context, id string, req model.UpdateProductRequest) (*model.Product, error)
	DeleteFunc      func(ctx context.Context, id string) (bool, error)
	AdjustStockFunc func(ctx context.Context, id string, delta float64) (*model.Product, error)
}

func (s *stubProductRepo) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if s.CreateFunc != nil {
		return s.CreateFunc(ctx, req)
	}
	return nil, errors.New("create not scripted")
}

func (s *stubProductRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if s.GetByIDFunc != nil {
		return s.GetByIDFunc(ctx, id)
	}
	return nil, data.ErrProductNotFound
}

func (s *stubProductRepo) List(ctx context.Context, opts model.ProductsListOptions) ([]*model.Product, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx, opts)
	}
	return nil, nil
}

func (s *stubProductRepo) Update(ctx context.Context, id string, req model.UpdateProductRequest) (*model.Product, error) {
	if s.UpdateFunc != nil {
		return s.UpdateFunc(ctx, id, req)
	}
	return nil, data.ErrProductNotFound
}

func (s *stubProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, id)
	}
	return false, nil
}

func (s *stubProductRepo) AdjustStock(ctx context.Context, id string, delta float64) (*model.Product, error) {
	if s.AdjustStockFunc != nil {
		return s.AdjustStockFunc(ctx, id, delta)
	}
	return nil, data.ErrProductNotFound
}

type stubCartRepo struct {
	UpsertFunc    func(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartItem, error)
	ListLinesFunc func(ctx context.Context, userID string) ([]*model.CartLine, error)
	RemoveFunc    func(ctx context.Context, userID, productID string) (bool, error)
	ClearFunc     func(ctx context.Context, userID string) error
}

func (s *stubCartRepo) Upsert(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartItem, error) {
	if s.UpsertFunc != nil {
		return s.UpsertFunc(ctx, userID, req)
	}
	return &model.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity}, nil
}

func (s *stubCartRepo) ListLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	if s.ListLinesFunc != nil {
		return s.ListLinesFunc(ctx, userID)
	}
	return nil, nil
}

func (s *stubCartRepo) Remove(ctx context.Context, userID, productID string) (bool, error) {
	if s.RemoveFunc != nil {
		return s.RemoveFunc(ctx, userID, productID)
	}
	return false, nil
}

func (s *stubCartRepo) Clear(ctx context.Context, userID string) error {
	if s.ClearFunc != nil {
		return s.ClearFunc(ctx, userID)
	}
	return nil
}

type stubOrderRepo struct {
	CheckoutFunc  func(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error)
	GetByIDFunc   func(ctx context.Context, id string) (*model.Order, error)
	ListItemsFunc func(ctx context.Context, orderID string) ([]*model.OrderItem, error)
	ListFunc      func(ctx context.Context, opts model.OrdersListOptions) ([]*model.Order, error)
	SetStatusFunc func(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
}

func (s *stubOrderRepo) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error) {
	if s.CheckoutFunc != nil {
		return s.CheckoutFunc(ctx, userID, req)
	}
	return nil, model.ErrEmptyCart
}

func (s *stubOrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if s.GetByIDFunc != nil {
		return s.GetByIDFunc(ctx, id)
	}
	return nil, data.ErrOrderNotFound
}

func (s *stubOrderRepo) ListItems(ctx context.Context, orderID string) ([]*model.OrderItem, error) {
	if s.ListItemsFunc != nil {
		return s.ListItemsFunc(ctx, orderID)
	}
	return nil, nil
}

func (s *stubOrderRepo) List(ctx context.Context, opts model.OrdersListOptions) ([]*model.Order, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx, opts)
	}
	return nil, nil
}

func (s *stubOrderRepo) SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if s.SetStatusFunc != nil {
		return s.SetStatusFunc(ctx, id, status)
	}
	return nil, data.ErrOrderNotFound
}

type stubChatRepo struct {
	InsertFunc            func(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)
	ListSinceFunc         func(ctx context.Context, conversationID string, since time.Time, limit int) ([]*model.ChatMessage, error)
	ListConversationsFunc func(ctx context.Context, limit, offset int) ([]*model.ChatConversation, error)
	WaitForMessageFunc    func(ctx context.Context, conversationID string) error
}

func (s *stubChatRepo) Insert(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error) {
	if s.InsertFunc != nil {
		return s.InsertFunc(ctx, msg)
	}
	return msg, nil
}

func (s *stubChatRepo) ListSince(ctx context.Context, conversationID string, since time.Time, limit int) ([]*model.ChatMessage, error) {
	if s.ListSinceFunc != nil {
		return s.ListSinceFunc(ctx, conversationID, since, limit)
	}
	return nil, nil
}

func (s *stubChatRepo) ListConversations(ctx context.Context, limit, offset int) ([]*model.ChatConversation, error) {
	if s.ListConversationsFunc != nil {
		return s.ListConversationsFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (s *stubChatRepo) WaitForMessage(ctx context.Context, conversationID string) error {
	if s.WaitForMessageFunc != nil {
		return s.WaitForMessageFunc(ctx, conversationID)
	}
	<-ctx.Done()
	return ctx.Err()
}

// memoryAlertRepo is a minimal in-memory StockAlertRepository. It keeps
// the open-alert dedupe contract so scan tests exercise real semantics.
type memoryAlertRepo struct {
	mu     sync.Mutex
	nextID int
	rules  []*model.StockAlertRule
	open   map[string]*model.StockAlert // keyed by ruleID + "/" + productID
}

func newMemoryAlertRepo() *memoryAlertRepo {
	return &memoryAlertRepo{open: make(map[string]*model.StockAlert)}
}

func (r *memoryAlertRepo) CreateRule(_ context.Context, req *model.CreateStockAlertRuleRequest) (*model.StockAlertRule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule := &model.StockAlertRule{
		ID:         "rule-" + strconv.Itoa(r.nextID),
		Name:       req.Name,
		Expression: req.Expression,
		CategoryID: req.CategoryID,
		Enabled:    enabled,
		CreatedAt:  time.Now(),
	}
	r.rules = append(r.rules, rule)
	return rule, nil
}

func (r *memoryAlertRepo) ListRules(_ context.Context, enabledOnly bool) ([]*model.StockAlertRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.StockAlertRule
	for _, rule := range r.rules {
		if enabledOnly && !rule.Enabled {
			continue
		}
		out = append(out, rule)
	}
	return out, nil
}

func (r *memoryAlertRepo) DeleteRule(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rule := range r.rules {
		if rule.ID == id {
			r.rules = append(r.rules[:i], r.rules[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAlertRepo) RecordAlert(_ context.Context, alert *model.StockAlert) (*model.StockAlert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := alert.RuleID + "/" + alert.ProductID
	if existing, ok := r.open[key]; ok {
		return existing, false, nil
	}
	r.nextID++
	stored := *alert
	stored.ID = "alert-" + strconv.Itoa(r.nextID)
	stored.TriggeredAt = time.Now()
	r.open[key] = &stored
	return &stored, true, nil
}

func (r *memoryAlertRepo) ListOpenAlerts(_ context.Context, limit, offset int) ([]*model.StockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.StockAlert
	for _, alert := range r.open {
		out = append(out, alert)
	}
	return out, nil
}

func (r *memoryAlertRepo) ResolveAlert(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, alert := range r.open {
		if alert.ID == id {
			delete(r.open, key)
			return true, nil
		}
	}
	return false, nil
}

