package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/sync/errgroup"

	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/notify"
)

const scanConcurrency = 8

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// StockAlertServiceOptions groups dependencies for StockAlertService.
type StockAlertServiceOptions struct {
	Alerts    core.StockAlertRepository
	Products  core.ProductRepository
	Notifier  notify.Sink // optional; triggered alerts go here
	Evaluator JMESPathEvaluator
	Logger    *slog.Logger
}

// StockAlertService evaluates inventory alert rules. A rule is a
// JMESPath expression over the product document, e.g.
//
//	stock_quantity < `25` && active
//
// Rules fire when the expression is truthy. Open alerts are
// deduplicated per (rule, product) by the repository, so scans are
// safe to run as often as needed.
type StockAlertService struct {
	alerts   core.StockAlertRepository
	products core.ProductRepository
	notifier notify.Sink
	jems     JMESPathEvaluator
	logger   *slog.Logger
}

// NewStockAlertService constructs a new StockAlertService.
func NewStockAlertService(opts StockAlertServiceOptions) *StockAlertService {
	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "stock_alerts")
	}
	return &StockAlertService{
		alerts:   opts.Alerts,
		products: opts.Products,
		notifier: opts.Notifier,
		jems:     jems,
		logger:   logger,
	}
}

// CreateRule validates the expression and stores the rule.
func (s *StockAlertService) CreateRule(
	ctx context.Context,
	req *model.CreateStockAlertRuleRequest,
) (*model.StockAlertRule, error) {
	if req != nil {
		if err := s.jems.Validate(req.Expression); err != nil {
			return nil, fmt.Errorf("invalid rule expression: %w", err)
		}
	}
	return s.alerts.CreateRule(ctx, req)
}

// ListRules returns all rules.
func (s *StockAlertService) ListRules(ctx context.Context) ([]*model.StockAlertRule, error) {
	return s.alerts.ListRules(ctx, false)
}

// DeleteRule removes a rule.
func (s *StockAlertService) DeleteRule(ctx context.Context, id string) (bool, error) {
	return s.alerts.DeleteRule(ctx, id)
}

// ListOpenAlerts returns unresolved alerts for the back-office.
func (s *StockAlertService) ListOpenAlerts(ctx context.Context, limit, offset int) ([]*model.StockAlert, error) {
	return s.alerts.ListOpenAlerts(ctx, limit, offset)
}

// ResolveAlert closes an alert once stock has been replenished.
func (s *StockAlertService) ResolveAlert(ctx context.Context, id string) (bool, error) {
	return s.alerts.ResolveAlert(ctx, id)
}

// Scan evaluates every enabled rule against every product. Rules
// scoped to a category only see that category's products. Evaluation
// failures disable neither the scan nor the rule; they are logged and
// the scan moves on.
func (s *StockAlertService) Scan(ctx context.Context) error {
	rules, err := s.alerts.ListRules(ctx, true)
	if err != nil {
		return fmt.Errorf("list alert rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	products, err := s.products.List(ctx, model.ProductsListOptions{Limit: 10000})
	if err != nil {
		return fmt.Errorf("list products for scan: %w", err)
	}

	// Evaluation is CPU-light but each hit does a database write, so
	// bound the fan-out per rule.
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(scanConcurrency)

	for _, rule := range rules {
		for _, product := range products {
			if rule.CategoryID != nil {
				if product.CategoryID == nil || *product.CategoryID != *rule.CategoryID {
					continue
				}
			}
			group.Go(func() error {
				s.evaluate(groupCtx, rule, product)
				return nil
			})
		}
	}
	return group.Wait()
}

// evaluate runs one rule against one product and records a hit.
func (s *StockAlertService) evaluate(ctx context.Context, rule *model.StockAlertRule, product *model.Product) {
	doc, err := productDocument(product)
	if err != nil {
		s.logger.WarnContext(ctx, "product document build failed",
			"product_id", product.ID, "err", err)
		return
	}

	result, err := s.jems.Evaluate(rule.Expression, doc)
	if err != nil {
		s.logger.WarnContext(ctx, "rule evaluation failed",
			"rule_id", rule.ID, "product_id", product.ID, "err", err)
		return
	}
	if !isTruthy(result) {
		return
	}

	alert, created, err := s.alerts.RecordAlert(ctx, &model.StockAlert{
		RuleID:        rule.ID,
		ProductID:     product.ID,
		ProductName:   product.Name,
		StockQuantity: product.StockQuantity,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "record alert failed",
			"rule_id", rule.ID, "product_id", product.ID, "err", err)
		return
	}
	if !created {
		// Already open; nothing new to announce.
		return
	}

	s.announce(ctx, rule, alert)
}

func (s *StockAlertService) announce(ctx context.Context, rule *model.StockAlertRule, alert *model.StockAlert) {
	s.logger.InfoContext(ctx, "stock alert triggered",
		"rule", rule.Name, "product", alert.ProductName, "stock", alert.StockQuantity)

	if s.notifier == nil {
		return
	}
	err := s.notifier.SendOpsEvent(ctx, notify.OpsEventPayload{
		Source:     "stock_alerts",
		Summary:    "Stock alert: " + alert.ProductName,
		Detail:     fmt.Sprintf("rule %q matched with stock at %.2f", rule.Name, alert.StockQuantity),
		Severity:   notify.SeverityWarning,
		OccurredAt: time.Now(),
		Metadata: map[string]string{
			"product_id": alert.ProductID,
			"rule_id":    rule.ID,
		},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "stock alert notification failed", "err", err)
	}
}

// productDocument renders a product as the generic JSON document rules
// are written against.
func productDocument(product *model.Product) (any, error) {
	raw, err := json.Marshal(product)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// isTruthy applies JMESPath truthiness: false, null, empty strings,
// arrays, and objects are false, everything else true.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
