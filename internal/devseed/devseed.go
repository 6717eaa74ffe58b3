// Package devseed populates a development database with a small but
// realistic catalog so the storefront is usable right after db-seed.
package devseed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB      *sql.DB
	catalog *service.CatalogService
	alerts  *service.StockAlertService
}

// NewServices constructs all required services for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	productRepo := data.NewProductRepo(db)
	categoryRepo := data.NewCategoryRepo(db)
	alertRepo := data.NewStockAlertRepo(db)

	catalog := service.NewCatalogService(service.CatalogServiceOptions{
		Products:   productRepo,
		Categories: categoryRepo,
	})
	alerts := service.NewStockAlertService(service.StockAlertServiceOptions{
		Alerts:   alertRepo,
		Products: productRepo,
	})

	return Services{
		DB:      db,
		catalog: catalog,
		alerts:  alerts,
	}
}

// Run executes the full development seeding workflow against the provided DB.
// Seeding is idempotent: existing categories, products, and rules are left
// alone.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	failures := 0

	categories, catFailures := seedCategories(ctx, svcs.catalog, logger)
	failures += catFailures
	failures += seedProducts(ctx, svcs.catalog, categories, logger)
	failures += seedAlertRules(ctx, svcs.alerts, logger)

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}
	return nil
}

type seedCategory struct {
	Name        string
	Slug        string
	Description string
}

func defaultCategories() []seedCategory {
	return []seedCategory{
		{Name: "Grains & Cereals", Slug: "grains-cereals", Description: "Rice, oats, wheat, and specialty grains sold by weight"},
		{Name: "Nuts & Seeds", Slug: "nuts-seeds", Description: "Raw and roasted nuts, seeds, and trail mixes"},
		{Name: "Oils & Vinegars", Slug: "oils-vinegars", Description: "Refillable cooking oils and vinegars by the liter"},
		{Name: "Dried Fruit", Slug: "dried-fruit", Description: "Unsweetened dried fruit sold by weight"},
		{Name: "Household", Slug: "household", Description: "Refillable cleaning supplies and reusable containers"},
	}
}

// seedCategories creates missing categories and returns slug -> id for
// the product pass.
func seedCategories(
	ctx context.Context,
	catalog *service.CatalogService,
	logger *slog.Logger,
) (map[string]string, int) {
	ids := make(map[string]string)
	failures := 0

	for _, c := range defaultCategories() {
		if existing, err := catalog.GetCategoryBySlug(ctx, c.Slug); err == nil {
			ids[c.Slug] = existing.ID
			continue
		} else if !errors.Is(err, data.ErrCategoryNotFound) {
			logger.ErrorContext(ctx, "category lookup failed", "slug", c.Slug, "error", err)
			failures++
			continue
		}

		desc := c.Description
		created, err := catalog.CreateCategory(ctx, &model.CreateCategoryRequest{
			Name:        c.Name,
			Slug:        c.Slug,
			Description: &desc,
		})
		switch {
		case err == nil:
			ids[c.Slug] = created.ID
			logger.InfoContext(ctx, "seeded category", "slug", c.Slug)
		case errors.Is(err, data.ErrCategorySlugExists):
			// Lost a race with another seeder; re-read.
			if existing, lookupErr := catalog.GetCategoryBySlug(ctx, c.Slug); lookupErr == nil {
				ids[c.Slug] = existing.ID
			}
		default:
			logger.ErrorContext(ctx, "seed category failed", "slug", c.Slug, "error", err)
			failures++
		}
	}

	return ids, failures
}

type seedProduct struct {
	Name          string
	CategorySlug  string
	Unit          model.ProductUnit
	PriceCents    int64
	StockQuantity float64
	Description   string
}

func defaultProducts() []seedProduct {
	return []seedProduct{
		{Name: "Organic Rolled Oats", CategorySlug: "grains-cereals", Unit: model.UnitKilogram, PriceCents: 349, StockQuantity: 120, Description: "Whole-grain rolled oats from the local mill"},
		{Name: "Basmati Rice", CategorySlug: "grains-cereals", Unit: model.UnitKilogram, PriceCents: 489, StockQuantity: 200, Description: "Aged long-grain basmati"},
		{Name: "Raw Almonds", CategorySlug: "nuts-seeds", Unit: model.UnitKilogram, PriceCents: 1890, StockQuantity: 45, Description: "Unsalted whole almonds"},
		{Name: "Pumpkin Seeds", CategorySlug: "nuts-seeds", Unit: model.UnitKilogram, PriceCents: 1250, StockQuantity: 30, Description: "Hulled green pumpkin seeds"},
		{Name: "Extra Virgin Olive Oil", CategorySlug: "oils-vinegars", Unit: model.UnitLiter, PriceCents: 1590, StockQuantity: 60, Description: "Cold-pressed, bring your own bottle"},
		{Name: "Apple Cider Vinegar", CategorySlug: "oils-vinegars", Unit: model.UnitLiter, PriceCents: 650, StockQuantity: 40, Description: "Unfiltered, with the mother"},
		{Name: "Turkish Apricots", CategorySlug: "dried-fruit", Unit: model.UnitKilogram, PriceCents: 1120, StockQuantity: 25, Description: "Sun-dried, no added sugar"},
		{Name: "Glass Storage Jar 1L", CategorySlug: "household", Unit: model.UnitPiece, PriceCents: 450, StockQuantity: 80, Description: "Swing-top jar for bulk storage"},
	}
}

func seedProducts(
	ctx context.Context,
	catalog *service.CatalogService,
	categories map[string]string,
	logger *slog.Logger,
) int {
	existing, err := catalog.ListProducts(ctx, model.ProductsListOptions{Limit: 1})
	if err != nil {
		logger.ErrorContext(ctx, "product existence check failed", "error", err)
		return 1
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "products already present, skipping product seed")
		return 0
	}

	failures := 0
	for _, p := range defaultProducts() {
		req := &model.CreateProductRequest{
			Name:          p.Name,
			Unit:          p.Unit,
			PriceCents:    p.PriceCents,
			StockQuantity: p.StockQuantity,
		}
		if p.Description != "" {
			desc := p.Description
			req.Description = &desc
		}
		if id, ok := categories[p.CategorySlug]; ok {
			catID := id
			req.CategoryID = &catID
		}

		if _, createErr := catalog.CreateProduct(ctx, req); createErr != nil {
			logger.ErrorContext(ctx, "seed product failed", "name", p.Name, "error", createErr)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded product", "name", p.Name)
	}
	return failures
}

func defaultAlertRules() []*model.CreateStockAlertRuleRequest {
	return []*model.CreateStockAlertRuleRequest{
		{
			Name:       "low stock",
			Expression: "stock_quantity < `20` && active",
		},
		{
			Name:       "out of stock",
			Expression: "stock_quantity <= `0` && active",
		},
	}
}

func seedAlertRules(ctx context.Context, alerts *service.StockAlertService, logger *slog.Logger) int {
	rules, err := alerts.ListRules(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "alert rule listing failed", "error", err)
		return 1
	}

	byName := make(map[string]bool, len(rules))
	for _, r := range rules {
		byName[r.Name] = true
	}

	failures := 0
	for _, req := range defaultAlertRules() {
		if byName[req.Name] {
			continue
		}
		if _, createErr := alerts.CreateRule(ctx, req); createErr != nil {
			logger.ErrorContext(ctx, "seed alert rule failed", "name", req.Name, "error", createErr)
			failures++
			continue
		}
		logger.InfoContext(ctx, "seeded alert rule", "name", req.Name)
	}
	return failures
}
