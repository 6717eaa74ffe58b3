package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

const (
	catalogCachePrefix = "catalog:"
	catalogCacheTTL    = 60 * time.Second
)

// CatalogServiceOptions groups dependencies for CatalogService.
type CatalogServiceOptions struct {
	Products   core.ProductRepository
	Categories core.CategoryRepository
	Cache      core.CacheRepository // optional; nil disables caching
	Logger     *slog.Logger
}

// CatalogService orchestrates the product catalog. Storefront listings
// are served through a read-through cache; any catalog write
// invalidates the whole catalog prefix, which is cheap at this scale
// and never serves a stale price.
type CatalogService struct {
	products   core.ProductRepository
	categories core.CategoryRepository
	cache      core.CacheRepository
	logger     *slog.Logger
}

// NewCatalogService constructs a new CatalogService.
func NewCatalogService(opts CatalogServiceOptions) *CatalogService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "catalog_service")
	}
	return &CatalogService{
		products:   opts.Products,
		categories: opts.Categories,
		cache:      opts.Cache,
		logger:     logger,
	}
}

// ListProducts returns products for the storefront, cached per option set.
func (s *CatalogService) ListProducts(ctx context.Context, opts model.ProductsListOptions) ([]*model.Product, error) {
	key, ok := s.cacheKey("products", opts)
	if ok {
		if cached := s.readCache(ctx, key); cached != nil {
			var products []*model.Product
			if err := json.Unmarshal(cached, &products); err == nil {
				return products, nil
			}
			// Corrupt entry; fall through to the database.
		}
	}

	products, err := s.products.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	if ok {
		s.writeCache(ctx, key, products)
	}
	return products, nil
}

// GetProduct retrieves a single product.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.products.GetByID(ctx, id)
}

// CreateProduct creates a product and invalidates cached listings.
func (s *CatalogService) CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	product, err := s.products.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// UpdateProduct updates a product and invalidates cached listings.
func (s *CatalogService) UpdateProduct(
	ctx context.Context,
	id string,
	req model.UpdateProductRequest,
) (*model.Product, error) {
	product, err := s.products.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// DeleteProduct deletes a product and invalidates cached listings.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) (bool, error) {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	s.invalidate(ctx)
	return deleted, nil
}

// AdjustStock applies a stock delta (goods received, spoilage) and
// invalidates cached listings.
func (s *CatalogService) AdjustStock(ctx context.Context, id string, delta float64) (*model.Product, error) {
	product, err := s.products.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// ListCategories returns all categories, cached.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	key := catalogCachePrefix + "categories"
	if cached := s.readCache(ctx, key); cached != nil {
		var categories []*model.Category
		if err := json.Unmarshal(cached, &categories); err == nil {
			return categories, nil
		}
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, key, categories)
	return categories, nil
}

// GetCategoryBySlug retrieves a category by its URL slug.
func (s *CatalogService) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return s.categories.GetBySlug(ctx, slug)
}

// CreateCategory creates a category and invalidates cached listings.
func (s *CatalogService) CreateCategory(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	category, err := s.categories.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return category, nil
}

// UpdateCategory updates a category and invalidates cached listings.
func (s *CatalogService) UpdateCategory(
	ctx context.Context,
	id string,
	req model.UpdateCategoryRequest,
) (*model.Category, error) {
	category, err := s.categories.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return category, nil
}

// DeleteCategory deletes a category and invalidates cached listings.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) (bool, error) {
	deleted, err := s.categories.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	s.invalidate(ctx)
	return deleted, nil
}

// cacheKey derives a stable cache key from list options.
func (s *CatalogService) cacheKey(kind string, opts any) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%s%s:%s", catalogCachePrefix, kind, raw), true
}

func (s *CatalogService) readCache(ctx context.Context, key string) []byte {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog cache read failed", "key", key, "err", err)
		return nil
	}
	return data
}

func (s *CatalogService) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, catalogCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "catalog cache write failed", "key", key, "err", err)
	}
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.DeletePrefix(ctx, catalogCachePrefix); err != nil {
		s.logger.WarnContext(ctx, "catalog cache invalidation failed", "err", err)
	}
}
