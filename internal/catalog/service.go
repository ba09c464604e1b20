package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/inventory"
)

// ProductSource defines the remote store operations the service needs.
// Consumers define this interface, not the Postgres implementation.
type ProductSource interface {
	List(ctx context.Context) ([]domain.Product, error)
	Upsert(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, productID string) error
}

// Service is the catalog read/write path. Reads go through the cache with
// a singleflight guard; every successful load or write refreshes the live
// inventory model so cart admission sees current stock.
type Service struct {
	repo  ProductSource
	cache ProductCache
	model *inventory.Model
	sfg   singleflight.Group // Prevents cache stampede
}

func NewService(repo ProductSource, cache ProductCache, model *inventory.Model) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		model: model,
	}
}

// Model exposes the live inventory model (the cart's admission gate).
func (s *Service) Model() *inventory.Model {
	return s.model
}

// Products returns the catalog, from cache when possible. Cache errors are
// logged and degrade to the repository.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(productsCacheKey, func() (interface{}, error) {
		products, err := s.cache.Get(ctx)
		if err == nil {
			s.model.Replace(products)
			return products, nil
		}

		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		products, errList := s.repo.List(ctx)
		if errList != nil {
			return nil, errList
		}
		s.model.Replace(products)

		// set cache
		go func() {
			cctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(cctx, products); errSet != nil {
				log.Printf("cache set error: %v", errSet)
			}
		}()

		return products, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.Product), nil
}

// Save validates a product at the save boundary and persists it wholesale.
func (s *Service) Save(ctx context.Context, p *domain.Product) error {
	if err := inventory.Normalize(p); err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		log.Printf("repo upsert product error: %v", err)
		return err
	}

	s.model.Upsert(*p)
	s.invalidateCache()
	return nil
}

func (s *Service) Remove(ctx context.Context, productID string) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		log.Printf("repo delete product error: %v", err)
		return err
	}

	s.model.Remove(productID)
	s.invalidateCache()
	return nil
}

// AdjustStock applies a clamped stock delta to one variant and persists the
// updated product. When the persist fails the model is restored to the
// pre-adjustment product, so the admission gate never diverges from the
// store until the next reload.
func (s *Service) AdjustStock(ctx context.Context, productID, variantLabel string, delta int) (domain.Product, error) {
	prev, ok := s.model.Get(productID)
	if !ok {
		return domain.Product{}, inventory.ErrProductNotFound
	}

	updated, err := s.model.AdjustStock(productID, variantLabel, delta)
	if err != nil {
		return domain.Product{}, err
	}

	if err := s.repo.Upsert(ctx, &updated); err != nil {
		s.model.Upsert(prev)
		return domain.Product{}, fmt.Errorf("persist stock adjustment failed: %w", err)
	}

	s.invalidateCache()
	return updated, nil
}

func (s *Service) invalidateCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
