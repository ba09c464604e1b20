package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/inventory"
)

type mockSource struct {
	m        sync.Mutex
	products  []domain.Product
	listErr   error
	upsertErr error
	upserts   []domain.Product
	deletes   []string
	listCnt   int
}

func (s *mockSource) List(context.Context) ([]domain.Product, error) {
	s.m.Lock()
	defer s.m.Unlock()
	s.listCnt++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]domain.Product(nil), s.products...), nil
}

func (s *mockSource) Upsert(_ context.Context, p *domain.Product) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserts = append(s.upserts, *p)
	return nil
}

func (s *mockSource) Delete(_ context.Context, id string) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.deletes = append(s.deletes, id)
	return nil
}

func (s *mockSource) lastUpsert() (domain.Product, bool) {
	s.m.Lock()
	defer s.m.Unlock()
	if len(s.upserts) == 0 {
		return domain.Product{}, false
	}
	return s.upserts[len(s.upserts)-1], true
}

type mockCache struct {
	m        sync.Mutex
	products []domain.Product
	getErr   error
	sets     int
	deletes  int
}

func (c *mockCache) Get(context.Context) ([]domain.Product, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return append([]domain.Product(nil), c.products...), nil
}

func (c *mockCache) Set(_ context.Context, products []domain.Product) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.products = append([]domain.Product(nil), products...)
	c.sets++
	return nil
}

func (c *mockCache) Delete(context.Context) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.products = nil
	c.deletes++
	return nil
}

func (c *mockCache) deleted() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.deletes
}

func (c *mockCache) stored() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.sets
}

func catalogFixture() []domain.Product {
	return []domain.Product{
		{
			ID:       "p1",
			Name:     "Cuaderno A4",
			Price:    1500,
			Category: domain.CategoryEscolar,
			Variants: []domain.Variant{{Label: "Rojo", Stock: 3}},
		},
		{
			ID:       "p2",
			Name:     "Mouse inalámbrico",
			Price:    9000,
			Category: domain.CategoryTecnologia,
			Variants: []domain.Variant{{Label: domain.DefaultVariantLabel, Stock: 5}},
		},
	}
}

func TestProducts_CacheHitRefreshesModel(t *testing.T) {
	cache := &mockCache{products: catalogFixture()}
	repo := &mockSource{}
	svc := NewService(repo, cache, inventory.NewModel())

	products, err := svc.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)

	repo.m.Lock()
	assert.Equal(t, 0, repo.listCnt)
	repo.m.Unlock()

	// The admission gate sees the cached stock.
	stock, err := svc.Model().Stock(context.Background(), "p1", "Rojo")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
}

func TestProducts_CacheMissFallsThroughAndRepopulates(t *testing.T) {
	cache := &mockCache{getErr: ErrCacheMiss}
	repo := &mockSource{products: catalogFixture()}
	svc := NewService(repo, cache, inventory.NewModel())

	products, err := svc.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)

	require.Eventually(t, func() bool {
		return cache.stored() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestProducts_CacheFailureDegradesToRepository(t *testing.T) {
	cache := &mockCache{getErr: errors.New("connection refused")}
	repo := &mockSource{products: catalogFixture()}
	svc := NewService(repo, cache, inventory.NewModel())

	products, err := svc.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestProducts_RepositoryErrorSurfaces(t *testing.T) {
	cache := &mockCache{getErr: ErrCacheMiss}
	repo := &mockSource{listErr: errors.New("connection refused")}
	svc := NewService(repo, cache, inventory.NewModel())

	_, err := svc.Products(context.Background())
	require.Error(t, err)
}

func TestSave_NormalizesPersistsAndInvalidates(t *testing.T) {
	cache := &mockCache{}
	repo := &mockSource{}
	svc := NewService(repo, cache, inventory.NewModel())

	p := domain.Product{ID: "p9", Name: "  Lapicera  ", Category: "Papelería"}
	require.NoError(t, svc.Save(context.Background(), &p))

	saved, ok := repo.lastUpsert()
	require.True(t, ok)
	assert.Equal(t, "Lapicera", saved.Name)
	assert.Equal(t, domain.CategoryEscolar, saved.Category)
	require.Len(t, saved.Variants, 1)
	assert.Equal(t, domain.DefaultVariantLabel, saved.Variants[0].Label)

	assert.Equal(t, 1, cache.deleted())

	// The live model sees the new product immediately.
	stock, err := svc.Model().Stock(context.Background(), "p9", domain.DefaultVariantLabel)
	require.NoError(t, err)
	assert.Equal(t, 1, stock)
}

func TestSave_ValidationFailureLeavesEverythingUntouched(t *testing.T) {
	cache := &mockCache{}
	repo := &mockSource{}
	svc := NewService(repo, cache, inventory.NewModel())

	p := domain.Product{ID: "p9", Name: "   "}
	err := svc.Save(context.Background(), &p)
	require.ErrorIs(t, err, inventory.ErrValidation)

	repo.m.Lock()
	assert.Empty(t, repo.upserts)
	repo.m.Unlock()
	assert.Equal(t, 0, cache.deleted())
}

func TestRemove_DropsFromModelAndInvalidates(t *testing.T) {
	cache := &mockCache{}
	repo := &mockSource{}
	model := inventory.NewModel()
	model.Replace(catalogFixture())
	svc := NewService(repo, cache, model)

	require.NoError(t, svc.Remove(context.Background(), "p1"))

	repo.m.Lock()
	assert.Equal(t, []string{"p1"}, repo.deletes)
	repo.m.Unlock()

	_, err := model.Stock(context.Background(), "p1", "Rojo")
	require.ErrorIs(t, err, inventory.ErrProductNotFound)
	assert.Equal(t, 1, cache.deleted())
}

func TestAdjustStock_ClampsAndPersistsTheUpdatedProduct(t *testing.T) {
	cache := &mockCache{}
	repo := &mockSource{}
	model := inventory.NewModel()
	model.Replace(catalogFixture())
	svc := NewService(repo, cache, model)

	updated, err := svc.AdjustStock(context.Background(), "p1", "Rojo", -100)
	require.NoError(t, err)

	stock, ok := updated.VariantStock("Rojo")
	require.True(t, ok)
	assert.Equal(t, 0, stock)

	saved, ok := repo.lastUpsert()
	require.True(t, ok)
	savedStock, _ := saved.VariantStock("Rojo")
	assert.Equal(t, 0, savedStock)
	assert.Equal(t, 1, cache.deleted())
}

func TestAdjustStock_PersistFailureRestoresTheModel(t *testing.T) {
	cache := &mockCache{}
	repo := &mockSource{upsertErr: errors.New("connection refused")}
	model := inventory.NewModel()
	model.Replace(catalogFixture())
	svc := NewService(repo, cache, model)

	_, err := svc.AdjustStock(context.Background(), "p1", "Rojo", -2)
	require.Error(t, err)

	// The admission gate must keep the stored stock, not the failed
	// adjustment.
	stock, err := model.Stock(context.Background(), "p1", "Rojo")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, cache.deleted())
}

func TestAdjustStock_UnknownProductDoesNotPersist(t *testing.T) {
	cache := &mockCache{}
	repo := &mockSource{}
	svc := NewService(repo, cache, inventory.NewModel())

	_, err := svc.AdjustStock(context.Background(), "missing", "Rojo", 1)
	require.ErrorIs(t, err, inventory.ErrProductNotFound)

	repo.m.Lock()
	assert.Empty(t, repo.upserts)
	repo.m.Unlock()
}
