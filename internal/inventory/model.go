package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/matita/storefront/internal/domain"
)

// Common errors returned by the model
var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Model is the in-memory authority for per-variant stock. Catalog views and
// the cart store read it concurrently; reads are not linearizable with
// concurrent admin writes, a visible stock count may be one update stale.
type Model struct {
	mu    sync.RWMutex
	order []string
	items map[string]domain.Product
}

func NewModel() *Model {
	return &Model{
		items: make(map[string]domain.Product),
	}
}

// Replace swaps the whole product set, keeping the given order.
func (m *Model) Replace(products []domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order = m.order[:0]
	m.items = make(map[string]domain.Product, len(products))
	for _, p := range products {
		if _, seen := m.items[p.ID]; !seen {
			m.order = append(m.order, p.ID)
		}
		m.items[p.ID] = p.Clone()
	}
}

// Upsert adds or updates a single product. New products go to the front,
// matching the catalog's newest-first ordering.
func (m *Model) Upsert(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[p.ID]; !exists {
		m.order = append([]string{p.ID}, m.order...)
	}
	m.items[p.ID] = p.Clone()
}

func (m *Model) Remove(productID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.items[productID]; !exists {
		return
	}
	delete(m.items, productID)
	for i, id := range m.order {
		if id == productID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the product with the given id.
func (m *Model) Get(productID string) (domain.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.items[productID]
	if !ok {
		return domain.Product{}, false
	}
	return p.Clone(), true
}

// Products returns copies of all products in catalog order.
func (m *Model) Products() []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id].Clone())
	}
	return out
}

// Stock returns the current stock for a product variant. It is the sole
// admission gate for adding to the cart. An unknown variant reads as zero;
// an unknown product is an error.
func (m *Model) Stock(_ context.Context, productID, variantLabel string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.items[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	stock, _ := p.VariantStock(variantLabel)
	return stock, nil
}

// OutOfStock reports whether every variant of the product is depleted.
// Unknown products read as out of stock.
func (m *Model) OutOfStock(productID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.items[productID]
	if !ok {
		return true
	}
	return p.OutOfStock()
}

// AdjustStock applies a delta to one variant's stock, clamping the result at
// zero regardless of how large a negative delta is requested. It returns a
// copy of the updated product for persistence at the repository boundary.
func (m *Model) AdjustStock(productID, variantLabel string, delta int) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.items[productID]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}

	updated := p.Clone()
	for i := range updated.Variants {
		if updated.Variants[i].Label != variantLabel {
			continue
		}
		next := updated.Variants[i].Stock + delta
		if next < 0 {
			next = 0
		}
		updated.Variants[i].Stock = next
		m.items[productID] = updated
		return updated.Clone(), nil
	}

	return domain.Product{}, ErrVariantNotFound
}
