package inventory

import (
	"strings"

	"github.com/matita/storefront/internal/domain"
)

// Query selects a catalog view. An empty Category means the whole catalog.
type Query struct {
	Category      domain.Category
	Search        string
	FavoritesOnly bool
	// IsFavorite is the membership test used when FavoritesOnly is set.
	IsFavorite func(productID string) bool
}

// Filter applies the catalog view rules to the current product set:
// case-insensitive name search, category match, the favorites view, and the
// offers view which also includes any discounted product.
func (m *Model) Filter(q Query) []domain.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]domain.Product, 0)
	for _, p := range m.Products() {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if q.FavoritesOnly {
			if q.IsFavorite == nil || !q.IsFavorite(p.ID) {
				continue
			}
		} else if q.Category == domain.CategoryOfertas {
			if p.OldPrice <= 0 && p.Category != domain.CategoryOfertas {
				continue
			}
		} else if q.Category != "" && p.Category != q.Category {
			continue
		}
		out = append(out, p)
	}
	return out
}
