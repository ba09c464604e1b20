package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matita/storefront/internal/domain"
)

// ErrValidation marks a product rejected at the save boundary. Local state
// is left unchanged when it is returned.
var ErrValidation = errors.New("product validation failed")

// Normalize validates and repairs a product before it is saved. Structural
// variant edits are free-form while editing; this is the only place the
// invariants are enforced:
//
//   - the name must be non-empty
//   - at least one variant must remain (a synthetic "Único" variant is
//     injected when the list is empty)
//   - variant labels are unique, last writer wins on duplicates
//   - stock, prices and points never go negative
func Normalize(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}

	if p.Price < 0 {
		p.Price = 0
	}
	if p.OldPrice < 0 {
		p.OldPrice = 0
	}
	if p.Points < 0 {
		p.Points = 0
	}
	if !p.Category.Valid() {
		p.Category = domain.CategoryEscolar
	}
	if p.Images == nil {
		p.Images = []string{}
	}

	variants := make([]domain.Variant, 0, len(p.Variants))
	index := make(map[string]int, len(p.Variants))
	for _, v := range p.Variants {
		v.Label = strings.TrimSpace(v.Label)
		if v.Label == "" {
			continue
		}
		if v.Stock < 0 {
			v.Stock = 0
		}
		if at, seen := index[v.Label]; seen {
			variants[at] = v
			continue
		}
		index[v.Label] = len(variants)
		variants = append(variants, v)
	}

	if len(variants) == 0 {
		variants = append(variants, domain.Variant{Label: domain.DefaultVariantLabel, Stock: 1})
	}
	p.Variants = variants

	return nil
}
