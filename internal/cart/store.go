package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/matita/storefront/internal/domain"
)

// ErrOutOfStock is returned when an addition is denied because the selected
// variant has no stock at call time. The cart is left unchanged.
var ErrOutOfStock = errors.New("variant is out of stock")

// StockView is the live stock read used as the admission gate. The cart
// holds no lock on it; stock may be depleted between the check and a later
// checkout, which is an accepted trade-off since no reservation exists.
type StockView interface {
	Stock(ctx context.Context, productID, variantLabel string) (int, error)
}

// Store is the in-memory cart: an ordered list of lines, one per "add"
// event. It is intentionally volatile and does not survive a reload.
type Store struct {
	stock StockView

	mu    sync.Mutex
	lines []domain.CartLine
}

func NewStore(stock StockView) *Store {
	return &Store{stock: stock}
}

// Add admits one unit of the selected variant if its stock is positive at
// call time. Repeated adds of the same product/variant append independent
// lines rather than incrementing a quantity; each call is one add event.
// The appended line holds a copy of the product, not a live reference.
func (s *Store) Add(ctx context.Context, product domain.Product, variantLabel string) error {
	stock, err := s.stock.Stock(ctx, product.ID, variantLabel)
	if err != nil {
		return fmt.Errorf("stock lookup failed: %w", err)
	}
	if stock <= 0 {
		return ErrOutOfStock
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, domain.CartLine{
		Product:      product.Clone(),
		Quantity:     1,
		VariantLabel: variantLabel,
	})
	return nil
}

// Remove deletes the line at the given position. An out-of-range index is a
// silent no-op; removal never destabilizes lines it does not reference.
func (s *Store) Remove(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.lines) {
		return
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
}

// Clear empties the cart. Called on sign-out and after an order is placed.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Lines returns a copy of the current cart lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartLine(nil), s.lines...)
}

// Total is the sum of price times quantity over all lines, derived on
// demand.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, line := range s.lines {
		total += line.Product.Price * float64(line.Quantity)
	}
	return total
}

// Units is the number of lines in the cart.
func (s *Store) Units() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}
