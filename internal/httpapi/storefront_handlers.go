package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matita/storefront/internal/cart"
	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/inventory"
	"github.com/matita/storefront/internal/session"
)

type sessionResponse struct {
	State    string       `json:"state"`
	Identity *domain.User `json:"identity,omitempty"`
}

func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, sessionResponse{
		State:    s.session.State().String(),
		Identity: s.session.Identity(),
	})
}

func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	s.session.SignOut(r.Context())
	respondJSON(w, http.StatusOK, sessionResponse{State: s.session.State().String()})
}

func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, domain.SiteConfig{LogoRef: s.session.LogoRef()})
}

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	if _, err := s.catalog.Products(r.Context()); err != nil {
		handleError(w, err)
		return
	}

	query := inventory.Query{
		Search: r.URL.Query().Get("q"),
	}
	switch view := r.URL.Query().Get("category"); view {
	case "", "all":
	case "favorites":
		query.FavoritesOnly = true
		query.IsFavorite = s.favorites.Has
	default:
		query.Category = domain.Category(view)
		if !query.Category.Valid() {
			respondError(w, http.StatusBadRequest, "invalid_category", "unknown category")
			return
		}
	}

	respondJSON(w, http.StatusOK, s.catalog.Model().Filter(query))
}

type cartResponse struct {
	Lines []domain.CartLine `json:"lines"`
	Total float64           `json:"total"`
	Units int               `json:"units"`
}

func (s *Server) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, cartResponse{
		Lines: s.cart.Lines(),
		Total: s.cart.Total(),
		Units: s.cart.Units(),
	})
}

type addItemRequestDTO struct {
	ProductID    string `json:"product_id"`
	VariantLabel string `json:"variant_label"`
}

func (s *Server) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" || req.VariantLabel == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_id and variant_label are required")
		return
	}

	product, ok := s.catalog.Model().Get(req.ProductID)
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}

	if err := s.cart.Add(r.Context(), product, req.VariantLabel); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cartResponse{
		Lines: s.cart.Lines(),
		Total: s.cart.Total(),
		Units: s.cart.Units(),
	})
}

func (s *Server) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be an integer")
		return
	}

	// Out-of-range removal is a no-op, not an error.
	s.cart.Remove(index)
	respondJSON(w, http.StatusOK, cartResponse{
		Lines: s.cart.Lines(),
		Total: s.cart.Total(),
		Units: s.cart.Units(),
	})
}

// PlaceOrder records the current cart as a sale and clears it. Payment and
// fulfillment happen outside this system.
func (s *Server) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty, nothing to order")
		return
	}

	sale := &domain.Sale{
		Total:           s.cart.Total(),
		CategorySummary: dominantCategory(lines),
	}
	if identity := s.session.Identity(); identity != nil {
		sale.UserID = identity.ID
		sale.UserName = identity.Name
	}

	if err := s.sales.Record(r.Context(), sale); err != nil {
		handleError(w, err)
		return
	}

	s.cart.Clear()
	respondJSON(w, http.StatusCreated, sale)
}

// dominantCategory summarizes a cart as its highest-revenue category.
func dominantCategory(lines []domain.CartLine) string {
	totals := make(map[domain.Category]float64)
	for _, line := range lines {
		totals[line.Product.Category] += line.Product.Price * float64(line.Quantity)
	}

	var best domain.Category
	var bestTotal float64
	for category, total := range totals {
		if total > bestTotal || (total == bestTotal && category < best) {
			best = category
			bestTotal = total
		}
	}
	return string(best)
}

type favoriteResponse struct {
	ProductID string `json:"product_id"`
	Favorite  bool   `json:"favorite"`
}

func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	nowFavorite := s.favorites.Toggle(r.Context(), productID)
	respondJSON(w, http.StatusOK, favoriteResponse{ProductID: productID, Favorite: nowFavorite})
}

func (s *Server) ListFavorites(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.favorites.IDs())
}

// handleError maps domain errors onto HTTP statuses.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", "selected variant is out of stock")
	case errors.Is(err, inventory.ErrValidation):
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, inventory.ErrProductNotFound), errors.Is(err, inventory.ErrVariantNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, session.ErrNetworkUnavailable):
		respondError(w, http.StatusServiceUnavailable, "network_unavailable", "remote store unavailable")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
