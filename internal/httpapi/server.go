package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matita/storefront/internal/cart"
	"github.com/matita/storefront/internal/catalog"
	"github.com/matita/storefront/internal/domain"
	"github.com/matita/storefront/internal/favorites"
	"github.com/matita/storefront/internal/sales"
	"github.com/matita/storefront/internal/session"
)

// MemberDirectory is the admin-side view of the club membership.
type MemberDirectory interface {
	ListMembers(ctx context.Context) ([]domain.User, error)
	SetPoints(ctx context.Context, memberID string, points int) error
	DeleteMember(ctx context.Context, memberID string) error
}

// SalesBoard records and reports sales for the back office.
type SalesBoard interface {
	Record(ctx context.Context, sale *domain.Sale) error
	History(ctx context.Context) ([]domain.Sale, error)
	Dashboard(ctx context.Context) (sales.Dashboard, error)
}

// Server exposes the state core over HTTP for the UI layer. It holds no
// state of its own; every request goes straight to the stores.
type Server struct {
	session   *session.Reconciler
	catalog   *catalog.Service
	cart      *cart.Store
	favorites *favorites.Store
	members   MemberDirectory
	sales     SalesBoard
	adminKey  string
	timeout   time.Duration
}

func NewServer(
	reconciler *session.Reconciler,
	catalogSvc *catalog.Service,
	cartStore *cart.Store,
	favs *favorites.Store,
	members MemberDirectory,
	board SalesBoard,
	adminKey string,
) *Server {
	return &Server{
		session:   reconciler,
		catalog:   catalogSvc,
		cart:      cartStore,
		favorites: favs,
		members:   members,
		sales:     board,
		adminKey:  adminKey,
		timeout:   30 * time.Second,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/session", s.GetSession)
		r.Post("/session/signout", s.SignOut)
		r.Get("/config", s.GetConfig)

		r.Get("/products", s.ListProducts)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.GetCart)
			r.Post("/items", s.AddCartItem)
			r.Delete("/items/{index}", s.RemoveCartItem)
		})
		r.Post("/order", s.PlaceOrder)

		r.Post("/favorites/{productID}", s.ToggleFavorite)
		r.Get("/favorites", s.ListFavorites)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/products", s.SaveProduct)
			r.Delete("/products/{productID}", s.DeleteProduct)
			r.Post("/products/{productID}/stock", s.AdjustStock)
			r.Get("/members", s.ListMembers)
			r.Put("/members/{memberID}/points", s.SetMemberPoints)
			r.Delete("/members/{memberID}", s.DeleteMember)
			r.Get("/sales", s.ListSales)
			r.Get("/dashboard", s.GetDashboard)
			r.Get("/export/inventory.csv", s.ExportInventory)
			r.Get("/export/members.csv", s.ExportMembers)
			r.Put("/config/logo", s.SetLogo)
		})
	})

	return r
}

// adminOnly gates the back office behind the shared admin key.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" || r.Header.Get("X-Admin-Key") != s.adminKey {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid admin key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
