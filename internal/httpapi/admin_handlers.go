package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matita/storefront/internal/catalog"
	"github.com/matita/storefront/internal/domain"
)

func (s *Server) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := s.catalog.Save(r.Context(), &p); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Remove(r.Context(), chi.URLParam(r, "productID")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type adjustStockRequestDTO struct {
	VariantLabel string `json:"variant_label"`
	Delta        int    `json:"delta"`
}

func (s *Server) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.VariantLabel == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "variant_label is required")
		return
	}

	updated, err := s.catalog.AdjustStock(r.Context(), chi.URLParam(r, "productID"), req.VariantLabel, req.Delta)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.ListMembers(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

type setPointsRequestDTO struct {
	Points int `json:"points"`
}

func (s *Server) SetMemberPoints(w http.ResponseWriter, r *http.Request) {
	var req setPointsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	err := s.members.SetPoints(r.Context(), chi.URLParam(r, "memberID"), req.Points)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "member not found")
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) DeleteMember(w http.ResponseWriter, r *http.Request) {
	err := s.members.DeleteMember(r.Context(), chi.URLParam(r, "memberID"))
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "member not found")
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListSales(w http.ResponseWriter, r *http.Request) {
	history, err := s.sales.History(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.sales.Dashboard(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

func (s *Server) ExportInventory(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.Products(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	data, err := catalog.ExportInventoryCSV(products)
	if err != nil {
		handleError(w, err)
		return
	}
	respondCSV(w, "Inventario_Matita.csv", data)
}

func (s *Server) ExportMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.members.ListMembers(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	data, err := catalog.ExportMembersCSV(members)
	if err != nil {
		handleError(w, err)
		return
	}
	respondCSV(w, "Socios_Matita.csv", data)
}

type setLogoRequestDTO struct {
	LogoRef string `json:"logo_ref"`
}

func (s *Server) SetLogo(w http.ResponseWriter, r *http.Request) {
	var req setLogoRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.LogoRef == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "logo_ref is required")
		return
	}

	if err := s.session.SetLogo(r.Context(), req.LogoRef); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.SiteConfig{LogoRef: req.LogoRef})
}

func respondCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("failed to write export: %v", err)
	}
}
