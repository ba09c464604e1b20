package domain

import "time"

// Category is the fixed set of catalog sections.
type Category string

const (
	CategoryEscolar    Category = "Escolar"
	CategoryRegalaria  Category = "Regalaría"
	CategoryOficina    Category = "Oficina"
	CategoryTecnologia Category = "Tecnología"
	CategoryNovedades  Category = "Novedades"
	CategoryOfertas    Category = "Ofertas"
)

// Categories returns all valid categories in display order.
func Categories() []Category {
	return []Category{
		CategoryEscolar,
		CategoryRegalaria,
		CategoryOficina,
		CategoryTecnologia,
		CategoryNovedades,
		CategoryOfertas,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// User is an authenticated storefront identity. It is owned by the session
// reconciler; everything else reads copies of it.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Points   int    `json:"points"`
	IsAdmin  bool   `json:"is_admin"`
	IsMember bool   `json:"is_member"`
}

// DefaultVariantLabel is the synthetic variant injected when a product is
// saved without any explicit variants.
const DefaultVariantLabel = "Único"

// Variant is a purchasable form of a product with its own stock count.
// Stock never goes below zero.
type Variant struct {
	Label string `json:"label"`
	Stock int    `json:"stock"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	OldPrice    float64   `json:"old_price,omitempty"`
	Points      int       `json:"points"`
	Category    Category  `json:"category"`
	Images      []string  `json:"images"`
	Variants    []Variant `json:"variants"`
	CreatedAt   time.Time `json:"created_at"`
}

// Clone returns a deep copy of the product. Cart lines hold clones so later
// stock edits never alter a line already in the cart.
func (p Product) Clone() Product {
	out := p
	out.Images = append([]string(nil), p.Images...)
	out.Variants = append([]Variant(nil), p.Variants...)
	return out
}

// VariantStock returns the stock of the named variant and whether it exists.
func (p Product) VariantStock(label string) (int, bool) {
	for _, v := range p.Variants {
		if v.Label == label {
			return v.Stock, true
		}
	}
	return 0, false
}

// OutOfStock reports whether every variant of the product is depleted.
func (p Product) OutOfStock() bool {
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return false
		}
	}
	return true
}

// CartLine is one "add to cart" event: a snapshot of the product at add time,
// the selected variant label and a quantity (always 1 on creation).
type CartLine struct {
	Product      Product `json:"product"`
	Quantity     int     `json:"quantity"`
	VariantLabel string  `json:"variant_label"`
}

// DefaultLogoRef is shown until the global site config has been fetched.
const DefaultLogoRef = "matita-logo"

// SiteConfig is the global singleton branding row.
type SiteConfig struct {
	LogoRef string `json:"logo_ref"`
}

// Sale is one recorded storefront sale.
type Sale struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	UserName        string    `json:"user_name"`
	Total           float64   `json:"total"`
	CategorySummary string    `json:"category_summary"`
	CreatedAt       time.Time `json:"created_at"`
}

// Session is a verified remote session as reported by the session gateway.
type Session struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
}

// AuthEvent names a remote identity change.
type AuthEvent string

const (
	AuthSignedIn    AuthEvent = "SIGNED_IN"
	AuthUserUpdated AuthEvent = "USER_UPDATED"
	AuthSignedOut   AuthEvent = "SIGNED_OUT"
)
