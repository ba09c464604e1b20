package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/matita/storefront/internal/domain"
)

const globalConfigID = "global"

// GetGlobal fetches the site config singleton row. An absent row is
// ErrNotFound; callers fall back to defaults.
func (r *Repository) GetGlobal(ctx context.Context) (domain.SiteConfig, error) {
	var cfg domain.SiteConfig
	err := r.db.QueryRowContext(ctx,
		`SELECT logo_ref FROM site_config WHERE id = $1`, globalConfigID,
	).Scan(&cfg.LogoRef)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SiteConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.SiteConfig{}, fmt.Errorf("failed to read site config: %w", err)
	}
	return cfg, nil
}

// SetGlobal replaces the site config singleton.
func (r *Repository) SetGlobal(ctx context.Context, cfg domain.SiteConfig) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO site_config (id, logo_ref)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET logo_ref = EXCLUDED.logo_ref
	`, globalConfigID, cfg.LogoRef)
	if err != nil {
		return fmt.Errorf("failed to write site config: %w", err)
	}
	return nil
}
