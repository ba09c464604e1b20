package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matita/storefront/internal/domain"
)

// List returns all products, newest first.
func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price, old_price, points, category, images, variants, created_at
		FROM products
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			p           domain.Product
			rawImages   []byte
			rawVariants []byte
		)
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.OldPrice,
			&p.Points,
			&p.Category,
			&rawImages,
			&rawVariants,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if err := json.Unmarshal(rawImages, &p.Images); err != nil {
			return nil, fmt.Errorf("failed to decode product images: %w", err)
		}
		if err := json.Unmarshal(rawVariants, &p.Variants); err != nil {
			return nil, fmt.Errorf("failed to decode product variants: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

// Upsert creates or updates a product wholesale, variants included. New
// products get a generated id and creation timestamp.
func (r *Repository) Upsert(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode product images: %w", err)
	}
	variants, err := json.Marshal(p.Variants)
	if err != nil {
		return fmt.Errorf("failed to encode product variants: %w", err)
	}

	query := `
		INSERT INTO products (id, name, description, price, old_price, points, category, images, variants, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			old_price = EXCLUDED.old_price,
			points = EXCLUDED.points,
			category = EXCLUDED.category,
			images = EXCLUDED.images,
			variants = EXCLUDED.variants
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.OldPrice,
		p.Points,
		p.Category,
		images,
		variants,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, productID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}
