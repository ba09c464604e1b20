package sales

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matita/storefront/internal/domain"
)

// OutboxEvent is one unpublished sale notification.
type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// Dashboard aggregates the back-office stats view.
type Dashboard struct {
	TotalRevenue float64         `json:"total_revenue"`
	MemberCount  int             `json:"member_count"`
	ProductCount int             `json:"product_count"`
	History      []HistoryPoint  `json:"history"`
	Categories   []CategoryTotal `json:"categories"`
}

type HistoryPoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

type CategoryTotal struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// Repository records sales and their outbox events against the remote
// store, sharing the catalog's connection.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts the sale and its outbox event in one transaction, so a
// sale is never visible without a pending notification.
func (r *Repository) Record(ctx context.Context, sale *domain.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(sale)
	if err != nil {
		return fmt.Errorf("marshal sale payload failed: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sale transaction failed: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, user_id, user_name, total, category_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sale.ID, sale.UserID, sale.UserName, sale.Total, sale.CategorySummary, sale.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale failed: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (aggregate_id, event_type, payload)
		VALUES ($1, $2, $3)
	`, sale.ID, "sale.recorded", payload)
	if err != nil {
		return fmt.Errorf("insert outbox event failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sale transaction failed: %w", err)
	}
	return nil
}

// History returns all recorded sales, newest first.
func (r *Repository) History(ctx context.Context) ([]domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, total, category_summary, created_at
		FROM sales
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var s domain.Sale
		err := rows.Scan(&s.ID, &s.UserID, &s.UserName, &s.Total, &s.CategorySummary, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sales, nil
}

// Dashboard computes the stats view: total revenue, member and product
// counts, the sales trend and per-category revenue.
func (r *Repository) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total), 0) FROM sales`,
	).Scan(&d.TotalRevenue)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to sum sales: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&d.MemberCount); err != nil {
		return Dashboard{}, fmt.Errorf("failed to count members: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&d.ProductCount); err != nil {
		return Dashboard{}, fmt.Errorf("failed to count products: %w", err)
	}

	history, err := r.db.QueryContext(ctx,
		`SELECT created_at, total FROM sales ORDER BY created_at ASC`)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to query sales history: %w", err)
	}
	defer history.Close()
	for history.Next() {
		var p HistoryPoint
		if err := history.Scan(&p.Date, &p.Amount); err != nil {
			return Dashboard{}, fmt.Errorf("failed to scan history point: %w", err)
		}
		d.History = append(d.History, p)
	}
	if err := history.Err(); err != nil {
		return Dashboard{}, fmt.Errorf("row iteration error: %w", err)
	}

	categories, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(category_summary, ''), 'Varios'), SUM(total)
		FROM sales
		GROUP BY 1
		ORDER BY 2 DESC
	`)
	if err != nil {
		return Dashboard{}, fmt.Errorf("failed to query category totals: %w", err)
	}
	defer categories.Close()
	for categories.Next() {
		var c CategoryTotal
		if err := categories.Scan(&c.Name, &c.Total); err != nil {
			return Dashboard{}, fmt.Errorf("failed to scan category total: %w", err)
		}
		d.Categories = append(d.Categories, c)
	}
	if err := categories.Err(); err != nil {
		return Dashboard{}, fmt.Errorf("row iteration error: %w", err)
	}

	return d, nil
}

// Unpublished returns up to limit pending outbox events, oldest first.
func (r *Repository) Unpublished(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE NOT processed
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		ev := &OutboxEvent{}
		err := rows.Scan(&ev.ID, &ev.AggregateId, &ev.EventType, &ev.Payload, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkPublished(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	return nil
}
