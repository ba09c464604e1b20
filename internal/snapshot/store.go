package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/matita/storefront/internal/domain"
)

const (
	keyIdentity  = "identity"
	keyFavorites = "favorites"
)

// Store is the durable local snapshot: the last-confirmed-or-provisional
// identity and the favorites set, each persisted as an independent keyed
// blob. A missing key means "no saved value", never an error. Every write
// replaces a whole blob, so a reload racing a write never observes a torn
// value.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the snapshot database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping snapshot database: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// LoadIdentity returns the persisted identity, or nil when none is saved.
func (s *Store) LoadIdentity(ctx context.Context) (*domain.User, error) {
	payload, found, err := s.load(ctx, keyIdentity)
	if err != nil || !found {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(payload, &user); err != nil {
		return nil, fmt.Errorf("unmarshal saved identity failed: %w", err)
	}
	return &user, nil
}

func (s *Store) SaveIdentity(ctx context.Context, user *domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal identity failed: %w", err)
	}
	return s.save(ctx, keyIdentity, payload)
}

// ClearIdentity removes the saved identity. Clearing an absent identity is
// a no-op.
func (s *Store) ClearIdentity(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM snapshot WHERE key = $1`, keyIdentity)
	if err != nil {
		return fmt.Errorf("clear identity failed: %w", err)
	}
	return nil
}

// LoadFavorites returns the persisted favorite product ids, empty when none
// are saved.
func (s *Store) LoadFavorites(ctx context.Context) ([]string, error) {
	payload, found, err := s.load(ctx, keyFavorites)
	if err != nil || !found {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal saved favorites failed: %w", err)
	}
	return ids, nil
}

func (s *Store) SaveFavorites(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal favorites failed: %w", err)
	}
	return s.save(ctx, keyFavorites, payload)
}

func (s *Store) load(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshot WHERE key = $1`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot key %q: %w", key, err)
	}
	return payload, true, nil
}

func (s *Store) save(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshot (key, payload, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, key, payload)
	if err != nil {
		return fmt.Errorf("failed to write snapshot key %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
