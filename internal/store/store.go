package store

import (
	"context"
	"fmt"
	"time"

	"sales-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, used by tests
func NewStoreWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS local_products (
		id SERIAL PRIMARY KEY,
		user_id INTEGER NOT NULL,
		sku_code VARCHAR NOT NULL,
		sku_name VARCHAR NOT NULL,
		barcode VARCHAR NOT NULL DEFAULT '',
		cost_price NUMERIC NOT NULL DEFAULT 0,
		price NUMERIC NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id SERIAL PRIMARY KEY,
		order_id VARCHAR UNIQUE NOT NULL,
		user_id INTEGER NOT NULL,
		total_amount NUMERIC NOT NULL,
		currency VARCHAR NOT NULL DEFAULT 'KZT',
		status VARCHAR NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS order_counter (
		id SERIAL PRIMARY KEY,
		last_number INTEGER NOT NULL DEFAULT 10000
	)`,
	`CREATE TABLE IF NOT EXISTS sales_items (
		id SERIAL PRIMARY KEY,
		sale_id INTEGER NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		price NUMERIC NOT NULL,
		cost_price NUMERIC NOT NULL,
		total NUMERIC NOT NULL,
		product_name VARCHAR NOT NULL DEFAULT '',
		barcode VARCHAR NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id SERIAL PRIMARY KEY,
		order_id VARCHAR NOT NULL REFERENCES sales(order_id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL,
		total_amount NUMERIC NOT NULL,
		currency VARCHAR NOT NULL DEFAULT 'KZT',
		payment_method VARCHAR NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS audit_log (
		id SERIAL PRIMARY KEY,
		action VARCHAR NOT NULL,
		entity VARCHAR NOT NULL,
		entity_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		details VARCHAR NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id VARCHAR PRIMARY KEY,
		event_type VARCHAR NOT NULL,
		processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
}

// Migrate creates the schema and seeds the order counter. The counter row is
// inserted exactly once; order numbering starts at 10001.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	var counters int
	if err := s.db.GetContext(ctx, &counters, "SELECT COUNT(*) FROM order_counter"); err != nil {
		return fmt.Errorf("failed to check order counter: %w", err)
	}
	if counters == 0 {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO order_counter (last_number) VALUES (10000)"); err != nil {
			return fmt.Errorf("failed to seed order counter: %w", err)
		}
	}

	return nil
}

// GetProductsByIDs retrieves the user's catalog products by IDs. Products the
// user never registered simply come back absent.
func (s *Store) GetProductsByIDs(ctx context.Context, userID int64, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM local_products WHERE user_id = ? AND id IN (?)", userID, ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
