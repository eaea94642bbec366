package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"inventory-service/internal/models"

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

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Kind: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySKU retrieves a product by SKU
func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE sku = $1", sku)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %s: %w", sku, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ProductExistsByName reports whether any catalog product matches the name.
// Purchase orders keep productName freeform; this backs the catalog_linked
// flag surfaced to callers.
func (s *Store) ProductExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM products WHERE lower(name) = lower($1))", name)
	return exists, err
}

// GetSupplierByName retrieves a supplier by exact name
func (s *Store) GetSupplierByName(ctx context.Context, name string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := s.db.GetContext(ctx, &supplier,
		"SELECT * FROM suppliers WHERE lower(name) = lower($1)", name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("supplier %s: %w", name, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT id, name, email, role, enabled FROM users WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
