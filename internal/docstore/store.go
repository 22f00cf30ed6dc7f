// Package docstore is the storefront's document store. Account carts live in
// Redis; orders and the product catalog live in SQLite.
package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ashendes/pickle-storefront/internal/models"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = errors.New("document not found")

// ErrDuplicateOrder is returned when an order ID is reused
var ErrDuplicateOrder = errors.New("order already exists")

const cartKeyPrefix = "carts:"

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id   TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	total      REAL NOT NULL,
	created_at DATETIME NOT NULL,
	document   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_by_user ON orders (user_id, created_at);
CREATE TABLE IF NOT EXISTS products (
	id         TEXT PRIMARY KEY,
	position   INTEGER NOT NULL,
	document   TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);`

// Store is the storefront document store
type Store struct {
	rdb *redis.Client
	db  *sql.DB
}

// New wraps an existing Redis client and SQLite database and prepares the schema
func New(ctx context.Context, rdb *redis.Client, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{rdb: rdb, db: db}, nil
}

// Open connects to Redis at redisURL and opens the SQLite database at dbPath
func Open(ctx context.Context, redisURL, dbPath string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		rdb.Close()
		return nil, err
	}

	s, err := New(ctx, rdb, db)
	if err != nil {
		rdb.Close()
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenDB opens a SQLite database with a single writer connection
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Close releases both backends
func (s *Store) Close() error {
	return errors.Join(s.rdb.Close(), s.db.Close())
}

// Ping checks both backends
func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

// DB exposes the SQLite handle so other components can share it
func (s *Store) DB() *sql.DB {
	return s.db
}

// Redis exposes the Redis client so other components can share it
func (s *Store) Redis() *redis.Client {
	return s.rdb
}

// SaveCart overwrites the cart document of userID
func (s *Store) SaveCart(ctx context.Context, userID string, items []models.LineItem) error {
	doc := models.CartDocument{
		UserID:    userID,
		Items:     models.CloneItems(items),
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKeyPrefix+userID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// LoadCart returns the cart of userID; a missing document is an empty cart
func (s *Store) LoadCart(ctx context.Context, userID string) ([]models.LineItem, error) {
	doc, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// GetCart returns the full cart document of userID
func (s *Store) GetCart(ctx context.Context, userID string) (models.CartDocument, error) {
	data, err := s.rdb.Get(ctx, cartKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CartDocument{UserID: userID, Items: []models.LineItem{}}, nil
	}
	if err != nil {
		return models.CartDocument{}, fmt.Errorf("failed to load cart: %w", err)
	}

	var doc models.CartDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.CartDocument{}, fmt.Errorf("failed to decode cart: %w", err)
	}
	doc.Items = models.CloneItems(doc.Items)
	return doc, nil
}

// SaveOrder persists a new order. Orders are immutable once written.
func (s *Store) SaveOrder(ctx context.Context, order *models.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM orders WHERE order_id = ?`, order.OrderID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.OrderID)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (order_id, user_id, status, total, created_at, document) VALUES (?, ?, ?, ?, ?, ?)`,
		order.OrderID, order.UserID, order.Status, order.Total, order.CreatedAt.UTC(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	log.WithFields(log.Fields{
		"order_id": order.OrderID,
		"user_id":  order.UserID,
		"total":    order.Total,
	}).Info("Order saved")
	return nil
}

// GetOrder returns a single order
func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM orders WHERE order_id = ?`, orderID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	var order models.Order
	if err := json.Unmarshal([]byte(data), &order); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return &order, nil
}

// GetOrdersByUser returns the orders of userID, newest first
func (s *Store) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM orders WHERE user_id = ? ORDER BY created_at DESC, order_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to list orders: %w", err)
		}
		var order models.Order
		if err := json.Unmarshal([]byte(data), &order); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetProducts returns the catalog in display order with display defaults applied
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM products ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		var p models.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		ResolveDisplay(&p)
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct returns one product with display defaults applied
func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM products WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	var p models.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	ResolveDisplay(&p)
	return &p, nil
}

// SaveProduct creates or replaces a product. New products go to the end of the catalog.
func (s *Store) SaveProduct(ctx context.Context, p models.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (id, position, document, updated_at)
		 VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM products), ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		p.ID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product from the catalog
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed writes products when the catalog is empty and reports whether it did
func (s *Store) Seed(ctx context.Context, products []models.Product) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM products`).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	for _, p := range products {
		if err := s.SaveProduct(ctx, p); err != nil {
			return false, err
		}
	}
	log.WithField("products", len(products)).Info("Seeded product catalog")
	return true, nil
}
