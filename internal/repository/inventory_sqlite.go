package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"storefront-restock-api/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// OpenSQLite opens (and migrates) the SQLite database shared by the
// inventory store and the subscription registry.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS inventory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		qty INTEGER NOT NULL DEFAULT 0 CHECK (qty >= 0),
		updated_at DATETIME NOT NULL,
		UNIQUE (product_id, variant)
	);
	CREATE TABLE IF NOT EXISTS subscriptions (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		variant TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_key ON subscriptions(product_id, variant);
	`
	_, err := db.Exec(query)
	return err
}

// SQLiteInventoryRepository implements InventoryStore using SQLite.
// Writes are serialized by the single connection and an immediate transaction.
type SQLiteInventoryRepository struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteInventoryRepository creates a new SQLite inventory repository.
func NewSQLiteInventoryRepository(db *sql.DB, logger *zap.Logger) *SQLiteInventoryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteInventoryRepository{db: db, logger: logger.Named("sqlite_inventory")}
}

// Get returns the quantity for a line, 0 when absent.
func (r *SQLiteInventoryRepository) Get(ctx context.Context, productID, variant string) (int, error) {
	var qty int
	err := r.db.QueryRowContext(ctx,
		`SELECT qty FROM inventory WHERE product_id = ? AND variant = ?`,
		productID, variant).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get inventory: %w", err)
	}
	return qty, nil
}

// SetQty atomically swaps the quantity and returns the committed pair.
func (r *SQLiteInventoryRepository) SetQty(ctx context.Context, productID, variant string, qty int) (model.QtyChange, error) {
	if qty < 0 {
		return model.QtyChange{}, fmt.Errorf("negative quantity %d", qty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.QtyChange{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var prev int
	err = tx.QueryRowContext(ctx,
		`SELECT qty FROM inventory WHERE product_id = ? AND variant = ?`,
		productID, variant).Scan(&prev)
	if err != nil && err != sql.ErrNoRows {
		return model.QtyChange{}, fmt.Errorf("failed to read inventory: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, variant, qty, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(product_id, variant) DO UPDATE SET
			qty = excluded.qty,
			updated_at = excluded.updated_at`,
		productID, variant, qty, time.Now().UTC())
	if err != nil {
		return model.QtyChange{}, fmt.Errorf("failed to write inventory: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.QtyChange{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return model.QtyChange{Prev: prev, Next: qty}, nil
}

// ResetQty sets the quantity to zero.
func (r *SQLiteInventoryRepository) ResetQty(ctx context.Context, productID, variant string) (model.QtyChange, error) {
	return r.SetQty(ctx, productID, variant, 0)
}

// BulkCreateMissing inserts zero rows for keys without a record.
func (r *SQLiteInventoryRepository) BulkCreateMissing(ctx context.Context, keys []model.InventoryKey) (int, []error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	var errs []error
	for _, k := range keys {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO inventory (product_id, variant, qty, updated_at)
			VALUES (?, ?, 0, ?)
			ON CONFLICT(product_id, variant) DO NOTHING`,
			k.ProductID, k.Variant, time.Now().UTC())
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s/%s: %w", k.ProductID, k.Variant, err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			created++
		}
	}

	if created > 0 {
		r.logger.Info("backfilled inventory rows", zap.Int("created", created))
	}
	return created, errs
}

// List returns all inventory records.
func (r *SQLiteInventoryRepository) List(ctx context.Context) ([]model.InventoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, variant, qty, updated_at FROM inventory ORDER BY product_id, variant`)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var out []model.InventoryRecord
	for rows.Next() {
		var rec model.InventoryRecord
		if err := rows.Scan(&rec.ProductID, &rec.Variant, &rec.Qty, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Stats returns statistics about the inventory database.
func (r *SQLiteInventoryRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var count, outOfStock int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory").Scan(&count); err != nil {
		return nil, err
	}
	stats["inventory_rows"] = count

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM inventory WHERE qty <= 0").Scan(&outOfStock); err == nil {
		stats["out_of_stock_rows"] = outOfStock
	}

	var subs int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscriptions").Scan(&subs); err == nil {
		stats["subscriptions"] = subs
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Ensure SQLiteInventoryRepository implements InventoryStore
var _ InventoryStore = (*SQLiteInventoryRepository)(nil)
