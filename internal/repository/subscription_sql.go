package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"storefront-restock-api/internal/model"
	"storefront-restock-api/pkg/uid"
)

// placeholder renders the n-th (1-based) bind parameter for a SQL dialect.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

// SQLSubscriptionRepository implements SubscriptionRegistry on database/sql.
// The same statements serve SQLite and PostgreSQL; only placeholders differ.
type SQLSubscriptionRepository struct {
	db   *sql.DB
	bind placeholder
}

// NewSQLiteSubscriptionRepository creates a registry on a SQLite handle from OpenSQLite.
func NewSQLiteSubscriptionRepository(db *sql.DB) *SQLSubscriptionRepository {
	return &SQLSubscriptionRepository{db: db, bind: questionMark}
}

// NewPostgresSubscriptionRepository creates a registry on a PostgreSQL handle from OpenPostgres.
func NewPostgresSubscriptionRepository(db *sql.DB) *SQLSubscriptionRepository {
	return &SQLSubscriptionRepository{db: db, bind: dollar}
}

// Add stores a new subscription.
func (r *SQLSubscriptionRepository) Add(ctx context.Context, productID, variant, email string) (model.Subscription, error) {
	sub := model.Subscription{
		ID:        uid.New(),
		ProductID: productID,
		Variant:   variant,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	query := fmt.Sprintf(
		`INSERT INTO subscriptions (id, product_id, variant, email, created_at) VALUES (%s, %s, %s, %s, %s)`,
		r.bind(1), r.bind(2), r.bind(3), r.bind(4), r.bind(5))
	if _, err := r.db.ExecContext(ctx, query, sub.ID, sub.ProductID, sub.Variant, sub.Email, sub.CreatedAt); err != nil {
		return model.Subscription{}, fmt.Errorf("failed to insert subscription: %w", err)
	}
	return sub, nil
}

// FindMatches returns subscriptions whose canonical key equals the given key.
// Candidate rows are the exact product plus legacy "productId:..." rows; the
// final decision is made on canonical forms, never on raw column text.
func (r *SQLSubscriptionRepository) FindMatches(ctx context.Context, productID, variant string) ([]model.Subscription, error) {
	candidates, err := r.candidates(ctx, productID)
	if err != nil {
		return nil, err
	}

	want := model.InventoryKey{ProductID: productID, Variant: variant}
	var out []model.Subscription
	for _, s := range candidates {
		key := subscriptionKey(s.ProductID, s.Variant)
		if key != want {
			continue
		}
		s.ProductID, s.Variant = key.ProductID, key.Variant
		out = append(out, s)
	}
	return out, nil
}

func (r *SQLSubscriptionRepository) candidates(ctx context.Context, productID string) ([]model.Subscription, error) {
	query := fmt.Sprintf(`
		SELECT id, product_id, variant, email, created_at
		FROM subscriptions
		WHERE product_id = %s OR product_id LIKE %s ESCAPE '\'
		ORDER BY created_at, id`, r.bind(1), r.bind(2))

	rows, err := r.db.QueryContext(ctx, query, productID, escapeLike(productID)+":%")
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.ProductID, &s.Variant, &s.Email, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteByIDs deletes ids that currently match the key; ids belonging to any
// other line are ignored.
func (r *SQLSubscriptionRepository) DeleteByIDs(ctx context.Context, productID, variant string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	matches, err := r.FindMatches(ctx, productID, variant)
	if err != nil {
		return 0, err
	}
	allowed := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		allowed[m.ID] = struct{}{}
	}

	args := make([]interface{}, 0, len(ids))
	marks := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := allowed[id]; !ok {
			continue
		}
		args = append(args, id)
		marks = append(marks, r.bind(len(args)))
	}
	if len(args) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`DELETE FROM subscriptions WHERE id IN (%s)`, strings.Join(marks, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete subscriptions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Count returns the number of subscriptions matching the key.
func (r *SQLSubscriptionRepository) Count(ctx context.Context, productID, variant string) (int, error) {
	matches, err := r.FindMatches(ctx, productID, variant)
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// CountByKey returns subscriber counts grouped by canonical key.
func (r *SQLSubscriptionRepository) CountByKey(ctx context.Context) (map[model.InventoryKey]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, variant, COUNT(*) FROM subscriptions GROUP BY product_id, variant`)
	if err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	defer rows.Close()

	out := make(map[model.InventoryKey]int)
	for rows.Next() {
		var productID, variant string
		var n int
		if err := rows.Scan(&productID, &variant, &n); err != nil {
			return nil, fmt.Errorf("failed to scan subscription count: %w", err)
		}
		out[subscriptionKey(productID, variant)] += n
	}
	return out, rows.Err()
}

// Ensure SQLSubscriptionRepository implements SubscriptionRegistry
var _ SubscriptionRegistry = (*SQLSubscriptionRepository)(nil)
