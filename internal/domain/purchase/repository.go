package purchase

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Store persists purchase history rows.
type Store interface {
	// CreatePurchase appends one purchase record.
	CreatePurchase(ctx context.Context, r *Record) error

	// ListByUser returns a user's purchases, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error)

	// ListByProduct returns the purchase history of one product for one user,
	// newest first. Used for price tracking over time.
	ListByProduct(ctx context.Context, userID, productID uuid.UUID, limit int) ([]Record, error)
}

const recordColumns = `id, user_id, product_id, receipt_id, receipt_item_name,
	quantity, unit_price, total_price, unit_type, weight_kg,
	match_confidence, is_manual_match, purchase_date, created_at`

type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is the pgx-backed purchase store.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore creates a purchase store on top of a pgx pool.
func NewPostgresStore(db pgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreatePurchase(ctx context.Context, r *Record) error {
	query := `
		INSERT INTO product_purchases (
			id, user_id, product_id, receipt_id, receipt_item_name,
			quantity, unit_price, total_price, unit_type, weight_kg,
			match_confidence, is_manual_match, purchase_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`

	return s.db.QueryRow(ctx, query,
		r.ID, r.UserID, r.ProductID, r.ReceiptID, r.ReceiptItemName,
		r.Quantity, r.UnitPrice, r.TotalPrice, r.UnitType, r.WeightKG,
		r.MatchConfidence, r.IsManualMatch, r.PurchaseDate,
	).Scan(&r.CreatedAt)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + recordColumns + `
		FROM product_purchases
		WHERE user_id = $1
		ORDER BY purchase_date DESC, created_at DESC
		LIMIT $2
	`
	return s.queryRecords(ctx, query, userID, limit)
}

func (s *PostgresStore) ListByProduct(ctx context.Context, userID, productID uuid.UUID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + recordColumns + `
		FROM product_purchases
		WHERE user_id = $1 AND product_id = $2
		ORDER BY purchase_date DESC, created_at DESC
		LIMIT $3
	`
	return s.queryRecords(ctx, query, userID, productID, limit)
}

func (s *PostgresStore) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		err := rows.Scan(
			&r.ID, &r.UserID, &r.ProductID, &r.ReceiptID, &r.ReceiptItemName,
			&r.Quantity, &r.UnitPrice, &r.TotalPrice, &r.UnitType, &r.WeightKG,
			&r.MatchConfidence, &r.IsManualMatch, &r.PurchaseDate, &r.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MemoryStore keeps purchases in memory, for tests and DB-less runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore creates an empty in-memory purchase store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) CreatePurchase(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *r)
	return nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(r Record) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListByProduct(_ context.Context, userID, productID uuid.UUID, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(limit, func(r Record) bool {
		return r.UserID == userID && r.ProductID == productID
	}), nil
}

// filter returns matching records newest first. Callers hold the lock.
func (s *MemoryStore) filter(limit int, keep func(Record) bool) []Record {
	if limit <= 0 {
		limit = 100
	}
	var out []Record
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out
}

// Len reports the number of stored purchases.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
