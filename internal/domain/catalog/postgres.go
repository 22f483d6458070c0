package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const productColumns = `id, name, normalized_name, category, brand, barcode, description,
	calories_per_100g, protein_per_100g, carbs_per_100g, fat_per_100g,
	typical_unit, typical_weight_g, data_source, confidence_score, created_at, updated_at`

// pgxQuerier is the subset of pgxpool.Pool used by the store. Declared as an
// interface so tests can substitute a pgxmock pool.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is the pgx-backed catalog store. The products table carries a
// unique constraint on normalized_name; a violation is surfaced as
// ErrDuplicateProduct so callers can retry the exact-match lookup.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore creates a catalog store on top of a pgx pool.
func NewPostgresStore(db pgxQuerier) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByNormalizedName(ctx context.Context, normalizedName string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE normalized_name = $1`

	p, err := scanProduct(s.db.QueryRow(ctx, query, normalizedName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) FindProductByAlias(ctx context.Context, normalizedAlias string) (*Product, error) {
	query := `
		SELECT ` + qualify(productColumns, "p") + `
		FROM products p
		JOIN product_aliases a ON a.product_id = p.id
		WHERE a.normalized_alias ILIKE '%' || $1 || '%'
		LIMIT 1
	`

	p, err := scanProduct(s.db.QueryRow(ctx, query, normalizedAlias))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) FindSimilar(ctx context.Context, name string, category Category, limit int) ([]Product, error) {
	words := similarWords(name)
	if len(words) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	var (
		conditions []string
		args       []any
	)
	for _, w := range words {
		args = append(args, w)
		conditions = append(conditions, fmt.Sprintf("normalized_name ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if category != "" {
		args = append(args, string(category))
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE %s ORDER BY created_at, id LIMIT $%d`,
		productColumns, strings.Join(conditions, " AND "), len(args),
	)

	return s.queryProducts(ctx, query, args...)
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (
			id, name, normalized_name, category, brand, barcode, description,
			calories_per_100g, protein_per_100g, carbs_per_100g, fat_per_100g,
			typical_unit, typical_weight_g, data_source, confidence_score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		p.ID, p.Name, p.NormalizedName, string(p.Category), p.Brand, p.Barcode, p.Description,
		p.CaloriesPer100g, p.ProteinPer100g, p.CarbsPer100g, p.FatPer100g,
		p.TypicalUnit, p.TypicalWeightG, p.DataSource, p.ConfidenceScore,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateProduct
	}
	return err
}

func (s *PostgresStore) CreateAlias(ctx context.Context, a *Alias) error {
	query := `
		INSERT INTO product_aliases (id, product_id, alias_name, normalized_alias, store_specific)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return s.db.QueryRow(ctx, query,
		a.ID, a.ProductID, a.AliasName, a.NormalizedAlias, a.StoreSpecific,
	).Scan(&a.CreatedAt)
}

func (s *PostgresStore) ListByCategory(ctx context.Context, category Category, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY name LIMIT $2`
	return s.queryProducts(ctx, query, string(category), limit)
}

func (s *PostgresStore) SearchByName(ctx context.Context, query string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 10
	}
	sql := `
		SELECT ` + productColumns + `
		FROM products
		WHERE name ILIKE '%' || $1 || '%' OR normalized_name ILIKE '%' || $1 || '%'
		LIMIT $2
	`
	return s.queryProducts(ctx, sql, query, limit)
}

func (s *PostgresStore) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p        Product
		category string
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.NormalizedName, &category, &p.Brand, &p.Barcode, &p.Description,
		&p.CaloriesPer100g, &p.ProteinPer100g, &p.CarbsPer100g, &p.FatPer100g,
		&p.TypicalUnit, &p.TypicalWeightG, &p.DataSource, &p.ConfidenceScore,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Category = Category(category)
	return &p, nil
}

// qualify prefixes each column of a comma-separated list with a table alias.
func qualify(columns, alias string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
