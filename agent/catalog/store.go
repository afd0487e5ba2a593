package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// PostgresStore reads the product catalog from the storefront
// database through bun.
type PostgresStore struct {
	db bun.IDB
}

func NewPostgresStore(db bun.IDB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Active returns all active in-stock products ordered by category then
// name. This ordering is what the resolver's first-match policy runs
// over.
func (s *PostgresStore) Active(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Where("status = ?", "active").
		Where("stock > 0").
		Order("category").
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query active products: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) ByCategory(ctx context.Context, category string) ([]Product, error) {
	pattern := "%" + strings.TrimSpace(category) + "%"
	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Where("status = ?", "active").
		Where("stock > 0").
		Where("category ILIKE ?", pattern).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query products by category: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) Search(ctx context.Context, query string) ([]Product, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	var products []Product
	err := s.db.NewSelect().
		Model(&products).
		Where("status = ?", "active").
		Where("stock > 0").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("name ILIKE ?", pattern).
				WhereOr("description ILIKE ?", pattern).
				WhereOr("category ILIKE ?", pattern)
		}).
		Order("name").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.NewSelect().
		Model((*Product)(nil)).
		ColumnExpr("DISTINCT category").
		Where("status = ?", "active").
		Where("stock > 0").
		Order("category").
		Scan(ctx, &categories)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	return categories, nil
}
