package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/lib/pq"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/repository"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// quoteTable validates a possibly schema-qualified table name and quotes it.
func quoteTable(name string) (string, error) {
	if !tableNamePattern.MatchString(name) {
		return "", fmt.Errorf("invalid table name %q", name)
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return pq.QuoteIdentifier(name[:i]) + "." + pq.QuoteIdentifier(name[i+1:]), nil
		}
	}
	return pq.QuoteIdentifier(name), nil
}

type mappingRepository struct {
	db *DB
}

func NewMappingRepository(db *DB) repository.MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) ListMappings(ctx context.Context, tableName string) ([]domain.SKUMapping, error) {
	quoted, err := quoteTable(tableName)
	if err != nil {
		return nil, err
	}

	release, err := r.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	query := fmt.Sprintf(`
		SELECT seller_sku, COALESCE(uniware_sku, '') AS uniware_sku
		FROM %s
		WHERE seller_sku <> ''
		ORDER BY seller_sku
	`, quoted)

	var mappings []domain.SKUMapping
	if err := r.db.SelectContext(ctx, &mappings, query); err != nil {
		return nil, fmt.Errorf("error listing sku mappings from %s: %w", tableName, err)
	}
	return mappings, nil
}

// ReplaceMappings swaps the table content for mappings in one transaction.
// Seller SKUs are unique; later entries win.
func (r *mappingRepository) ReplaceMappings(ctx context.Context, tableName string, mappings []domain.SKUMapping) error {
	quoted, err := quoteTable(tableName)
	if err != nil {
		return err
	}

	sellers := make([]string, 0, len(mappings))
	warehouse := make([]string, 0, len(mappings))
	index := make(map[string]int, len(mappings))
	for _, m := range mappings {
		if i, ok := index[m.SellerSKU]; ok {
			warehouse[i] = m.WarehouseSKU
			continue
		}
		index[m.SellerSKU] = len(sellers)
		sellers = append(sellers, m.SellerSKU)
		warehouse = append(warehouse, m.WarehouseSKU)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seller_sku  TEXT PRIMARY KEY,
				uniware_sku TEXT NOT NULL DEFAULT ''
			)`, quoted)); err != nil {
			return fmt.Errorf("error creating %s: %w", tableName, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, quoted)); err != nil {
			return fmt.Errorf("error clearing %s: %w", tableName, err)
		}
		if len(sellers) == 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			INSERT INTO %s (seller_sku, uniware_sku)
			SELECT * FROM UNNEST($1::text[], $2::text[])
		`, quoted), pq.Array(sellers), pq.Array(warehouse))
		if err != nil {
			return fmt.Errorf("error inserting sku mappings: %w", err)
		}
		return nil
	})
}
