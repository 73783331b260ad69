package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/table"
)

type MappingRepository interface {
	ListMappings(ctx context.Context, tableName string) ([]domain.SKUMapping, error)
	ReplaceMappings(ctx context.Context, tableName string, mappings []domain.SKUMapping) error
}

// MappingFetcher serves db://<table> locations as a mapping table whose
// headers match the configured mapping schema.
type MappingFetcher struct {
	repo            MappingRepository
	sellerHeader    string
	warehouseHeader string
}

func NewMappingFetcher(repo MappingRepository, sellerHeader, warehouseHeader string) *MappingFetcher {
	return &MappingFetcher{repo: repo, sellerHeader: sellerHeader, warehouseHeader: warehouseHeader}
}

func (f *MappingFetcher) FetchTable(ctx context.Context, location string) (string, *table.Table, error) {
	name, ok := strings.CutPrefix(location, "db://")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid database location %q", location)
	}

	mappings, err := f.repo.ListMappings(ctx, name)
	if err != nil {
		return name, nil, fmt.Errorf("error loading sku mappings: %w", err)
	}

	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{m.SellerSKU, m.WarehouseSKU})
	}
	return name, table.New([]string{f.sellerHeader, f.warehouseHeader}, rows), nil
}

// MappingsFromTable reads seller/warehouse pairs from a parsed mapping table,
// skipping rows without a seller SKU.
func MappingsFromTable(t *table.Table, sellerHeader, warehouseHeader string) []domain.SKUMapping {
	out := make([]domain.SKUMapping, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		seller := t.Get(i, sellerHeader)
		if seller == "" {
			continue
		}
		out = append(out, domain.SKUMapping{SellerSKU: seller, WarehouseSKU: t.Get(i, warehouseHeader)})
	}
	return out
}
