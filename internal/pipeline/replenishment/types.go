package replenishment

import (
	"time"

	"github.com/andresuchdata/fba-replenish/internal/config"
	"github.com/andresuchdata/fba-replenish/internal/domain"
)

// Columns names the header read for each field of each source.
type Columns struct {
	SaleType    string
	SaleSKU     string
	SaleQty     string
	SaleFC      string
	SaleChannel string

	FBADate        string
	FBASKU         string
	FBADisposition string
	FBABalance     string
	FBAFC          string

	UniwareSKU string
	UniwareQty string

	MappingSeller    string
	MappingWarehouse string
}

// DefaultColumns matches the default schema.
func DefaultColumns() Columns {
	return Columns{
		SaleType:         "Transaction Type",
		SaleSKU:          "Sku",
		SaleQty:          "Quantity",
		SaleFC:           "Warehouse Id",
		SaleChannel:      "Fulfillment Channel",
		FBADate:          "Date",
		FBASKU:           "MSKU",
		FBADisposition:   "Disposition",
		FBABalance:       "Ending Warehouse Balance",
		FBAFC:            "Location",
		UniwareSKU:       "Sku Code",
		UniwareQty:       "Total Inventory",
		MappingSeller:    "Amazon Seller SKU",
		MappingWarehouse: "Uniware SKU",
	}
}

// ColumnsFromSchema maps schema entries by position onto the column roles, so
// renaming a required header also renames the column that is read.
func ColumnsFromSchema(s config.SchemaConfig) Columns {
	c := DefaultColumns()
	assign := func(list []string, targets ...*string) {
		for i, t := range targets {
			if i < len(list) && list[i] != "" {
				*t = list[i]
			}
		}
	}
	assign(s.Sale, &c.SaleType, &c.SaleSKU, &c.SaleQty, &c.SaleFC)
	assign(s.FBA, &c.FBADate, &c.FBASKU, &c.FBADisposition, &c.FBABalance, &c.FBAFC)
	assign(s.Uniware, &c.UniwareSKU, &c.UniwareQty)
	assign(s.Mapping, &c.MappingSeller, &c.MappingWarehouse)
	return c
}

// Config holds configuration for the replenishment pipeline
type Config struct {
	TargetCoverDays   float64 // Days of cover a fulfillment center should hold
	SalesWindowDays   float64 // Trailing window the sales file covers
	MinWarehouseStock float64 // Warehouse stock needed before sending
	MaxReturnPct      float64 // Return share above which nothing is sent

	EmptyFCLabel        string // Replaces an empty FC id; empty keeps the literal key
	KeyByChannel        bool   // Include fulfillment channel in keys
	FBAChannel          string // Channel assigned to FBA inventory rows
	SellableDisposition string // Disposition counted as stock

	Columns Columns
}

// DefaultConfig returns the stock thresholds used by the operations team.
func DefaultConfig() Config {
	return Config{
		TargetCoverDays:     45,
		SalesWindowDays:     30,
		MinWarehouseStock:   45,
		MaxReturnPct:        30,
		FBAChannel:          "AFN",
		SellableDisposition: "SELLABLE",
		Columns:             DefaultColumns(),
	}
}

// ConfigFromApp builds the pipeline config from application settings.
func ConfigFromApp(r config.ReplenishmentConfig, s config.SchemaConfig) Config {
	cfg := DefaultConfig()
	if r.TargetCoverDays > 0 {
		cfg.TargetCoverDays = r.TargetCoverDays
	}
	if r.SalesWindowDays > 0 {
		cfg.SalesWindowDays = r.SalesWindowDays
	}
	if r.MinWarehouseStock > 0 {
		cfg.MinWarehouseStock = r.MinWarehouseStock
	}
	if r.MaxReturnPct > 0 {
		cfg.MaxReturnPct = r.MaxReturnPct
	}
	if r.FBAChannel != "" {
		cfg.FBAChannel = r.FBAChannel
	}
	if r.SellableDisposition != "" {
		cfg.SellableDisposition = r.SellableDisposition
	}
	cfg.EmptyFCLabel = r.EmptyFCLabel
	cfg.KeyByChannel = r.KeyByChannel
	cfg.Columns = ColumnsFromSchema(s)
	return cfg
}

// Metrics are the unrounded values the classification works on.
type Metrics struct {
	DRR        float64
	StockCover float64
	ReturnPct  float64
}

// Aggregates are the lookups built from the four sources.
type Aggregates struct {
	Sales        map[domain.Key]float64
	Returns      map[domain.Key]float64
	Stock        map[domain.Key]float64
	SKUMap       map[string]string  // seller SKU -> warehouse SKU
	UniwareStock map[string]float64 // warehouse SKU -> quantity

	SnapshotDate  *time.Time
	EmptySnapshot bool
	Warnings      map[string]int // source -> coerced or skipped fields
}

// Keys returns the union of keys over sales, returns and stock.
func (a Aggregates) Keys() []domain.Key {
	seen := make(map[domain.Key]struct{}, len(a.Sales)+len(a.Stock))
	keys := make([]domain.Key, 0, len(a.Sales)+len(a.Stock))
	for _, m := range []map[domain.Key]float64{a.Sales, a.Returns, a.Stock} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

// WarehouseStock resolves a seller SKU through the SKU map into the
// warehouse stock, zero when either lookup misses.
func (a Aggregates) WarehouseStock(sellerSKU string) float64 {
	code, ok := a.SKUMap[sellerSKU]
	if !ok {
		return 0
	}
	return a.UniwareStock[code]
}
