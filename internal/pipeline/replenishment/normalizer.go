package replenishment

import (
	"strings"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/table"
)

// Transaction type prefixes in the sales report.
const (
	txShipment        = "Shipment"
	txFreeReplacement = "FreeReplacement"
	txRefund          = "Refund"
)

// Normalizer builds lookup aggregates from validated source tables.
type Normalizer struct {
	cfg      Config
	warnings map[string]int
}

func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg, warnings: make(map[string]int)}
}

// Warnings returns the number of coerced fields per source.
func (n *Normalizer) Warnings() map[string]int {
	return n.warnings
}

func (n *Normalizer) quantity(sourceName, raw string) float64 {
	v, ok := parseQuantity(raw)
	if !ok {
		n.warnings[sourceName]++
	}
	return v
}

// normalizeFC applies the empty fulfillment center rule.
func (n *Normalizer) normalizeFC(fc string) string {
	if fc == "" {
		return n.cfg.EmptyFCLabel
	}
	return fc
}

// SKUMap maps seller SKUs to warehouse SKUs; later rows win.
func (n *Normalizer) SKUMap(t *table.Table) map[string]string {
	c := n.cfg.Columns
	out := make(map[string]string, t.Len())
	for i := 0; i < t.Len(); i++ {
		seller := t.Get(i, c.MappingSeller)
		if seller == "" {
			continue
		}
		out[seller] = t.Get(i, c.MappingWarehouse)
	}
	return out
}

// UniwareStock maps warehouse SKUs to stock; later rows win, duplicates are
// not summed. Rows without a SKU code are ignored.
func (n *Normalizer) UniwareStock(t *table.Table) map[string]float64 {
	c := n.cfg.Columns
	out := make(map[string]float64, t.Len())
	for i := 0; i < t.Len(); i++ {
		code := t.Get(i, c.UniwareSKU)
		if code == "" {
			continue
		}
		out[code] = n.quantity("uniware", t.Get(i, c.UniwareQty))
	}
	return out
}

// SalesAndReturns sums shipped and refunded quantities per key. Any other
// transaction type, cancellations included, is ignored.
func (n *Normalizer) SalesAndReturns(t *table.Table) (sales, returns map[domain.Key]float64) {
	c := n.cfg.Columns
	sales = make(map[domain.Key]float64)
	returns = make(map[domain.Key]float64)

	for i := 0; i < t.Len(); i++ {
		txType := t.Get(i, c.SaleType)
		var target map[domain.Key]float64
		switch {
		case strings.HasPrefix(txType, txShipment), strings.HasPrefix(txType, txFreeReplacement):
			target = sales
		case strings.HasPrefix(txType, txRefund):
			target = returns
		default:
			continue
		}

		key := domain.Key{
			SKU: t.Get(i, c.SaleSKU),
			FC:  n.normalizeFC(t.Get(i, c.SaleFC)),
		}
		if n.cfg.KeyByChannel {
			key.Channel = t.Get(i, c.SaleChannel)
		}
		target[key] += n.quantity("sale", t.Get(i, c.SaleQty))
	}
	return sales, returns
}
