package domain

import (
	"sort"
	"time"
)

// Key identifies one reconciliation bucket. Channel is empty unless channel
// keying is enabled.
type Key struct {
	SKU     string `json:"sku"`
	FC      string `json:"fc"`
	Channel string `json:"channel,omitempty"`
}

// Less orders keys by SKU, then FC, then channel.
func (k Key) Less(o Key) bool {
	if k.SKU != o.SKU {
		return k.SKU < o.SKU
	}
	if k.FC != o.FC {
		return k.FC < o.FC
	}
	return k.Channel < o.Channel
}

type Decision string

const (
	DecisionSend      Decision = "SEND"
	DecisionDoNotSend Decision = "DO NOT SEND"
)

const (
	RemarkLowCover          = "Low stock cover"
	RemarkOverstock         = "Overstock or high returns"
	RemarkUniwareConstraint = "Uniware constraint"
)

// Record is the computed replenishment line for one key. DRR, StockCover and
// ReturnPct are rounded for reporting.
type Record struct {
	SKU          string   `json:"sku"`
	FC           string   `json:"fc"`
	Channel      string   `json:"channel,omitempty"`
	Sale30D      float64  `json:"sale_30d"`
	Returns      float64  `json:"returns"`
	DRR          float64  `json:"drr"`
	StockCover   float64  `json:"stock_cover"`
	ReturnPct    float64  `json:"return_pct"`
	FCStock      float64  `json:"fc_stock"`
	UniwareStock float64  `json:"uniware_stock"`
	Decision     Decision `json:"decision"`
	SendQty      int      `json:"send_qty"`
	RecallQty    int      `json:"recall_qty"`
	Remarks      string   `json:"remarks"`
}

// Key returns the reconciliation key of the record.
func (r Record) Key() Key {
	return Key{SKU: r.SKU, FC: r.FC, Channel: r.Channel}
}

// Summary holds counters for a generated result set.
type Summary struct {
	Records       int            `json:"records"`
	SendLines     int            `json:"send_lines"`
	RecallLines   int            `json:"recall_lines"`
	SendUnits     int            `json:"send_units"`
	RecallUnits   int            `json:"recall_units"`
	SnapshotDate  *time.Time     `json:"snapshot_date,omitempty"`
	EmptySnapshot bool           `json:"empty_snapshot"`
	Warnings      map[string]int `json:"warnings,omitempty"`
}

// ResultSet is the ordered output of one run.
type ResultSet struct {
	Records     []Record  `json:"records"`
	Summary     Summary   `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// SortRecords orders records by key so output does not depend on input order.
func SortRecords(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key().Less(records[j].Key())
	})
}

// Filter returns the records that belong to the view.
func (rs ResultSet) Filter(v View) []Record {
	out := make([]Record, 0, len(rs.Records))
	for _, r := range rs.Records {
		if v.Includes(r) {
			out = append(out, r)
		}
	}
	return out
}

// Summarize recomputes the counters from the records, keeping snapshot and
// warning fields as given.
func Summarize(records []Record, base Summary) Summary {
	s := base
	s.Records = len(records)
	s.SendLines, s.RecallLines, s.SendUnits, s.RecallUnits = 0, 0, 0, 0
	for _, r := range records {
		if r.Decision == DecisionSend && r.SendQty > 0 {
			s.SendLines++
			s.SendUnits += r.SendQty
		}
		if r.RecallQty > 0 {
			s.RecallLines++
			s.RecallUnits += r.RecallQty
		}
	}
	return s
}

// SKUMapping links an Amazon seller SKU to its warehouse SKU.
type SKUMapping struct {
	SellerSKU    string `db:"seller_sku" json:"seller_sku"`
	WarehouseSKU string `db:"uniware_sku" json:"uniware_sku"`
}
