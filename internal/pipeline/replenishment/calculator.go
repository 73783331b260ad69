package replenishment

import (
	"math"

	"github.com/andresuchdata/fba-replenish/internal/domain"
)

// KeyTotals are the joined aggregate values for one key.
type KeyTotals struct {
	Key          domain.Key
	Sale         float64
	Returns      float64
	Stock        float64
	UniwareStock float64
}

// DecisionCalculator turns joined totals into a replenishment record.
type DecisionCalculator struct {
	cfg Config
}

// NewDecisionCalculator creates a new decision calculator
func NewDecisionCalculator(cfg Config) *DecisionCalculator {
	return &DecisionCalculator{cfg: cfg}
}

// Metrics computes demand rate, stock cover and return share.
func (dc *DecisionCalculator) Metrics(in KeyTotals) Metrics {
	m := Metrics{}

	// 1. Daily run rate over the sales window
	if dc.cfg.SalesWindowDays > 0 {
		m.DRR = in.Sale / dc.cfg.SalesWindowDays
	}

	// 2. Days of cover; zero when there is no demand signal
	if m.DRR > 0 {
		m.StockCover = in.Stock / m.DRR
	}

	// 3. Return share of shipped plus returned units
	if total := in.Sale + in.Returns; total > 0 {
		m.ReturnPct = in.Returns * 100 / total
	}

	return m
}

// Calculate returns the record for a key, or false when the key has neither
// sales nor stock.
func (dc *DecisionCalculator) Calculate(in KeyTotals) (domain.Record, bool) {
	if in.Sale == 0 && in.Stock == 0 {
		return domain.Record{}, false
	}

	m := dc.Metrics(in)
	target := dc.cfg.TargetCoverDays

	rec := domain.Record{
		SKU:          in.Key.SKU,
		FC:           in.Key.FC,
		Channel:      in.Key.Channel,
		Sale30D:      in.Sale,
		Returns:      in.Returns,
		DRR:          roundFloat(m.DRR, 2),
		StockCover:   roundFloat(m.StockCover, 1),
		ReturnPct:    roundFloat(m.ReturnPct, 1),
		FCStock:      in.Stock,
		UniwareStock: in.UniwareStock,
	}

	switch {
	case m.StockCover < target && in.UniwareStock >= dc.cfg.MinWarehouseStock && m.ReturnPct <= dc.cfg.MaxReturnPct:
		rec.Decision = domain.DecisionSend
		rec.SendQty = int(math.Max(0, math.Ceil(target*m.DRR-in.Stock)))
		rec.Remarks = domain.RemarkLowCover
	case m.StockCover > target || m.ReturnPct > dc.cfg.MaxReturnPct:
		rec.Decision = domain.DecisionDoNotSend
		rec.RecallQty = int(math.Max(0, math.Floor(in.Stock-target*m.DRR)))
		rec.Remarks = domain.RemarkOverstock
	default:
		rec.Decision = domain.DecisionDoNotSend
		rec.Remarks = domain.RemarkUniwareConstraint
	}

	return rec, true
}
