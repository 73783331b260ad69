package replenishment

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/pipeline"
	"github.com/andresuchdata/fba-replenish/internal/source"
	"github.com/andresuchdata/fba-replenish/internal/table"
)

// Pipeline reconciles the four sources into a replenishment result set.
type Pipeline struct {
	config     Config
	calculator *DecisionCalculator
	now        func() time.Time
}

// NewPipeline creates a new replenishment pipeline instance.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		config:     cfg,
		calculator: NewDecisionCalculator(cfg),
		now:        time.Now,
	}
}

var _ pipeline.Pipeline = (*Pipeline)(nil)

// Name returns the unique identifier of this pipeline.
func (p *Pipeline) Name() string {
	return "replenishment"
}

// Config returns the thresholds the pipeline runs with.
func (p *Pipeline) Config() Config {
	return p.config
}

// Aggregate builds every lookup from the inputs.
func (p *Pipeline) Aggregate(in source.Inputs) Aggregates {
	n := NewNormalizer(p.config)

	sales, returns := n.SalesAndReturns(in.Sale)
	snap := n.SelectSnapshot(in.FBA)

	agg := Aggregates{
		Sales:         sales,
		Returns:       returns,
		Stock:         snap.Stock,
		SKUMap:        n.SKUMap(in.Mapping),
		UniwareStock:  n.UniwareStock(in.Uniware),
		EmptySnapshot: snap.Empty,
		Warnings:      n.Warnings(),
	}
	if !snap.Empty {
		d := snap.Date
		agg.SnapshotDate = &d
	}
	return agg
}

// Decide joins the aggregates by key and classifies each surviving key. The
// records are sorted by key.
func (p *Pipeline) Decide(agg Aggregates) []domain.Record {
	keys := agg.Keys()
	records := make([]domain.Record, 0, len(keys))
	for _, k := range keys {
		rec, ok := p.calculator.Calculate(KeyTotals{
			Key:          k,
			Sale:         agg.Sales[k],
			Returns:      agg.Returns[k],
			Stock:        agg.Stock[k],
			UniwareStock: agg.WarehouseStock(k.SKU),
		})
		if ok {
			records = append(records, rec)
		}
	}
	domain.SortRecords(records)
	return records
}

// Run computes a fresh result set from the inputs.
func (p *Pipeline) Run(in source.Inputs) domain.ResultSet {
	start := p.now()
	agg := p.Aggregate(in)

	if agg.EmptySnapshot {
		log.Warn().Msg("inventory snapshot has no dated rows; stock treated as empty")
	}
	for src, n := range agg.Warnings {
		log.Warn().Str("source", src).Int("fields", n).Msg("non-numeric or undated fields coerced")
	}

	records := p.Decide(agg)
	summary := domain.Summarize(records, domain.Summary{
		SnapshotDate:  agg.SnapshotDate,
		EmptySnapshot: agg.EmptySnapshot,
		Warnings:      agg.Warnings,
	})

	log.Info().
		Str("pipeline", p.Name()).
		Int("keys", len(agg.Keys())).
		Int("records", summary.Records).
		Int("send_lines", summary.SendLines).
		Int("recall_lines", summary.RecallLines).
		Dur("took", time.Since(start)).
		Msg("replenishment report generated")

	return domain.ResultSet{
		Records:     records,
		Summary:     summary,
		GeneratedAt: start,
	}
}

// Fingerprint identifies a run by its thresholds and input content. Equal
// fingerprints yield equal records.
func (p *Pipeline) Fingerprint(in source.Inputs) string {
	h := sha1.New()
	c := p.config
	fmt.Fprintf(h, "%v|%v|%v|%v|%q|%v|%q|%q|%+v\x1e",
		c.TargetCoverDays, c.SalesWindowDays, c.MinWarehouseStock, c.MaxReturnPct,
		c.EmptyFCLabel, c.KeyByChannel, c.FBAChannel, c.SellableDisposition, c.Columns)
	for _, t := range []*table.Table{in.Sale, in.FBA, in.Uniware, in.Mapping} {
		writeTable(h, t)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeTable(h hash.Hash, t *table.Table) {
	if t == nil {
		h.Write([]byte{0x1d})
		return
	}
	writeRow(h, t.Headers)
	for _, row := range t.Rows {
		writeRow(h, row)
	}
	h.Write([]byte{0x1d})
}

func writeRow(h hash.Hash, row []string) {
	for _, cell := range row {
		h.Write([]byte(cell))
		h.Write([]byte{0x1f})
	}
	h.Write([]byte{0x1e})
}
