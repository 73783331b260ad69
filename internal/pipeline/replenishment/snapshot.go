package replenishment

import (
	"strings"
	"time"

	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/table"
)

const snapshotLayout = "2006-01-02"

// Snapshot is the stock picture at the latest inventory date.
type Snapshot struct {
	Date  time.Time
	Empty bool
	Stock map[domain.Key]float64
}

// parseSnapshotDate reads a DD-MM-YYYY date by rewriting it to YYYY-MM-DD.
func parseSnapshotDate(raw string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return time.Time{}, false
	}
	day, month, year := pad2(parts[0]), pad2(parts[1]), parts[2]
	t, err := time.Parse(snapshotLayout, year+"-"+month+"-"+day)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// SelectSnapshot keeps the rows at the most recent date whose disposition is
// sellable and sums their ending balance per key. With no dated rows the
// snapshot is empty.
func (n *Normalizer) SelectSnapshot(t *table.Table) Snapshot {
	c := n.cfg.Columns
	dates := make([]time.Time, t.Len())
	valid := make([]bool, t.Len())

	var latest time.Time
	found := false
	for i := 0; i < t.Len(); i++ {
		d, ok := parseSnapshotDate(t.Get(i, c.FBADate))
		if !ok {
			n.warnings["fba"]++
			continue
		}
		dates[i], valid[i] = d, true
		if !found || d.After(latest) {
			latest, found = d, true
		}
	}

	snap := Snapshot{Stock: make(map[domain.Key]float64)}
	if !found {
		snap.Empty = true
		return snap
	}
	snap.Date = latest

	for i := 0; i < t.Len(); i++ {
		if !valid[i] || !dates[i].Equal(latest) {
			continue
		}
		if t.Get(i, c.FBADisposition) != n.cfg.SellableDisposition {
			continue
		}
		key := domain.Key{
			SKU: t.Get(i, c.FBASKU),
			FC:  n.normalizeFC(t.Get(i, c.FBAFC)),
		}
		if n.cfg.KeyByChannel {
			key.Channel = n.cfg.FBAChannel
		}
		snap.Stock[key] += n.quantity("fba", t.Get(i, c.FBABalance))
	}
	return snap
}
