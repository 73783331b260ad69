package source

import (
	"fmt"
	"strings"
	"sync"

	"github.com/andresuchdata/fba-replenish/internal/table"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusValid   Status = "valid"
	StatusError   Status = "error"
)

// SourceStatus is what collaborators display for one source.
type SourceStatus struct {
	Kind    Kind   `json:"kind"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	Rows    int    `json:"rows"`
}

// Inputs is an immutable view of the four validated tables for one run.
type Inputs struct {
	Sale    *table.Table
	FBA     *table.Table
	Uniware *table.Table
	Mapping *table.Table
}

// NotReadyError lists the sources that keep a run from starting.
type NotReadyError struct {
	Kinds []Kind
}

func (e *NotReadyError) Error() string {
	names := make([]string, len(e.Kinds))
	for i, k := range e.Kinds {
		names[i] = string(k)
	}
	return "sources not ready: " + strings.Join(names, ", ")
}

// Gate tracks per-source validation status and decides readiness.
type Gate struct {
	mu       sync.RWMutex
	statuses map[Kind]SourceStatus
	tables   map[Kind]*table.Table
}

// NewGate returns a gate with every source pending.
func NewGate() *Gate {
	g := &Gate{
		statuses: make(map[Kind]SourceStatus, len(Kinds)),
		tables:   make(map[Kind]*table.Table, len(Kinds)),
	}
	for _, k := range Kinds {
		g.statuses[k] = SourceStatus{Kind: k, Status: StatusPending, Message: "waiting for file"}
	}
	return g
}

// Accept records an outcome. A failed outcome clears any table previously held
// for that source; other sources are untouched.
func (g *Gate) Accept(o Outcome) SourceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := SourceStatus{Kind: o.Kind, Name: o.Name}
	if o.Ok() {
		st.Status = StatusValid
		st.Rows = o.Table.Len()
		st.Message = fmt.Sprintf("loaded %d rows", st.Rows)
		g.tables[o.Kind] = o.Table
	} else {
		st.Status = StatusError
		if header, ok := o.MissingHeader(); ok {
			st.Message = fmt.Sprintf("missing column: %s", header)
		} else if o.Err != nil {
			st.Message = o.Err.Error()
		} else {
			st.Message = "no table"
		}
		delete(g.tables, o.Kind)
	}
	g.statuses[o.Kind] = st
	return st
}

// Statuses returns the status of every source in reporting order.
func (g *Gate) Statuses() []SourceStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]SourceStatus, 0, len(Kinds))
	for _, k := range Kinds {
		out = append(out, g.statuses[k])
	}
	return out
}

// Ready reports whether all four sources hold a validated table.
func (g *Gate) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.missingLocked()) == 0
}

// Snapshot returns the current tables for a run, or a NotReadyError.
func (g *Gate) Snapshot() (Inputs, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if missing := g.missingLocked(); len(missing) > 0 {
		return Inputs{}, &NotReadyError{Kinds: missing}
	}
	return Inputs{
		Sale:    g.tables[KindSale],
		FBA:     g.tables[KindFBA],
		Uniware: g.tables[KindUniware],
		Mapping: g.tables[KindMapping],
	}, nil
}

func (g *Gate) missingLocked() []Kind {
	var missing []Kind
	for _, k := range Kinds {
		if g.statuses[k].Status != StatusValid || g.tables[k] == nil {
			missing = append(missing, k)
		}
	}
	return missing
}
