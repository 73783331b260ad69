package source

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Loader fetches, parses and validates sources concurrently.
type Loader struct {
	router *Router
	schema Schema
}

func NewLoader(router *Router, schema Schema) *Loader {
	return &Loader{router: router, schema: schema}
}

// Schema returns the required headers the loader validates against.
func (l *Loader) Schema() Schema {
	return l.schema
}

// Load fetches a single source.
func (l *Loader) Load(ctx context.Context, kind Kind, location string) Outcome {
	start := time.Now()
	name, t, err := l.router.Load(ctx, location)
	if err != nil {
		log.Error().Stack().Err(err).Str("source", string(kind)).Str("location", location).Msg("failed to load source")
		return Outcome{Kind: kind, Name: name, Err: err}
	}

	out := Check(kind, name, t, l.schema)
	ev := log.Info()
	if !out.Ok() {
		ev = log.Warn().Err(out.Err)
	}
	ev.Str("source", string(kind)).
		Str("name", name).
		Int("rows", t.Len()).
		Dur("took", time.Since(start)).
		Msg("source loaded")
	return out
}

// LoadAll loads every location in parallel. The returned outcomes follow
// Kinds order; a failure in one source never stops the others.
func (l *Loader) LoadAll(ctx context.Context, locations map[Kind]string) []Outcome {
	outcomes := make([]Outcome, len(Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		location, ok := locations[kind]
		if !ok || location == "" {
			outcomes[i] = Outcome{Kind: kind}
			continue
		}
		g.Go(func() error {
			outcomes[i] = l.Load(gctx, kind, location)
			return nil
		})
	}
	_ = g.Wait()

	// Unset locations stay pending rather than failing.
	out := outcomes[:0]
	for _, o := range outcomes {
		if o.Table == nil && o.Err == nil {
			continue
		}
		out = append(out, o)
	}
	return out
}
