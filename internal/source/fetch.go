package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/andresuchdata/fba-replenish/internal/table"
)

// Fetcher returns the raw bytes stored at a location, plus a file name used
// to pick the parser.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (name string, data []byte, err error)
}

// TableFetcher returns an already tabular source, such as a database table.
type TableFetcher interface {
	FetchTable(ctx context.Context, location string) (name string, t *table.Table, err error)
}

// FileFetcher reads from the local filesystem.
type FileFetcher struct{}

func (FileFetcher) Fetch(ctx context.Context, location string) (string, []byte, error) {
	path := strings.TrimPrefix(location, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, errors.Wrapf(err, "read %s", path)
	}
	return filepath.Base(path), data, nil
}

// Router dispatches a location to a fetcher by its scheme. Locations without
// a scheme are local paths.
type Router struct {
	fetchers map[string]Fetcher
	tables   map[string]TableFetcher
}

func NewRouter() *Router {
	return &Router{
		fetchers: map[string]Fetcher{"file": FileFetcher{}},
		tables:   make(map[string]TableFetcher),
	}
}

// Handle registers a byte fetcher for a scheme such as "s3" or "drive".
func (r *Router) Handle(scheme string, f Fetcher) {
	r.fetchers[scheme] = f
}

// HandleTable registers a table fetcher for a scheme such as "db".
func (r *Router) HandleTable(scheme string, f TableFetcher) {
	r.tables[scheme] = f
}

// Load resolves the location into a parsed table.
func (r *Router) Load(ctx context.Context, location string) (string, *table.Table, error) {
	scheme := Scheme(location)
	if tf, ok := r.tables[scheme]; ok {
		return tf.FetchTable(ctx, location)
	}
	f, ok := r.fetchers[scheme]
	if !ok {
		return "", nil, errors.Errorf("no fetcher registered for scheme %q", scheme)
	}
	name, data, err := f.Fetch(ctx, location)
	if err != nil {
		return "", nil, err
	}
	t, err := table.ParseBytes(name, data)
	if err != nil {
		return name, nil, err
	}
	return name, t, nil
}

// Scheme returns the scheme part of a location, "file" when absent.
func Scheme(location string) string {
	if scheme, _, ok := strings.Cut(location, "://"); ok && scheme != "" {
		return strings.ToLower(scheme)
	}
	return "file"
}

// SplitLocation returns the part of a location after its scheme.
func SplitLocation(location string) string {
	if _, rest, ok := strings.Cut(location, "://"); ok {
		return rest
	}
	return location
}
