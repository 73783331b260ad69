package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/fba-replenish/internal/cache"
	"github.com/andresuchdata/fba-replenish/internal/domain"
	"github.com/andresuchdata/fba-replenish/internal/export"
	"github.com/andresuchdata/fba-replenish/internal/pipeline"
	"github.com/andresuchdata/fba-replenish/internal/source"
	"github.com/andresuchdata/fba-replenish/internal/storage"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoReport        = errors.New("no report generated yet")
	ErrNoStorage       = errors.New("object storage is not configured")
)

// session is one operator's workbench: four source slots and the latest
// result computed from them.
type session struct {
	id        string
	createdAt time.Time
	gate      *source.Gate

	mu      sync.Mutex
	version int // bumped on every source change
	result  *domain.ResultSet
}

// SessionView is the client facing state of a session.
type SessionView struct {
	ID        string                `json:"id"`
	CreatedAt time.Time             `json:"created_at"`
	Ready     bool                  `json:"ready"`
	Sources   []source.SourceStatus `json:"sources"`
	Summary   *domain.Summary       `json:"summary,omitempty"`
}

type ReplenishmentService struct {
	pipeline pipeline.Pipeline
	metrics  pipeline.Recorder
	loader   *source.Loader
	cache    cache.ReportCache
	store    storage.ObjectStorage

	mu       sync.RWMutex
	sessions map[string]*session
	mapping  *source.Outcome
	now      func() time.Time
}

// NewReplenishmentService wires the engine to its collaborators. store may be
// nil when exports are only downloaded.
func NewReplenishmentService(p pipeline.Pipeline, loader *source.Loader, cacheImpl cache.ReportCache, store storage.ObjectStorage) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ReplenishmentService{
		pipeline: p,
		loader:   loader,
		cache:    cacheImpl,
		store:    store,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

// LoadMapping loads the shared SKU mapping. Sessions created afterwards start
// with it in their mapping slot. Replacing an earlier mapping drops cached
// reports.
func (s *ReplenishmentService) LoadMapping(ctx context.Context, location string) (source.SourceStatus, error) {
	out := s.loader.Load(ctx, source.KindMapping, location)
	st := source.NewGate().Accept(out)
	if !out.Ok() {
		return st, fmt.Errorf("sku mapping %s: %s", location, st.Message)
	}

	s.mu.Lock()
	reload := s.mapping != nil
	s.mapping = &out
	s.mu.Unlock()

	if reload {
		if err := s.cache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("replenishment: cache invalidate failed")
		}
	}
	return st, nil
}

func (s *ReplenishmentService) CreateSession() SessionView {
	sess := &session{
		id:        uuid.NewString(),
		createdAt: s.now(),
		gate:      source.NewGate(),
	}

	s.mu.Lock()
	if s.mapping != nil {
		sess.gate.Accept(*s.mapping)
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	log.Info().Str("session_id", sess.id).Msg("session created")
	return sess.view()
}

func (s *ReplenishmentService) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *ReplenishmentService) Session(id string) (SessionView, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionView{}, err
	}
	return sess.view(), nil
}

// Upload parses and validates file content into a source slot. A rejected
// file clears the slot without touching the others.
func (s *ReplenishmentService) Upload(ctx context.Context, id string, kind source.Kind, name string, data []byte) (source.SourceStatus, error) {
	sess, err := s.get(id)
	if err != nil {
		return source.SourceStatus{}, err
	}
	out := source.FromBytes(kind, name, data, s.loader.Schema())
	return sess.accept(out), nil
}

// Fetch loads a source slot from a location such as s3://bucket/key.
func (s *ReplenishmentService) Fetch(ctx context.Context, id string, kind source.Kind, location string) (source.SourceStatus, error) {
	sess, err := s.get(id)
	if err != nil {
		return source.SourceStatus{}, err
	}
	return sess.accept(s.loader.Load(ctx, kind, location)), nil
}

// Generate runs the engine over the session's current sources and replaces
// its result set. It fails with *source.NotReadyError until every source is
// valid.
func (s *ReplenishmentService) Generate(ctx context.Context, id string) (*domain.ResultSet, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	version := sess.version
	inputs, err := sess.gate.Snapshot()
	sess.mu.Unlock()
	if err != nil {
		return nil, err
	}

	rs := s.run(ctx, inputs)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.version != version {
		// Sources changed while running; the result no longer matches them.
		log.Warn().Str("session_id", id).Msg("sources changed during generate; result discarded")
		return rs, nil
	}
	sess.result = rs
	return rs, nil
}

func (s *ReplenishmentService) run(ctx context.Context, inputs source.Inputs) *domain.ResultSet {
	fp := s.pipeline.Fingerprint(inputs)
	if cached, ok, err := s.cache.Get(ctx, fp); err == nil && ok {
		log.Debug().Str("fingerprint", fp).Msg("replenishment: report cache hit")
		s.metrics.ObserveCacheHit()
		cached.GeneratedAt = s.now()
		return cached
	} else if err != nil {
		log.Warn().Err(err).Msg("replenishment: cache get report failed")
	}

	start := time.Now()
	rs := s.pipeline.Run(inputs)
	s.metrics.ObserveRun(inputs, rs, time.Since(start))
	if err := s.cache.Set(ctx, fp, rs); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache set report failed")
	}
	return &rs
}

// Metrics returns run counters since startup.
func (s *ReplenishmentService) Metrics() pipeline.Metrics {
	return s.metrics.Snapshot()
}

// Records returns the latest result filtered by view.
func (s *ReplenishmentService) Records(id string, v domain.View) ([]domain.Record, error) {
	rs, err := s.result(id)
	if err != nil {
		return nil, err
	}
	return rs.Filter(v), nil
}

// Export renders the view as CSV. An empty view yields export.ErrNoRows.
func (s *ReplenishmentService) Export(id string, v domain.View) (string, []byte, error) {
	rs, err := s.result(id)
	if err != nil {
		return "", nil, err
	}
	data, err := export.Render(*rs, v)
	if err != nil {
		return "", nil, err
	}
	return export.FileName(v), data, nil
}

// Publish uploads the view export to object storage under prefix and returns
// the object key.
func (s *ReplenishmentService) Publish(ctx context.Context, id string, v domain.View, prefix string) (string, error) {
	if s.store == nil {
		return "", ErrNoStorage
	}
	name, data, err := s.Export(id, v)
	if err != nil {
		return "", err
	}
	key := path.Join(prefix, id, name)
	if err := s.store.UploadObject(ctx, key, data, "text/csv"); err != nil {
		return "", err
	}
	log.Info().Str("session_id", id).Str("key", key).Msg("export published")
	return key, nil
}

func (s *ReplenishmentService) get(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *ReplenishmentService) result(id string) (*domain.ResultSet, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.result == nil {
		return nil, ErrNoReport
	}
	return sess.result, nil
}

// accept stores an outcome and drops the result computed from older inputs.
func (sess *session) accept(out source.Outcome) source.SourceStatus {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	st := sess.gate.Accept(out)
	sess.version++
	sess.result = nil

	ev := log.Info()
	if st.Status != source.StatusValid {
		ev = log.Warn()
	}
	ev.Str("session_id", sess.id).
		Str("source", string(st.Kind)).
		Str("status", string(st.Status)).
		Int("rows", st.Rows).
		Msg(st.Message)
	return st
}

func (sess *session) view() SessionView {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	v := SessionView{
		ID:        sess.id,
		CreatedAt: sess.createdAt,
		Ready:     sess.gate.Ready(),
		Sources:   sess.gate.Statuses(),
	}
	if sess.result != nil {
		summary := sess.result.Summary
		v.Summary = &summary
	}
	return v
}
