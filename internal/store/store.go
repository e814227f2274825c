// Package store holds the single in-memory snapshot of products, sales and
// revenue target, and the only operations allowed to change it.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/fairyhunter13/gng-store/internal/kv"
	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
	"github.com/fairyhunter13/gng-store/internal/report"
)

// Op names a mutation.
type Op string

const (
	OpUpsertProduct Op = "upsert_product"
	OpAddInventory  Op = "add_inventory"
	OpSetTarget     Op = "set_target"
	OpRecordSale    Op = "record_sale"
)

// Change is delivered to listeners after every successful mutation.
type Change struct {
	Op       Op
	Snapshot model.Snapshot
}

// Listener receives changes synchronously, in mutation order. A listener
// may read from the store but must not call a mutation.
type Listener func(Change)

// Store owns the snapshot. Mutations are serialized end to end; reads
// return deep copies.
type Store struct {
	backend        kv.Backend
	key            string
	persistTimeout time.Duration
	metrics        *obs.Metrics
	now            func() time.Time
	newID          func() string

	writeMu sync.Mutex
	mu      sync.RWMutex
	snap    model.Snapshot

	subMu   sync.Mutex
	subs    map[uint64]Listener
	nextSub uint64
}

// Option customizes a Store.
type Option func(*Store)

// WithKey sets the key the snapshot is persisted under.
func WithKey(key string) Option { return func(s *Store) { s.key = key } }

// WithPersistTimeout bounds each durable read and write.
func WithPersistTimeout(d time.Duration) Option { return func(s *Store) { s.persistTimeout = d } }

// WithMetrics reports mutation outcomes to m.
func WithMetrics(m *obs.Metrics) Option { return func(s *Store) { s.metrics = m } }

// WithClock overrides the time source used for sale dates.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithIDGenerator overrides sale id generation.
func WithIDGenerator(f func() string) Option { return func(s *Store) { s.newID = f } }

func newSaleID() string {
	return "sale_" + uuid.Must(uuid.NewV7()).String()
}

// Open builds a Store and loads its snapshot from backend. Missing or
// invalid persisted data yields the default snapshot; Open never fails.
// A nil backend keeps state in memory only.
func Open(ctx context.Context, backend kv.Backend, opts ...Option) *Store {
	if backend == nil {
		backend = kv.NewMemory()
	}
	s := &Store{
		backend: backend,
		key:     DefaultKey,
		now:     time.Now,
		newID:   newSaleID,
		subs:    make(map[uint64]Listener),
	}
	for _, o := range opts {
		o(s)
	}
	s.snap = s.load(ctx)
	obs.L().Info("store_loaded",
		"key", s.key,
		"products", len(s.snap.Products),
		"sales", len(s.snap.Sales),
		"target", s.snap.Target,
	)
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Products returns the catalogue in insertion order.
func (s *Store) Products() []model.Product {
	return s.Snapshot().Products
}

// Sales returns all sales, most recent first.
func (s *Store) Sales() []model.Sale {
	return s.Snapshot().Sales
}

// Target returns the revenue target.
func (s *Store) Target() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Target
}

// Summary recomputes the derived metrics from the current snapshot.
func (s *Store) Summary() report.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.Summarize(s.snap)
}

// ProductByID looks a product up by id.
func (s *Store) ProductByID(id string) (model.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.snap.IndexOf(id); i >= 0 {
		return s.snap.Products[i].Clone(), true
	}
	return model.Product{}, false
}

// ProductByName looks a product up by exact name, ignoring case.
func (s *Store) ProductByName(name string) (model.Product, bool) {
	fold := cases.Fold()
	want := fold.String(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.snap.Products {
		if fold.String(p.Name) == want {
			return p.Clone(), true
		}
	}
	return model.Product{}, false
}

// Subscribe registers fn for future changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// commit installs next, persists it and notifies listeners. Callers hold
// writeMu.
func (s *Store) commit(ctx context.Context, op Op, next model.Snapshot) {
	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()

	s.persist(ctx, next)

	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()
	for _, fn := range listeners {
		fn(Change{Op: op, Snapshot: next.Clone()})
	}
}
