package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/fairyhunter13/gng-store/internal/kv"
	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
)

// persisted mirrors model.Snapshot with pointers so missing fields can be
// told apart from zero values.
type persisted struct {
	Products *[]model.Product `json:"products"`
	Sales    *[]model.Sale    `json:"sales"`
	Target   *float64         `json:"target"`
}

// decode parses a stored snapshot and rejects anything structurally off.
func decode(b []byte) (model.Snapshot, error) {
	var p persisted
	if err := json.Unmarshal(b, &p); err != nil {
		return model.Snapshot{}, err
	}
	if p.Products == nil || p.Sales == nil || p.Target == nil {
		return model.Snapshot{}, errors.New("missing products, sales or target")
	}
	if math.IsNaN(*p.Target) || *p.Target < 0 {
		return model.Snapshot{}, fmt.Errorf("bad target %v", *p.Target)
	}
	for i, pr := range *p.Products {
		if pr.ID == "" || pr.Inventory < 0 {
			return model.Snapshot{}, fmt.Errorf("bad product at %d", i)
		}
	}
	return model.Snapshot{Products: *p.Products, Sales: *p.Sales, Target: *p.Target}, nil
}

// load reads the persisted snapshot, falling back to Default on any problem.
func (s *Store) load(ctx context.Context) model.Snapshot {
	ctx, cancel := s.persistContext(ctx)
	defer cancel()
	b, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			obs.L().Warn("store_load_failed", "key", s.key, "error", err)
		}
		return Default()
	}
	snap, err := decode(b)
	if err != nil {
		obs.L().Warn("store_load_invalid", "key", s.key, "error", err)
		return Default()
	}
	return snap.Clone()
}

// persist writes snap under the store key. Failures are logged and counted
// but never returned: the in-memory snapshot stays authoritative.
func (s *Store) persist(ctx context.Context, snap model.Snapshot) {
	b, err := json.Marshal(snap)
	if err != nil {
		obs.L().Error("persist_failed", "key", s.key, "error", err)
		s.metrics.PersistFailed()
		return
	}
	ctx, cancel := s.persistContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.backend.Put(ctx, s.key, b); err != nil {
		obs.L().Warn("persist_failed", "key", s.key, "bytes", len(b), "error", err)
		s.metrics.PersistFailed()
	}
}

func (s *Store) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.persistTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.persistTimeout)
}
