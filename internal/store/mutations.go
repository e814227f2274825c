package store

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
)

// UpsertProduct replaces the product with the same id in place, or appends
// it. Only structure is checked: id and name must be set and inventory must
// not be negative.
func (s *Store) UpsertProduct(ctx context.Context, p model.Product) (err error) {
	defer func() { s.metrics.ObserveMutation(string(OpUpsertProduct), result(err)) }()
	if strings.TrimSpace(p.ID) == "" {
		return invalid("product id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("product name is required")
	}
	if p.Inventory < 0 {
		return invalid("inventory must be >= 0")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := s.snap.Clone()
	if i := next.IndexOf(p.ID); i >= 0 {
		next.Products[i] = p.Clone()
	} else {
		next.Products = append(next.Products, p.Clone())
	}
	s.commit(ctx, OpUpsertProduct, next)
	obs.L().Info("product_upserted", "product_id", p.ID, "inventory", p.Inventory)
	return nil
}

// AddInventory adjusts stock by qty, which may be negative for write-downs.
// The result is floored at zero and saturates at math.MaxInt.
func (s *Store) AddInventory(ctx context.Context, productID string, qty int) (_ model.Product, err error) {
	defer func() { s.metrics.ObserveMutation(string(OpAddInventory), result(err)) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	i := s.snap.IndexOf(productID)
	if i < 0 {
		return model.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	next := s.snap.Clone()
	p := &next.Products[i]
	before := p.Inventory
	p.Inventory = addClamped(p.Inventory, qty)
	s.commit(ctx, OpAddInventory, next)
	obs.L().Info("inventory_adjusted", "product_id", productID, "delta", qty, "before", before, "after", p.Inventory)
	return p.Clone(), nil
}

// SetTarget sets the revenue target, clamping negatives to zero.
func (s *Store) SetTarget(ctx context.Context, target float64) (err error) {
	defer func() { s.metrics.ObserveMutation(string(OpSetTarget), result(err)) }()
	if math.IsNaN(target) || math.IsInf(target, 0) {
		return invalid("target must be finite")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	next := s.snap.Clone()
	next.Target = max(0, target)
	s.commit(ctx, OpSetTarget, next)
	obs.L().Info("target_set", "target", next.Target)
	return nil
}

// RecordSale validates items against the current snapshot and, if every
// line passes, decrements stock and prepends a new Sale. Quantities for the
// same product are summed before the stock check, so repeated lines cannot
// oversell. On any error nothing changes.
func (s *Store) RecordSale(ctx context.Context, items []model.SaleItem) (_ model.Sale, err error) {
	defer func() { s.metrics.ObserveMutation(string(OpRecordSale), result(err)) }()
	if len(items) == 0 {
		return model.Sale{}, invalid("sale has no items")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	cur := s.snap

	for _, it := range items {
		if cur.IndexOf(it.ProductID) < 0 {
			return model.Sale{}, fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
		}
		if it.Quantity <= 0 {
			return model.Sale{}, invalid("invalid quantity %d for %s", it.Quantity, it.ProductID)
		}
	}
	// Lines are checked against what earlier lines left over, so the
	// running total never exceeds inventory and cannot overflow.
	want := make(map[string]int, len(items))
	for _, it := range items {
		p := cur.Products[cur.IndexOf(it.ProductID)]
		if it.Quantity > p.Inventory-want[p.ID] {
			return model.Sale{}, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: addClamped(want[p.ID], it.Quantity),
				Available: p.Inventory,
			}
		}
		want[p.ID] += it.Quantity
	}

	next := cur.Clone()
	var revenue, cost float64
	for _, it := range items {
		p := next.Products[next.IndexOf(it.ProductID)]
		revenue += p.UnitPrice * float64(it.Quantity)
		cost += p.EffectiveUnitCost() * float64(it.Quantity)
	}
	for id, q := range want {
		next.Products[next.IndexOf(id)].Inventory -= q
	}
	sale := model.Sale{
		ID:      s.newID(),
		Date:    s.now().UTC().Format(model.DateLayout),
		Items:   append([]model.SaleItem(nil), items...),
		Revenue: revenue,
		Cost:    cost,
	}
	next.Sales = append([]model.Sale{sale}, next.Sales...)
	s.commit(ctx, OpRecordSale, next)

	s.metrics.SaleRecorded(revenue)
	obs.L().Info("sale_recorded",
		"sale_id", sale.ID,
		"lines", len(sale.Items),
		"revenue", sale.Revenue,
		"cost", sale.Cost,
	)
	return sale.Clone(), nil
}

// addClamped returns a+b held within [0, math.MaxInt].
func addClamped(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	return max(0, a+b)
}
