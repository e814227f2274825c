package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestEffectiveUnitCost(t *testing.T) {
	cases := []struct {
		name string
		p    Product
		want float64
	}{
		{"breakdown", Product{UnitCost: 6, WaxCostPerUnit: ptr(4.2), PerfumeCostPerUnit: ptr(1.8)}, 6},
		{"wax only", Product{UnitCost: 9, WaxCostPerUnit: ptr(3.0)}, 3},
		{"no breakdown", Product{UnitCost: 7}, 7},
		{"zero breakdown falls back", Product{UnitCost: 5, WaxCostPerUnit: ptr(0.0), PerfumeCostPerUnit: ptr(0.0)}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.p.EffectiveUnitCost(), 1e-9)
		})
	}
}

func TestCapacityDefault(t *testing.T) {
	assert.Equal(t, DefaultStockCapacity, Product{}.Capacity())
	assert.Equal(t, DefaultStockCapacity, Product{StockCapacity: ptr(0)}.Capacity())
	assert.Equal(t, 20, Product{StockCapacity: ptr(20)}.Capacity())
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	orig := Snapshot{
		Products: []Product{{ID: "a", WaxCostPerUnit: ptr(1.0)}},
		Sales:    []Sale{{ID: "s1", Items: []SaleItem{{ProductID: "a", Quantity: 1}}}},
		Target:   10,
	}
	c := orig.Clone()
	*c.Products[0].WaxCostPerUnit = 99
	c.Products[0].Inventory = 5
	c.Sales[0].Items[0].Quantity = 42

	assert.Equal(t, 1.0, *orig.Products[0].WaxCostPerUnit)
	assert.Equal(t, 0, orig.Products[0].Inventory)
	assert.Equal(t, 1, orig.Sales[0].Items[0].Quantity)
}

func TestIndexOf(t *testing.T) {
	s := Snapshot{Products: []Product{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, 1, s.IndexOf("b"))
	assert.Equal(t, -1, s.IndexOf("zz"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "rose-jar-candle", Slug("  Rose   Jar\tCandle "))
	assert.Equal(t, "laddoo", Slug("Laddoo"))
	assert.Equal(t, "", Slug("   "))
}
