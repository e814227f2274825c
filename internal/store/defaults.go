package store

import "github.com/fairyhunter13/gng-store/internal/model"

// DefaultKey is the key the snapshot is persisted under.
const DefaultKey = "gng-store-v1"

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

// Default returns the seed catalogue used when nothing valid is persisted.
func Default() model.Snapshot {
	return model.Snapshot{
		Products: []model.Product{
			{
				ID:                 "laddoo",
				Name:               "Laddoo Candle",
				SKU:                "LAD-001",
				Inventory:          17,
				UnitPrice:          15,
				UnitCost:           6,
				WaxCostPerUnit:     f64(4.2),
				PerfumeCostPerUnit: f64(1.8),
				StockCapacity:      intp(20),
			},
			{
				ID:                 "modak",
				Name:               "Modak Candle",
				SKU:                "MOD-001",
				Inventory:          17,
				UnitPrice:          18,
				UnitCost:           7,
				WaxCostPerUnit:     f64(4.9),
				PerfumeCostPerUnit: f64(2.1),
				StockCapacity:      intp(20),
			},
		},
		Sales:  []model.Sale{},
		Target: 5000,
	}
}
