// Package report computes derived figures from a store snapshot.
// Everything here is a pure function of its input; nothing is cached.
package report

import (
	"sort"
	"time"

	"github.com/fairyhunter13/gng-store/internal/model"
)

// Summary holds the headline dashboard figures.
type Summary struct {
	Income          float64 `json:"income"`
	Expenses        float64 `json:"expenses"`
	Profit          float64 `json:"profit"`
	Target          float64 `json:"target"`
	TargetRemaining float64 `json:"target_remaining"`
}

// Summarize recomputes income, expenses, profit and the remaining target.
func Summarize(s model.Snapshot) Summary {
	var income, expenses float64
	for _, sale := range s.Sales {
		income += sale.Revenue
		expenses += sale.Cost
	}
	return Summary{
		Income:          income,
		Expenses:        expenses,
		Profit:          income - expenses,
		Target:          s.Target,
		TargetRemaining: max(0, s.Target-income),
	}
}

// RecentSales returns up to n of the most recent sales.
func RecentSales(s model.Snapshot, n int) []model.Sale {
	if n < 0 || n > len(s.Sales) {
		n = len(s.Sales)
	}
	out := make([]model.Sale, n)
	for i := range n {
		out[i] = s.Sales[i].Clone()
	}
	return out
}

// DayTotals aggregates sales recorded on one calendar day.
type DayTotals struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
	Sales   int     `json:"sales"`
}

// DailyTrend groups sales by calendar day in loc, oldest day first.
// Sales whose date cannot be parsed are skipped.
func DailyTrend(s model.Snapshot, loc *time.Location) []DayTotals {
	if loc == nil {
		loc = time.UTC
	}
	byDay := make(map[string]*DayTotals)
	for _, sale := range s.Sales {
		at, err := time.Parse(time.RFC3339Nano, sale.Date)
		if err != nil {
			continue
		}
		key := at.In(loc).Format(time.DateOnly)
		d, ok := byDay[key]
		if !ok {
			d = &DayTotals{Day: key}
			byDay[key] = d
		}
		d.Revenue += sale.Revenue
		d.Cost += sale.Cost
		d.Profit = d.Revenue - d.Cost
		d.Sales++
	}
	out := make([]DayTotals, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// Materials is the raw-material cost split across all sales.
type Materials struct {
	Wax     float64 `json:"wax"`
	Perfume float64 `json:"perfume"`
}

const (
	waxShare     = 0.7
	perfumeShare = 0.3
)

// RawMaterials splits the material cost of every sold unit into wax and
// perfume using the current catalogue. A missing component is estimated
// from UnitCost (70% wax, 30% perfume). Lines whose product is gone are
// skipped.
func RawMaterials(s model.Snapshot) Materials {
	byID := make(map[string]model.Product, len(s.Products))
	for _, p := range s.Products {
		byID[p.ID] = p
	}
	var m Materials
	for _, sale := range s.Sales {
		for _, it := range sale.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				continue
			}
			wax := p.UnitCost * waxShare
			if p.WaxCostPerUnit != nil {
				wax = *p.WaxCostPerUnit
			}
			perfume := p.UnitCost * perfumeShare
			if p.PerfumeCostPerUnit != nil {
				perfume = *p.PerfumeCostPerUnit
			}
			m.Wax += wax * float64(it.Quantity)
			m.Perfume += perfume * float64(it.Quantity)
		}
	}
	return m
}

// StockLevel describes how full a product's stock is.
type StockLevel struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Inventory int     `json:"inventory"`
	Capacity  int     `json:"capacity"`
	Fill      float64 `json:"fill"`
}

// StockLevels reports inventory against capacity for every product, in
// catalogue order. Fill is clamped to [0, 1].
func StockLevels(s model.Snapshot) []StockLevel {
	out := make([]StockLevel, 0, len(s.Products))
	for _, p := range s.Products {
		c := p.Capacity()
		out = append(out, StockLevel{
			ProductID: p.ID,
			Name:      p.Name,
			Inventory: p.Inventory,
			Capacity:  c,
			Fill:      min(1, max(0, float64(p.Inventory)/float64(c))),
		})
	}
	return out
}
