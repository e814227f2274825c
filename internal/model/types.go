// Package model defines domain types used by the service.
package model

import (
	"slices"
	"strings"
	"unicode"
)

// DefaultStockCapacity is the display ceiling used when a product has none.
const DefaultStockCapacity = 200

// DateLayout formats sale dates. Fixed millisecond width keeps UTC dates
// sortable as plain strings.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Product is a sellable catalogue entry.
type Product struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	SKU                string   `json:"sku,omitempty"`
	Inventory          int      `json:"inventory"`
	UnitPrice          float64  `json:"unitPrice"`
	UnitCost           float64  `json:"unitCost"`
	WaxCostPerUnit     *float64 `json:"waxCostPerUnit,omitempty"`
	PerfumeCostPerUnit *float64 `json:"perfumeCostPerUnit,omitempty"`
	StockCapacity      *int     `json:"stockCapacity,omitempty"`
}

// EffectiveUnitCost is the cost basis used at sale time: the wax plus
// perfume breakdown when it is positive, otherwise UnitCost.
func (p Product) EffectiveUnitCost() float64 {
	var c float64
	if p.WaxCostPerUnit != nil {
		c += *p.WaxCostPerUnit
	}
	if p.PerfumeCostPerUnit != nil {
		c += *p.PerfumeCostPerUnit
	}
	if c > 0 {
		return c
	}
	return p.UnitCost
}

// Capacity returns StockCapacity or DefaultStockCapacity when unset.
func (p Product) Capacity() int {
	if p.StockCapacity == nil || *p.StockCapacity <= 0 {
		return DefaultStockCapacity
	}
	return *p.StockCapacity
}

// Clone returns a copy that shares no pointers with p.
func (p Product) Clone() Product {
	out := p
	if p.WaxCostPerUnit != nil {
		v := *p.WaxCostPerUnit
		out.WaxCostPerUnit = &v
	}
	if p.PerfumeCostPerUnit != nil {
		v := *p.PerfumeCostPerUnit
		out.PerfumeCostPerUnit = &v
	}
	if p.StockCapacity != nil {
		v := *p.StockCapacity
		out.StockCapacity = &v
	}
	return out
}

// SaleItem is one line of a sale.
type SaleItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Sale is an immutable record of a completed transaction.
type Sale struct {
	ID      string     `json:"id"`
	Date    string     `json:"date"`
	Items   []SaleItem `json:"items"`
	Revenue float64    `json:"revenue"`
	Cost    float64    `json:"cost"`
}

// Clone returns a copy with its own Items slice.
func (s Sale) Clone() Sale {
	out := s
	out.Items = slices.Clone(s.Items)
	return out
}

// Snapshot is the complete store state at a point in time.
// Products keep insertion order and Sales are most recent first.
type Snapshot struct {
	Products []Product `json:"products"`
	Sales    []Sale    `json:"sales"`
	Target   float64   `json:"target"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Products: make([]Product, len(s.Products)),
		Sales:    make([]Sale, len(s.Sales)),
		Target:   s.Target,
	}
	for i, p := range s.Products {
		out.Products[i] = p.Clone()
	}
	for i, sl := range s.Sales {
		out.Sales[i] = sl.Clone()
	}
	return out
}

// IndexOf returns the position of the product with the given id, or -1.
func (s Snapshot) IndexOf(id string) int {
	return slices.IndexFunc(s.Products, func(p Product) bool { return p.ID == id })
}

// Slug derives a product id from a display name: trimmed, lower-cased,
// with each run of whitespace replaced by a single dash.
func Slug(name string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(strings.TrimSpace(name)), unicode.IsSpace), "-")
}
