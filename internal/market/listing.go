package market

import (
	"sort"
	"strings"

	"market-crafter/internal/opt"
)

// Listing is one market observation: a current sale offer or a past sale.
type Listing struct {
	Price     float64 `json:"price"` // per unit
	Count     int     `json:"count"`
	IsHQ      bool    `json:"is_hq"`
	World     string  `json:"world,omitempty"`
	Name      string  `json:"name,omitempty"` // seller / buyer, opaque
	DaysSince float64 `json:"days_since"`
}

// Value is the total cost of buying the whole listing.
func (l Listing) Value() float64 {
	return l.Price * float64(l.Count)
}

// Valid reports whether the listing can take part in any computation.
func (l Listing) Valid() bool {
	return l.Count > 0
}

// Clean returns the valid listings, preserving order.
func Clean(listings []Listing) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Valid() {
			out = append(out, l)
		}
	}
	return out
}

// Quality holds one statistic computed over HQ-only, NQ-only and all listings.
type Quality[T any] struct {
	HQ opt.Option[T] `json:"hq"`
	NQ opt.Option[T] `json:"nq"`
	AQ opt.Option[T] `json:"aq"`
}

// Pick returns the HQ value when hq is set, otherwise the any-quality value.
func (q Quality[T]) Pick(hq bool) opt.Option[T] {
	if hq {
		return q.HQ
	}
	return q.AQ
}

// byQuality evaluates fn over the three quality partitions of listings.
func byQuality(listings []Listing, fn func([]Listing) opt.Number) Quality[float64] {
	var hq, nq []Listing
	for _, l := range listings {
		if l.IsHQ {
			hq = append(hq, l)
		} else {
			nq = append(nq, l)
		}
	}
	return Quality[float64]{
		HQ: fn(hq),
		NQ: fn(nq),
		AQ: fn(listings),
	}
}

// filter returns the listings keep accepts.
func filter(listings []Listing, keep func(Listing) bool) []Listing {
	var out []Listing
	for _, l := range listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// homeFilter keeps listings from the home world. An empty home keeps all.
func homeFilter(home string) func(Listing) bool {
	return func(l Listing) bool {
		return home == "" || strings.EqualFold(l.World, home)
	}
}

// SortByPrice sorts listings ascending by unit price in place.
func SortByPrice(listings []Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].Price < listings[j].Price
	})
}

// TotalCount sums Count over listings.
func TotalCount(listings []Listing) int {
	n := 0
	for _, l := range listings {
		n += l.Count
	}
	return n
}

// TotalValue sums Price*Count over listings.
func TotalValue(listings []Listing) float64 {
	v := 0.0
	for _, l := range listings {
		v += l.Value()
	}
	return v
}
