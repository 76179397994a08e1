package market

import (
	"math"

	"market-crafter/internal/opt"
)

// Trailing windows, in days, used for sale velocity and sell count.
const (
	WindowDay   = 1
	WindowWeek  = 7
	WindowWeeks = 14

	// outlierSigma is how many standard deviations from the mean a sale
	// price may sit before it is dropped from the sell price average.
	outlierSigma = 2.0
)

// Statistics summarises the market for one item.
type Statistics struct {
	BuyPrice      Quality[float64] `json:"buy_price"`  // mean unit cost to acquire the target quantity
	SellPrice     Quality[float64] `json:"sell_price"` // outlier-trimmed mean sale price
	SellCount     Quality[float64] `json:"sell_count"` // mean units per sale over the last week
	VelocityDay   Quality[float64] `json:"velocity_day"`
	VelocityWeek  Quality[float64] `json:"velocity_week"`
	VelocityWeeks Quality[float64] `json:"velocity_weeks"`
}

// StatsOptions controls ComputeStatistics.
type StatsOptions struct {
	Count     int    // target quantity for the buy price (<= 0 means 1)
	HomeWorld string // market sales are judged against; "" = every world
}

// ComputeStatistics aggregates current listings and sale history for one item.
// Empty inputs yield absent statistics, never a panic.
func ComputeStatistics(current, history []Listing, o StatsOptions) Statistics {
	current = Clean(current)
	home := filter(Clean(history), homeFilter(o.HomeWorld))
	recent := filter(home, func(l Listing) bool { return l.DaysSince <= WindowWeek })

	count := o.Count
	if count <= 0 {
		count = 1
	}

	return Statistics{
		BuyPrice: byQuality(current, func(ls []Listing) opt.Number {
			return BuyPriceFor(ls, count)
		}),
		SellPrice: byQuality(home, SellPrice),
		SellCount: byQuality(recent, MeanCount),
		VelocityDay: byQuality(home, func(ls []Listing) opt.Number {
			return Velocity(ls, WindowDay)
		}),
		VelocityWeek: byQuality(home, func(ls []Listing) opt.Number {
			return Velocity(ls, WindowWeek)
		}),
		VelocityWeeks: byQuality(home, func(ls []Listing) opt.Number {
			return Velocity(ls, WindowWeeks)
		}),
	}
}

// BuyPriceFor returns the mean unit price paid when buying whole listings,
// cheapest first, until n units are covered or the listings run out.
func BuyPriceFor(listings []Listing, n int) opt.Number {
	sorted := Clean(listings)
	if len(sorted) == 0 {
		return opt.None[float64]()
	}
	SortByPrice(sorted)

	spent := 0.0
	units := 0
	for _, l := range sorted {
		if units >= n {
			break
		}
		spent += l.Value()
		units += l.Count
	}
	return opt.Some(spent / float64(units))
}

// SellPrice returns the mean unit price after dropping outliers more than
// two standard deviations from the mean.
func SellPrice(history []Listing) opt.Number {
	prices := make([]float64, 0, len(history))
	for _, l := range history {
		prices = append(prices, l.Price)
	}
	return mean(stripOutliers(prices))
}

// stripOutliers removes values further than outlierSigma deviations from
// the mean. The order of the survivors is preserved.
func stripOutliers(values []float64) []float64 {
	if len(values) < 2 {
		return values
	}
	m, sd := meanStdDev(values)
	limit := outlierSigma * sd
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if math.Abs(v-m) <= limit {
			kept = append(kept, v)
		}
	}
	return kept
}

// MeanCount returns the mean units per observation.
func MeanCount(listings []Listing) opt.Number {
	counts := make([]float64, 0, len(listings))
	for _, l := range listings {
		counts = append(counts, float64(l.Count))
	}
	return mean(counts)
}

// Velocity returns units sold per day across sales no older than window
// days. The span is the age of the oldest sale in the window; an empty
// window or a zero span yields no value.
func Velocity(history []Listing, window float64) opt.Number {
	units := 0
	span := 0.0
	seen := false
	for _, l := range history {
		if l.DaysSince > window {
			continue
		}
		seen = true
		units += l.Count
		span = math.Max(span, l.DaysSince)
	}
	if !seen || span <= 0 {
		return opt.None[float64]()
	}
	return opt.Some(float64(units) / span)
}

func mean(values []float64) opt.Number {
	if len(values) == 0 {
		return opt.None[float64]()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return opt.Some(sum / float64(len(values)))
}

func meanStdDev(values []float64) (float64, float64) {
	m := mean(values).UnwrapOr(0)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return m, math.Sqrt(ss / float64(len(values)))
}
