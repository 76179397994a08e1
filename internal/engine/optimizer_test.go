package engine

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"market-crafter/internal/market"
)

// frozenClock never advances, so the search always runs to completion.
func frozenClock() func() time.Time {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

// bruteForce returns the minimum cost over all subsets covering minCount,
// or -1 when none does.
func bruteForce(listings []market.Listing, minCount int) float64 {
	best := -1.0
	n := len(listings)
	for mask := 0; mask < 1<<n; mask++ {
		count, value := 0, 0.0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				count += listings[i].Count
				value += listings[i].Value()
			}
		}
		if count >= minCount && (best < 0 || value < best) {
			best = value
		}
	}
	return best
}

func TestOptimizePurchase_SpecExample(t *testing.T) {
	listings := []market.Listing{
		{Price: 10, Count: 5},
		{Price: 20, Count: 3},
		{Price: 15, Count: 10},
	}
	got := OptimizePurchase(listings, 12, PurchaseOptions{Now: frozenClock()})
	if market.TotalCount(got) < 12 {
		t.Fatalf("covered %d units, want >= 12", market.TotalCount(got))
	}
	if cost := market.TotalValue(got); cost != 200 {
		t.Errorf("cost = %v, want 200", cost)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Price > got[i].Price {
			t.Errorf("result not sorted by unit price: %+v", got)
		}
	}
}

func TestOptimizePurchase_BeatsGreedy(t *testing.T) {
	// Greedy by total value takes the 4 and the 9 and cannot drop either;
	// the 10-unit listing alone is cheaper.
	listings := []market.Listing{
		{Price: 1, Count: 4},
		{Price: 1.5, Count: 6},
		{Price: 1, Count: 10},
	}
	greedy := GreedyPurchase(listings, 10)
	opt := OptimizePurchase(listings, 10, PurchaseOptions{Now: frozenClock()})
	if market.TotalValue(greedy) != 13 {
		t.Errorf("greedy cost = %v, want 13", market.TotalValue(greedy))
	}
	if market.TotalValue(opt) != 10 || len(opt) != 1 {
		t.Errorf("optimal = %+v, want the single 10-unit listing", opt)
	}

	listings = []market.Listing{
		{Price: 1, Count: 4},
		{Price: 1, Count: 4},
		{Price: 1.2, Count: 8},
		{Price: 2, Count: 5},
	}
	greedy = GreedyPurchase(listings, 9)
	opt = OptimizePurchase(listings, 9, PurchaseOptions{Now: frozenClock()})
	if want := bruteForce(listings, 9); math.Abs(market.TotalValue(opt)-want) > 1e-9 {
		t.Errorf("optimal cost = %v, want %v", market.TotalValue(opt), want)
	}
	if market.TotalValue(opt) > market.TotalValue(greedy) {
		t.Errorf("optimal %v worse than greedy %v", market.TotalValue(opt), market.TotalValue(greedy))
	}
}

func TestOptimizePurchase_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(10)
		listings := make([]market.Listing, n)
		total := 0
		for i := range listings {
			listings[i] = market.Listing{
				Price: float64(1 + rng.Intn(50)),
				Count: rng.Intn(20), // zero counts must be ignored
			}
			total += listings[i].Count
		}
		minCount := 1 + rng.Intn(total+5)

		got := OptimizePurchase(listings, minCount, PurchaseOptions{Now: frozenClock()})
		want := bruteForce(market.Clean(listings), minCount)
		if want < 0 {
			if got != nil {
				t.Fatalf("trial %d: infeasible (total %d < %d) but got %+v", trial, total, minCount, got)
			}
			continue
		}
		if len(got) == 0 {
			t.Fatalf("trial %d: feasible but got empty result", trial)
		}
		if c := market.TotalCount(got); c < minCount {
			t.Fatalf("trial %d: covered %d < %d", trial, c, minCount)
		}
		if cost := market.TotalValue(got); math.Abs(cost-want) > 1e-9 {
			t.Fatalf("trial %d: cost %v, brute force %v (listings %+v, min %d)", trial, cost, want, listings, minCount)
		}
		greedy := GreedyPurchase(listings, minCount)
		if market.TotalValue(got) > market.TotalValue(greedy)+1e-9 {
			t.Fatalf("trial %d: optimizer %v worse than greedy %v", trial, market.TotalValue(got), market.TotalValue(greedy))
		}
	}
}

func TestOptimizePurchase_Infeasible(t *testing.T) {
	listings := []market.Listing{{Price: 1, Count: 3}, {Price: 2, Count: 0}}
	if got := OptimizePurchase(listings, 4, PurchaseOptions{}); got != nil {
		t.Errorf("OptimizePurchase = %+v, want nil", got)
	}
	if got := OptimizePurchase(nil, 1, PurchaseOptions{}); got != nil {
		t.Errorf("OptimizePurchase(nil) = %+v, want nil", got)
	}
	if got := OptimizePurchase(listings, 0, PurchaseOptions{}); got == nil || len(got) != 0 {
		t.Errorf("OptimizePurchase(min 0) = %+v, want empty", got)
	}
}

func TestOptimizePurchase_DeadlineReturnsFeasible(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	listings := make([]market.Listing, 60)
	for i := range listings {
		listings[i] = market.Listing{Price: float64(10 + rng.Intn(90)), Count: 1 + rng.Intn(30)}
	}
	minCount := 400
	calls := 0
	clock := steppingClock(time.Millisecond)
	now := func() time.Time { calls++; return clock() }

	got := OptimizePurchase(listings, minCount, PurchaseOptions{Budget: 5 * time.Millisecond, Now: now})
	if market.TotalCount(got) < minCount {
		t.Fatalf("covered %d < %d", market.TotalCount(got), minCount)
	}
	if calls > 10 {
		t.Errorf("clock read %d times, search did not stop at the deadline", calls)
	}
	greedy := GreedyPurchase(listings, minCount)
	if market.TotalValue(got) > market.TotalValue(greedy) {
		t.Errorf("cost %v worse than greedy %v", market.TotalValue(got), market.TotalValue(greedy))
	}
}

func TestOptimizePurchase_Idempotent(t *testing.T) {
	listings := []market.Listing{
		{Price: 3, Count: 7}, {Price: 2, Count: 9}, {Price: 4, Count: 2},
		{Price: 3, Count: 7}, {Price: 1, Count: 1}, {Price: 5, Count: 20},
	}
	a := OptimizePurchase(listings, 17, PurchaseOptions{Now: frozenClock()})
	b := OptimizePurchase(listings, 17, PurchaseOptions{Now: frozenClock()})
	if market.TotalValue(a) != market.TotalValue(b) {
		t.Errorf("costs differ between runs: %v vs %v", market.TotalValue(a), market.TotalValue(b))
	}
}

func TestGreedyPurchase_DropsRedundantListings(t *testing.T) {
	listings := []market.Listing{
		{Price: 1, Count: 2},  // value 2
		{Price: 1, Count: 3},  // value 3
		{Price: 1, Count: 10}, // value 10
	}
	got := GreedyPurchase(listings, 10)
	// Takes all three (15 units), then the 2 and 3 listings are redundant.
	if market.TotalCount(got) != 10 || len(got) != 1 {
		t.Errorf("GreedyPurchase = %+v, want only the 10-unit listing", got)
	}
}
