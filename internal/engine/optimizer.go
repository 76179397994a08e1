package engine

import (
	"container/heap"
	"sort"
	"time"

	"market-crafter/internal/market"
)

// DefaultPurchaseBudget caps the wall-clock time of one OptimizePurchase call.
const DefaultPurchaseBudget = 200 * time.Millisecond

// PurchaseOptions controls OptimizePurchase.
type PurchaseOptions struct {
	Budget time.Duration    // search time limit (0 = DefaultPurchaseBudget)
	Now    func() time.Time // clock (nil = time.Now)
}

func (o PurchaseOptions) withDefaults() PurchaseOptions {
	if o.Budget <= 0 {
		o.Budget = DefaultPurchaseBudget
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// OptimizePurchase picks the subset of listings that covers minCount units
// at the lowest total cost. Listings are bought whole.
//
// The search is a best-first branch-and-bound over the listings ordered by
// total value, seeded with a greedy solution. When the time budget runs out
// the best solution found so far is returned, so the answer is always
// feasible but only optimal when the search completes. The result is sorted
// by ascending unit price. It is nil when the listings cannot cover
// minCount, and empty when minCount <= 0.
func OptimizePurchase(listings []market.Listing, minCount int, o PurchaseOptions) []market.Listing {
	if minCount <= 0 {
		return []market.Listing{}
	}
	s := newPurchaseSearch(listings, minCount)
	if s.forward[0] < minCount {
		return nil
	}
	o = o.withDefaults()
	best := s.run(s.greedy(), o.Now().Add(o.Budget), o.Now)
	return s.collect(best)
}

// GreedyPurchase returns the greedy cover OptimizePurchase starts from:
// cheapest listings by total value until minCount is reached, then any
// listing that is no longer needed dropped, most expensive first.
func GreedyPurchase(listings []market.Listing, minCount int) []market.Listing {
	if minCount <= 0 {
		return []market.Listing{}
	}
	s := newPurchaseSearch(listings, minCount)
	if s.forward[0] < minCount {
		return nil
	}
	return s.collect(s.greedy())
}

// purchaseSearch holds the fixed data of one optimization.
type purchaseSearch struct {
	listings []market.Listing // valid listings, input order
	order    []int            // decision order: indices into listings by ascending value
	forward  []int            // forward[i] = units available from decision position i on
	min      int
}

func newPurchaseSearch(listings []market.Listing, minCount int) *purchaseSearch {
	valid := market.Clean(listings)
	order := make([]int, len(valid))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return valid[order[i]].Value() < valid[order[j]].Value()
	})

	forward := make([]int, len(valid)+1)
	for i := len(valid) - 1; i >= 0; i-- {
		forward[i] = forward[i+1] + valid[order[i]].Count
	}
	return &purchaseSearch{listings: valid, order: order, forward: forward, min: minCount}
}

// at returns the listing decided at position pos.
func (s *purchaseSearch) at(pos int) market.Listing {
	return s.listings[s.order[pos]]
}

// branch is a decision prefix: picks[i] tells whether the listing at
// position i is bought.
type branch struct {
	picks []bool
	count int
	value float64
	bound float64 // lowest total value any completion can reach
	seq   int
}

func (s *purchaseSearch) greedy() *branch {
	n := len(s.listings)
	b := &branch{picks: make([]bool, n)}
	for pos := 0; pos < n && b.count < s.min; pos++ {
		b.picks[pos] = true
		b.count += s.at(pos).Count
		b.value += s.at(pos).Value()
	}
	for pos := n - 1; pos >= 0; pos-- {
		if b.picks[pos] && b.count-s.at(pos).Count >= s.min {
			b.picks[pos] = false
			b.count -= s.at(pos).Count
			b.value -= s.at(pos).Value()
		}
	}
	b.bound = b.value
	return b
}

// extend decides the next position of b.
func (s *purchaseSearch) extend(b *branch, take bool) *branch {
	pos := len(b.picks)
	picks := make([]bool, pos+1)
	copy(picks, b.picks)
	picks[pos] = take

	child := &branch{picks: picks, count: b.count, value: b.value}
	if take {
		child.count += s.at(pos).Count
		child.value += s.at(pos).Value()
	}
	child.bound = child.value
	// Still short: at least one more listing is needed, and the next
	// undecided one is the cheapest left.
	if child.count < s.min && pos+1 < len(s.listings) {
		child.bound += s.at(pos + 1).Value()
	}
	return child
}

// run improves best until the queue is exhausted or the deadline passes.
func (s *purchaseSearch) run(best *branch, deadline time.Time, now func() time.Time) *branch {
	q := &branchQueue{}
	heap.Push(q, &branch{})
	seq := 0

	for q.Len() > 0 {
		if !now().Before(deadline) {
			break
		}
		b := heap.Pop(q).(*branch)
		if b.bound >= best.value {
			continue
		}
		for _, take := range [...]bool{false, true} {
			child := s.extend(b, take)
			next := len(child.picks)
			if child.count+s.forward[next] < s.min {
				continue
			}
			if child.count >= s.min {
				if child.value < best.value {
					best = child
					q.prune(best.value)
				}
				continue
			}
			if child.bound >= best.value {
				continue
			}
			seq++
			child.seq = seq
			heap.Push(q, child)
		}
	}
	return best
}

// collect maps the decisions of b back to listings. A prefix that ends on
// a skipped listing while still short of the target includes the next
// listing, matching the look-ahead used for its bound.
func (s *purchaseSearch) collect(b *branch) []market.Listing {
	var out []market.Listing
	count := 0
	for pos, take := range b.picks {
		if take {
			out = append(out, s.at(pos))
			count += s.at(pos).Count
		}
	}
	last := len(b.picks)
	if count < s.min && last < len(s.listings) && (last == 0 || !b.picks[last-1]) {
		out = append(out, s.at(last))
	}
	market.SortByPrice(out)
	return out
}

// branchQueue orders branches by descending accumulated count, first in
// first out among equal counts.
type branchQueue []*branch

func (q branchQueue) Len() int { return len(q) }
func (q branchQueue) Less(i, j int) bool {
	if q[i].count != q[j].count {
		return q[i].count > q[j].count
	}
	return q[i].seq < q[j].seq
}
func (q branchQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *branchQueue) Push(x any)   { *q = append(*q, x.(*branch)) }
func (q *branchQueue) Pop() any {
	old := *q
	n := len(old)
	b := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return b
}

// prune drops branches that can no longer beat limit.
func (q *branchQueue) prune(limit float64) {
	kept := (*q)[:0]
	for _, b := range *q {
		if b.bound < limit {
			kept = append(kept, b)
		}
	}
	for i := len(kept); i < len(*q); i++ {
		(*q)[i] = nil
	}
	*q = kept
	heap.Init(q)
}
