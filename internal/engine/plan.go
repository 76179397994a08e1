package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"market-crafter/internal/catalog"
	"market-crafter/internal/logger"
	"market-crafter/internal/market"
)

// PlanOptions controls PlanPurchases.
type PlanOptions struct {
	Purchase    PurchaseOptions
	Concurrency int // optimizer runs in flight (0 = 4)
}

// PlanPurchases runs OptimizePurchase for every requested item against its
// current listings. Requests for the same item are merged first. Items are
// optimized concurrently; the result keeps request order.
func PlanPurchases(ctx context.Context, snap *catalog.Snapshot, reqs []PurchaseRequest, o PlanOptions) ([]PurchasePlan, error) {
	merged := mergeRequests(reqs)
	plans := make([]PurchasePlan, len(merged))
	items := make([]*catalog.Item, len(merged))
	for i, r := range merged {
		it, err := snap.Item(r.ItemID)
		if err != nil {
			return nil, fmt.Errorf("plan purchases: %w", err)
		}
		items[i] = it
	}

	limit := o.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, r := range merged {
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plans[i] = planOne(items[i], r.Count, o.Purchase)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	infeasible := 0
	for _, p := range plans {
		if !p.Feasible {
			infeasible++
		}
	}
	if infeasible > 0 {
		logger.Warn("Planner", fmt.Sprintf("%d of %d items cannot be covered by current listings", infeasible, len(plans)))
	}
	return plans, nil
}

func planOne(it *catalog.Item, count int, o PurchaseOptions) PurchasePlan {
	chosen := OptimizePurchase(it.Listings, count, o)
	return PurchasePlan{
		ItemID:   it.ID,
		ItemName: it.Name,
		Count:    count,
		Units:    market.TotalCount(chosen),
		Cost:     market.TotalValue(chosen),
		Feasible: chosen != nil,
		Listings: chosen,
	}
}

// mergeRequests sums counts per item, keeping first-seen order and
// dropping non-positive counts.
func mergeRequests(reqs []PurchaseRequest) []PurchaseRequest {
	index := make(map[catalog.ItemID]int)
	var out []PurchaseRequest
	for _, r := range reqs {
		if r.Count <= 0 {
			continue
		}
		if i, ok := index[r.ItemID]; ok {
			out[i].Count += r.Count
			continue
		}
		index[r.ItemID] = len(out)
		out = append(out, r)
	}
	return out
}
