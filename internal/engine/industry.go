package engine

import (
	"errors"
	"fmt"
	"sort"

	"market-crafter/internal/catalog"
	"market-crafter/internal/market"
	"market-crafter/internal/opt"
)

// ErrRecipeCycle is returned when an item is, directly or indirectly, an
// ingredient of itself.
var ErrRecipeCycle = errors.New("recipe cycle")

// NumCrafts is the number of craft actions needed to produce at least
// requested units when one craft yields outputs units.
func NumCrafts(requested, outputs int) int {
	if outputs < 1 {
		outputs = 1
	}
	if requested <= 0 {
		return 0
	}
	return (requested + outputs - 1) / outputs
}

// IndustryAnalyzer walks recipe trees and decides buy vs craft per node.
// It holds no state between Analyze calls.
type IndustryAnalyzer struct {
	snap   *catalog.Snapshot
	stats  map[catalog.ItemID]market.Statistics
	params AnalyzeParams

	nodes  []KeyedProfitStats
	onPath map[catalog.ItemID]bool
}

// Analyze computes market statistics for every item reachable from the
// snapshot's top ids and the flattened profit tree of each top id.
func Analyze(snap *catalog.Snapshot, params AnalyzeParams) (*Analysis, error) {
	if params.Count <= 0 {
		params.Count = 1
	}

	ids, err := snap.Closure(snap.TopIDs)
	if err != nil {
		return nil, err
	}

	stats := make(map[catalog.ItemID]market.Statistics, len(ids))
	opts := market.StatsOptions{Count: params.Count, HomeWorld: params.HomeWorld}
	for _, id := range ids {
		it := snap.Items[id]
		stats[id] = market.ComputeStatistics(it.Listings, it.History, opts)
	}

	a := &IndustryAnalyzer{snap: snap, stats: stats, params: params}
	result := &Analysis{ItemStats: stats, Top: make([]TopProfit, 0, len(snap.TopIDs))}
	for _, id := range snap.TopIDs {
		nodes, err := a.tree(id)
		if err != nil {
			return nil, err
		}
		result.Top = append(result.Top, TopProfit{Top: nodes[0], Children: nodes[1:]})
	}
	return result, nil
}

// tree builds the flattened pre-order tree below one top-level item.
func (a *IndustryAnalyzer) tree(id catalog.ItemID) ([]KeyedProfitStats, error) {
	a.nodes = nil
	a.onPath = make(map[catalog.ItemID]bool)
	if _, err := a.visit(id, a.params.Count, nil, -1); err != nil {
		return nil, err
	}
	return a.nodes, nil
}

// visit appends the node for itemID and its subtree to a.nodes and returns
// the node's ProfitStats. Shared ingredients are expanded once per
// occurrence since siblings may need different quantities.
func (a *IndustryAnalyzer) visit(itemID catalog.ItemID, requested int, parentKey []catalog.ItemID, parent int) (ProfitStats, error) {
	item, err := a.snap.Item(itemID)
	if err != nil {
		return ProfitStats{}, err
	}
	if a.onPath[itemID] {
		return ProfitStats{}, fmt.Errorf("item %d: %w", itemID, ErrRecipeCycle)
	}

	outputs := item.Recipe.BatchSize()
	crafts := NumCrafts(requested, outputs)
	produced := crafts * outputs

	key := make([]catalog.ItemID, len(parentKey)+1)
	copy(key, parentKey)
	key[len(parentKey)] = itemID

	idx := len(a.nodes)
	a.nodes = append(a.nodes, KeyedProfitStats{
		Key:         key,
		ItemID:      itemID,
		Count:       produced,
		HasChildren: item.HasInputs(),
		Parent:      parent,
		Depth:       len(parentKey),
	})

	// Children without any price drop out of the sum instead of zeroing it,
	// so a node whose children are all unpriced has no craft cost.
	craft := opt.None[float64]()
	if item.HasInputs() {
		a.onPath[itemID] = true
		for _, in := range item.Recipe.Inputs {
			child, err := a.visit(in.ItemID, in.Count*crafts, key, idx)
			if err != nil {
				return ProfitStats{}, err
			}
			craft = opt.Add(craft, child.Acquire())
		}
		delete(a.onPath, itemID)
	}

	st := a.stats[itemID]
	// High quality prices only apply to top-level items that can be crafted.
	hq := a.params.HQ && parent < 0 && craft.IsSome()
	sell := opt.Scale(st.SellPrice.Pick(hq), float64(produced))
	buy := opt.Scale(st.BuyPrice.Pick(hq), float64(produced))

	ps := ProfitStats{Sell: sell, Buy: buy, Craft: craft}
	ps.Profit = opt.Sub(sell, ps.Acquire())

	a.nodes[idx].ProfitStats = ps
	return ps, nil
}

// SortByProfit orders top-level results by descending profit. Absent
// profit sorts last.
func SortByProfit(tops []TopProfit) {
	sort.SliceStable(tops, func(i, j int) bool {
		return opt.Less(tops[j].Top.Profit, tops[i].Top.Profit)
	})
}

// ShoppingList walks a flattened tree and returns what must be bought:
// a crafted node contributes its inputs, every other node itself. Requests
// for the same item are merged, largest estimated cost first.
func ShoppingList(tp TopProfit) []PurchaseRequest {
	nodes := tp.Nodes()
	counts := make(map[catalog.ItemID]int)
	cost := make(map[catalog.ItemID]float64)
	var order []catalog.ItemID

	skipBelow := -1 // depth of a bought node whose subtree is skipped
	for _, n := range nodes {
		if skipBelow >= 0 {
			if n.Depth > skipBelow {
				continue
			}
			skipBelow = -1
		}
		if n.HasChildren && n.ShouldCraft() {
			continue
		}
		if _, seen := counts[n.ItemID]; !seen {
			order = append(order, n.ItemID)
		}
		counts[n.ItemID] += n.Count
		cost[n.ItemID] += n.Buy.UnwrapOr(0)
		skipBelow = n.Depth
	}

	list := make([]PurchaseRequest, 0, len(order))
	for _, id := range order {
		list = append(list, PurchaseRequest{ItemID: id, Count: counts[id]})
	}
	sort.SliceStable(list, func(i, j int) bool {
		return cost[list[i].ItemID] > cost[list[j].ItemID]
	})
	return list
}
