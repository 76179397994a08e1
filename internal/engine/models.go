package engine

import (
	"market-crafter/internal/catalog"
	"market-crafter/internal/market"
	"market-crafter/internal/opt"
)

// AnalyzeParams holds the input parameters for a crafting profit analysis.
type AnalyzeParams struct {
	Count     int    // units requested for every top-level item (0 = 1)
	HQ        bool   // price top-level crafts as high quality
	HomeWorld string // market sales are judged against ("" = all worlds)
}

// ProfitStats is the economics of one node of a recipe tree. Every field is
// absent when the market has no data for it.
type ProfitStats struct {
	Sell   opt.Number `json:"sell"`   // revenue from selling the produced units
	Buy    opt.Number `json:"buy"`    // cost of buying the produced units
	Craft  opt.Number `json:"craft"`  // cost of crafting them from the cheapest inputs
	Profit opt.Number `json:"profit"` // sell minus the cheaper of buy and craft
}

// Acquire is the cheaper of buying and crafting.
func (p ProfitStats) Acquire() opt.Number {
	return opt.Min(p.Buy, p.Craft)
}

// ShouldCraft reports whether crafting is strictly cheaper than buying, or
// the only priced option.
func (p ProfitStats) ShouldCraft() bool {
	craft, ok := p.Craft.Get()
	if !ok {
		return false
	}
	buy, ok := p.Buy.Get()
	return !ok || craft < buy
}

// KeyedProfitStats is one node of the flattened recipe tree.
type KeyedProfitStats struct {
	ProfitStats
	Key         []catalog.ItemID `json:"key"` // item ids from the top-level item down to this node
	ItemID      catalog.ItemID   `json:"item_id"`
	Count       int              `json:"count"` // units produced at this node after batch rounding
	HasChildren bool             `json:"has_children"`
	Parent      int              `json:"parent"` // index of the parent in the flattened list, -1 for the top node
	Depth       int              `json:"depth"`
}

// TopProfit is the flattened tree of one top-level item.
type TopProfit struct {
	Top      KeyedProfitStats   `json:"top"`
	Children []KeyedProfitStats `json:"children"` // descendants in pre-order
}

// Nodes returns the top node followed by its descendants. Parent indices
// refer to positions in this slice.
func (t TopProfit) Nodes() []KeyedProfitStats {
	nodes := make([]KeyedProfitStats, 0, len(t.Children)+1)
	nodes = append(nodes, t.Top)
	return append(nodes, t.Children...)
}

// Analysis is the result of analyzing every top-level item of a snapshot.
type Analysis struct {
	ItemStats map[catalog.ItemID]market.Statistics `json:"item_stats"`
	Top       []TopProfit                          `json:"top_profit_stats"`
}

// PurchaseRequest asks for count units of one item.
type PurchaseRequest struct {
	ItemID catalog.ItemID `json:"item_id"`
	Count  int            `json:"count"`
}

// PurchasePlan is the listings chosen to cover one PurchaseRequest.
type PurchasePlan struct {
	ItemID   catalog.ItemID   `json:"item_id"`
	ItemName string           `json:"item_name"`
	Count    int              `json:"count"` // units requested
	Units    int              `json:"units"` // units bought, >= Count when feasible
	Cost     float64          `json:"cost"`
	Feasible bool             `json:"feasible"`
	Listings []market.Listing `json:"listings"`
}
