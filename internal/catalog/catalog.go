// Package catalog holds the immutable item, recipe and listing snapshot the
// engine works on, and loads it from JSON documents.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"market-crafter/internal/market"
)

// ItemID identifies a tradable item.
type ItemID = int32

// ErrItemNotFound is returned when an id is not part of the snapshot.
var ErrItemNotFound = errors.New("item not found")

// Ingredient is one input of a recipe, consumed per craft.
type Ingredient struct {
	ItemID ItemID `json:"item_id"`
	Count  int    `json:"count"`
}

// Recipe describes how an item is crafted.
type Recipe struct {
	Inputs  []Ingredient `json:"inputs"`
	Outputs int          `json:"outputs"` // units produced per craft
	Level   int          `json:"level"`   // opaque to the engine
}

// BatchSize is the number of units one craft produces, never below 1.
func (r *Recipe) BatchSize() int {
	if r == nil || r.Outputs < 1 {
		return 1
	}
	return r.Outputs
}

// Item is a tradable item with its market observations.
type Item struct {
	ID       ItemID           `json:"id"`
	Name     string           `json:"name"`
	Listings []market.Listing `json:"listings"`
	History  []market.Listing `json:"history"`
	Recipe   *Recipe          `json:"recipe,omitempty"`
}

// HasInputs reports whether the item can be crafted from other items.
func (it *Item) HasInputs() bool {
	return it.Recipe != nil && len(it.Recipe.Inputs) > 0
}

// Snapshot is the full input of one query.
type Snapshot struct {
	Items  map[ItemID]*Item `json:"items"`
	TopIDs []ItemID         `json:"top_ids"`
}

// NewSnapshot indexes items by id.
func NewSnapshot(items []*Item, topIDs []ItemID) *Snapshot {
	s := &Snapshot{Items: make(map[ItemID]*Item, len(items)), TopIDs: topIDs}
	for _, it := range items {
		s.Items[it.ID] = it
	}
	return s
}

// Item returns the item with the given id.
func (s *Snapshot) Item(id ItemID) (*Item, error) {
	if s != nil {
		if it, ok := s.Items[id]; ok {
			return it, nil
		}
	}
	return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
}

// Validate checks that every top id and every ingredient refers to an item
// in the snapshot and that counts are positive.
func (s *Snapshot) Validate() error {
	for _, id := range s.TopIDs {
		if _, err := s.Item(id); err != nil {
			return fmt.Errorf("top id: %w", err)
		}
	}
	for _, id := range s.SortedIDs() {
		it := s.Items[id]
		if it.Recipe == nil {
			continue
		}
		for _, in := range it.Recipe.Inputs {
			if in.Count <= 0 {
				return fmt.Errorf("item %d: ingredient %d has count %d", id, in.ItemID, in.Count)
			}
			if _, err := s.Item(in.ItemID); err != nil {
				return fmt.Errorf("recipe of item %d: %w", id, err)
			}
		}
	}
	return nil
}

// SortedIDs returns every item id in ascending order.
func (s *Snapshot) SortedIDs() []ItemID {
	ids := make([]ItemID, 0, len(s.Items))
	for id := range s.Items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Closure returns the ids reachable from roots through recipe inputs,
// roots included, in ascending order. Unknown ids are reported.
func (s *Snapshot) Closure(roots []ItemID) ([]ItemID, error) {
	seen := make(map[ItemID]bool)
	stack := append([]ItemID(nil), roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		it, err := s.Item(id)
		if err != nil {
			return nil, err
		}
		seen[id] = true
		if it.Recipe != nil {
			for _, in := range it.Recipe.Inputs {
				stack = append(stack, in.ItemID)
			}
		}
	}
	ids := make([]ItemID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
