package db

import (
	"database/sql"
	"fmt"

	"market-crafter/internal/catalog"
	"market-crafter/internal/logger"
	"market-crafter/internal/market"
)

const (
	kindCurrent = "current"
	kindHistory = "history"
)

// SaveSnapshot replaces the stored data of every item in snap.
// Items not in snap are left alone.
func (d *DB) SaveSnapshot(snap *catalog.Snapshot) error {
	tx, err := d.sql.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	itemStmt, err := tx.Prepare("INSERT INTO items (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name=excluded.name")
	if err != nil {
		return err
	}
	defer itemStmt.Close()
	recipeStmt, err := tx.Prepare("INSERT INTO recipes (item_id, outputs, level) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer recipeStmt.Close()
	ingStmt, err := tx.Prepare("INSERT INTO ingredients (item_id, position, ingredient_id, count) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer ingStmt.Close()
	listStmt, err := tx.Prepare(`INSERT INTO listings (item_id, kind, price, count, is_hq, world, name, days_since)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer listStmt.Close()

	for _, id := range snap.SortedIDs() {
		it := snap.Items[id]
		for _, table := range []string{"recipes", "ingredients", "listings"} {
			if _, err := tx.Exec("DELETE FROM "+table+" WHERE item_id=?", id); err != nil {
				return fmt.Errorf("clear %s for item %d: %w", table, id, err)
			}
		}
		if _, err := itemStmt.Exec(id, it.Name); err != nil {
			return fmt.Errorf("insert item %d: %w", id, err)
		}
		if it.Recipe != nil {
			if _, err := recipeStmt.Exec(id, it.Recipe.BatchSize(), it.Recipe.Level); err != nil {
				return fmt.Errorf("insert recipe %d: %w", id, err)
			}
			for pos, in := range it.Recipe.Inputs {
				if _, err := ingStmt.Exec(id, pos, in.ItemID, in.Count); err != nil {
					return fmt.Errorf("insert ingredient %d/%d: %w", id, pos, err)
				}
			}
		}
		for kind, ls := range map[string][]market.Listing{kindCurrent: it.Listings, kindHistory: it.History} {
			for _, l := range ls {
				if _, err := listStmt.Exec(id, kind, l.Price, l.Count, l.IsHQ, l.World, l.Name, l.DaysSince); err != nil {
					return fmt.Errorf("insert listing for item %d: %w", id, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logger.Info("DB", fmt.Sprintf("Saved %d items", len(snap.Items)))
	return nil
}

// LoadSnapshot loads topIDs and every item their recipes reach.
// An id missing from the store is reported as catalog.ErrItemNotFound.
func (d *DB) LoadSnapshot(topIDs []catalog.ItemID) (*catalog.Snapshot, error) {
	items := make(map[catalog.ItemID]*catalog.Item)
	pending := append([]catalog.ItemID(nil), topIDs...)
	for len(pending) > 0 {
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if _, ok := items[id]; ok {
			continue
		}
		it, err := d.loadItem(id)
		if err != nil {
			return nil, err
		}
		items[id] = it
		if it.Recipe != nil {
			for _, in := range it.Recipe.Inputs {
				pending = append(pending, in.ItemID)
			}
		}
	}

	list := make([]*catalog.Item, 0, len(items))
	for _, it := range items {
		list = append(list, it)
	}
	return catalog.NewSnapshot(list, topIDs), nil
}

// ItemIDs returns every stored item id in ascending order.
func (d *DB) ItemIDs() ([]catalog.ItemID, error) {
	rows, err := d.sql.Query("SELECT id FROM items ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []catalog.ItemID
	for rows.Next() {
		var id catalog.ItemID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *DB) loadItem(id catalog.ItemID) (*catalog.Item, error) {
	it := &catalog.Item{ID: id}
	err := d.sql.QueryRow("SELECT name FROM items WHERE id=?", id).Scan(&it.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %d: %w", id, catalog.ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load item %d: %w", id, err)
	}

	var r catalog.Recipe
	err = d.sql.QueryRow("SELECT outputs, level FROM recipes WHERE item_id=?", id).Scan(&r.Outputs, &r.Level)
	switch {
	case err == nil:
		inputs, err := d.loadIngredients(id)
		if err != nil {
			return nil, err
		}
		r.Inputs = inputs
		it.Recipe = &r
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("load recipe %d: %w", id, err)
	}

	if it.Listings, err = d.loadListings(id, kindCurrent); err != nil {
		return nil, err
	}
	if it.History, err = d.loadListings(id, kindHistory); err != nil {
		return nil, err
	}
	return it, nil
}

func (d *DB) loadIngredients(id catalog.ItemID) ([]catalog.Ingredient, error) {
	rows, err := d.sql.Query("SELECT ingredient_id, count FROM ingredients WHERE item_id=? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("load ingredients %d: %w", id, err)
	}
	defer rows.Close()
	var out []catalog.Ingredient
	for rows.Next() {
		var in catalog.Ingredient
		if err := rows.Scan(&in.ItemID, &in.Count); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (d *DB) loadListings(id catalog.ItemID, kind string) ([]market.Listing, error) {
	rows, err := d.sql.Query(
		"SELECT price, count, is_hq, world, name, days_since FROM listings WHERE item_id=? AND kind=? ORDER BY id",
		id, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("load %s listings %d: %w", kind, id, err)
	}
	defer rows.Close()
	var out []market.Listing
	for rows.Next() {
		var l market.Listing
		if err := rows.Scan(&l.Price, &l.Count, &l.IsHQ, &l.World, &l.Name, &l.DaysSince); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
