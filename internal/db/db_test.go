package db

import (
	"errors"
	"testing"
	"time"

	"market-crafter/internal/catalog"
	"market-crafter/internal/config"
	"market-crafter/internal/market"
	"market-crafter/internal/opt"
)

// openTestDB opens an in-memory SQLite DB and runs migrations (for testing only).
func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func testSnapshot() *catalog.Snapshot {
	return catalog.NewSnapshot([]*catalog.Item{
		{ID: 1, Name: "Sword", Recipe: &catalog.Recipe{Outputs: 1, Level: 50, Inputs: []catalog.Ingredient{{ItemID: 2, Count: 2}, {ItemID: 3, Count: 1}}},
			History: []market.Listing{{Price: 100, Count: 1, IsHQ: true, World: "Home", Name: "buyer", DaysSince: 1.5}}},
		{ID: 2, Name: "Ingot", Listings: []market.Listing{{Price: 10, Count: 5}, {Price: 12, Count: 7, World: "Away"}}},
		{ID: 3, Name: "Grip"},
		{ID: 4, Name: "Unrelated"},
	}, []catalog.ItemID{1})
}

func TestDB_MigrateIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	var version int
	if err := d.sql.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 3 {
		t.Errorf("schema version = %d, want 3", version)
	}
}

func TestDB_SnapshotRoundTrip(t *testing.T) {
	d := openTestDB(t)
	if err := d.SaveSnapshot(testSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	snap, err := d.LoadSnapshot([]catalog.ItemID{1})
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Items) != 3 {
		t.Errorf("loaded %d items, want 3 (closure of 1)", len(snap.Items))
	}
	sword := snap.Items[1]
	if sword.Recipe == nil || sword.Recipe.Level != 50 || len(sword.Recipe.Inputs) != 2 {
		t.Fatalf("sword recipe = %+v", sword.Recipe)
	}
	if sword.Recipe.Inputs[0] != (catalog.Ingredient{ItemID: 2, Count: 2}) {
		t.Errorf("first input = %+v, want ingot x2", sword.Recipe.Inputs[0])
	}
	if len(sword.History) != 1 {
		t.Fatalf("sword history = %+v", sword.History)
	}
	if h := sword.History[0]; !h.IsHQ || h.World != "Home" || h.DaysSince != 1.5 || h.Name != "buyer" {
		t.Errorf("history listing = %+v", h)
	}
	ingot := snap.Items[2]
	if len(ingot.Listings) != 2 || ingot.Listings[1].World != "Away" {
		t.Errorf("ingot listings = %+v", ingot.Listings)
	}
	if snap.Items[3].Recipe != nil {
		t.Errorf("grip should have no recipe")
	}
}

func TestDB_SaveReplacesItemData(t *testing.T) {
	d := openTestDB(t)
	if err := d.SaveSnapshot(testSnapshot()); err != nil {
		t.Fatal(err)
	}
	update := catalog.NewSnapshot([]*catalog.Item{
		{ID: 2, Name: "Iron Ingot", Listings: []market.Listing{{Price: 9, Count: 1}}},
	}, nil)
	if err := d.SaveSnapshot(update); err != nil {
		t.Fatal(err)
	}
	snap, err := d.LoadSnapshot([]catalog.ItemID{2})
	if err != nil {
		t.Fatal(err)
	}
	ingot := snap.Items[2]
	if ingot.Name != "Iron Ingot" || len(ingot.Listings) != 1 || ingot.Listings[0].Price != 9 {
		t.Errorf("ingot after update = %+v", ingot)
	}
	ids, err := d.ItemIDs()
	if err != nil || len(ids) != 4 {
		t.Errorf("ItemIDs = %v, %v; want 4 ids", ids, err)
	}
}

func TestDB_LoadSnapshotMissingItem(t *testing.T) {
	d := openTestDB(t)
	if _, err := d.LoadSnapshot([]catalog.ItemID{77}); !errors.Is(err, catalog.ErrItemNotFound) {
		t.Errorf("LoadSnapshot(77) error = %v, want ErrItemNotFound", err)
	}
}

func TestDB_RunHistory(t *testing.T) {
	d := openTestDB(t)
	old := RunRecord{Timestamp: "2020-01-01T00:00:00Z", Count: 1, TopCount: 0}
	if id := d.InsertRun(old, nil); id == "" {
		t.Fatal("InsertRun(old) failed")
	}
	id := d.InsertRun(RunRecord{
		Count:      3,
		HQ:         true,
		HomeWorld:  "Home",
		TopCount:   2,
		TopItemID:  opt.Some(int32(1)),
		TopProfit:  opt.Some(55.0),
		DurationMs: 12,
	}, map[string]int{"count": 3})
	if id == "" {
		t.Fatal("InsertRun failed")
	}

	runs := d.GetRuns(10)
	if len(runs) != 2 {
		t.Fatalf("GetRuns len = %d, want 2", len(runs))
	}
	r := runs[0]
	if r.ID != id || !r.HQ || r.TopCount != 2 || r.HomeWorld != "Home" {
		t.Errorf("newest run = %+v", r)
	}
	if v, ok := r.TopProfit.Get(); !ok || v != 55 {
		t.Errorf("TopProfit = %v, want 55", r.TopProfit)
	}
	if string(r.Params) != `{"count":3}` {
		t.Errorf("Params = %s", r.Params)
	}
	if runs[1].TopProfit.IsSome() || runs[1].TopItemID.IsSome() {
		t.Errorf("old run should have absent top fields: %+v", runs[1])
	}

	if n := d.DeleteRunsBefore(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)); n != 1 {
		t.Errorf("DeleteRunsBefore removed %d, want 1", n)
	}
	if len(d.GetRuns(0)) != 1 {
		t.Error("expected one run left")
	}
}

func TestDB_SettingsRoundTrip(t *testing.T) {
	d := openTestDB(t)

	cfg := config.Default()
	d.LoadSettings(cfg)
	if *cfg != *config.Default() {
		t.Errorf("empty settings changed config: %+v", cfg)
	}

	cfg.Count = 5
	cfg.HQ = true
	cfg.HomeWorld = "Home"
	cfg.PurchaseBudget = 750 * time.Millisecond
	if err := d.SaveSettings(cfg); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	cfg.Count = 9
	if err := d.SaveSettings(cfg); err != nil {
		t.Fatalf("SaveSettings again: %v", err)
	}

	got := config.Default()
	got.DBPath = "other.db"
	d.LoadSettings(got)
	if got.Count != 9 || !got.HQ || got.HomeWorld != "Home" || got.PurchaseBudget != 750*time.Millisecond {
		t.Errorf("loaded settings = %+v", got)
	}
	if got.DBPath != "other.db" {
		t.Errorf("DBPath = %q, storage paths are not settings", got.DBPath)
	}
}
