package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"market-crafter/internal/catalog"
	"market-crafter/internal/config"
	"market-crafter/internal/db"
	"market-crafter/internal/engine"
	"market-crafter/internal/logger"
	"market-crafter/internal/opt"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "crafter.yaml", "YAML config file")
	snapshotPath := flag.String("snapshot", "", "snapshot .json file or JSONL directory (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	fromDB := flag.Bool("from-db", false, "load the snapshot from the database instead of a file")
	importSnap := flag.Bool("import", false, "store the loaded snapshot in the database")
	ids := flag.String("ids", "", "comma-separated top-level item ids (default: snapshot top ids)")
	count := flag.Int("count", 0, "units requested per top-level item (overrides config)")
	hq := flag.Bool("hq", false, "price craftable top-level items as high quality")
	plan := flag.Int("plan", 0, "optimize purchases for the N most profitable items")
	asJSON := flag.Bool("json", false, "print results as JSON")
	saveSettings := flag.Bool("save-settings", false, "store the effective analysis settings in the database")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	var database *db.DB
	if *fromDB || *importSnap || *saveSettings {
		database, err = db.Open(cfg.DBPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			os.Exit(1)
		}
		defer database.Close()
		database.LoadSettings(cfg)
	}

	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *snapshotPath != "" {
		cfg.SnapshotPath = *snapshotPath
	}
	if *count > 0 {
		cfg.Count = *count
	}
	if *hq {
		cfg.HQ = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("Config", err.Error())
	}
	if *asJSON {
		// Keep stdout parseable.
		logger.SetLevel("error")
	}
	logger.SetFile(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxAgeDays)
	defer logger.Close()
	logger.Banner(version)

	if *saveSettings {
		if err := database.SaveSettings(cfg); err != nil {
			logger.Error("DB", fmt.Sprintf("Save settings failed: %v", err))
			os.Exit(1)
		}
	}

	topIDs, err := parseIDs(*ids)
	if err != nil {
		logger.Error("Config", fmt.Sprintf("Bad -ids: %v", err))
		os.Exit(1)
	}

	snap, err := loadSnapshot(cfg, database, *fromDB, topIDs)
	if err != nil {
		logger.Error("Catalog", fmt.Sprintf("Load failed: %v", err))
		os.Exit(1)
	}
	if *importSnap && !*fromDB {
		if err := database.SaveSnapshot(snap); err != nil {
			logger.Error("DB", fmt.Sprintf("Import failed: %v", err))
			os.Exit(1)
		}
		logger.Success("DB", fmt.Sprintf("Imported %d items into %s", len(snap.Items), cfg.DBPath))
	}

	params := engine.AnalyzeParams{Count: cfg.Count, HQ: cfg.HQ, HomeWorld: cfg.HomeWorld}
	start := time.Now()
	analysis, err := engine.Analyze(snap, params)
	if err != nil {
		logger.Error("Engine", fmt.Sprintf("Analysis failed: %v", err))
		os.Exit(1)
	}
	engine.SortByProfit(analysis.Top)
	elapsed := time.Since(start)
	logger.Success("Engine", fmt.Sprintf("Analyzed %d items in %s", len(analysis.Top), elapsed.Round(time.Millisecond)))

	if database != nil {
		database.InsertRun(runRecord(params, analysis, elapsed), params)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var plans [][]engine.PurchasePlan
	for i := 0; i < *plan && i < len(analysis.Top); i++ {
		list := engine.ShoppingList(analysis.Top[i])
		p, err := engine.PlanPurchases(ctx, snap, list, engine.PlanOptions{
			Purchase:    engine.PurchaseOptions{Budget: cfg.PurchaseBudget},
			Concurrency: cfg.Concurrency,
		})
		if err != nil {
			logger.Error("Planner", fmt.Sprintf("Planning failed: %v", err))
			os.Exit(1)
		}
		plans = append(plans, p)
	}

	if *asJSON {
		out := struct {
			*engine.Analysis
			Plans [][]engine.PurchasePlan `json:"plans,omitempty"`
		}{analysis, plans}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			logger.Error("Output", err.Error())
			os.Exit(1)
		}
		return
	}
	printProfits(snap, analysis.Top, cfg.TopN)
	for i, p := range plans {
		printPlan(snap, analysis.Top[i], p)
	}
}

func loadSnapshot(cfg *config.Config, database *db.DB, fromDB bool, topIDs []catalog.ItemID) (*catalog.Snapshot, error) {
	if fromDB {
		if len(topIDs) == 0 {
			all, err := database.ItemIDs()
			if err != nil {
				return nil, err
			}
			topIDs = all
		}
		snap, err := database.LoadSnapshot(topIDs)
		if err != nil {
			return nil, err
		}
		return snap, snap.Validate()
	}

	snap, err := catalog.LoadFile(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	if len(topIDs) > 0 {
		snap.TopIDs = topIDs
		if err := snap.Validate(); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func parseIDs(s string) ([]catalog.ItemID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []catalog.ItemID
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, catalog.ItemID(n))
	}
	return ids, nil
}

func runRecord(params engine.AnalyzeParams, a *engine.Analysis, elapsed time.Duration) db.RunRecord {
	r := db.RunRecord{
		Count:      params.Count,
		HQ:         params.HQ,
		HomeWorld:  params.HomeWorld,
		TopCount:   len(a.Top),
		DurationMs: elapsed.Milliseconds(),
	}
	if len(a.Top) > 0 {
		best := a.Top[0].Top
		r.TopItemID = opt.Some(best.ItemID)
		r.TopProfit = best.Profit
	}
	return r
}

func itemName(snap *catalog.Snapshot, id catalog.ItemID) string {
	if it, err := snap.Item(id); err == nil && it.Name != "" {
		return it.Name
	}
	return fmt.Sprintf("#%d", id)
}

func printProfits(snap *catalog.Snapshot, tops []engine.TopProfit, limit int) {
	logger.Section("Profit")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "item\tcount\tsell\tbuy\tcraft\tprofit\t")
	for i, tp := range tops {
		if limit > 0 && i >= limit {
			break
		}
		n := tp.Top
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t\n",
			itemName(snap, n.ItemID), n.Count, n.Sell, n.Buy, n.Craft, n.Profit)
	}
	w.Flush()
}

func printPlan(snap *catalog.Snapshot, tp engine.TopProfit, plans []engine.PurchasePlan) {
	logger.Section("Purchases for " + itemName(snap, tp.Top.ItemID))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	total := 0.0
	for _, p := range plans {
		if !p.Feasible {
			fmt.Fprintf(w, "%s\tneed %d\tnot enough listings\n", itemName(snap, p.ItemID), p.Count)
			continue
		}
		total += p.Cost
		fmt.Fprintf(w, "%s\tneed %d\tbuy %d\t%.0f\n", itemName(snap, p.ItemID), p.Count, p.Units, p.Cost)
		for _, l := range p.Listings {
			fmt.Fprintf(w, "\t\t%d x %.0f\t%s %s\n", l.Count, l.Price, l.World, l.Name)
		}
	}
	w.Flush()
	logger.Stats("total_cost", total)
}
