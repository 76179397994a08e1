package db

import (
	"strconv"
	"time"

	"market-crafter/internal/config"
	"market-crafter/internal/logger"
)

// LoadSettings overlays stored analysis settings onto cfg. Keys that are
// missing or unparsable leave the existing value untouched.
func (d *DB) LoadSettings(cfg *config.Config) {
	rows, err := d.sql.Query("SELECT key, value FROM settings")
	if err != nil {
		return
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		rows.Scan(&k, &v)
		m[k] = v
	}

	if v, ok := m["count"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Count = n
		}
	}
	if v, ok := m["hq"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HQ = b
		}
	}
	if v, ok := m["home_world"]; ok {
		cfg.HomeWorld = v
	}
	if v, ok := m["top_n"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TopN = n
		}
	}
	if v, ok := m["purchase_budget"]; ok {
		if dur, err := time.ParseDuration(v); err == nil {
			cfg.PurchaseBudget = dur
		}
	}
	if v, ok := m["concurrency"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
}

// SaveSettings upserts the analysis settings of cfg.
func (d *DB) SaveSettings(cfg *config.Config) error {
	pairs := map[string]string{
		"count":           strconv.Itoa(cfg.Count),
		"hq":              strconv.FormatBool(cfg.HQ),
		"home_world":      cfg.HomeWorld,
		"top_n":           strconv.Itoa(cfg.TopN),
		"purchase_budget": cfg.PurchaseBudget.String(),
		"concurrency":     strconv.Itoa(cfg.Concurrency),
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("DB", "Saved analysis settings")
	return nil
}
