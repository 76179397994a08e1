package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"market-crafter/internal/logger"
	"market-crafter/internal/opt"
)

// RunRecord represents one stored analysis run.
type RunRecord struct {
	ID         string            `json:"id"`
	Timestamp  string            `json:"timestamp"`
	Count      int               `json:"count"`
	HQ         bool              `json:"hq"`
	HomeWorld  string            `json:"home_world"`
	TopCount   int               `json:"top_count"`
	TopItemID  opt.Option[int32] `json:"top_item_id"`
	TopProfit  opt.Number        `json:"top_profit"`
	DurationMs int64             `json:"duration_ms"`
	Params     json.RawMessage   `json:"params"`
}

// InsertRun stores an analysis run and returns its id, or "" on failure.
func (d *DB) InsertRun(r RunRecord, params interface{}) string {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp == "" {
		r.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	paramsJSON, _ := json.Marshal(params)

	var topItem, topProfit interface{}
	if v, ok := r.TopItemID.Get(); ok {
		topItem = v
	}
	if v, ok := r.TopProfit.Get(); ok {
		topProfit = v
	}
	_, err := d.sql.Exec(
		`INSERT INTO analysis_runs (id, timestamp, count, hq, home_world, top_count, top_item_id, top_profit, duration_ms, params_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Timestamp, r.Count, r.HQ, r.HomeWorld, r.TopCount, topItem, topProfit, r.DurationMs, string(paramsJSON),
	)
	if err != nil {
		logger.Warn("DB", "InsertRun: "+err.Error())
		return ""
	}
	return r.ID
}

// GetRuns returns the last N runs (newest first).
func (d *DB) GetRuns(limit int) []RunRecord {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.Query(
		`SELECT id, timestamp, count, hq, home_world, top_count, top_item_id, top_profit, duration_ms, params_json
		 FROM analysis_runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return []RunRecord{}
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var topItem sql.NullInt32
		var topProfit sql.NullFloat64
		var paramsStr string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Count, &r.HQ, &r.HomeWorld, &r.TopCount,
			&topItem, &topProfit, &r.DurationMs, &paramsStr); err != nil {
			continue
		}
		if topItem.Valid {
			r.TopItemID = opt.Some(topItem.Int32)
		}
		if topProfit.Valid {
			r.TopProfit = opt.Some(topProfit.Float64)
		}
		r.Params = json.RawMessage(paramsStr)
		records = append(records, r)
	}
	if records == nil {
		return []RunRecord{}
	}
	return records
}

// DeleteRunsBefore removes runs older than cutoff and returns how many.
func (d *DB) DeleteRunsBefore(cutoff time.Time) int64 {
	res, err := d.sql.Exec("DELETE FROM analysis_runs WHERE timestamp < ?", cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		logger.Warn("DB", "DeleteRunsBefore: "+err.Error())
		return 0
	}
	n, _ := res.RowsAffected()
	return n
}
