package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"MomentumWatch/internal/model"
)

// SQLiteRecorder persists scan cycles, ranked records and alerts to SQLite.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the dashboard read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			status      TEXT,
			source      TEXT,
			universe    INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON scan_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_records (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id        INTEGER NOT NULL REFERENCES scan_cycles(id),
			view            TEXT NOT NULL,
			rank            INTEGER NOT NULL,
			symbol          TEXT NOT NULL,
			price           REAL,
			gap_percent     REAL,
			change_percent  REAL,
			relative_volume REAL,
			vwap_distance   REAL,
			float_shares    REAL,
			strategies      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_cycle ON scan_records(cycle_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_symbol ON scan_records(symbol)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id        TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			type      TEXT,
			symbol    TEXT,
			message   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordCycle stores the cycle row and, for a successful cycle, every view's
// ranked records in one transaction.
func (r *SQLiteRecorder) RecordCycle(evt *CycleEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := time.Now()
	universe := 0
	if evt.Result != nil {
		ts = evt.Result.ScannedAt
		universe = evt.Result.Universe
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO scan_cycles
		(timestamp, status, source, universe, duration_ms, error)
		VALUES (?,?,?,?,?,?)`,
		ts.Unix(), string(evt.Status), string(evt.Source), universe,
		evt.Duration.Milliseconds(), evt.Error,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	if evt.Result != nil {
		cycleID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("cycle id: %w", err)
		}
		stmt, err := tx.Prepare(`INSERT INTO scan_records
			(cycle_id, view, rank, symbol, price, gap_percent, change_percent,
			 relative_volume, vwap_distance, float_shares, strategies)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare records: %w", err)
		}
		defer stmt.Close()

		for _, view := range []model.View{model.ViewGappers, model.ViewMomentum, model.ViewHighRVol} {
			for i, rec := range evt.Result.View(view) {
				if _, err := stmt.Exec(cycleID, string(view), i+1, rec.Symbol,
					rec.Price, rec.GapPercent, rec.ChangePercent,
					rec.RelativeVolume, rec.VWAPDistance, rec.Float,
					joinStrategies(rec.Strategies),
				); err != nil {
					return fmt.Errorf("insert record %s: %w", rec.Symbol, err)
				}
			}
		}
	}

	return tx.Commit()
}

// RecordAlerts stores alerts; an ID already present is ignored.
func (r *SQLiteRecorder) RecordAlerts(alerts []model.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range alerts {
		if _, err := r.db.Exec(`INSERT OR IGNORE INTO alerts
			(id, timestamp, type, symbol, message) VALUES (?,?,?,?,?)`,
			a.ID, a.Timestamp.Unix(), string(a.Type), a.Symbol, a.Message,
		); err != nil {
			return fmt.Errorf("insert alert %s: %w", a.ID, err)
		}
	}
	return nil
}

// RecentAlerts returns up to limit stored alerts, newest first.
func (r *SQLiteRecorder) RecentAlerts(limit int) ([]model.Alert, error) {
	rows, err := r.db.Query(`SELECT id, timestamp, type, symbol, message
		FROM alerts ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []model.Alert
	for rows.Next() {
		var (
			a    model.Alert
			ts   int64
			kind string
		)
		if err := rows.Scan(&a.ID, &ts, &kind, &a.Symbol, &a.Message); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Type = model.AlertType(kind)
		a.Timestamp = time.Unix(ts, 0)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func joinStrategies(tags []model.Strategy) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, "|")
}
