package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MomentumWatch/internal/model"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "nested", "watch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordCycle_StoresRankedViews(t *testing.T) {
	r := openTestRecorder(t)

	aaa := model.DerivedRecord{Symbol: "AAA", Price: 5, GapPercent: 12, Strategies: []model.Strategy{model.StrategyGapAndGo, model.StrategyHODBreak}}
	bbb := model.DerivedRecord{Symbol: "BBB", Price: 9, RelativeVolume: 4, Strategies: []model.Strategy{model.StrategyInPlay}}
	res := &model.ScanResult{
		Gappers:   []model.DerivedRecord{aaa, bbb},
		Momentum:  []model.DerivedRecord{aaa},
		HighRVol:  []model.DerivedRecord{bbb},
		Status:    model.StatusDelayed,
		Source:    model.SourceProvider,
		Universe:  2,
		ScannedAt: time.Unix(1_700_000_000, 0),
	}

	require.NoError(t, r.RecordCycle(&CycleEvent{Result: res, Status: res.Status, Source: res.Source, Duration: 1500 * time.Millisecond}))

	var (
		status   string
		universe int
		duration int64
	)
	require.NoError(t, r.db.QueryRow(`SELECT status, universe, duration_ms FROM scan_cycles`).Scan(&status, &universe, &duration))
	assert.Equal(t, "delayed", status)
	assert.Equal(t, 2, universe)
	assert.Equal(t, int64(1500), duration)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM scan_records`).Scan(&n))
	assert.Equal(t, 4, n)

	var (
		symbol string
		tags   string
	)
	require.NoError(t, r.db.QueryRow(`SELECT symbol, strategies FROM scan_records WHERE view = 'gappers' AND rank = 1`).Scan(&symbol, &tags))
	assert.Equal(t, "AAA", symbol)
	assert.Equal(t, "💥 Gap & Go|⚡ HOD Break", tags)
}

func TestRecordCycle_FailedCycle(t *testing.T) {
	r := openTestRecorder(t)
	require.NoError(t, r.RecordCycle(&CycleEvent{Status: model.StatusOffline, Source: model.SourceProvider, Error: "quotes snapshot: boom"}))

	var (
		status string
		msg    string
	)
	require.NoError(t, r.db.QueryRow(`SELECT status, error FROM scan_cycles`).Scan(&status, &msg))
	assert.Equal(t, "offline", status)
	assert.Equal(t, "quotes snapshot: boom", msg)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM scan_records`).Scan(&n))
	assert.Zero(t, n)
}

func TestRecordAlerts_RoundTripNewestFirst(t *testing.T) {
	r := openTestRecorder(t)
	base := time.Unix(1_700_000_000, 0)
	alerts := []model.Alert{
		{ID: "a1", Type: model.AlertNewMover, Symbol: "AAA", Message: "AAA new", Timestamp: base},
		{ID: "a2", Type: model.AlertSpike, Symbol: "BBB", Message: "BBB spiked", Timestamp: base.Add(time.Minute)},
	}
	require.NoError(t, r.RecordAlerts(alerts))
	require.NoError(t, r.RecordAlerts(alerts[:1]), "duplicate IDs are ignored")
	require.NoError(t, r.RecordAlerts(nil))

	got, err := r.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Equal(t, model.AlertSpike, got[0].Type)
	assert.Equal(t, "BBB", got[0].Symbol)
	assert.True(t, got[1].Timestamp.Equal(base))
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordCycle(&CycleEvent{}))
	assert.NoError(t, r.RecordAlerts([]model.Alert{{ID: "x"}}))
	assert.NoError(t, r.Close())
}
