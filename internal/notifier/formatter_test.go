package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"MomentumWatch/internal/model"
)

func TestFormatAlerts(t *testing.T) {
	assert.Empty(t, FormatAlerts(nil))

	ts := time.Date(2026, 5, 4, 9, 31, 0, 0, time.UTC)
	msg := FormatAlerts([]model.Alert{
		{Type: model.AlertNewMover, Symbol: "AAA", Message: "AAA new qualifying mover", Timestamp: ts},
		{Type: model.AlertVolumeSpike, Symbol: "B&B", Message: "B&B volume spike", Timestamp: ts},
	})
	assert.Contains(t, msg, "2 alert(s)")
	assert.Contains(t, msg, "🆕 AAA new qualifying mover <i>09:31:00</i>")
	assert.Contains(t, msg, "🔊 B&amp;B volume spike")
}

func TestFormatScanSummary(t *testing.T) {
	assert.Equal(t, "No scan has completed yet.", FormatScanSummary(nil, 5))

	res := &model.ScanResult{
		Gappers: []model.DerivedRecord{
			{Symbol: "AAA", Price: 4.5, ChangePercent: 22, GapPercent: 18, RelativeVolume: 6, Strategies: []model.Strategy{model.StrategyGapAndGo}},
			{Symbol: "BBB", Price: 3},
		},
		Status:    model.StatusDelayed,
		Source:    model.SourceDemo,
		Universe:  2,
		ScannedAt: time.Date(2026, 5, 4, 9, 31, 0, 0, time.UTC),
	}
	msg := FormatScanSummary(res, 1)
	assert.Contains(t, msg, "delayed | 2 symbols")
	assert.Contains(t, msg, "demo data")
	assert.Contains(t, msg, "<b>AAA</b> $4.50 +22.0% gap +18.0% 6.0x 💥 Gap &amp; Go")
	assert.NotContains(t, msg, "BBB")
	assert.Contains(t, msg, "(none)")
}

func TestFormatRecord(t *testing.T) {
	msg := FormatRecord(model.DerivedRecord{
		Symbol: "AAA", Price: 5, ChangePercent: 12.5, Float: 8_500_000, Sector: "Healthcare",
		Strategies: []model.Strategy{model.StrategyLowFloatRunner, model.StrategyHODBreak},
	})
	assert.Contains(t, msg, "<b>AAA</b> $5.00 (+12.50%)")
	assert.Contains(t, msg, "Float: 8.5M | Healthcare")
	assert.Contains(t, msg, "🚀 Low Float Runner · ⚡ HOD Break")
}
