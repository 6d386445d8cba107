package notifier

import (
	"fmt"
	"html"
	"strings"

	"MomentumWatch/internal/model"
)

var alertIcons = map[model.AlertType]string{
	model.AlertNewMover:    "🆕",
	model.AlertSpike:       "📈",
	model.AlertVolumeSpike: "🔊",
}

// FormatAlerts renders a batch of alerts as one Telegram message.
func FormatAlerts(alerts []model.Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚨 <b>MomentumWatch</b> | %d alert(s)\n\n", len(alerts)))
	for _, a := range alerts {
		icon := alertIcons[a.Type]
		if icon == "" {
			icon = "•"
		}
		b.WriteString(fmt.Sprintf("%s %s <i>%s</i>\n", icon, html.EscapeString(a.Message), a.Timestamp.Format("15:04:05")))
	}
	return b.String()
}

// FormatScanSummary renders the top of each view.
func FormatScanSummary(res *model.ScanResult, top int) string {
	if res == nil {
		return "No scan has completed yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Scan</b> | %s | %s | %d symbols\n",
		res.ScannedAt.Format("15:04:05"), res.Status, res.Universe))
	if res.Source == model.SourceDemo {
		b.WriteString("⚠️ demo data\n")
	}

	sections := []struct {
		title string
		view  model.View
	}{
		{"Gappers", model.ViewGappers},
		{"Momentum", model.ViewMomentum},
		{"High RVol", model.ViewHighRVol},
	}
	for _, s := range sections {
		list := res.View(s.view)
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n", s.title))
		if len(list) == 0 {
			b.WriteString("  (none)\n")
			continue
		}
		for i, r := range list {
			if i == top {
				break
			}
			b.WriteString(formatRecordLine(i+1, r))
		}
	}
	return b.String()
}

func formatRecordLine(rank int, r model.DerivedRecord) string {
	tag := ""
	if len(r.Strategies) > 0 {
		tag = " " + html.EscapeString(string(r.Strategies[0]))
	}
	return fmt.Sprintf("%2d. <b>%s</b> $%.2f %+.1f%% gap %+.1f%% %.1fx%s\n",
		rank, r.Symbol, r.Price, r.ChangePercent, r.GapPercent, r.RelativeVolume, tag)
}

// FormatRecord renders a single symbol lookup.
func FormatRecord(r model.DerivedRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔎 <b>%s</b> $%.2f (%+.2f%%)\n", r.Symbol, r.Price, r.ChangePercent))
	b.WriteString(fmt.Sprintf("Gap: %+.2f%% | RVol: %.2fx | VWAP dist: %+.2f%%\n", r.GapPercent, r.RelativeVolume, r.VWAPDistance))
	if r.Float > 0 {
		b.WriteString(fmt.Sprintf("Float: %.1fM", r.Float/1e6))
		if r.Sector != "" {
			b.WriteString(" | " + html.EscapeString(r.Sector))
		}
		b.WriteString("\n")
	}
	tags := make([]string, len(r.Strategies))
	for i, s := range r.Strategies {
		tags[i] = html.EscapeString(string(s))
	}
	b.WriteString(strings.Join(tags, " · "))
	return b.String()
}
