package recorder

import (
	"time"

	"MomentumWatch/internal/model"
)

// CycleEvent holds one scan cycle's outcome.
type CycleEvent struct {
	Result   *model.ScanResult // nil when the cycle failed
	Status   model.Status
	Source   model.Source
	Duration time.Duration
	Error    string
}

// Recorder persists scan history for later analysis.
type Recorder interface {
	RecordCycle(evt *CycleEvent) error
	RecordAlerts(alerts []model.Alert) error
	Close() error
}
