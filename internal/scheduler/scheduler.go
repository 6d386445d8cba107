package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"MomentumWatch/internal/alert"
	"MomentumWatch/internal/collector"
	"MomentumWatch/internal/metrics"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/notifier"
	"MomentumWatch/internal/recorder"
)

// ErrCycleInProgress is returned by RunNow while another cycle is running.
var ErrCycleInProgress = errors.New("scan cycle already in progress")

const DefaultPollInterval = 60 * time.Second

// Cycler runs one scan cycle. *scanner.Pipeline implements it.
type Cycler interface {
	RunCycle(ctx context.Context, prev *model.ScanResult) (*model.ScanResult, error)
}

// Notifier delivers formatted alert batches.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// LookupFunc derives a fresh record for one symbol. prev is the symbol's
// record from the last scan, or nil.
type LookupFunc func(ctx context.Context, symbol string, prev *model.DerivedRecord) (rec model.DerivedRecord, found bool, err error)

// Listener is called after every successful cycle.
type Listener func(res *model.ScanResult, alerts []model.Alert)

// State is what the dashboard shows: the last good scan plus loop status.
type State struct {
	Result    *model.ScanResult `json:"result"`
	Status    model.Status      `json:"status"`
	Demo      bool              `json:"demo"`
	LastError string            `json:"last_error,omitempty"`
	LastRun   time.Time         `json:"last_run"`
}

// Scheduler owns the polling loop. Live is required; Demo, Notifier,
// Metrics and Lookup are optional.
type Scheduler struct {
	Cron     *cron.Cron
	Live     Cycler
	Demo     Cycler
	Detector *alert.Detector
	Notifier Notifier
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Lookup   LookupFunc
	Ctx      context.Context

	running  atomic.Bool
	planOnce sync.Once

	mu        sync.RWMutex
	last      *model.ScanResult
	status    model.Status
	demo      bool
	lastErr   string
	lastRun   time.Time
	listeners []Listener
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, live Cycler, det *alert.Detector, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(),
		Live:     live,
		Detector: det,
		Recorder: rec,
		Ctx:      ctx,
		status:   model.StatusOffline,
	}
}

// Register schedules the scan cycle every interval.
func (s *Scheduler) Register(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if _, err := s.Cron.AddFunc("@every "+interval.String(), s.tick); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// OnCycle registers a listener for completed cycles.
func (s *Scheduler) OnCycle(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *Scheduler) tick() {
	if _, err := s.RunNow(s.Ctx); errors.Is(err, ErrCycleInProgress) {
		log.Warn().Msg("previous scan still running, skipping tick")
	}
}

// RunNow runs one cycle immediately. It fails with ErrCycleInProgress
// rather than overlap a running cycle.
func (s *Scheduler) RunNow(ctx context.Context) (*model.ScanResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.running.Store(false)
	return s.runCycle(ctx)
}

func (s *Scheduler) runCycle(ctx context.Context) (*model.ScanResult, error) {
	start := time.Now()
	prev := s.Last()

	s.mu.RLock()
	demo := s.demo
	s.mu.RUnlock()

	cycler, source := s.Live, model.SourceProvider
	if demo {
		cycler, source = s.Demo, model.SourceDemo
	}

	res, err := cycler.RunCycle(ctx, prev)
	if err != nil && !demo && collector.IsPlanRestricted(err) && s.Demo != nil {
		log.Warn().Err(err).Msg("quotes plan restricted, switching to demo data")
		s.mu.Lock()
		s.demo = true
		s.mu.Unlock()
		s.Metrics.SetDemoMode(true)

		// Demo symbols share nothing with the live scan.
		prev, source = nil, model.SourceDemo
		res, err = s.Demo.RunCycle(ctx, nil)
	}

	elapsed := time.Since(start)
	if err != nil {
		s.fail(err, source, elapsed)
		return nil, err
	}

	var alerts []model.Alert
	if s.Detector != nil {
		alerts = s.Detector.Detect(prev, res)
	}

	s.mu.Lock()
	s.last = res
	s.status = res.Status
	s.lastErr = ""
	s.lastRun = start
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	log.Info().
		Str("status", string(res.Status)).
		Str("source", string(res.Source)).
		Int("count", res.Universe).
		Int("alerts", len(alerts)).
		Dur("took", elapsed).
		Msg("scan cycle complete")

	s.Metrics.ObserveCycle(string(res.Status), elapsed)
	for _, v := range []model.View{model.ViewGappers, model.ViewMomentum, model.ViewHighRVol} {
		s.Metrics.SetViewSize(string(v), len(res.View(v)))
	}
	for _, a := range alerts {
		s.Metrics.Alert(string(a.Type))
	}

	if err := s.Recorder.RecordCycle(&recorder.CycleEvent{
		Result: res, Status: res.Status, Source: res.Source, Duration: elapsed,
	}); err != nil {
		log.Error().Err(err).Msg("record cycle")
	}
	if err := s.Recorder.RecordAlerts(alerts); err != nil {
		log.Error().Err(err).Msg("record alerts")
	}
	s.notify(ctx, alerts)

	for _, l := range listeners {
		l(res, alerts)
	}
	return res, nil
}

// fail marks the loop offline. The last good scan stays on screen.
func (s *Scheduler) fail(err error, source model.Source, elapsed time.Duration) {
	if collector.IsPlanRestricted(err) {
		// Repeats every tick until the plan changes, and the quotes client
		// already reported the 403 itself; say it once, without the error.
		s.planOnce.Do(func() {
			log.Warn().Str("source", string(source)).Msg("quotes plan restricted and demo mode is off, scanner offline")
		})
	} else {
		log.Error().Err(err).Str("source", string(source)).Msg("scan cycle failed")
	}

	s.mu.Lock()
	s.status = model.StatusOffline
	s.lastErr = err.Error()
	s.lastRun = time.Now()
	s.mu.Unlock()

	s.Metrics.ObserveCycle(string(model.StatusOffline), elapsed)
	if rerr := s.Recorder.RecordCycle(&recorder.CycleEvent{
		Status: model.StatusOffline, Source: source, Duration: elapsed, Error: err.Error(),
	}); rerr != nil {
		log.Error().Err(rerr).Msg("record failed cycle")
	}
}

func (s *Scheduler) notify(ctx context.Context, alerts []model.Alert) {
	if s.Notifier == nil || len(alerts) == 0 {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, notifier.FormatAlerts(alerts), 3); err != nil {
		log.Error().Err(err).Msg("send alert notification")
	}
}

// Last returns the last successful scan, or nil before the first one.
func (s *Scheduler) Last() *model.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// State returns the current loop state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Result:    s.last,
		Status:    s.status,
		Demo:      s.demo,
		LastError: s.lastErr,
		LastRun:   s.lastRun,
	}
}

// HandleCommand processes a Telegram command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "/scan":
		return notifier.FormatScanSummary(s.Last(), 5)
	case "/alerts":
		if s.Detector == nil {
			return "Alerts are disabled."
		}
		recent := s.Detector.Recent()
		if len(recent) == 0 {
			return "No alerts yet."
		}
		if len(recent) > 10 {
			recent = recent[:10]
		}
		return notifier.FormatAlerts(recent)
	case "/refresh":
		res, err := s.RunNow(ctx)
		if err != nil {
			return fmt.Sprintf("❌ refresh failed: %v", err)
		}
		return notifier.FormatScanSummary(res, 5)
	case "/lookup":
		if s.Lookup == nil {
			return "Lookup is disabled."
		}
		if len(fields) < 2 {
			return "Usage: /lookup SYMBOL"
		}
		symbol := strings.ToUpper(fields[1])
		var prev *model.DerivedRecord
		if rec, ok := s.Last().Union()[symbol]; ok {
			prev = &rec
		}
		rec, found, err := s.Lookup(ctx, symbol, prev)
		if err != nil {
			return fmt.Sprintf("❌ lookup failed: %v", err)
		}
		if !found {
			return "Unknown symbol: " + symbol
		}
		return notifier.FormatRecord(rec)
	case "/status":
		st := s.State()
		msg := fmt.Sprintf("Status: %s | demo: %v | last run: %s", st.Status, st.Demo, st.LastRun.Format("15:04:05"))
		if st.LastError != "" {
			msg += "\nLast error: " + st.LastError
		}
		return msg
	default:
		return "Commands:\n• /scan\n• /alerts\n• /refresh\n• /lookup SYMBOL\n• /status"
	}
}
