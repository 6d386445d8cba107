package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MomentumWatch/internal/alert"
	"MomentumWatch/internal/collector"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/notifier"
	"MomentumWatch/internal/recorder"
	"MomentumWatch/internal/scanner"
)

// scriptedCycler returns its steps in order and repeats the last one.
type scriptedCycler struct {
	mu    sync.Mutex
	steps []step
	calls int
	prevs []*model.ScanResult
}

type step struct {
	res *model.ScanResult
	err error
}

func (c *scriptedCycler) RunCycle(_ context.Context, prev *model.ScanResult) (*model.ScanResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	if i >= len(c.steps) {
		i = len(c.steps) - 1
	}
	c.calls++
	c.prevs = append(c.prevs, prev)
	return c.steps[i].res, c.steps[i].err
}

type blockingCycler struct {
	started chan struct{}
	release chan struct{}
}

func (c *blockingCycler) RunCycle(_ context.Context, _ *model.ScanResult) (*model.ScanResult, error) {
	close(c.started)
	<-c.release
	return result(model.SourceProvider, "AAA"), nil
}

type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) SendWithRetry(_ context.Context, text string, _ int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, text)
	return nil
}

type captureRecorder struct {
	recorder.NoopRecorder
	cycles []*recorder.CycleEvent
	alerts []model.Alert
}

func (r *captureRecorder) RecordCycle(evt *recorder.CycleEvent) error {
	r.cycles = append(r.cycles, evt)
	return nil
}

func (r *captureRecorder) RecordAlerts(a []model.Alert) error {
	r.alerts = append(r.alerts, a...)
	return nil
}

func result(source model.Source, symbols ...string) *model.ScanResult {
	res := &model.ScanResult{Status: model.StatusDelayed, Source: source, ScannedAt: time.Now(), Universe: len(symbols)}
	for _, s := range symbols {
		res.Gappers = append(res.Gappers, model.DerivedRecord{
			Symbol: s, GapPercent: 8, Price: 5, RelativeVolume: 6, ChangePercent: 9,
		})
	}
	return res
}

func TestRunNow_FirstCycleThenAlerts(t *testing.T) {
	live := &scriptedCycler{steps: []step{
		{res: result(model.SourceProvider, "AAA")},
		{res: result(model.SourceProvider, "AAA", "BBB")},
	}}
	rec := &captureRecorder{}
	tn := &captureNotifier{}
	s := NewScheduler(context.Background(), live, alert.NewDetector(alert.DefaultConfig()), rec)
	s.Notifier = tn

	var heard []int
	s.OnCycle(func(_ *model.ScanResult, alerts []model.Alert) { heard = append(heard, len(alerts)) })

	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Nil(t, live.prevs[0])
	assert.Empty(t, tn.messages, "no alerts on the first cycle")

	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, live.prevs[1])
	require.Len(t, tn.messages, 1)
	assert.Contains(t, tn.messages[0], "BBB new qualifying mover")
	assert.Equal(t, []int{0, 1}, heard)

	require.Len(t, rec.cycles, 2)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "BBB", rec.alerts[0].Symbol)

	st := s.State()
	assert.Equal(t, model.StatusDelayed, st.Status)
	assert.False(t, st.Demo)
	assert.Len(t, st.Result.Gappers, 2)
}

func TestRunNow_PassesPreviousResult(t *testing.T) {
	first := result(model.SourceProvider, "AAA")
	live := &scriptedCycler{steps: []step{{res: first}, {res: result(model.SourceProvider, "AAA")}}}
	s := NewScheduler(context.Background(), live, nil, nil)

	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, live.prevs[1])
}

func TestRunNow_FailureKeepsLastGood(t *testing.T) {
	good := result(model.SourceProvider, "AAA")
	live := &scriptedCycler{steps: []step{
		{res: good},
		{err: errors.New("quotes snapshot: connection refused")},
	}}
	rec := &captureRecorder{}
	s := NewScheduler(context.Background(), live, alert.NewDetector(alert.DefaultConfig()), rec)

	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	_, err = s.RunNow(context.Background())
	require.Error(t, err)

	st := s.State()
	assert.Equal(t, model.StatusOffline, st.Status)
	assert.Same(t, good, st.Result)
	assert.Contains(t, st.LastError, "connection refused")

	require.Len(t, rec.cycles, 2)
	assert.Equal(t, model.StatusOffline, rec.cycles[1].Status)
	assert.Nil(t, rec.cycles[1].Result)
}

func TestRunNow_PlanRestrictedSwitchesToDemo(t *testing.T) {
	restricted := fmt.Errorf("quotes snapshot: %w", &collector.StatusError{Provider: "quotes", Endpoint: "/gainers", Code: 403})
	live := &scriptedCycler{steps: []step{{err: restricted}}}
	demo := &scriptedCycler{steps: []step{{res: result(model.SourceDemo, "DEMA")}}}

	s := NewScheduler(context.Background(), live, alert.NewDetector(alert.DefaultConfig()), nil)
	s.Demo = demo

	res, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SourceDemo, res.Source)
	assert.True(t, s.State().Demo)

	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, live.calls, "live provider is not retried once in demo mode")
	assert.Equal(t, 2, demo.calls)
	assert.Nil(t, demo.prevs[0])
	assert.NotNil(t, demo.prevs[1])
}

func TestRunNow_PlanRestrictedWithoutDemoGoesOffline(t *testing.T) {
	restricted := fmt.Errorf("quotes snapshot: %w", collector.ErrPlanRestricted)
	s := NewScheduler(context.Background(), &scriptedCycler{steps: []step{{err: restricted}}}, nil, nil)

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, collector.ErrPlanRestricted)
	st := s.State()
	assert.Equal(t, model.StatusOffline, st.Status)
	assert.False(t, st.Demo)
	assert.Nil(t, st.Result)
}

func TestRunNow_SingleFlight(t *testing.T) {
	bc := &blockingCycler{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(context.Background(), bc, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()
	<-bc.started

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrCycleInProgress)
	assert.Contains(t, s.HandleCommand(context.Background(), "/refresh"), "already in progress")

	close(bc.release)
	require.NoError(t, <-done)
	assert.NotNil(t, s.Last())
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &scriptedCycler{steps: []step{{res: result(model.SourceProvider)}}}, nil, nil)
	require.NoError(t, s.Register(0))
	require.NoError(t, s.Register(15*time.Second))
	assert.Len(t, s.Cron.Entries(), 2)
}

func TestHandleCommand(t *testing.T) {
	live := &scriptedCycler{steps: []step{{res: result(model.SourceProvider, "AAA")}}}
	s := NewScheduler(context.Background(), live, alert.NewDetector(alert.DefaultConfig()), nil)
	ctx := context.Background()

	assert.Equal(t, "No scan has completed yet.", s.HandleCommand(ctx, "/scan"))
	assert.Equal(t, "No alerts yet.", s.HandleCommand(ctx, "/alerts"))
	assert.Contains(t, s.HandleCommand(ctx, "/refresh"), "AAA")
	assert.Contains(t, s.HandleCommand(ctx, "/SCAN"), "AAA")
	assert.Contains(t, s.HandleCommand(ctx, "/status"), "Status: delayed")
	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/refresh")
	assert.Empty(t, s.HandleCommand(ctx, "   "))
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRunNow_PlanRestrictedLoggedOnce(t *testing.T) {
	buf := captureLog(t)
	restricted := fmt.Errorf("quotes snapshot: fetch gainers: %w", &collector.StatusError{Provider: "quotes", Endpoint: "/gainers", Code: 403})
	rec := &captureRecorder{}
	s := NewScheduler(context.Background(), &scriptedCycler{steps: []step{{err: restricted}}}, nil, rec)

	for i := 0; i < 3; i++ {
		_, err := s.RunNow(context.Background())
		require.ErrorIs(t, err, collector.ErrPlanRestricted)
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "plan restricted"))
	assert.NotContains(t, buf.String(), `"level":"error"`)
	assert.Equal(t, model.StatusOffline, s.State().Status)
	assert.Contains(t, s.State().LastError, "403")
	assert.Len(t, rec.cycles, 3, "every restricted cycle is still recorded")
}

func TestRunNow_PlanRestrictedWithRealClientLogs403Once(t *testing.T) {
	buf := captureLog(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"NOT_AUTHORIZED"}`, http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	quotes := collector.NewQuotesClient(srv.URL, "k", "", nil)
	s := NewScheduler(context.Background(), scanner.New(quotes, nil, model.SourceProvider), nil, nil)

	for i := 0; i < 3; i++ {
		_, err := s.RunNow(context.Background())
		require.ErrorIs(t, err, collector.ErrPlanRestricted)
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "403"), buf.String())
	assert.NotContains(t, buf.String(), `"level":"error"`)
	assert.Equal(t, model.StatusOffline, s.State().Status)
}

func TestRunNow_TransientFailuresLoggedEachTime(t *testing.T) {
	buf := captureLog(t)
	s := NewScheduler(context.Background(), &scriptedCycler{steps: []step{{err: errors.New("connection refused")}}}, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := s.RunNow(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 2, strings.Count(buf.String(), "scan cycle failed"))
}

func TestHandleCommand_Lookup(t *testing.T) {
	live := &scriptedCycler{steps: []step{{res: result(model.SourceProvider, "AAA")}}}
	s := NewScheduler(context.Background(), live, nil, nil)
	ctx := context.Background()

	assert.Equal(t, "Lookup is disabled.", s.HandleCommand(ctx, "/lookup AAA"))

	var gotPrev *model.DerivedRecord
	s.Lookup = func(_ context.Context, symbol string, prev *model.DerivedRecord) (model.DerivedRecord, bool, error) {
		gotPrev = prev
		switch symbol {
		case "AAA":
			return model.DerivedRecord{Symbol: "AAA", Price: 5, Strategies: []model.Strategy{model.StrategyInPlay}}, true, nil
		case "ERR":
			return model.DerivedRecord{}, false, errors.New("provider down")
		}
		return model.DerivedRecord{}, false, nil
	}

	assert.Equal(t, "Usage: /lookup SYMBOL", s.HandleCommand(ctx, "/lookup"))
	assert.Equal(t, notifier.FormatRecord(model.DerivedRecord{Symbol: "AAA", Price: 5, Strategies: []model.Strategy{model.StrategyInPlay}}),
		s.HandleCommand(ctx, "/lookup aaa"))
	assert.Nil(t, gotPrev, "no scan yet")

	_, err := s.RunNow(ctx)
	require.NoError(t, err)
	s.HandleCommand(ctx, "/lookup AAA")
	require.NotNil(t, gotPrev)
	assert.Equal(t, "AAA", gotPrev.Symbol)

	assert.Equal(t, "Unknown symbol: ZZZ", s.HandleCommand(ctx, "/lookup zzz"))
	assert.Contains(t, s.HandleCommand(ctx, "/lookup ERR"), "provider down")
}
