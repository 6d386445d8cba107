package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"MomentumWatch/internal/alert"
	"MomentumWatch/internal/api"
	"MomentumWatch/internal/model"
	"MomentumWatch/internal/notifier"
	"MomentumWatch/internal/recorder"
	"MomentumWatch/internal/scheduler"
)

var runSkipInitial bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling loop and the dashboard API",
	Long: `Run scans every poll interval, raises alerts, records history to SQLite,
pushes alerts to Telegram when configured and serves the HTTP/WebSocket API.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runSkipInitial, "no-initial-scan", false, "Wait for the first tick instead of scanning at startup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log.Info().Msg("MomentumWatch starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if n := a.fund.Purge(ctx); n > 0 {
		log.Info().Int("count", n).Msg("purged stale fundamentals")
	}

	var (
		rec     recorder.Recorder = recorder.NewNoopRecorder()
		history []model.Alert
	)
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			if history, err = sr.RecentAlerts(cfg.Alerts.MaxAlerts); err != nil {
				log.Warn().Err(err).Msg("load alert history failed")
			}
		}
	}
	defer rec.Close()

	det := alert.NewDetector(alert.Config{
		SpikeThreshold:  cfg.Alerts.SpikeThreshold,
		VolumeThreshold: cfg.Alerts.VolumeThreshold,
		MaxAlerts:       cfg.Alerts.MaxAlerts,
		HighlightTTL:    cfg.Alerts.Highlight,
	})
	det.Seed(history)
	if len(history) > 0 {
		log.Info().Int("count", len(history)).Msg("restored alert history")
	}

	sched := scheduler.NewScheduler(ctx, a.live, det, rec)
	sched.Metrics = a.metrics
	sched.Lookup = a.lookupSymbol
	if a.demo != nil {
		sched.Demo = a.demo
	}

	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sched.Notifier = tn
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	hub := api.NewHub(det)
	sched.OnCycle(hub.Publish)

	if err := sched.Register(cfg.Scanner.PollInterval); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if !runSkipInitial {
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Warn().Err(err).Msg("initial scan failed")
			}
		}()
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: (&api.API{
			Scanner:      sched,
			Quotes:       a.quotes,
			Fundamentals: a.fund,
			Alerts:       det,
			Hub:          hub,
			Gatherer:     a.registry,
		}).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().Dur("poll_interval", cfg.Scanner.PollInterval).Msg("MomentumWatch is running. Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("MomentumWatch stopped")
	return nil
}
