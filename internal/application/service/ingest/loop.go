package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

// State names one phase of the poll cycle.
type State string

const (
	StateIdle         State = "idle"
	StateFetching     State = "fetching"
	StateUploading    State = "uploading"
	StateSleeping     State = "sleeping"
	StateErrorBackoff State = "error_backoff"
)

// LoopConfig fixes the cadence and gating of the poll loop.
type LoopConfig struct {
	// Interval is the sleep between normal cycles; ErrorInterval the
	// shorter sleep after a failed cycle.
	Interval      time.Duration
	ErrorInterval time.Duration

	// RefreshHour is the wall-clock hour that triggers the daily macro
	// rates refresh, at most once per calendar day.
	RefreshHour int
	RatesFrom   time.Time

	// [ActiveStartHour, ActiveEndHour) restricts fetching to a local
	// time-of-day window. 0/24 disables the gate.
	ActiveStartHour int
	ActiveEndHour   int
}

// Loop runs the poll cycle forever: fetch the catalog, upload what came
// back, run the daily rates refresh when due, sleep, repeat. It has no
// terminal state; it stops only when the context is cancelled.
type Loop struct {
	service *Service
	symbols []string
	cfg     LoopConfig
	logger  *logrus.Entry

	state        State
	lastRatesRun time.Time // date of the last successful refresh
	cycles       int64

	// injected for tests
	now   func() time.Time
	sleep func(context.Context, time.Duration)
}

// NewLoop builds a poll loop over the given symbols.
func NewLoop(service *Service, symbols []string, cfg LoopConfig, logger *logrus.Entry) *Loop {
	return &Loop{
		service: service,
		symbols: symbols,
		cfg:     cfg,
		logger:  logger,
		state:   StateIdle,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Run cycles until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.WithFields(logrus.Fields{
		"symbols":        len(l.symbols),
		"interval":       l.cfg.Interval.String(),
		"error_interval": l.cfg.ErrorInterval.String(),
	}).Info("poll loop started")

	for ctx.Err() == nil {
		l.cycle(ctx)
	}

	l.logger.Info("poll loop stopped")
	return ctx.Err()
}

// cycle runs one pass of the state machine.
func (l *Loop) cycle(ctx context.Context) {
	l.transition(StateIdle)
	l.cycles++

	now := l.now()
	if !l.withinActiveWindow(now) {
		l.logger.WithField("hour", now.Hour()).Debug("outside active window")
		l.transition(StateSleeping)
		l.sleep(ctx, l.cfg.Interval)
		return
	}

	start := now
	l.transition(StateFetching)
	batch := l.service.FetchLatest(ctx, l.symbols)

	var cycleErr error
	if len(batch) > 0 {
		l.transition(StateUploading)
		cycleErr = l.service.UploadQuotes(ctx, batch)
	}

	if cycleErr != nil {
		// A store rejection is a lost batch, not a broken cycle: log it
		// and keep the normal cadence. Everything else backs off.
		var storeErr *interfaces.StoreError
		if !errors.As(cycleErr, &storeErr) {
			l.logger.WithError(cycleErr).Error("cycle failed")
			l.transition(StateErrorBackoff)
			l.sleep(ctx, l.cfg.ErrorInterval)
			return
		}
		l.logger.WithError(cycleErr).WithField("status", storeErr.StatusCode).Error("upload rejected")
	}

	l.logger.WithFields(logrus.Fields{
		"cycle":   l.cycles,
		"rows":    len(batch),
		"took_ms": l.now().Sub(start).Milliseconds(),
	}).Info("cycle complete")

	l.maybeRefreshRates(ctx)

	l.transition(StateSleeping)
	l.sleep(ctx, l.cfg.Interval)
}

// maybeRefreshRates runs the daily macro refresh when the trigger hour
// matches and it has not already run today. A failure is logged without
// touching the last-run date, so the next matching hour retries.
func (l *Loop) maybeRefreshRates(ctx context.Context) {
	now := l.now()
	if now.Hour() != l.cfg.RefreshHour {
		return
	}
	today := dateOf(now)
	if l.lastRatesRun.Equal(today) {
		return
	}
	if err := l.service.RefreshRates(ctx, l.cfg.RatesFrom); err != nil {
		l.logger.WithError(err).Error("rates refresh failed")
		return
	}
	l.lastRatesRun = today
}

func (l *Loop) withinActiveWindow(now time.Time) bool {
	h := now.Hour()
	return h >= l.cfg.ActiveStartHour && h < l.cfg.ActiveEndHour
}

func (l *Loop) transition(s State) {
	l.state = s
}

// State reports the current loop phase.
func (l *Loop) State() State {
	return l.state
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
