package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	quotes "github.com/FacuFre/SHD/internal/domain/entity/quotes"
	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

func okSource() *fakeSource {
	return &fakeSource{fn: func(symbol string) (quotes.Quote, bool, error) {
		return quotes.Quote{Symbol: symbol, LastPrice: 100}, true, nil
	}}
}

func newTestLoop(service *Service, cfg LoopConfig, now time.Time) (*Loop, *[]time.Duration) {
	l := NewLoop(service, []string{"AL30", "GD30"}, cfg, testLogger())
	l.now = func() time.Time { return now }
	sleeps := &[]time.Duration{}
	l.sleep = func(_ context.Context, d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return l, sleeps
}

func TestCycleOutsideActiveWindowOnlySleeps(t *testing.T) {
	source := okSource()
	store := &fakeStore{}
	service := newTestService(source, store, nil)

	cfg := LoopConfig{
		Interval:        300 * time.Second,
		ErrorInterval:   60 * time.Second,
		RefreshHour:     20,
		ActiveStartHour: 10,
		ActiveEndHour:   19,
	}
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) // before the window
	l, sleeps := newTestLoop(service, cfg, now)

	l.cycle(context.Background())

	if source.fetches != 0 {
		t.Errorf("fetches = %d, want 0 outside the active window", source.fetches)
	}
	if len(store.calls) != 0 {
		t.Errorf("store calls = %d, want 0", len(store.calls))
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != cfg.Interval {
		t.Errorf("sleeps = %v, want one normal interval", *sleeps)
	}
	if l.State() != StateSleeping {
		t.Errorf("state = %q, want sleeping", l.State())
	}
}

func TestCycleHappyPath(t *testing.T) {
	source := okSource()
	store := &fakeStore{}
	service := newTestService(source, store, nil)

	cfg := LoopConfig{
		Interval:      300 * time.Second,
		ErrorInterval: 60 * time.Second,
		RefreshHour:   20,
		ActiveEndHour: 24,
	}
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	l, sleeps := newTestLoop(service, cfg, now)

	l.cycle(context.Background())

	if source.fetches != 2 {
		t.Errorf("fetches = %d, want 2", source.fetches)
	}
	if len(store.calls) != 1 || store.calls[0].op != "upsert" {
		t.Fatalf("store calls = %+v, want one upsert", store.calls)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != cfg.Interval {
		t.Errorf("sleeps = %v, want one normal interval", *sleeps)
	}
}

func TestCycleSkipsUploadWhenFetchIsEmpty(t *testing.T) {
	source := &fakeSource{fn: func(string) (quotes.Quote, bool, error) {
		return quotes.Quote{}, false, nil
	}}
	store := &fakeStore{}
	service := newTestService(source, store, nil)

	cfg := LoopConfig{Interval: 300 * time.Second, ErrorInterval: 60 * time.Second, RefreshHour: 20, ActiveEndHour: 24}
	l, sleeps := newTestLoop(service, cfg, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	l.cycle(context.Background())

	if len(store.calls) != 0 {
		t.Errorf("store calls = %d, want 0 for an empty fetch", len(store.calls))
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != cfg.Interval {
		t.Errorf("sleeps = %v, want one normal interval", *sleeps)
	}
}

func TestCycleBacksOffOnTransportError(t *testing.T) {
	store := &fakeStore{upsertErr: errors.New("connection reset")}
	service := newTestService(okSource(), store, nil)

	cfg := LoopConfig{Interval: 300 * time.Second, ErrorInterval: 60 * time.Second, RefreshHour: 20, ActiveEndHour: 24}
	l, sleeps := newTestLoop(service, cfg, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	l.cycle(context.Background())

	if len(*sleeps) != 1 || (*sleeps)[0] != cfg.ErrorInterval {
		t.Errorf("sleeps = %v, want the shorter error interval", *sleeps)
	}
	if l.State() != StateErrorBackoff {
		t.Errorf("state = %q, want error_backoff", l.State())
	}
}

func TestCycleKeepsNormalCadenceOnStoreRejection(t *testing.T) {
	store := &fakeStore{upsertErr: &interfaces.StoreError{StatusCode: 409, Body: "conflict"}}
	service := newTestService(okSource(), store, nil)

	cfg := LoopConfig{Interval: 300 * time.Second, ErrorInterval: 60 * time.Second, RefreshHour: 20, ActiveEndHour: 24}
	l, sleeps := newTestLoop(service, cfg, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	l.cycle(context.Background())

	if len(*sleeps) != 1 || (*sleeps)[0] != cfg.Interval {
		t.Errorf("sleeps = %v, want the normal interval (rejected batch is lost, not retried)", *sleeps)
	}
}

func TestMaybeRefreshRates(t *testing.T) {
	trigger := time.Date(2025, 3, 10, 20, 15, 0, 0, time.UTC)

	t.Run("runs at the trigger hour and records the date", func(t *testing.T) {
		rateSrc := &fakeRates{}
		service := newTestService(okSource(), &fakeStore{}, rateSrc)
		l, _ := newTestLoop(service, LoopConfig{Interval: time.Second, ErrorInterval: time.Second, RefreshHour: 20, ActiveEndHour: 24}, trigger)

		l.maybeRefreshRates(context.Background())

		if rateSrc.calls == 0 {
			t.Fatal("rate source never called")
		}
		if !l.lastRatesRun.Equal(dateOf(trigger)) {
			t.Errorf("lastRatesRun = %v, want %v", l.lastRatesRun, dateOf(trigger))
		}
	})

	t.Run("does not run twice on the same day", func(t *testing.T) {
		rateSrc := &fakeRates{}
		service := newTestService(okSource(), &fakeStore{}, rateSrc)
		l, _ := newTestLoop(service, LoopConfig{Interval: time.Second, ErrorInterval: time.Second, RefreshHour: 20, ActiveEndHour: 24}, trigger)
		l.lastRatesRun = dateOf(trigger)

		l.maybeRefreshRates(context.Background())

		if rateSrc.calls != 0 {
			t.Errorf("rate source calls = %d, want 0 when already run today", rateSrc.calls)
		}
	})

	t.Run("does not run outside the trigger hour", func(t *testing.T) {
		rateSrc := &fakeRates{}
		service := newTestService(okSource(), &fakeStore{}, rateSrc)
		l, _ := newTestLoop(service, LoopConfig{Interval: time.Second, ErrorInterval: time.Second, RefreshHour: 20, ActiveEndHour: 24},
			time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

		l.maybeRefreshRates(context.Background())

		if rateSrc.calls != 0 {
			t.Errorf("rate source calls = %d, want 0 outside the trigger hour", rateSrc.calls)
		}
	})

	t.Run("failure leaves the last-run date untouched", func(t *testing.T) {
		rateSrc := &fakeRates{err: errors.New("api down")}
		service := newTestService(okSource(), &fakeStore{}, rateSrc)
		l, _ := newTestLoop(service, LoopConfig{Interval: time.Second, ErrorInterval: time.Second, RefreshHour: 20, ActiveEndHour: 24}, trigger)

		l.maybeRefreshRates(context.Background())

		if !l.lastRatesRun.IsZero() {
			t.Errorf("lastRatesRun = %v, want zero after a failed refresh", l.lastRatesRun)
		}
	})
}
