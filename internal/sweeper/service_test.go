package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"lolwatch/internal/tracker"
	logx "lolwatch/pkg/logx"
)

type fakeSink struct {
	calls []string
	fail  bool
}

func (f *fakeSink) NotifyInactive(ctx context.Context, userID string, elapsed time.Duration) error {
	_ = ctx
	_ = elapsed
	if f.fail {
		return errors.New("send failed")
	}
	f.calls = append(f.calls, userID)
	return nil
}

type brokenStore struct {
	tracker.Store
}

func (brokenStore) All(ctx context.Context) ([]tracker.Record, error) {
	return nil, errors.New("store unavailable")
}

func newTestService(t *testing.T, sink Sink, now time.Time) (*Service, tracker.Store) {
	t.Helper()
	st := tracker.NewMemory()
	svc := New(Config{Enabled: true, Threshold: 24 * time.Hour}, st, sink, logx.Nop())
	svc.now = func() time.Time { return now }
	return svc, st
}

func TestSweepOneNotificationPerEpisode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	svc, st := newTestService(t, sink, t0.Add(24*time.Hour+time.Minute))

	if _, err := st.Register(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := st.SetActivity(ctx, "u1", t0); err != nil {
		t.Fatalf("set activity: %v", err)
	}

	stats, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats.Sent != 1 || len(sink.calls) != 1 || sink.calls[0] != "u1" {
		t.Fatalf("first tick: stats=%+v calls=%v", stats, sink.calls)
	}

	// a later tick must not re-notify
	svc.now = func() time.Time { return t0.Add(25 * time.Hour) }
	stats, err = svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if stats.Sent != 0 || len(sink.calls) != 1 {
		t.Fatalf("second tick re-notified: stats=%+v calls=%v", stats, sink.calls)
	}

	// a fresh start edge re-arms the episode
	if err := st.SetActivity(ctx, "u1", t0.Add(26*time.Hour)); err != nil {
		t.Fatalf("set activity: %v", err)
	}
	svc.now = func() time.Time { return t0.Add(26*time.Hour + 24*time.Hour) }
	stats, err = svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("third sweep: %v", err)
	}
	if stats.Sent != 1 || len(sink.calls) != 2 {
		t.Fatalf("re-armed episode not notified: stats=%+v calls=%v", stats, sink.calls)
	}
}

func TestSweepSkipsBelowThresholdAndUnobserved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}
	svc, st := newTestService(t, sink, t0.Add(23*time.Hour))

	for _, id := range []string{"fresh", "never"} {
		if _, err := st.Register(ctx, id); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	if err := st.SetActivity(ctx, "fresh", t0); err != nil {
		t.Fatalf("set activity: %v", err)
	}

	stats, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats.Scanned != 2 || stats.Eligible != 0 || len(sink.calls) != 0 {
		t.Fatalf("stats=%+v calls=%v", stats, sink.calls)
	}
}

func TestSweepRetriesAfterDeliveryFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{fail: true}
	svc, st := newTestService(t, sink, t0.Add(25*time.Hour))

	if _, err := st.Register(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := st.SetActivity(ctx, "u1", t0); err != nil {
		t.Fatalf("set activity: %v", err)
	}

	stats, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats.Failed != 1 || stats.Sent != 0 {
		t.Fatalf("stats=%+v", stats)
	}
	rec, _, _ := st.Get(ctx, "u1")
	if rec.Notified {
		t.Fatal("failed delivery must not mark notified")
	}

	// next tick retries and succeeds
	sink.fail = false
	stats, err = svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("retry sweep: %v", err)
	}
	if stats.Sent != 1 || len(sink.calls) != 1 {
		t.Fatalf("retry stats=%+v calls=%v", stats, sink.calls)
	}
	rec, _, _ = st.Get(ctx, "u1")
	if !rec.Notified {
		t.Fatal("successful delivery must mark notified")
	}
}

func TestSweepIsolatesPerUserFailures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sink := &selectiveSink{failFor: "bad"}
	svc, st := newTestService(t, sink, t0.Add(25*time.Hour))

	for _, id := range []string{"bad", "good"} {
		if _, err := st.Register(ctx, id); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
		if err := st.SetActivity(ctx, id, t0); err != nil {
			t.Fatalf("set activity %s: %v", id, err)
		}
	}

	stats, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats.Sent != 1 || stats.Failed != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	rec, _, _ := st.Get(ctx, "good")
	if !rec.Notified {
		t.Fatal("good user should have been notified despite bad user's failure")
	}
}

type selectiveSink struct {
	failFor string
	sent    []string
}

func (s *selectiveSink) NotifyInactive(ctx context.Context, userID string, elapsed time.Duration) error {
	_ = ctx
	_ = elapsed
	if userID == s.failFor {
		return errors.New("unreachable recipient")
	}
	s.sent = append(s.sent, userID)
	return nil
}

type blockingSink struct {
	gate    chan struct{}
	entered chan struct{}
}

func (s *blockingSink) NotifyInactive(ctx context.Context, userID string, elapsed time.Duration) error {
	_ = elapsed
	select {
	case s.entered <- struct{}{}:
	default:
	}
	select {
	case <-s.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestApplyDuringInFlightSweep(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sink := &blockingSink{gate: make(chan struct{}), entered: make(chan struct{}, 1)}

	st := tracker.NewMemory()
	svc := New(Config{
		Enabled:   true,
		Schedule:  Schedule{Every: time.Second},
		Threshold: 24 * time.Hour,
	}, st, sink, logx.Nop())
	svc.now = func() time.Time { return t0.Add(25 * time.Hour) }

	if _, err := st.Register(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := st.SetActivity(ctx, "u1", t0); err != nil {
		t.Fatalf("set activity: %v", err)
	}

	svc.Start(ctx)
	defer svc.Stop(context.Background())

	select {
	case <-sink.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep job never started")
	}

	// a schedule hot reload lands while the sweep is blocked on delivery
	applied := make(chan struct{})
	go func() {
		svc.Apply(Config{
			Enabled:   true,
			Schedule:  Schedule{Every: 2 * time.Second},
			Threshold: 24 * time.Hour,
		})
		close(applied)
	}()

	// other callers must not be stalled by the reload
	snapDone := make(chan Snapshot, 1)
	go func() { snapDone <- svc.Snapshot() }()
	select {
	case <-snapDone:
	case <-time.After(time.Second):
		t.Fatal("Snapshot blocked during schedule reload")
	}

	// once delivery completes, the reload finishes promptly
	close(sink.gate)
	select {
	case <-applied:
	case <-time.After(3 * time.Second):
		t.Fatal("Apply stalled behind the in-flight sweep")
	}

	if got := svc.Snapshot().Schedule.Every; got != 2*time.Second {
		t.Fatalf("schedule after reload = %v, want 2s", got)
	}
}

func TestSweepAbortsOnStoreFailure(t *testing.T) {
	t.Parallel()
	svc := New(Config{Enabled: true}, brokenStore{}, &fakeSink{}, logx.Nop())
	if _, err := svc.Sweep(context.Background()); err == nil {
		t.Fatal("expected error when store snapshot fails")
	}
}

func TestSweepThresholdBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	sink := &fakeSink{}

	// exactly at the threshold is eligible
	svc, st := newTestService(t, sink, t0.Add(24*time.Hour))
	if _, err := st.Register(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := st.SetActivity(ctx, "u1", t0); err != nil {
		t.Fatalf("set activity: %v", err)
	}
	stats, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if stats.Sent != 1 {
		t.Fatalf("24h0m should be eligible: stats=%+v", stats)
	}
}
