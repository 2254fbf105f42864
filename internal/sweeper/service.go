package sweeper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"lolwatch/internal/metrics"
	"lolwatch/internal/tracker"
	logx "lolwatch/pkg/logx"
)

const (
	DefaultInterval  = 10 * time.Minute
	DefaultThreshold = 24 * time.Hour
)

// Sink delivers one inactivity notification. elapsed is the time since the
// user's last recorded activity start.
type Sink interface {
	NotifyInactive(ctx context.Context, userID string, elapsed time.Duration) error
}

type Config struct {
	Enabled   bool
	Schedule  Schedule
	Threshold time.Duration
}

func (c Config) withDefaults() Config {
	if !c.Schedule.IsCron() && c.Schedule.Every <= 0 {
		c.Schedule = Schedule{Every: DefaultInterval}
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	return c
}

// Stats summarizes one sweep tick.
type Stats struct {
	Scanned  int
	Eligible int
	Sent     int
	Failed   int
}

// Service periodically scans the store and notifies users whose inactivity
// has crossed the threshold. At most one notification fires per inactivity
// episode: the Notified flag is set after a successful delivery and only a
// new activity start clears it.
type Service struct {
	store tracker.Store
	sink  Sink
	log   logx.Logger

	mu     sync.Mutex
	cfg    Config
	c      *cron.Cron
	runCtx context.Context
	cancel context.CancelFunc

	lastSweep time.Time
	lastStats Stats

	inFlight atomic.Bool
	now      func() time.Time
}

// Snapshot reports the current schedule and the last completed sweep.
type Snapshot struct {
	Enabled   bool
	Schedule  Schedule
	Threshold time.Duration
	LastSweep time.Time
	LastStats Stats
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Enabled:   s.cfg.Enabled,
		Schedule:  s.cfg.Schedule,
		Threshold: s.cfg.Threshold,
		LastSweep: s.lastSweep,
		LastStats: s.lastStats,
	}
}

func New(cfg Config, store tracker.Store, sink Sink, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:   cfg.withDefaults(),
		store: store,
		sink:  sink,
		log:   log,
		now:   time.Now,
	}
}

// Apply updates config; a schedule or enabled change restarts the timer.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	restart := cfg.Enabled != s.cfg.Enabled || cfg.Schedule != s.cfg.Schedule
	s.cfg = cfg
	var stopped context.Context
	if restart && s.runCtx != nil {
		stopped = s.stopCronLocked()
		s.startCronLocked()
	}
	s.mu.Unlock()

	// Wait outside the lock: an in-flight Sweep takes s.mu to record its
	// result and would otherwise stall the reload until the wait times out.
	waitStopped(stopped, 5*time.Second)
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runCtx != nil {
		return
	}
	s.runCtx, s.cancel = context.WithCancel(ctx)
	s.startCronLocked()
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopped := s.stopCronLocked()
	cancel := s.cancel
	s.runCtx, s.cancel = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *Service) startCronLocked() {
	if !s.cfg.Enabled || s.c != nil {
		return
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser))

	job := func() { s.tick() }
	if s.cfg.Schedule.IsCron() {
		if _, err := c.AddFunc(s.cfg.Schedule.Cron, job); err != nil {
			s.log.Error("invalid sweep cron; sweeper idle",
				logx.String("cron", s.cfg.Schedule.Cron), logx.Err(err))
			return
		}
	} else {
		c.Schedule(cron.Every(s.cfg.Schedule.Every), cron.FuncJob(job))
	}
	c.Start()
	s.c = c
	s.log.Info("sweeper started",
		logx.String("schedule", s.cfg.Schedule.String()),
		logx.Duration("threshold", s.cfg.Threshold),
	)
}

// stopCronLocked halts scheduling and returns a context that completes once
// in-flight jobs have drained, or nil if nothing was running. Callers wait
// on it after releasing s.mu.
func (s *Service) stopCronLocked() context.Context {
	if s.c == nil {
		return nil
	}
	stopped := s.c.Stop()
	s.c = nil
	return stopped
}

func waitStopped(stopped context.Context, max time.Duration) {
	if stopped == nil {
		return
	}
	select {
	case <-stopped.Done():
	case <-time.After(max):
	}
}

func (s *Service) tick() {
	// overlapping ticks are skipped rather than queued
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Warn("sweep tick skipped: previous tick still running")
		return
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	stats, err := s.Sweep(ctx)
	if err != nil {
		metrics.SweepFailures.Inc()
		s.log.Error("sweep tick aborted", logx.Err(err))
		return
	}
	metrics.SweepTicks.Inc()
	if stats.Eligible > 0 || stats.Failed > 0 {
		s.log.Info("sweep tick done",
			logx.Int("scanned", stats.Scanned),
			logx.Int("eligible", stats.Eligible),
			logx.Int("sent", stats.Sent),
			logx.Int("failed", stats.Failed),
		)
	} else {
		s.log.Debug("sweep tick done", logx.Int("scanned", stats.Scanned))
	}
}

// Sweep runs one tick now. A store snapshot failure aborts the whole tick;
// per-user delivery failures are isolated and retried on the next tick
// because Notified is only set after a successful send.
func (s *Service) Sweep(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	threshold := s.cfg.Threshold
	s.mu.Unlock()

	recs, err := s.store.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	metrics.TrackedUsers.Set(float64(len(recs)))

	now := s.now().UTC()
	stats := Stats{Scanned: len(recs)}
	for _, rec := range recs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if rec.LastActivity == nil || rec.Notified {
			continue
		}
		elapsed := now.Sub(*rec.LastActivity)
		if elapsed < threshold {
			continue
		}
		stats.Eligible++

		if err := s.sink.NotifyInactive(ctx, rec.UserID, elapsed); err != nil {
			stats.Failed++
			metrics.NotificationFailures.Inc()
			s.log.Warn("inactivity notification failed",
				logx.String("user_id", rec.UserID), logx.Err(err))
			continue
		}
		if err := s.store.MarkNotified(ctx, rec.UserID); err != nil {
			// record may have been mutated concurrently; the next tick
			// re-evaluates from a fresh snapshot
			stats.Failed++
			s.log.Warn("mark notified failed",
				logx.String("user_id", rec.UserID), logx.Err(err))
			continue
		}
		stats.Sent++
		metrics.NotificationsSent.Inc()
	}

	s.mu.Lock()
	s.lastSweep = now
	s.lastStats = stats
	s.mu.Unlock()
	return stats, nil
}
