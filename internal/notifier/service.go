// Package notifier delivers outbound messages to the configured group chat,
// rate limited and time bounded. Delivery is synchronous: the caller learns
// whether the send succeeded, which the sweeper needs before marking a user
// notified.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	kit "lolwatch/internal/transport"
	logx "lolwatch/pkg/logx"
)

const (
	DefaultRatePerSec  = 1
	DefaultSendTimeout = 10 * time.Second
	historySize        = 32
)

var ErrNoTarget = errors.New("notifier: no group chat configured")

type Config struct {
	RatePerSec  int
	SendTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = DefaultRatePerSec
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = DefaultSendTimeout
	}
	return c
}

// Delivery is one attempted send, kept for the /status command.
type Delivery struct {
	At     time.Time
	UserID string
	OK     bool
	Err    string
}

type Service struct {
	adapter kit.Adapter
	log     logx.Logger

	mu      sync.Mutex
	cfg     Config
	target  kit.ChatTarget
	limiter *rate.Limiter
	history []Delivery
}

func New(cfg Config, adapter kit.Adapter, log logx.Logger) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		adapter: adapter,
		log:     log,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RatePerSec != s.cfg.RatePerSec {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	s.cfg = cfg
}

// SetTarget sets the group chat that receives notifications.
func (s *Service) SetTarget(t kit.ChatTarget) {
	s.mu.Lock()
	s.target = t
	s.mu.Unlock()
}

// Send delivers text to the group chat.
func (s *Service) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	target := s.target
	timeout := s.cfg.SendTimeout
	limiter := s.limiter
	s.mu.Unlock()

	if target.ChatID == 0 {
		return ErrNoTarget
	}
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := s.adapter.SendText(sctx, target, text, nil)
	return err
}

// NotifyInactive implements the sweep sink: one nag per threshold breach.
func (s *Service) NotifyInactive(ctx context.Context, userID string, elapsed time.Duration) error {
	msg := fmt.Sprintf("⚠️ %s has not played League of Legends for %s. Time to queue up!",
		userID, humanDuration(elapsed))

	err := s.Send(ctx, msg)
	s.record(userID, err)
	if err != nil {
		return err
	}
	s.log.Info("inactivity notice sent",
		logx.String("user_id", userID),
		logx.Duration("elapsed", elapsed),
	)
	return nil
}

func (s *Service) record(userID string, err error) {
	d := Delivery{At: time.Now().UTC(), UserID: userID, OK: err == nil}
	if err != nil {
		d.Err = err.Error()
	}
	s.mu.Lock()
	s.history = append(s.history, d)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.mu.Unlock()
}

// History returns recent deliveries, newest last.
func (s *Service) History() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.history))
	copy(out, s.history)
	return out
}

func humanDuration(d time.Duration) string {
	h := int(d.Hours())
	if h < 1 {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	if h < 48 {
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d days", h/24)
}
