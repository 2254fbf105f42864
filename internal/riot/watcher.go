package riot

import (
	"context"
	"sync"
	"time"

	"lolwatch/internal/metrics"
	"lolwatch/internal/tracker"
	logx "lolwatch/pkg/logx"
)

// descriptorName is the activity name reported for a live spectator hit.
const descriptorName = "League of Legends"

const DefaultPollInterval = time.Minute

// Watcher polls every registered player's live-game status and feeds
// (before, after) transitions through the classifier into the handler.
//
// A poll that errors emits no transition at all: a flaky API must not
// fabricate rising or falling edges.
type Watcher struct {
	client     *Client
	store      tracker.Store
	classifier *tracker.Classifier
	handler    *tracker.Handler
	log        logx.Logger

	mu       sync.Mutex
	interval time.Duration
	playing  map[string]bool // last successfully observed state per user
}

func NewWatcher(client *Client, store tracker.Store, classifier *tracker.Classifier, handler *tracker.Handler, interval time.Duration, log logx.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watcher{
		client:     client,
		store:      store,
		classifier: classifier,
		handler:    handler,
		log:        log,
		interval:   interval,
		playing:    map[string]bool{},
	}
}

// Apply updates the poll interval and swaps the classifier (alias changes).
func (w *Watcher) Apply(interval time.Duration, classifier *tracker.Classifier) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	w.mu.Lock()
	w.interval = interval
	if classifier != nil {
		w.classifier = classifier
	}
	w.mu.Unlock()
}

// Run polls until ctx is cancelled. Intended to run under a supervisor.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		w.mu.Lock()
		interval := w.interval
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		w.pollAll(ctx)
	}
}

func (w *Watcher) pollAll(ctx context.Context) {
	recs, err := w.store.All(ctx)
	if err != nil {
		w.log.Warn("poll skipped: store snapshot failed", logx.Err(err))
		return
	}
	metrics.TrackedUsers.Set(float64(len(recs)))

	for _, rec := range recs {
		if ctx.Err() != nil {
			return
		}
		w.pollOne(ctx, rec.UserID)
	}
}

func (w *Watcher) pollOne(ctx context.Context, userID string) {
	desc, err := w.observe(ctx, userID)
	if err != nil {
		w.log.Debug("poll failed", logx.String("user_id", userID), logx.Err(err))
		return
	}

	w.mu.Lock()
	classifier := w.classifier
	was := w.playing[userID]
	w.mu.Unlock()

	is := classifier.Match(desc)
	if was == is {
		return
	}

	if err := w.handler.OnPresenceChange(ctx, userID, was, is, time.Now().UTC()); err != nil {
		// keep the old state so the edge is retried next tick
		w.log.Warn("presence edge not recorded", logx.String("user_id", userID), logx.Err(err))
		return
	}
	if !was && is {
		metrics.StartEdges.Inc()
	}

	w.mu.Lock()
	w.playing[userID] = is
	w.mu.Unlock()
}

// observe fetches the user's live status once. nil descriptor means
// "not in game".
func (w *Watcher) observe(ctx context.Context, userID string) (*tracker.Descriptor, error) {
	puuid, err := w.client.ResolvePUUID(ctx, userID)
	if err != nil {
		return nil, err
	}
	game, err := w.client.ActiveGame(ctx, puuid)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, nil
	}
	return &tracker.Descriptor{Name: descriptorName}, nil
}

// IsActive is the live "playing right now" lookup used by elapsed queries.
// It asks the API directly rather than trusting the polled cache.
func (w *Watcher) IsActive(ctx context.Context, userID string) (bool, error) {
	desc, err := w.observe(ctx, userID)
	if err != nil {
		return false, err
	}
	w.mu.Lock()
	classifier := w.classifier
	w.mu.Unlock()
	return classifier.Match(desc), nil
}
