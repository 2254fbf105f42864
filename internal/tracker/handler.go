package tracker

import (
	"context"
	"errors"
	"time"

	logx "lolwatch/pkg/logx"
)

// Handler consumes (before, after) activity signals and records activity
// starts. Only the rising edge mutates the store: the design tracks when play
// last began, not durations or stops.
type Handler struct {
	store Store
	log   logx.Logger
}

func NewHandler(store Store, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{store: store, log: log}
}

// OnPresenceChange applies one observed transition for userID.
//
// A rising edge (was=false, is=true) sets LastActivity=now and clears
// Notified, persisted before returning. Every other transition is a no-op.
// Unregistered users are silently ignored.
func (h *Handler) OnPresenceChange(ctx context.Context, userID string, wasPlaying, isPlaying bool, now time.Time) error {
	if wasPlaying || !isPlaying {
		return nil
	}
	err := h.store.SetActivity(ctx, userID, now)
	if errors.Is(err, ErrNotRegistered) {
		h.log.Debug("edge for untracked user ignored", logx.String("user_id", userID))
		return nil
	}
	if err != nil {
		return err
	}
	h.log.Info("activity start recorded",
		logx.String("user_id", userID),
		logx.Time("at", now.UTC()),
	)
	return nil
}
