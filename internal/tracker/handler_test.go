package tracker

import (
	"context"
	"testing"
	"time"

	logx "lolwatch/pkg/logx"
)

func TestHandlerRisingEdgeOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemory()
	h := NewHandler(st, logx.Nop())

	if _, err := st.Register(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		was, is bool
		mutates bool
	}{
		{name: "steady off", was: false, is: false, mutates: false},
		{name: "rising", was: false, is: true, mutates: true},
		{name: "steady on", was: true, is: true, mutates: false},
		{name: "falling", was: true, is: false, mutates: false},
	}

	var lastSeen *time.Time
	for i, tt := range tests {
		at := now.Add(time.Duration(i) * time.Minute)
		if err := h.OnPresenceChange(ctx, "u1", tt.was, tt.is, at); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		rec, _, err := st.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if tt.mutates {
			if rec.LastActivity == nil || !rec.LastActivity.Equal(at) {
				t.Fatalf("%s: LastActivity = %v, want %v", tt.name, rec.LastActivity, at)
			}
			lastSeen = rec.LastActivity
		} else {
			switch {
			case lastSeen == nil && rec.LastActivity != nil:
				t.Fatalf("%s: unexpected mutation: %v", tt.name, rec.LastActivity)
			case lastSeen != nil && !rec.LastActivity.Equal(*lastSeen):
				t.Fatalf("%s: LastActivity moved to %v", tt.name, rec.LastActivity)
			}
		}
	}
}

func TestHandlerEdgeResetsNotified(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemory()
	h := NewHandler(st, logx.Nop())

	if _, err := st.Register(ctx, "u1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	t0 := time.Now().UTC()
	if err := h.OnPresenceChange(ctx, "u1", false, true, t0); err != nil {
		t.Fatalf("first edge: %v", err)
	}
	if err := st.MarkNotified(ctx, "u1"); err != nil {
		t.Fatalf("mark notified: %v", err)
	}

	if err := h.OnPresenceChange(ctx, "u1", false, true, t0.Add(time.Hour)); err != nil {
		t.Fatalf("second edge: %v", err)
	}
	rec, _, err := st.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Notified {
		t.Fatal("new edge must clear Notified")
	}
}

func TestHandlerIgnoresUnregistered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemory()
	h := NewHandler(st, logx.Nop())

	if err := h.OnPresenceChange(ctx, "stranger", false, true, time.Now()); err != nil {
		t.Fatalf("edge for unregistered user must be a silent no-op, got %v", err)
	}
	if _, ok, _ := st.Get(ctx, "stranger"); ok {
		t.Fatal("no record may be created implicitly")
	}
}
