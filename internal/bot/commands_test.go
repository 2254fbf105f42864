package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"lolwatch/internal/notifier"
	"lolwatch/internal/riot"
	"lolwatch/internal/tracker"
	logx "lolwatch/pkg/logx"
)

type fakeProber struct {
	active bool
	err    error
}

func (f *fakeProber) IsActive(ctx context.Context, userID string) (bool, error) {
	return f.active, f.err
}

type fakeResolver struct {
	known map[string]string
}

func (f *fakeResolver) ResolvePUUID(ctx context.Context, riotID string) (string, error) {
	if p, ok := f.known[riotID]; ok {
		return p, nil
	}
	return "", riot.ErrNotFound
}

func newTestBot(t *testing.T) (*Router, *fakeAdapter, tracker.Store, *fakeProber) {
	t.Helper()
	ad := &fakeAdapter{}
	st := tracker.NewMemory()
	prober := &fakeProber{}
	state := &ServiceState{}
	r := NewRouter(ad, state, []int64{42}, logx.Nop())
	RegisterCommands(r, Deps{
		Store:       st,
		Prober:      prober,
		Resolver:    &fakeResolver{known: map[string]string{"Faker#KR1": "p1"}},
		Notifier:    notifier.New(notifier.Config{}, ad, logx.Nop()),
		State:       state,
		Log:         logx.Nop(),
		StartedAt:   time.Now(),
		StoreDriver: "memory",
	})
	return r, ad, st, prober
}

func TestRegisterCommand(t *testing.T) {
	t.Parallel()
	r, ad, st, _ := newTestBot(t)
	ctx := context.Background()

	r.dispatch(ctx, msgUpdate(1, "/register", false))
	if !strings.Contains(ad.last(), "Usage") {
		t.Fatalf("missing-arg reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(1, "/register NotARiotID", false))
	if !strings.Contains(ad.last(), "Name#TAG") {
		t.Fatalf("bad-format reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(1, "/register Ghost#EUW", false))
	if !strings.Contains(ad.last(), "No Riot account") {
		t.Fatalf("unknown-account reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(1, "/register Faker#KR1", false))
	if !strings.Contains(ad.last(), "Now tracking Faker#KR1") {
		t.Fatalf("register reply = %q", ad.last())
	}
	if _, ok, _ := st.Get(ctx, "Faker#KR1"); !ok {
		t.Fatal("record not created")
	}

	r.dispatch(ctx, msgUpdate(1, "/register Faker#KR1", false))
	if !strings.Contains(ad.last(), "already being tracked") {
		t.Fatalf("duplicate reply = %q", ad.last())
	}
}

func TestCheckCommand(t *testing.T) {
	t.Parallel()
	r, ad, st, prober := newTestBot(t)
	ctx := context.Background()

	r.dispatch(ctx, msgUpdate(1, "/check Faker#KR1", false))
	if !strings.Contains(ad.last(), "not tracked") {
		t.Fatalf("untracked reply = %q", ad.last())
	}

	if _, err := st.Register(ctx, "Faker#KR1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	r.dispatch(ctx, msgUpdate(1, "/check Faker#KR1", false))
	if !strings.Contains(ad.last(), "hasn't been seen playing") {
		t.Fatalf("never-observed reply = %q", ad.last())
	}

	// 12 minutes ago -> floored to the 10 minute bucket
	if err := st.SetActivity(ctx, "Faker#KR1", time.Now().UTC().Add(-12*time.Minute)); err != nil {
		t.Fatalf("set activity: %v", err)
	}
	r.dispatch(ctx, msgUpdate(1, "/check Faker#KR1", false))
	if !strings.Contains(ad.last(), "10 minutes ago") {
		t.Fatalf("elapsed reply = %q", ad.last())
	}

	prober.active = true
	r.dispatch(ctx, msgUpdate(1, "/check Faker#KR1", false))
	if !strings.Contains(ad.last(), "in a game right now") {
		t.Fatalf("active reply = %q", ad.last())
	}
}

func TestStatusCommand(t *testing.T) {
	t.Parallel()
	r, ad, st, _ := newTestBot(t)
	ctx := context.Background()

	if _, err := st.Register(ctx, "Faker#KR1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	r.dispatch(ctx, msgUpdate(1, "/status", false))
	out := ad.last()
	if !strings.Contains(out, "State: active") || !strings.Contains(out, "Tracked players: 1") {
		t.Fatalf("status reply = %q", out)
	}
}

func TestSuspendResumeRoundTrip(t *testing.T) {
	t.Parallel()
	r, ad, _, _ := newTestBot(t)
	ctx := context.Background()

	r.dispatch(ctx, msgUpdate(42, "/suspend", false))
	if !strings.Contains(ad.last(), "Suspended") {
		t.Fatalf("suspend reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(1, "/check Faker#KR1", false))
	if !strings.Contains(ad.last(), "suspended") {
		t.Fatalf("gated reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(42, "/resume", false))
	if ad.last() != "Resumed." {
		t.Fatalf("resume reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(42, "/resume", false))
	if ad.last() != "Already active." {
		t.Fatalf("double resume reply = %q", ad.last())
	}
}
