package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	kit "lolwatch/internal/transport"
	logx "lolwatch/pkg/logx"
)

type fakeAdapter struct {
	mu      sync.Mutex
	replies []string
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                        { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, text)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.replies)}, nil
}

func (f *fakeAdapter) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1]
}

func (f *fakeAdapter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

func msgUpdate(fromID int64, text string, group bool) kit.Update {
	return kit.Update{
		Kind: kit.UpdateMessage,
		Message: &kit.Message{
			ID:      1,
			ChatID:  -100,
			FromID:  fromID,
			Text:    text,
			IsGroup: group,
		},
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		name string
		args []string
		ok   bool
	}{
		{text: "/register Faker#KR1", name: "register", args: []string{"Faker#KR1"}, ok: true},
		{text: "/check@LolWatchBot Hide on bush#KR1", name: "check", args: []string{"Hide", "on", "bush#KR1"}, ok: true},
		{text: "/HELP", name: "help", ok: true},
		{text: "  /status  ", name: "status", ok: true},
		{text: "hello", ok: false},
		{text: "/", ok: false},
		{text: "", ok: false},
	}
	for _, tt := range tests {
		name, args, ok := parseCommand(tt.text)
		if ok != tt.ok {
			t.Fatalf("parseCommand(%q) ok = %v, want %v", tt.text, ok, tt.ok)
		}
		if !ok {
			continue
		}
		if name != tt.name {
			t.Fatalf("parseCommand(%q) name = %q, want %q", tt.text, name, tt.name)
		}
		if len(args) != len(tt.args) {
			t.Fatalf("parseCommand(%q) args = %v, want %v", tt.text, args, tt.args)
		}
	}
}

func TestDispatchOwnerGate(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	state := &ServiceState{}
	r := NewRouter(ad, state, []int64{42}, logx.Nop())
	r.Register(&Command{
		Name:          "suspend",
		Access:        AccessOwnerOnly,
		BypassSuspend: true,
		Handle: func(ctx context.Context, req *Request) error {
			state.Suspend()
			return req.Reply(ctx, "done")
		},
	})

	ctx := context.Background()

	r.dispatch(ctx, msgUpdate(7, "/suspend", false))
	if !strings.Contains(ad.last(), "restricted") {
		t.Fatalf("non-owner reply = %q", ad.last())
	}
	if state.Suspended() {
		t.Fatal("non-owner must not suspend")
	}

	r.dispatch(ctx, msgUpdate(42, "/suspend", false))
	if ad.last() != "done" {
		t.Fatalf("owner reply = %q", ad.last())
	}
	if !state.Suspended() {
		t.Fatal("owner suspend did not apply")
	}
}

func TestSetOwnersDuringDispatch(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	r := NewRouter(ad, &ServiceState{}, []int64{42}, logx.Nop())
	r.Register(&Command{
		Name:   "suspend",
		Access: AccessOwnerOnly,
		Handle: func(ctx context.Context, req *Request) error { return nil },
	})

	// owner-list hot reloads land on the config goroutine while dispatch
	// keeps reading; run both hard so the race detector has a chance
	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			r.SetOwners([]int64{42, int64(i)})
		}
	}()
	for i := 0; i < 500; i++ {
		r.dispatch(ctx, msgUpdate(42, "/suspend", false))
	}
	<-done

	if !r.isOwner(42) {
		t.Fatal("owner 42 lost across reloads")
	}
	if r.isOwner(9999) {
		t.Fatal("unexpected owner 9999")
	}
}

func TestDispatchSuspensionGate(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	state := &ServiceState{}
	state.Suspend()
	r := NewRouter(ad, state, nil, logx.Nop())

	var ran bool
	r.Register(&Command{Name: "check", Handle: func(ctx context.Context, req *Request) error {
		ran = true
		return nil
	}})
	r.Register(&Command{Name: "status", BypassSuspend: true, Handle: func(ctx context.Context, req *Request) error {
		return req.Reply(ctx, "status ok")
	}})

	ctx := context.Background()

	r.dispatch(ctx, msgUpdate(1, "/check x", false))
	if ran {
		t.Fatal("suspended bot must not run player commands")
	}
	if !strings.Contains(ad.last(), "suspended") {
		t.Fatalf("reply = %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(1, "/status", false))
	if ad.last() != "status ok" {
		t.Fatalf("bypass command blocked: %q", ad.last())
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	r := NewRouter(ad, &ServiceState{}, nil, logx.Nop())
	ctx := context.Background()

	// in a group, unknown commands are ignored (likely for another bot)
	r.dispatch(ctx, msgUpdate(1, "/unknown", true))
	if ad.count() != 0 {
		t.Fatalf("group unknown command replied: %q", ad.last())
	}

	r.dispatch(ctx, msgUpdate(1, "/unknown", false))
	if !strings.Contains(ad.last(), "help") {
		t.Fatalf("dm unknown command reply = %q", ad.last())
	}
}

func TestDispatchIgnoresPlainText(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	r := NewRouter(ad, &ServiceState{}, nil, logx.Nop())
	r.dispatch(context.Background(), msgUpdate(1, "gg wp", true))
	if ad.count() != 0 {
		t.Fatal("plain text must be ignored")
	}
}

func TestHelpTextListsCommands(t *testing.T) {
	t.Parallel()
	r := NewRouter(&fakeAdapter{}, &ServiceState{}, nil, logx.Nop())
	r.Register(&Command{Name: "register", Usage: "<Name#TAG>", Description: "track a player", Handle: func(ctx context.Context, req *Request) error { return nil }})
	r.Register(&Command{Name: "suspend", Access: AccessOwnerOnly, Description: "pause", Handle: func(ctx context.Context, req *Request) error { return nil }})

	help := r.HelpText()
	if !strings.Contains(help, "/register <Name#TAG>") {
		t.Fatalf("help = %q", help)
	}
	if !strings.Contains(help, "Owner commands:") || !strings.Contains(help, "/suspend") {
		t.Fatalf("help missing owner section: %q", help)
	}
}
