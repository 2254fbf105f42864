package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	kit "lolwatch/internal/transport"
	logx "lolwatch/pkg/logx"
)

type fakeAdapter struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	chats []int64
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                        { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return kit.MessageRef{}, errors.New("telegram down")
	}
	f.sent = append(f.sent, text)
	f.chats = append(f.chats, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func TestNotifyInactive(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	svc := New(Config{RatePerSec: 100}, ad, logx.Nop())
	svc.SetTarget(kit.ChatTarget{ChatID: -100})

	if err := svc.NotifyInactive(context.Background(), "Faker#KR1", 25*time.Hour); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(ad.sent) != 1 {
		t.Fatalf("sent = %d messages", len(ad.sent))
	}
	if !strings.Contains(ad.sent[0], "Faker#KR1") || !strings.Contains(ad.sent[0], "25 hours") {
		t.Fatalf("message = %q", ad.sent[0])
	}
	if ad.chats[0] != -100 {
		t.Fatalf("chat = %d, want -100", ad.chats[0])
	}

	hist := svc.History()
	if len(hist) != 1 || !hist[0].OK || hist[0].UserID != "Faker#KR1" {
		t.Fatalf("history = %+v", hist)
	}
}

func TestNotifyInactiveFailureRecorded(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{fail: true}
	svc := New(Config{RatePerSec: 100}, ad, logx.Nop())
	svc.SetTarget(kit.ChatTarget{ChatID: -100})

	if err := svc.NotifyInactive(context.Background(), "u1", time.Hour); err == nil {
		t.Fatal("expected delivery error")
	}
	hist := svc.History()
	if len(hist) != 1 || hist[0].OK || hist[0].Err == "" {
		t.Fatalf("history = %+v", hist)
	}
}

func TestSendWithoutTarget(t *testing.T) {
	t.Parallel()
	svc := New(Config{}, &fakeAdapter{}, logx.Nop())
	if err := svc.Send(context.Background(), "hi"); err != ErrNoTarget {
		t.Fatalf("err = %v, want ErrNoTarget", err)
	}
}

func TestHumanDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 30 * time.Minute, want: "30 minutes"},
		{d: 25 * time.Hour, want: "25 hours"},
		{d: 72 * time.Hour, want: "3 days"},
	}
	for _, tt := range tests {
		if got := humanDuration(tt.d); got != tt.want {
			t.Fatalf("humanDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
