package tracker

import (
	"testing"
	"time"
)

func recAt(t time.Time) Record {
	return Record{UserID: "u", LastActivity: &t}
}

func TestElapsedSinceBuckets(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		ago     time.Duration
		hours   int
		minutes int
	}{
		{name: "zero floors to ten minutes", ago: 0, minutes: 10},
		{name: "nine minutes floors to ten", ago: 9 * time.Minute, minutes: 10},
		{name: "ten minutes exact", ago: 10 * time.Minute, minutes: 10},
		{name: "nineteen minutes floors to ten", ago: 19 * time.Minute, minutes: 10},
		{name: "fifty-nine minutes floors to fifty", ago: 59 * time.Minute, minutes: 50},
		{name: "one hour exact", ago: time.Hour, hours: 1, minutes: 0},
		{name: "sixty-five minutes", ago: 65 * time.Minute, hours: 1, minutes: 5},
		{name: "one day", ago: 24 * time.Hour, hours: 24, minutes: 0},
		{name: "day and change", ago: 25*time.Hour + 42*time.Minute, hours: 25, minutes: 42},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ElapsedSince(recAt(now.Add(-tt.ago)), true, now, false)
			if got.Kind != Elapsed {
				t.Fatalf("Kind = %v, want Elapsed", got.Kind)
			}
			if got.Hours != tt.hours || got.Minutes != tt.minutes {
				t.Fatalf("got %dh%dm, want %dh%dm", got.Hours, got.Minutes, tt.hours, tt.minutes)
			}
		})
	}
}

func TestElapsedSinceKinds(t *testing.T) {
	t.Parallel()
	now := time.Now()

	if got := ElapsedSince(Record{}, false, now, true); got.Kind != CurrentlyActive {
		t.Fatalf("Kind = %v, want CurrentlyActive", got.Kind)
	}
	// currently_active wins even with a stored timestamp
	if got := ElapsedSince(recAt(now.Add(-2*time.Hour)), true, now, true); got.Kind != CurrentlyActive {
		t.Fatalf("Kind = %v, want CurrentlyActive", got.Kind)
	}
	if got := ElapsedSince(Record{}, false, now, false); got.Kind != NeverObserved {
		t.Fatalf("missing record: Kind = %v, want NeverObserved", got.Kind)
	}
	if got := ElapsedSince(Record{UserID: "u"}, true, now, false); got.Kind != NeverObserved {
		t.Fatalf("nil timestamp: Kind = %v, want NeverObserved", got.Kind)
	}
}

func TestElapsedResultString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		r    ElapsedResult
		want string
	}{
		{name: "active", r: ElapsedResult{Kind: CurrentlyActive}, want: "currently in game"},
		{name: "never", r: ElapsedResult{Kind: NeverObserved}, want: "no games observed yet"},
		{name: "minutes only", r: ElapsedResult{Kind: Elapsed, Minutes: 10}, want: "10 minutes"},
		{name: "whole hours", r: ElapsedResult{Kind: Elapsed, Hours: 2}, want: "2 hours"},
		{name: "single hour with minutes", r: ElapsedResult{Kind: Elapsed, Hours: 1, Minutes: 5}, want: "1 hour 5 minutes"},
		{name: "single minute", r: ElapsedResult{Kind: Elapsed, Hours: 3, Minutes: 1}, want: "3 hours 1 minute"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.String(); got != tt.want {
				t.Fatalf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
