package tracker

import (
	"fmt"
	"time"
)

// ElapsedKind discriminates the result of an elapsed-time query.
type ElapsedKind int

const (
	// CurrentlyActive means the user is playing right now.
	CurrentlyActive ElapsedKind = iota
	// NeverObserved means no activity start has ever been recorded.
	NeverObserved
	// Elapsed carries a bucketed duration since the last activity start.
	Elapsed
)

// ElapsedResult is the outcome of ElapsedSince. For Kind == Elapsed the
// duration is bucketed for display: under one hour it is floored to a
// 10-minute multiple with a 10-minute minimum, from one hour up it is whole
// hours plus remaining whole minutes.
type ElapsedResult struct {
	Kind    ElapsedKind
	Hours   int
	Minutes int
}

// ElapsedSince computes the time since rec's last activity start.
// currentlyActive is the caller's independent "playing right now" lookup and
// short-circuits the stored record.
func ElapsedSince(rec Record, found bool, now time.Time, currentlyActive bool) ElapsedResult {
	if currentlyActive {
		return ElapsedResult{Kind: CurrentlyActive}
	}
	if !found || rec.LastActivity == nil {
		return ElapsedResult{Kind: NeverObserved}
	}

	d := now.Sub(*rec.LastActivity)
	if d < 0 {
		d = 0
	}
	if d < time.Hour {
		m := int(d.Minutes()) / 10 * 10
		if m < 10 {
			m = 10
		}
		return ElapsedResult{Kind: Elapsed, Minutes: m}
	}
	totalMin := int(d.Minutes())
	return ElapsedResult{Kind: Elapsed, Hours: totalMin / 60, Minutes: totalMin % 60}
}

func (r ElapsedResult) String() string {
	switch r.Kind {
	case CurrentlyActive:
		return "currently in game"
	case NeverObserved:
		return "no games observed yet"
	}
	if r.Hours == 0 {
		return plural(r.Minutes, "minute")
	}
	if r.Minutes == 0 {
		return plural(r.Hours, "hour")
	}
	return plural(r.Hours, "hour") + " " + plural(r.Minutes, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
