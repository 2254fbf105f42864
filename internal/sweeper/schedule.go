package sweeper

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Schedule is a normalized sweep schedule: either a cron expression
// (robfig/cron, descriptors allowed) or a fixed interval.
type Schedule struct {
	Cron  string
	Every time.Duration
}

func (s Schedule) IsCron() bool { return s.Cron != "" }

func (s Schedule) String() string {
	if s.IsCron() {
		return s.Cron
	}
	return s.Every.String()
}

var reHHMM = regexp.MustCompile(`^(\d{1,3}):(\d{2})$`)

// ParseSchedule accepts a cron expression ("*/10 * * * *", "@hourly"),
// a Go duration ("10m", "1h30m"), or HH:MM ("02:30" = every 2h30m).
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}

	// whitespace or a leading '@' means cron
	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		return Schedule{Cron: s}, nil
	}

	if m := reHHMM.FindStringSubmatch(s); m != nil {
		var hh, mm int
		fmt.Sscanf(m[1], "%d", &hh)
		fmt.Sscanf(m[2], "%d", &mm)
		if mm > 59 {
			return Schedule{}, fmt.Errorf("invalid minutes in %q", raw)
		}
		d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0")
		}
		return Schedule{Every: d}, nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval must be > 0")
		}
		return Schedule{Every: d}, nil
	}

	return Schedule{}, fmt.Errorf(
		"invalid schedule %q (use cron like '*/10 * * * *', HH:MM like '02:30', or duration like '10m')",
		raw,
	)
}
