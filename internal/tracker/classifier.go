package tracker

import "strings"

// Descriptor is a raw activity observation from the presence source.
// Name is free text (game name, status text); a nil Descriptor means
// "no activity".
type Descriptor struct {
	Name string
}

// DefaultAliases are the activity names that count as playing.
var DefaultAliases = []string{"league of legends", "lol"}

// Classifier decides whether a raw activity descriptor is the target
// activity. Matching is by case-insensitive name against an allow-list.
type Classifier struct {
	aliases map[string]struct{}
}

// NewClassifier builds a classifier from the alias allow-list.
// An empty list falls back to DefaultAliases.
func NewClassifier(aliases []string) *Classifier {
	if len(aliases) == 0 {
		aliases = DefaultAliases
	}
	set := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		set[a] = struct{}{}
	}
	return &Classifier{aliases: set}
}

// Match reports whether d describes the target activity.
// Absent or blank input is never a match.
func (c *Classifier) Match(d *Descriptor) bool {
	if c == nil || d == nil {
		return false
	}
	name := strings.ToLower(strings.TrimSpace(d.Name))
	if name == "" {
		return false
	}
	_, ok := c.aliases[name]
	return ok
}
