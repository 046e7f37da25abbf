package domain

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is an ordered list of HH:MM wall-clock tokens. It is parsed and
// validated once at the data-entry boundary instead of being re-split from a
// raw comma string on every tick. Tokens are normalized to two-digit form so
// "8:00" and "08:00" cannot produce distinct entries for the same minute.
type Schedule []string

// ParseSchedule parses the legacy comma-separated form ("08:00,20:30").
// Empty segments are rejected, as are tokens that are not valid wall-clock
// times. Order is preserved; duplicates collapse to a single token.
func ParseSchedule(s string) (Schedule, error) {
	parts := strings.Split(s, ",")
	sched := make(Schedule, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("empty schedule token: %w", ErrBadRequest)
		}
		t, err := time.Parse("15:04", p)
		if err != nil {
			// Accept single-digit hours ("8:00") by retrying the lenient form.
			t, err = time.Parse("3:04", p)
			if err != nil {
				return nil, fmt.Errorf("invalid schedule token %q: %w", p, ErrBadRequest)
			}
		}
		token := t.Format("15:04")
		if seen[token] {
			continue
		}
		seen[token] = true
		sched = append(sched, token)
	}
	if len(sched) == 0 {
		return nil, fmt.Errorf("schedule must contain at least one HH:MM token: %w", ErrBadRequest)
	}
	return sched, nil
}

// String renders the schedule back to its comma-joined form.
func (s Schedule) String() string {
	return strings.Join(s, ",")
}

// Matches returns the tokens equal to now's minute in local wall-clock time.
// More than one token can match only if the schedule was built outside
// ParseSchedule, which collapses duplicates.
func (s Schedule) Matches(now time.Time) []string {
	minute := now.Format("15:04")
	var out []string
	for _, tok := range s {
		if tok == minute {
			out = append(out, tok)
		}
	}
	return out
}
