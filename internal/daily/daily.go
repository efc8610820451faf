// internal/daily/daily.go
//
// Calendar and clock helpers shared by every game.
// All "day" boundaries in this codebase are UTC Gregorian days so that a
// player sees the same puzzle, and the same saved progress, for one whole
// UTC calendar day regardless of device timezone or locale.

package daily

import "time"

// DateKey returns yyyy-MM-dd in UTC. Used for persistence key namespacing
// and for streak walks.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ContentKey returns MM/dd/yyyy in UTC, the key format used by the bundled
// puzzle content tables.
func ContentKey(t time.Time) string {
	return t.UTC().Format("01/02/2006")
}

// ParseDateKey is the inverse of DateKey. The boolean is false for
// malformed input.
func ParseDateKey(s string) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clock abstracts wall-clock access so day boundaries and elapsed-time
// behavior are testable with a fixed or steppable time source.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
