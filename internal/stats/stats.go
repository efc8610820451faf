// internal/stats/stats.go
//
// Streak and personal-best statistics derived from persisted DailyMeta
// records. The aggregator never touches live engine state: it reads the
// per-day meta records through the key-value store, builds an indexed
// per-game history once per call, and runs pure streak walks over it.
// All day arithmetic is UTC Gregorian via the daily package, matching the
// boundaries the session layer persists with.

package stats

import (
	"context"
	"strings"
	"time"

	"github.com/triodaily/go-server/internal/daily"
	"github.com/triodaily/go-server/internal/game"
	"github.com/triodaily/go-server/internal/kvstore"
	"github.com/triodaily/go-server/internal/session"
)

// GameStats summarizes one game's history for one player.
type GameStats struct {
	CurrentStreak int `json:"currentStreak"`
	MaxStreak     int `json:"maxStreak"`
	FinishedDays  int `json:"finishedDays"`
	BestTime      int `json:"bestTime"` // seconds; 0 when no finished day has a time
}

// Summary is the full cross-game statistics view.
type Summary struct {
	Games              map[string]GameStats `json:"games"`
	CombinedStreak     int                  `json:"combinedStreak"`
	BestCombinedStreak int                  `json:"bestCombinedStreak"`
	DailySweepCount    int                  `json:"dailySweepCount"`
}

// Aggregator computes statistics for a player.
type Aggregator struct {
	store kvstore.Store
	clock daily.Clock
}

// New builds an aggregator over the given store and clock.
func New(store kvstore.Store, clock daily.Clock) *Aggregator {
	return &Aggregator{store: store, clock: clock}
}

// history loads every meta record for one game, keyed by yyyy-MM-dd.
func (a *Aggregator) history(ctx context.Context, owner, g string) (map[string]session.Meta, error) {
	keys, err := a.store.Keys(ctx, owner, session.MetaPrefix(g))
	if err != nil {
		return nil, err
	}
	out := make(map[string]session.Meta, len(keys))
	for _, k := range keys {
		dateKey := strings.TrimPrefix(k, session.MetaPrefix(g))
		if _, ok := daily.ParseDateKey(dateKey); !ok {
			continue
		}
		m, ok, err := session.LoadMeta(ctx, a.store, owner, g, dateKey)
		if err != nil {
			return nil, err
		}
		if ok {
			out[dateKey] = m
		}
	}
	return out, nil
}

// Summary computes per-game streaks plus the cross-game combined streak
// and daily-sweep count.
func (a *Aggregator) Summary(ctx context.Context, owner string) (Summary, error) {
	today := a.clock.Now()
	sum := Summary{Games: make(map[string]GameStats, len(game.Names))}

	finishedByGame := make(map[string]map[string]bool, len(game.Names))
	for _, g := range game.Names {
		hist, err := a.history(ctx, owner, g)
		if err != nil {
			return Summary{}, err
		}
		finished := finishedDays(hist)
		finishedByGame[g] = finished

		gs := GameStats{
			CurrentStreak: currentStreak(finished, today),
			MaxStreak:     maxStreak(finished, today),
			FinishedDays:  len(finished),
		}
		for _, m := range hist {
			if m.Finished && m.FinishTime > 0 && (gs.BestTime == 0 || m.FinishTime < gs.BestTime) {
				gs.BestTime = m.FinishTime
			}
		}
		sum.Games[g] = gs
	}

	// A sweep day has all three games finished.
	swept := make(map[string]bool)
	for d := range finishedByGame[game.Names[0]] {
		all := true
		for _, g := range game.Names[1:] {
			if !finishedByGame[g][d] {
				all = false
				break
			}
		}
		if all {
			swept[d] = true
		}
	}
	sum.CombinedStreak = currentStreak(swept, today)
	sum.BestCombinedStreak = maxStreak(swept, today)
	sum.DailySweepCount = len(swept)
	return sum, nil
}

// IsPersonalBest reports whether finishTime (for today's finish of game g)
// beats every previously recorded finish. A first-ever finish is never a
// personal best, and zero times never qualify. Today's own record is
// excluded from the comparison.
func (a *Aggregator) IsPersonalBest(ctx context.Context, owner, g string, finishTime int) (bool, error) {
	if finishTime <= 0 {
		return false, nil
	}
	hist, err := a.history(ctx, owner, g)
	if err != nil {
		return false, err
	}
	today := daily.DateKey(a.clock.Now())
	prior := 0
	for d, m := range hist {
		if d == today || !m.Finished {
			continue
		}
		prior++
		if m.FinishTime > 0 && m.FinishTime < finishTime {
			return false, nil
		}
	}
	return prior > 0, nil
}

// ------------------------------ streak walks ------------------------------

func finishedDays(hist map[string]session.Meta) map[string]bool {
	out := make(map[string]bool, len(hist))
	for d, m := range hist {
		if m.Finished {
			out[d] = true
		}
	}
	return out
}

// currentStreak walks backward from today counting consecutive finished
// days, stopping at the first gap.
func currentStreak(finished map[string]bool, today time.Time) int {
	n := 0
	d := today.UTC()
	for finished[daily.DateKey(d)] {
		n++
		d = d.AddDate(0, 0, -1)
	}
	return n
}

// maxStreak scans forward over the recorded days tracking the longest
// consecutive run, then takes the max with the current streak (which may
// still be growing past any historical run).
func maxStreak(finished map[string]bool, today time.Time) int {
	best := 0
	for d := range finished {
		t, ok := daily.ParseDateKey(d)
		if !ok {
			continue
		}
		// Only count runs from their first day.
		if finished[daily.DateKey(t.AddDate(0, 0, -1))] {
			continue
		}
		run := 0
		for finished[daily.DateKey(t)] {
			run++
			t = t.AddDate(0, 0, 1)
		}
		if run > best {
			best = run
		}
	}
	if cur := currentStreak(finished, today); cur > best {
		best = cur
	}
	return best
}
