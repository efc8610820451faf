package stats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triodaily/go-server/internal/game"
	"github.com/triodaily/go-server/internal/kvstore"
	"github.com/triodaily/go-server/internal/session"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var today = time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)

// record writes a finished (or merely started) meta record n days before
// today for game g.
func record(t *testing.T, store kvstore.Store, owner, g string, daysAgo int, finished bool, finishTime int) {
	t.Helper()
	day := today.AddDate(0, 0, -daysAgo)
	blob, err := json.Marshal(session.Meta{
		Started:     true,
		Finished:    finished,
		ElapsedTime: finishTime,
		FinishTime:  finishTime,
		LastUpdated: day.Format(time.RFC3339),
	})
	require.NoError(t, err)
	key := session.MetaKey(g, day.Format("2006-01-02"))
	require.NoError(t, store.Set(context.Background(), owner, key, blob))
}

func TestSummaryEmptyHistory(t *testing.T) {
	t.Parallel()
	agg := New(kvstore.NewMemory(), fixedClock{today})
	sum, err := agg.Summary(context.Background(), "nobody")
	require.NoError(t, err)

	require.Len(t, sum.Games, 3)
	for _, g := range game.Names {
		assert.Zero(t, sum.Games[g].CurrentStreak)
		assert.Zero(t, sum.Games[g].MaxStreak)
		assert.Zero(t, sum.Games[g].FinishedDays)
		assert.Zero(t, sum.Games[g].BestTime)
	}
	assert.Zero(t, sum.CombinedStreak)
	assert.Zero(t, sum.DailySweepCount)
}

func TestCurrentStreakStopsAtGap(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	// Finished today, yesterday, two days ago; gap at three days ago;
	// another finish four days ago.
	for _, d := range []int{0, 1, 2, 4} {
		record(t, store, "p1", game.Diagone, d, true, 60+d)
	}

	agg := New(store, fixedClock{today})
	sum, err := agg.Summary(context.Background(), "p1")
	require.NoError(t, err)

	gs := sum.Games[game.Diagone]
	assert.Equal(t, 3, gs.CurrentStreak)
	assert.Equal(t, 3, gs.MaxStreak)
	assert.Equal(t, 4, gs.FinishedDays)
	assert.Equal(t, 60, gs.BestTime)
}

func TestCurrentStreakZeroWhenTodayUnfinished(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	record(t, store, "p1", game.RhymeGrams, 1, true, 90)
	record(t, store, "p1", game.RhymeGrams, 2, true, 80)
	// Today was started but not finished: it neither extends nor counts.
	record(t, store, "p1", game.RhymeGrams, 0, false, 0)

	agg := New(store, fixedClock{today})
	sum, err := agg.Summary(context.Background(), "p1")
	require.NoError(t, err)

	gs := sum.Games[game.RhymeGrams]
	assert.Zero(t, gs.CurrentStreak)
	assert.Equal(t, 2, gs.MaxStreak)
	assert.Equal(t, 2, gs.FinishedDays)
}

func TestMaxStreakIsLongestHistoricalRun(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	// A five-day run long ago, and a two-day current run.
	for _, d := range []int{10, 11, 12, 13, 14, 0, 1} {
		record(t, store, "p1", game.TumblePuns, d, true, 100)
	}

	agg := New(store, fixedClock{today})
	sum, err := agg.Summary(context.Background(), "p1")
	require.NoError(t, err)

	gs := sum.Games[game.TumblePuns]
	assert.Equal(t, 2, gs.CurrentStreak)
	assert.Equal(t, 5, gs.MaxStreak)
}

func TestCombinedStreakRequiresAllThree(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	for _, g := range game.Names {
		record(t, store, "p1", g, 0, true, 60)
		record(t, store, "p1", g, 1, true, 60)
	}
	// Two days ago one game is missing, breaking the sweep run.
	record(t, store, "p1", game.Diagone, 2, true, 60)
	record(t, store, "p1", game.RhymeGrams, 2, true, 60)

	agg := New(store, fixedClock{today})
	sum, err := agg.Summary(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, 2, sum.CombinedStreak)
	assert.Equal(t, 2, sum.BestCombinedStreak)
	assert.Equal(t, 2, sum.DailySweepCount)
	assert.Equal(t, 3, sum.Games[game.Diagone].CurrentStreak)
}

func TestHistoriesAreIndependentAcrossOwners(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	record(t, store, "p1", game.Diagone, 0, true, 60)

	agg := New(store, fixedClock{today})
	sum, err := agg.Summary(context.Background(), "p2")
	require.NoError(t, err)
	assert.Zero(t, sum.Games[game.Diagone].FinishedDays)
}

func TestIsPersonalBest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first ever finish is not a best", func(t *testing.T) {
		t.Parallel()
		agg := New(kvstore.NewMemory(), fixedClock{today})
		pb, err := agg.IsPersonalBest(ctx, "p1", game.Diagone, 45)
		require.NoError(t, err)
		assert.False(t, pb)
	})

	t.Run("faster than every prior finish", func(t *testing.T) {
		t.Parallel()
		store := kvstore.NewMemory()
		record(t, store, "p1", game.Diagone, 1, true, 120)
		record(t, store, "p1", game.Diagone, 3, true, 95)
		agg := New(store, fixedClock{today})
		pb, err := agg.IsPersonalBest(ctx, "p1", game.Diagone, 80)
		require.NoError(t, err)
		assert.True(t, pb)
	})

	t.Run("slower than a prior finish", func(t *testing.T) {
		t.Parallel()
		store := kvstore.NewMemory()
		record(t, store, "p1", game.Diagone, 1, true, 70)
		agg := New(store, fixedClock{today})
		pb, err := agg.IsPersonalBest(ctx, "p1", game.Diagone, 80)
		require.NoError(t, err)
		assert.False(t, pb)
	})

	t.Run("tie with the prior best still counts", func(t *testing.T) {
		t.Parallel()
		store := kvstore.NewMemory()
		record(t, store, "p1", game.Diagone, 1, true, 80)
		agg := New(store, fixedClock{today})
		pb, err := agg.IsPersonalBest(ctx, "p1", game.Diagone, 80)
		require.NoError(t, err)
		assert.True(t, pb)
	})

	t.Run("todays own record is excluded", func(t *testing.T) {
		t.Parallel()
		store := kvstore.NewMemory()
		record(t, store, "p1", game.Diagone, 0, true, 40)
		record(t, store, "p1", game.Diagone, 1, true, 120)
		agg := New(store, fixedClock{today})
		pb, err := agg.IsPersonalBest(ctx, "p1", game.Diagone, 40)
		require.NoError(t, err)
		assert.True(t, pb)
	})

	t.Run("zero time never qualifies", func(t *testing.T) {
		t.Parallel()
		store := kvstore.NewMemory()
		record(t, store, "p1", game.Diagone, 1, true, 120)
		agg := New(store, fixedClock{today})
		pb, err := agg.IsPersonalBest(ctx, "p1", game.Diagone, 0)
		require.NoError(t, err)
		assert.False(t, pb)
	})
}

func TestCorruptMetaRecordsAreSkipped(t *testing.T) {
	t.Parallel()
	store := kvstore.NewMemory()
	record(t, store, "p1", game.Diagone, 0, true, 60)
	key := session.MetaKey(game.Diagone, today.AddDate(0, 0, -1).Format("2006-01-02"))
	require.NoError(t, store.Set(context.Background(), "p1", key, []byte("not json")))
	// A meta-like key with a malformed date suffix is ignored too.
	require.NoError(t, store.Set(context.Background(), "p1",
		session.MetaPrefix(game.Diagone)+"bogus", []byte(`{}`)))

	agg := New(store, fixedClock{today})
	sum, err := agg.Summary(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Games[game.Diagone].FinishedDays)
	assert.Equal(t, 1, sum.Games[game.Diagone].CurrentStreak)
}
