package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triodaily/go-server/internal/content"
	"github.com/triodaily/go-server/internal/kvstore"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type settableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *settableClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// countingKV counts Set calls per key on top of another store.
type countingKV struct {
	kvstore.Store
	mu   sync.Mutex
	sets map[string]int
}

func newCountingKV() *countingKV {
	return &countingKV{Store: kvstore.NewMemory(), sets: make(map[string]int)}
}

func (c *countingKV) Set(ctx context.Context, owner, key string, value []byte) error {
	c.mu.Lock()
	c.sets[key]++
	c.mu.Unlock()
	return c.Store.Set(ctx, owner, key, value)
}

func (c *countingKV) setCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[key]
}

// newTestServer builds a server over the in-memory store and the embedded
// fallback puzzles (a date with no dated entry). No DB: auth routes are
// not exercised here.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cs, err := content.Load()
	require.NoError(t, err)
	clock := fixedClock{time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
	return New(nil, kvstore.NewMemory(), cs, clock)
}

// do runs one request through the router under a fixed anonymous identity.
func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		blob, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(blob)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.AddCookie(&http.Cookie{Name: anonCookieName, Value: "anon-test"})
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestUnknownGameIs404(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/chess/start", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonCookieIssuedWhenMissing(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == anonCookieName {
			got = c
		}
	}
	require.NotNil(t, got, "a guest request must receive an anonymous id cookie")
	assert.NotEmpty(t, got.Value)
	assert.True(t, got.HttpOnly)
}

func TestPuzzlesTodayWithholdsSolutions(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/puzzles/today", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Date        string `json:"date"`
		RhymeaGrams struct {
			Pyramid []string `json:"pyramid"`
		} `json:"rhymeagrams"`
		TumblePuns struct {
			Scrambles []string `json:"scrambles"`
			Lengths   []int    `json:"lengths"`
			Clue      string   `json:"clue"`
			Pattern   string   `json:"pattern"`
		} `json:"tumblepuns"`
	}
	decode(t, rec, &res)

	assert.Equal(t, "2026-01-15", res.Date)
	assert.Len(t, res.RhymeaGrams.Pyramid, 4)
	assert.Equal(t, []int{5, 6, 7, 8}, res.TumblePuns.Lengths)
	assert.Equal(t, "___-_____", res.TumblePuns.Pattern)
	assert.NotEmpty(t, res.TumblePuns.Clue)
	for _, sc := range res.TumblePuns.Scrambles {
		assert.NotEmpty(t, sc)
	}
	// Solutions never leave the server.
	body := rec.Body.String()
	assert.NotContains(t, body, "DITZY")
	assert.NotContains(t, body, "OLD-TIMER")
	assert.NotContains(t, body, "DEGREE")
}

func TestLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	var st stateRes
	rec := do(t, s, http.MethodGet, "/rhymeagrams/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.False(t, st.Started)

	rec = do(t, s, http.MethodPost, "/rhymeagrams/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.Equal(t, "rhymeagrams", st.Game)
	assert.True(t, st.Started)
	assert.False(t, st.Paused)
	assert.Equal(t, "incomplete", st.Status)
	assert.Len(t, st.Pyramid, 4)

	// Starting twice conflicts.
	rec = do(t, s, http.MethodPost, "/rhymeagrams/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/rhymeagrams/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.True(t, st.Paused)

	rec = do(t, s, http.MethodPost, "/rhymeagrams/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.False(t, st.Paused)

	rec = do(t, s, http.MethodPost, "/rhymeagrams/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.False(t, st.Started)
	assert.Zero(t, st.Elapsed)

	// Cleared sessions start again from scratch.
	rec = do(t, s, http.MethodPost, "/rhymeagrams/start", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPauseBeforeStartConflicts(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/tumblepuns/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func typeWordHTTP(t *testing.T, s *Server, game, word string) {
	t.Helper()
	for _, ch := range word {
		rec := do(t, s, http.MethodPost, "/"+game+"/type", map[string]string{"letter": string(ch)})
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRhymeTypingOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/rhymeagrams/start", nil).Code)

	rec := do(t, s, http.MethodPost, "/rhymeagrams/select", map[string]any{"slot": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	typeWordHTTP(t, s, "rhymeagrams", "BEE")

	var st stateRes
	rec = do(t, s, http.MethodGet, "/rhymeagrams/state", nil)
	decode(t, rec, &st)
	assert.Equal(t, "BEE", st.Answers[0])
	assert.Contains(t, st.CorrectIndices, 0)
	assert.Equal(t, "incomplete", st.Status)
}

func TestTumbleSolveOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/tumblepuns/start", nil).Code)

	for i, word := range []string{"DITZY", "WINDOW", "PERPLEX", "MAJORITY"} {
		rec := do(t, s, http.MethodPost, "/tumblepuns/select", map[string]any{"slot": i})
		require.Equal(t, http.StatusOK, rec.Code)
		typeWordHTTP(t, s, "tumblepuns", word)
	}
	rec := do(t, s, http.MethodPost, "/tumblepuns/select", map[string]any{"final": true})
	require.Equal(t, http.StatusOK, rec.Code)
	typeWordHTTP(t, s, "tumblepuns", "OLDTIMER")

	var st stateRes
	rec = do(t, s, http.MethodGet, "/tumblepuns/state", nil)
	decode(t, rec, &st)
	assert.Equal(t, "solved", st.Status)
	assert.True(t, st.Finished)
	assert.Equal(t, "OLDTIMER", st.Final)

	// The finished day shows up in stats immediately.
	var sum struct {
		Games map[string]struct {
			CurrentStreak int `json:"currentStreak"`
			FinishedDays  int `json:"finishedDays"`
		} `json:"games"`
	}
	rec = do(t, s, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &sum)
	assert.Equal(t, 1, sum.Games["tumblepuns"].FinishedDays)
	assert.Equal(t, 1, sum.Games["tumblepuns"].CurrentStreak)
}

func TestDiagoneMovesOverHTTP(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/diagone/start", nil).Code)

	// The shortest piece fits exactly the two single-cell diagonals.
	rec := do(t, s, http.MethodGet, "/diagone/targets?piece=pu1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tg struct {
		Targets []string `json:"targets"`
	}
	decode(t, rec, &tg)
	assert.ElementsMatch(t, []string{"u1", "d1"}, tg.Targets)

	rec = do(t, s, http.MethodPost, "/diagone/place",
		map[string]string{"pieceId": "pu1", "targetId": "d1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var pr placeRes
	decode(t, rec, &pr)
	assert.True(t, pr.OK)
	assert.Empty(t, pr.Replaced)

	var st stateRes
	rec = do(t, s, http.MethodGet, "/diagone/state", nil)
	decode(t, rec, &st)
	require.NotNil(t, st.Board)
	assert.Equal(t, "E", st.Board[5][0], "pu1 carries ORANGE's last letter")
	var placed bool
	for _, tv := range st.Targets {
		if tv.ID == "d1" {
			placed = tv.PieceID == "pu1"
		}
	}
	assert.True(t, placed)

	// Length mismatch is feedback, not an error.
	rec = do(t, s, http.MethodPost, "/diagone/place",
		map[string]string{"pieceId": "pu5", "targetId": "u1"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &pr)
	assert.False(t, pr.OK)

	rec = do(t, s, http.MethodPost, "/diagone/remove", map[string]string{"targetId": "d1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var rr map[string]string
	decode(t, rec, &rr)
	assert.Equal(t, "pu1", rr["removedPieceId"])

	rec = do(t, s, http.MethodPost, "/diagone/diagonal",
		map[string]any{"letters": [6]string{"o", "e", "m", "t", "e", "e"}})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	require.NotNil(t, st.Main)
	assert.Equal(t, [6]string{"O", "E", "M", "T", "E", "E"}, *st.Main)
}

func TestWordMovesRejectedForDiagone(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/diagone/type", map[string]string{"letter": "A"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	var ps playerSettings
	rec := do(t, s, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &ps)
	assert.True(t, ps.Haptics, "haptics default on")

	rec = do(t, s, http.MethodPost, "/settings", playerSettings{Haptics: false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/settings", nil)
	decode(t, rec, &ps)
	assert.False(t, ps.Haptics)
}

// Typing and reading from many goroutines at once must be serialized by
// the session; run under -race. The slot caps at its solution length, so
// the outcome is deterministic no matter the interleaving.
func TestConcurrentTypingIsSerialized(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/rhymeagrams/start", nil).Code)
	require.Equal(t, http.StatusOK,
		do(t, s, http.MethodPost, "/rhymeagrams/select", map[string]any{"slot": 0}).Code)

	hit := func(method, path, body string) {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.AddCookie(&http.Cookie{Name: anonCookieName, Value: "anon-test"})
		s.Router().ServeHTTP(httptest.NewRecorder(), req)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				hit(http.MethodPost, "/rhymeagrams/type", `{"letter":"B"}`)
				hit(http.MethodGet, "/rhymeagrams/state", "")
			}
		}()
	}
	wg.Wait()

	var st stateRes
	rec := do(t, s, http.MethodGet, "/rhymeagrams/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.Equal(t, "BBB", st.Answers[0])
}

// A session superseded at day rollover must go fully quiet: no ticker
// writes to the previous day's record after eviction.
func TestDayRolloverStopsOldSession(t *testing.T) {
	t.Parallel()
	cs, err := content.Load()
	require.NoError(t, err)
	clock := &settableClock{t: time.Date(2026, 1, 15, 23, 59, 30, 0, time.UTC)}
	store := newCountingKV()
	s := New(nil, store, cs, clock)

	require.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/diagone/start", nil).Code)

	clock.Set(time.Date(2026, 1, 16, 0, 0, 30, 0, time.UTC))

	// First touch after midnight evicts the old session and builds a
	// fresh, unstarted one.
	var st stateRes
	rec := do(t, s, http.MethodGet, "/diagone/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &st)
	assert.Equal(t, "2026-01-16", st.Date)
	assert.False(t, st.Started)

	oldMetaKey := "diagone_meta_2026-01-15"
	before := store.setCount(oldMetaKey)
	time.Sleep(2200 * time.Millisecond)
	assert.Equal(t, before, store.setCount(oldMetaKey),
		"evicted session must not keep writing its day's record")
}

func TestOwnersDoNotShareSessions(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	asOwner := func(owner, method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(""))
		req.AddCookie(&http.Cookie{Name: anonCookieName, Value: owner})
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, asOwner("alice", http.MethodPost, "/diagone/start").Code)

	var st stateRes
	rec := asOwner("bob", http.MethodGet, "/diagone/state")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.False(t, st.Started, "one player's start must not leak to another")
}
