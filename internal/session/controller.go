// internal/session/controller.go
//
// Shared per-game lifecycle state machine: NotStarted → InProgress
// (optionally Paused) → Completed, with wall-clock-anchored elapsed time,
// debounced full-state saves, synchronous DailyMeta writes on every
// transition, and a cancelable delayed win sequence.
//
// Elapsed time is always a wall-clock delta from a start anchor, never an
// accumulated tick count, so it stays correct across process suspension
// and tick jitter. Resume re-anchors the start instant at now−elapsed.
//
// One controller covers one (owner, game, day). All engine access goes
// through Mutate/Inspect, which hold the same mutex as the timer
// callbacks, so concurrent requests and background saves never touch the
// engine at the same time.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triodaily/go-server/internal/daily"
	"github.com/triodaily/go-server/internal/game"
	"github.com/triodaily/go-server/internal/kvstore"
)

const (
	defaultSaveDelay = 500 * time.Millisecond
	defaultWinDelay  = 1200 * time.Millisecond
	tickInterval     = time.Second
)

// Hooks are the abstract presentation callbacks. All optional.
type Hooks struct {
	// OnWin fires after the win delay when a puzzle is solved. It is
	// cancelled when the game is cleared or superseded before it fires.
	OnWin func()

	// OnIncorrect fires when input is complete but wrong.
	OnIncorrect func()

	// Cleanup runs after OnIncorrect for puzzle-specific tidy-up, e.g.
	// clearing the unscramble game's final-answer slot.
	Cleanup func()
}

// Options tune a controller. Zero values take defaults.
type Options struct {
	Hooks     Hooks
	SaveDelay time.Duration
	WinDelay  time.Duration

	// CelebrationEnabled gates OnWin (the player's haptics/celebration
	// setting). Nil means enabled.
	CelebrationEnabled func() bool
}

// Controller drives one game session for one owner and calendar day.
type Controller struct {
	prefix string
	owner  string
	clock  daily.Clock
	store  kvstore.Store
	engine game.Engine
	opts   Options

	mu       sync.Mutex
	dateKey  string
	started  bool
	finished bool
	paused   bool

	elapsed      time.Duration // frozen value while paused/stopped
	startInstant time.Time     // anchor while running
	finishTime   int           // seconds, set on completion

	saveTimer *time.Timer
	winTimer  *time.Timer
	stopTick  chan struct{}
}

// New builds a controller for today's session. It does not touch the
// store; call Hydrate to pick up persisted progress.
func New(prefix, owner string, engine game.Engine, store kvstore.Store, clock daily.Clock, opts Options) *Controller {
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = defaultSaveDelay
	}
	if opts.WinDelay <= 0 {
		opts.WinDelay = defaultWinDelay
	}
	return &Controller{
		prefix:  prefix,
		owner:   owner,
		clock:   clock,
		store:   store,
		engine:  engine,
		opts:    opts,
		dateKey: daily.DateKey(clock.Now()),
	}
}

// DateKey returns the UTC day this controller covers.
func (c *Controller) DateKey() string { return c.dateKey }

// Hydrate restores today's persisted session, if any. Corrupt or
// incompatible blobs are discarded and the session falls back to
// NotStarted; hydration never fails the caller.
func (c *Controller) Hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	meta, ok, err := LoadMeta(ctx, c.store, c.owner, c.prefix, c.dateKey)
	if err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("load daily meta")
		return
	}
	if !ok || !meta.Started {
		return
	}

	raw, ok, err := c.store.Get(ctx, c.owner, StateKey(c.prefix))
	if err == nil && ok {
		if rerr := c.engine.Restore(raw); rerr != nil {
			// Puzzle changed or blob is corrupt: discard and start over.
			log.Warn().Err(rerr).Str("game", c.prefix).Msg("discarding incompatible saved state")
			c.engine.Reset()
			_ = c.store.Delete(ctx, c.owner, StateKey(c.prefix))
			_ = c.store.Delete(ctx, c.owner, MetaKey(c.prefix, c.dateKey))
			return
		}
	} else if err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("load saved state")
	}

	c.started = true
	c.finished = meta.Finished
	c.elapsed = time.Duration(meta.ElapsedTime) * time.Second
	c.finishTime = meta.FinishTime
	// Rehydrated sessions come back paused; the player resumes explicitly.
	c.paused = !meta.Finished
}

// Start begins a fresh session. Valid only from NotStarted.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("%s: game already started", c.prefix)
	}
	c.engine.Reset()
	c.started = true
	c.finished = false
	c.paused = false
	c.elapsed = 0
	c.finishTime = 0
	c.startInstant = c.clock.Now()
	c.persistMetaLocked(ctx)
	c.persistStateLocked(ctx)
	c.startTickerLocked()
	return nil
}

// Pause stops the clock and flushes any pending save. Idempotent while
// in progress; invalid otherwise.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.finished {
		return fmt.Errorf("%s: cannot pause, game not in progress", c.prefix)
	}
	if c.paused {
		return nil
	}
	c.elapsed = c.clock.Now().Sub(c.startInstant)
	c.paused = true
	c.stopTickerLocked()
	c.flushSaveLocked(ctx)
	c.persistMetaLocked(ctx)
	return nil
}

// Resume restarts the clock at the persisted offset: the start anchor is
// re-derived as now−elapsed, so elapsed time keeps counting from where it
// stopped.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.finished {
		return fmt.Errorf("%s: cannot resume, game not in progress", c.prefix)
	}
	if !c.paused {
		return nil
	}
	c.startInstant = c.clock.Now().Add(-c.elapsed)
	c.paused = false
	c.persistMetaLocked(ctx)
	c.startTickerLocked()
	return nil
}

// Clear discards the session from any state: timers cancelled, engine
// reset, state and today's meta deleted.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
	c.cancelTimersLocked()
	c.engine.Reset()
	c.started = false
	c.finished = false
	c.paused = false
	c.elapsed = 0
	c.finishTime = 0
	if err := c.store.Delete(ctx, c.owner, StateKey(c.prefix)); err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("delete state")
	}
	if err := c.store.Delete(ctx, c.owner, MetaKey(c.prefix, c.dateKey)); err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("delete daily meta")
	}
}

// Mutate applies an engine mutation under the controller's lock, then
// schedules a debounced full-state save and evaluates the solved
// predicate. Solved transitions to Completed (freezing the clock and
// arming the win sequence); complete-but-incorrect fires the feedback
// hook plus cleanup and never transitions. fn may be nil to re-evaluate
// without mutating; it must not call back into the controller.
func (c *Controller) Mutate(ctx context.Context, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn != nil {
		fn()
	}
	if !c.started || c.finished {
		return
	}
	c.scheduleSaveLocked()

	switch c.engine.Status() {
	case game.StatusSolved:
		c.completeLocked(ctx)
	case game.StatusIncorrect:
		if c.opts.Hooks.OnIncorrect != nil {
			c.opts.Hooks.OnIncorrect()
		}
		if c.opts.Hooks.Cleanup != nil {
			c.opts.Hooks.Cleanup()
			c.scheduleSaveLocked()
		}
	}
}

func (c *Controller) completeLocked(ctx context.Context) {
	if !c.paused {
		c.elapsed = c.clock.Now().Sub(c.startInstant)
	}
	c.finished = true
	c.paused = false
	c.finishTime = int(c.elapsed / time.Second)
	c.stopTickerLocked()
	c.flushSaveLocked(ctx)
	c.persistMetaLocked(ctx)

	if c.opts.CelebrationEnabled != nil && !c.opts.CelebrationEnabled() {
		return
	}
	if c.opts.Hooks.OnWin == nil {
		return
	}
	// A previously armed sequence is superseded, never overlapped.
	if c.winTimer != nil {
		c.winTimer.Stop()
	}
	c.winTimer = time.AfterFunc(c.opts.WinDelay, c.opts.Hooks.OnWin)
}

// Inspect runs fn under the controller's lock, for reading engine state
// consistently with concurrent mutations and the timer callbacks. fn
// must not call back into the controller.
func (c *Controller) Inspect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

// Stop halts background work: the meta ticker and any pending save or
// win timers. A pending debounced save is flushed synchronously first so
// the last mutations are not lost; after Stop returns nothing writes on
// this controller's behalf. Called when a cached session is discarded
// (day rollover, progress claim) so an abandoned controller cannot keep
// writing over the successor's keys.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickerLocked()
	if c.saveTimer != nil {
		c.flushSaveLocked(context.Background())
	}
	c.cancelTimersLocked()
}

// Started reports whether the session has begun.
func (c *Controller) Started() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.started }

// Finished reports whether the puzzle was solved.
func (c *Controller) Finished() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.finished }

// Paused reports whether the clock is stopped mid-game.
func (c *Controller) Paused() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.paused }

// FinishTime returns the winning time in seconds (0 while unfinished).
func (c *Controller) FinishTime() int { c.mu.Lock(); defer c.mu.Unlock(); return c.finishTime }

// ElapsedSeconds returns whole seconds of active play.
func (c *Controller) ElapsedSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.elapsedLocked() / time.Second)
}

// ElapsedString formats elapsed play time as mm:ss.
func (c *Controller) ElapsedString() string {
	s := c.ElapsedSeconds()
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

func (c *Controller) elapsedLocked() time.Duration {
	if c.started && !c.finished && !c.paused {
		return c.clock.Now().Sub(c.startInstant)
	}
	return c.elapsed
}

// ---------------------------- persistence ----------------------------

// scheduleSaveLocked coalesces rapid mutations into one write: a pending
// save is cancelled and rescheduled, so only the last state within the
// debounce window reaches the store.
func (c *Controller) scheduleSaveLocked() {
	if c.saveTimer != nil {
		c.saveTimer.Stop()
	}
	c.saveTimer = time.AfterFunc(c.opts.SaveDelay, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.persistStateLocked(context.Background())
	})
}

// flushSaveLocked cancels any pending debounce and writes immediately.
func (c *Controller) flushSaveLocked(ctx context.Context) {
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	c.persistStateLocked(ctx)
}

func (c *Controller) persistStateLocked(ctx context.Context) {
	blob, err := c.engine.Snapshot()
	if err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("snapshot state")
		return
	}
	if err := c.store.Set(ctx, c.owner, StateKey(c.prefix), blob); err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("save state")
	}
}

func (c *Controller) persistMetaLocked(ctx context.Context) {
	m := Meta{
		Started:     c.started,
		Finished:    c.finished,
		ElapsedTime: int(c.elapsedLocked() / time.Second),
		FinishTime:  c.finishTime,
		LastUpdated: c.clock.Now().UTC().Format(time.RFC3339),
	}
	blob, err := json.Marshal(m)
	if err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("encode daily meta")
		return
	}
	if err := c.store.Set(ctx, c.owner, MetaKey(c.prefix, c.dateKey), blob); err != nil {
		log.Warn().Err(err).Str("game", c.prefix).Msg("save daily meta")
	}
}

// ------------------------------ ticker -------------------------------

// startTickerLocked arms the 1 Hz meta writer. Each tick re-reads the
// wall clock, so the persisted elapsed time tracks real time even if
// ticks are delayed.
func (c *Controller) startTickerLocked() {
	c.stopTickerLocked()
	stop := make(chan struct{})
	c.stopTick = stop
	go func() {
		t := time.NewTicker(tickInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.mu.Lock()
				if c.started && !c.finished && !c.paused {
					c.persistMetaLocked(context.Background())
				}
				c.mu.Unlock()
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

func (c *Controller) cancelTimersLocked() {
	if c.saveTimer != nil {
		c.saveTimer.Stop()
		c.saveTimer = nil
	}
	if c.winTimer != nil {
		c.winTimer.Stop()
		c.winTimer = nil
	}
}
