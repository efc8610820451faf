// internal/game/types.go
//
// Core type definitions shared by the three puzzle engines.
// Defines:
//   - Status: coarse evaluation of a board (incomplete/incorrect/solved).
//   - Engine: the surface a puzzle engine exposes to the session layer.
//   - Game name constants used as persistence key prefixes.

package game

import "encoding/json"

// Status is the tri-state evaluation of a puzzle board.
// Possible values:
//   - "incomplete": some inputs are still blank.
//   - "incorrect":  every input is filled but the answers are wrong.
//   - "solved":     every input is filled and correct.
//
// "incorrect" is a first-class outcome, not an error: the session layer
// uses it to fire corrective feedback while leaving the game in progress.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusIncorrect  Status = "incorrect"
	StatusSolved     Status = "solved"
)

// Game name constants. These double as persistence key prefixes, so they
// must never change once player data exists.
const (
	Diagone    = "diagone"
	RhymeGrams = "rhymeagrams"
	TumblePuns = "tumblepuns"
)

// Names lists all three games in display order.
var Names = []string{Diagone, RhymeGrams, TumblePuns}

// Engine is implemented by each puzzle engine. All methods are synchronous
// and mutation-free except Restore and Reset; persistence and lifecycle
// live in the session package, never in an engine.
type Engine interface {
	// Status evaluates the current board.
	Status() Status

	// Snapshot serializes the mutable state (placements/answers) for the
	// key-value store. Puzzle definitions are never part of a snapshot.
	Snapshot() (json.RawMessage, error)

	// Restore replaces mutable state from a previous Snapshot. It must
	// reject (with an error) any snapshot that does not match the current
	// puzzle definition; the caller falls back to a fresh state.
	Restore(data json.RawMessage) error

	// Reset returns the engine to its initial empty state.
	Reset()
}
