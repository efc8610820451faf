// internal/wordgame/rhyme.go
//
// Engine for the rhyming-pyramid game: four answer slots, one of which is
// selected for typing at a time.

package wordgame

import (
	"encoding/json"
	"fmt"

	"github.com/triodaily/go-server/internal/content"
	"github.com/triodaily/go-server/internal/game"
)

// RhymeGame holds one rhyming-pyramid puzzle instance.
type RhymeGame struct {
	puzzle   content.RhymePuzzle
	slots    slotSet
	selected int // slot index, -1 when nothing is selected
}

// NewRhyme builds an empty engine for a puzzle definition.
func NewRhyme(p content.RhymePuzzle) *RhymeGame {
	return &RhymeGame{puzzle: p, slots: newSlotSet(p.Answers), selected: -1}
}

// SelectSlot picks the slot that receives keystrokes; -1 deselects.
// Out-of-range indexes are ignored.
func (g *RhymeGame) SelectSlot(i int) {
	if i >= -1 && i < len(g.slots.answers) {
		g.selected = i
	}
}

// Selected returns the selected slot index, -1 for none.
func (g *RhymeGame) Selected() int { return g.selected }

// TypeLetter appends a letter to the selected slot. No-op when nothing is
// selected or the slot is full.
func (g *RhymeGame) TypeLetter(ch rune) {
	g.slots.appendLetter(g.selected, ch)
}

// DeleteLetter removes the last letter of the selected slot. No-op when
// nothing is selected or the slot is empty.
func (g *RhymeGame) DeleteLetter() {
	g.slots.deleteLetter(g.selected)
}

// Answers returns copies of the in-progress answers.
func (g *RhymeGame) Answers() []string {
	return append([]string(nil), g.slots.answers...)
}

// CorrectIndices returns the slots whose answer matches the solution,
// case-insensitive.
func (g *RhymeGame) CorrectIndices() []int { return g.slots.correctIndices() }

// Status is incomplete until every slot is full, then solved when every
// answer matches, incorrect otherwise.
func (g *RhymeGame) Status() game.Status {
	if !g.slots.allFull() {
		return game.StatusIncomplete
	}
	if g.slots.allCorrect() {
		return game.StatusSolved
	}
	return game.StatusIncorrect
}

// Reset clears all answers and the selection.
func (g *RhymeGame) Reset() {
	g.slots.reset()
	g.selected = -1
}

type rhymeState struct {
	Answers  []string `json:"answers"`
	Selected int      `json:"selected"`
}

// Snapshot serializes the in-progress answers and selection.
func (g *RhymeGame) Snapshot() (json.RawMessage, error) {
	return json.Marshal(rhymeState{Answers: g.slots.answers, Selected: g.selected})
}

// Restore replaces answers from a snapshot, rejecting snapshots that do
// not fit the current puzzle.
func (g *RhymeGame) Restore(data json.RawMessage) error {
	var st rhymeState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("rhymeagrams: decode state: %w", err)
	}
	if !g.slots.restore(st.Answers) {
		return fmt.Errorf("rhymeagrams: state does not fit puzzle (%d slots)", len(g.slots.answers))
	}
	g.selected = -1
	if st.Selected >= -1 && st.Selected < len(g.slots.answers) {
		g.selected = st.Selected
	}
	return nil
}
