// internal/wordgame/tumble.go
//
// Engine for the word-unscramble game: four scrambled-word slots plus a
// final-answer slot built from the shaded letters of the solved words.
// Exactly one of "word slot N" or "the final slot" is selected at a time.

package wordgame

import (
	"encoding/json"
	"fmt"

	"github.com/triodaily/go-server/internal/content"
	"github.com/triodaily/go-server/internal/game"
)

// TumbleGame holds one unscramble puzzle instance.
type TumbleGame struct {
	puzzle      content.TumblePuzzle
	words       slotSet
	final       string // in-progress final answer, letters only
	finalTarget string // puzzle final answer with non-letters stripped

	selected      int  // word slot index, -1 when none
	finalSelected bool // true when the final slot receives keystrokes
}

// NewTumble builds an empty engine for a puzzle definition.
func NewTumble(p content.TumblePuzzle) *TumbleGame {
	solutions := make([]string, len(p.Words))
	for i, w := range p.Words {
		solutions[i] = w.Solution
	}
	return &TumbleGame{
		puzzle:      p,
		words:       newSlotSet(solutions),
		finalTarget: stripNonLetters(p.FinalAnswer),
		selected:    -1,
	}
}

// SelectWord picks a word slot for typing and deselects the final slot.
// Out-of-range indexes (other than -1) are ignored.
func (g *TumbleGame) SelectWord(i int) {
	if i < -1 || i >= len(g.words.answers) {
		return
	}
	g.selected = i
	g.finalSelected = false
}

// SelectFinal picks the final-answer slot and deselects any word slot.
func (g *TumbleGame) SelectFinal() {
	g.finalSelected = true
	g.selected = -1
}

// Selected returns the selected word slot (-1 for none) and whether the
// final slot is selected. At most one of the two is active.
func (g *TumbleGame) Selected() (word int, final bool) {
	return g.selected, g.finalSelected
}

// TypeLetter appends to whichever slot is selected; no-op when nothing is
// selected or the slot is full.
func (g *TumbleGame) TypeLetter(ch rune) {
	if g.finalSelected {
		l := normalizeLetter(ch)
		if l != "" && len(g.final) < len(g.finalTarget) {
			g.final += l
		}
		return
	}
	g.words.appendLetter(g.selected, ch)
}

// DeleteLetter removes the last letter of the selected slot; no-op when
// nothing is selected or the slot is empty.
func (g *TumbleGame) DeleteLetter() {
	if g.finalSelected {
		if g.final != "" {
			g.final = g.final[:len(g.final)-1]
		}
		return
	}
	g.words.deleteLetter(g.selected)
}

// Answers returns copies of the in-progress word answers.
func (g *TumbleGame) Answers() []string {
	return append([]string(nil), g.words.answers...)
}

// FinalAnswer returns the in-progress final answer (letters only).
func (g *TumbleGame) FinalAnswer() string { return g.final }

// CorrectIndices returns the word slots whose answer matches the
// solution, case-insensitive.
func (g *TumbleGame) CorrectIndices() []int { return g.words.correctIndices() }

// ShadedLetters returns, for each solved word, its letters at the
// puzzle's shaded positions; unsolved words contribute blanks. These are
// the hint letters for the final answer.
func (g *TumbleGame) ShadedLetters() []string {
	correct := make(map[int]bool)
	for _, i := range g.words.correctIndices() {
		correct[i] = true
	}
	var out []string
	for i, w := range g.puzzle.Words {
		for _, idx := range w.Shaded {
			if idx < 0 || idx >= len(w.Solution) {
				continue
			}
			if correct[i] {
				out = append(out, string(w.Solution[idx]))
			} else {
				out = append(out, "")
			}
		}
	}
	return out
}

// ClearFinal empties the final-answer slot. The session layer calls this
// as cleanup after a complete-but-incorrect submission so the player can
// retry immediately.
func (g *TumbleGame) ClearFinal() { g.final = "" }

// Status is incomplete until every word slot and the final slot are full,
// then solved when all words match and the final answer equals the target
// (non-letters ignored), incorrect otherwise.
func (g *TumbleGame) Status() game.Status {
	if !g.words.allFull() || len(g.final) < len(g.finalTarget) {
		return game.StatusIncomplete
	}
	if g.words.allCorrect() && g.final == g.finalTarget {
		return game.StatusSolved
	}
	return game.StatusIncorrect
}

// Reset clears all answers, the final slot, and the selection.
func (g *TumbleGame) Reset() {
	g.words.reset()
	g.final = ""
	g.selected = -1
	g.finalSelected = false
}

type tumbleState struct {
	Answers       []string `json:"answers"`
	Final         string   `json:"final"`
	Selected      int      `json:"selected"`
	FinalSelected bool     `json:"finalSelected"`
}

// Snapshot serializes the in-progress answers and selection.
func (g *TumbleGame) Snapshot() (json.RawMessage, error) {
	return json.Marshal(tumbleState{
		Answers:       g.words.answers,
		Final:         g.final,
		Selected:      g.selected,
		FinalSelected: g.finalSelected,
	})
}

// Restore replaces answers from a snapshot, rejecting snapshots that do
// not fit the current puzzle.
func (g *TumbleGame) Restore(data json.RawMessage) error {
	var st tumbleState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("tumblepuns: decode state: %w", err)
	}
	if !g.words.restore(st.Answers) {
		return fmt.Errorf("tumblepuns: state does not fit puzzle (%d words)", len(g.words.answers))
	}
	final := stripNonLetters(st.Final)
	if len(final) > len(g.finalTarget) {
		return fmt.Errorf("tumblepuns: state final answer longer than target")
	}
	g.final = final
	g.selected = -1
	g.finalSelected = st.FinalSelected
	if !st.FinalSelected && st.Selected >= -1 && st.Selected < len(g.words.answers) {
		g.selected = st.Selected
	}
	return nil
}
