// internal/wordgame/slots.go
//
// Shared answer-slot core for the two typed word games. A slot holds one
// in-progress answer bounded by its solution's length. Append and delete
// are deliberately no-op safe: typing with nothing selected, appending to
// a full slot, or deleting from an empty one does nothing and is never an
// error, so the UI can forward keystrokes blindly.

package wordgame

import "strings"

type slotSet struct {
	solutions []string // uppercase
	answers   []string // uppercase, len(answers[i]) <= len(solutions[i])
}

func newSlotSet(solutions []string) slotSet {
	s := slotSet{
		solutions: make([]string, len(solutions)),
		answers:   make([]string, len(solutions)),
	}
	for i, w := range solutions {
		s.solutions[i] = strings.ToUpper(w)
	}
	return s
}

// appendLetter adds one letter to slot i, ignoring bad indexes, full slots
// and non-letter input.
func (s *slotSet) appendLetter(i int, ch rune) {
	if i < 0 || i >= len(s.answers) {
		return
	}
	l := normalizeLetter(ch)
	if l == "" || len(s.answers[i]) >= len(s.solutions[i]) {
		return
	}
	s.answers[i] += l
}

// deleteLetter removes the last letter of slot i, ignoring bad indexes and
// empty slots.
func (s *slotSet) deleteLetter(i int) {
	if i < 0 || i >= len(s.answers) || s.answers[i] == "" {
		return
	}
	s.answers[i] = s.answers[i][:len(s.answers[i])-1]
}

// correctIndices returns the slots whose answer equals the solution.
func (s *slotSet) correctIndices() []int {
	var out []int
	for i := range s.answers {
		if strings.EqualFold(s.answers[i], s.solutions[i]) {
			out = append(out, i)
		}
	}
	return out
}

func (s *slotSet) allCorrect() bool {
	return len(s.correctIndices()) == len(s.answers)
}

func (s *slotSet) allFull() bool {
	for i := range s.answers {
		if len(s.answers[i]) < len(s.solutions[i]) {
			return false
		}
	}
	return true
}

func (s *slotSet) reset() {
	for i := range s.answers {
		s.answers[i] = ""
	}
}

// restore replaces all answers, rejecting any that are not plain letters
// or exceed their slot's length.
func (s *slotSet) restore(answers []string) bool {
	if len(answers) != len(s.answers) {
		return false
	}
	for i, a := range answers {
		a = strings.ToUpper(a)
		if len(a) > len(s.solutions[i]) || !lettersOnly(a) {
			return false
		}
	}
	for i, a := range answers {
		s.answers[i] = strings.ToUpper(a)
	}
	return true
}

// normalizeLetter maps a keystroke to one uppercase letter, or "" for
// anything that is not a letter.
func normalizeLetter(ch rune) string {
	switch {
	case ch >= 'a' && ch <= 'z':
		return string(ch - 'a' + 'A')
	case ch >= 'A' && ch <= 'Z':
		return string(ch)
	}
	return ""
}

func lettersOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// stripNonLetters drops everything but letters and uppercases the rest.
// Final answers are compared in this form so "OLD-TIMER" accepts OLDTIMER.
func stripNonLetters(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
