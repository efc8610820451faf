// internal/content/content.go
//
// Daily puzzle content store.
//
// Responsibilities:
//   - Load the bundled date-keyed puzzle tables once (embedded JSON).
//   - Answer "what is the puzzle for this date" per game, falling back to
//     one fixed built-in puzzle when the date has no entry, so the games
//     are always playable offline and pre-content.
//   - Fill in derived fields: deterministic scrambles for TumblePuns words
//     that ship without a pre-scrambled form, and the final-answer pattern
//     when omitted.
//
// Definitions returned from the store are copies; callers can hold them
// for a whole session without aliasing the cached tables.

package content

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/triodaily/go-server/assets"
)

// DiagonePuzzle is the content entry for the diagonal-placement game: the
// six expected row words of the solved 6x6 grid. Targets and pieces are
// derived from these rows by the diagone package.
type DiagonePuzzle struct {
	RowWords []string `json:"rowWords"`
}

// RhymePuzzle is the content entry for the rhyming-pyramid game.
type RhymePuzzle struct {
	Pyramid []string `json:"pyramid"`
	Answers []string `json:"answers"`
}

// TumbleWord is one scrambled word of a TumblePuns puzzle. Shaded indexes
// point into Solution; the shaded letters of solved words hint at the
// final answer.
type TumbleWord struct {
	Solution  string `json:"solution"`
	Scrambled string `json:"scrambled,omitempty"`
	Shaded    []int  `json:"shaded"`
}

// TumblePuzzle is the content entry for the word-unscramble game.
type TumblePuzzle struct {
	Words       []TumbleWord `json:"words"`
	Clue        string       `json:"clue"`
	FinalAnswer string       `json:"finalAnswer"`
	Pattern     string       `json:"pattern,omitempty"`
}

// file mirrors the embedded puzzles.json layout. Each section maps a
// MM/dd/yyyy content key to an entry; the "default" key is the fixed
// fallback for dates with no entry.
type file struct {
	Diagone map[string]DiagonePuzzle `json:"diagone"`
	Rhyme   map[string]RhymePuzzle   `json:"rhymeagrams"`
	Tumble  map[string]TumblePuzzle  `json:"tumblepuns"`
}

const fallbackKey = "default"

// Store serves immutable per-date puzzle definitions for all three games.
type Store struct {
	f file
}

var (
	loadOnce  sync.Once
	loaded    *Store
	loadError error
)

// Load parses the embedded content tables once and caches them for the
// process lifetime. An error here means the bundle itself is broken and
// is fatal at startup, never at request time.
func Load() (*Store, error) {
	loadOnce.Do(func() {
		raw, err := assets.PuzzleData()
		if err != nil {
			loadError = fmt.Errorf("read puzzle bundle: %w", err)
			return
		}
		var f file
		if err := json.Unmarshal(raw, &f); err != nil {
			loadError = fmt.Errorf("parse puzzle bundle: %w", err)
			return
		}
		for _, section := range []string{"diagone", "rhymeagrams", "tumblepuns"} {
			if !hasFallback(f, section) {
				loadError = fmt.Errorf("puzzle bundle: %s has no %q entry", section, fallbackKey)
				return
			}
		}
		loaded = &Store{f: f}
	})
	return loaded, loadError
}

func hasFallback(f file, section string) bool {
	switch section {
	case "diagone":
		_, ok := f.Diagone[fallbackKey]
		return ok
	case "rhymeagrams":
		_, ok := f.Rhyme[fallbackKey]
		return ok
	default:
		_, ok := f.Tumble[fallbackKey]
		return ok
	}
}

// Diagone returns the diagone puzzle for a MM/dd/yyyy content key, or the
// fixed fallback when the date has no entry.
func (s *Store) Diagone(contentKey string) DiagonePuzzle {
	p, ok := s.f.Diagone[contentKey]
	if !ok {
		p = s.f.Diagone[fallbackKey]
	}
	out := DiagonePuzzle{RowWords: make([]string, len(p.RowWords))}
	for i, w := range p.RowWords {
		out.RowWords[i] = strings.ToUpper(w)
	}
	return out
}

// Rhyme returns the rhyming-pyramid puzzle for a content key, or the
// fallback.
func (s *Store) Rhyme(contentKey string) RhymePuzzle {
	p, ok := s.f.Rhyme[contentKey]
	if !ok {
		p = s.f.Rhyme[fallbackKey]
	}
	out := RhymePuzzle{
		Pyramid: append([]string(nil), p.Pyramid...),
		Answers: make([]string, len(p.Answers)),
	}
	for i, a := range p.Answers {
		out.Answers[i] = strings.ToUpper(a)
	}
	return out
}

// Tumble returns the unscramble puzzle for a content key, or the fallback.
// Derived fields are filled in here:
//   - missing scrambles are generated deterministically from the content
//     key, so every player sees the same scramble on a given date and a
//     saved game always rehydrates against the same display;
//   - a missing answer pattern is derived from the final answer by
//     replacing letters with underscores.
func (s *Store) Tumble(contentKey string) TumblePuzzle {
	p, ok := s.f.Tumble[contentKey]
	if !ok {
		p = s.f.Tumble[fallbackKey]
	}
	out := TumblePuzzle{
		Words:       make([]TumbleWord, len(p.Words)),
		Clue:        p.Clue,
		FinalAnswer: strings.ToUpper(p.FinalAnswer),
		Pattern:     p.Pattern,
	}
	for i, w := range p.Words {
		tw := TumbleWord{
			Solution:  strings.ToUpper(w.Solution),
			Scrambled: strings.ToUpper(w.Scrambled),
			Shaded:    append([]int(nil), w.Shaded...),
		}
		if tw.Scrambled == "" {
			tw.Scrambled = Scramble(tw.Solution, contentKey)
		}
		out.Words[i] = tw
	}
	if out.Pattern == "" {
		out.Pattern = DerivePattern(out.FinalAnswer)
	}
	return out
}

// DerivePattern replaces every letter of an answer with "_" and keeps all
// other runes (spaces, hyphens) as-is.
func DerivePattern(answer string) string {
	var b strings.Builder
	for _, r := range answer {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
