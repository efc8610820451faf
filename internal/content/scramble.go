// internal/content/scramble.go
//
// Deterministic letter scrambling for TumblePuns words.
//
// The same (word, seed) pair must always produce the same permutation:
// every player sees an identical scramble on a given date, and saved games
// (which store only the player's answers) rehydrate against the same
// display. A Fisher-Yates shuffle driven by a linear-congruential PRNG
// seeded from FNV-1a(seed+word) gives that without any external state.

package content

import (
	"hash/fnv"
	"strings"
)

// Knuth MMIX LCG constants.
const (
	lcgMul = 6364136223846793005
	lcgInc = 1442695040888963407
)

// Scramble returns a deterministic permutation of word's letters. When the
// shuffle happens to reproduce the original word (and the word has at
// least two letters), the first two letters are swapped so the puzzle is
// never trivially pre-solved.
func Scramble(word, seed string) string {
	letters := []rune(strings.ToUpper(word))
	if len(letters) < 2 {
		return string(letters)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(seed + word))
	state := h.Sum64()

	for i := len(letters) - 1; i > 0; i-- {
		state = state*lcgMul + lcgInc
		// High bits have the better distribution for an LCG.
		j := int((state >> 33) % uint64(i+1))
		letters[i], letters[j] = letters[j], letters[i]
	}

	if string(letters) == strings.ToUpper(word) {
		letters[0], letters[1] = letters[1], letters[0]
	}
	return string(letters)
}
