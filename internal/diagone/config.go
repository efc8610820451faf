// internal/diagone/config.go
//
// Puzzle configuration for the diagonal-placement game.
//
// The board is a fixed 6x6 letter grid. Ten diagonal targets run parallel
// to the main diagonal, five above it and five below, lengths 1 through 5
// (mirrored pairs). Together with the six main-diagonal cells they tile
// the grid exactly, so the whole configuration is derivable from the six
// solved row words alone.

package diagone

import (
	"fmt"
	"strings"
)

// Size is the fixed board dimension.
const Size = 6

// Cell is a (row, col) coordinate on the board. Equality by value.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// TargetDef fixes one diagonal slot: its first cell and its length. Cells
// run down-right from (Row, Col).
type TargetDef struct {
	ID     string `json:"id"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Length int    `json:"length"`
}

// PieceDef fixes one draggable word-fragment chip.
type PieceDef struct {
	ID      string `json:"id"`
	Letters string `json:"letters"`
}

// Config is an immutable puzzle definition: targets, one piece per target,
// and the six expected row words of the solved grid.
type Config struct {
	Targets  []TargetDef
	Pieces   []PieceDef
	RowWords [Size]string
}

// ConfigFromRows derives the standard configuration from six solved row
// words: targets above the main diagonal start at (0,c) with length 6-c,
// targets below start at (r,0) with length 6-r, and each piece carries the
// solution letters of its mirror target. Target u5 is the length-5 slot
// above the diagonal, d5 its mirror below, and so on.
func ConfigFromRows(rows []string) (Config, error) {
	var cfg Config
	if len(rows) != Size {
		return cfg, fmt.Errorf("diagone: want %d row words, got %d", Size, len(rows))
	}
	var grid [Size][Size]byte
	for r, w := range rows {
		w = strings.ToUpper(strings.TrimSpace(w))
		if len(w) != Size || !isUpperAlpha(w) {
			return cfg, fmt.Errorf("diagone: row %d: %q is not a %d-letter word", r, w, Size)
		}
		cfg.RowWords[r] = w
		for c := 0; c < Size; c++ {
			grid[r][c] = w[c]
		}
	}

	add := func(id string, row, col, length int) {
		cfg.Targets = append(cfg.Targets, TargetDef{ID: id, Row: row, Col: col, Length: length})
		letters := make([]byte, length)
		for i := 0; i < length; i++ {
			letters[i] = grid[row+i][col+i]
		}
		cfg.Pieces = append(cfg.Pieces, PieceDef{ID: "p" + id, Letters: string(letters)})
	}
	for c := 1; c < Size; c++ {
		add(fmt.Sprintf("u%d", Size-c), 0, c, Size-c)
	}
	for r := 1; r < Size; r++ {
		add(fmt.Sprintf("d%d", Size-r), r, 0, Size-r)
	}
	return cfg, nil
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
