// internal/diagone/engine.go
//
// Placement engine for the diagonal-placement game.
//
// The engine owns the Target/Piece graph and keeps its one structural
// invariant at all times: placement links are bidirectionally consistent.
// A piece placed on a target is recorded on both sides (Target.PieceID and
// Piece.PlacedOn), a piece occupies at most one target, and a target holds
// at most one piece. Targets and pieces live in id-keyed maps (no shared
// mutable pointers cross the engine boundary), so the invariant survives
// serialization round-trips.
//
// The 6 main-diagonal cells are a separate mechanism filled by direct
// letter typing, never by piece placement.
//
// The board is always recomputed from placements plus the main diagonal,
// never maintained incrementally, so it cannot drift.

package diagone

import (
	"fmt"
	"strings"

	"github.com/triodaily/go-server/internal/game"
)

// Target is a fixed diagonal slot. Cells never change after construction;
// only PieceID mutates.
type Target struct {
	ID      string
	Cells   []Cell
	PieceID string // empty when the slot is open
}

// Piece is a draggable word-fragment chip.
type Piece struct {
	ID       string
	Length   int
	Letters  string
	PlacedOn string // target id, empty while in the tray
}

// Engine holds one puzzle instance.
type Engine struct {
	cfg     Config
	targets map[string]*Target
	pieces  map[string]*Piece

	// construction order, for stable iteration in snapshots and views
	targetOrder []string
	pieceOrder  []string

	main  [Size]string
	board [Size][Size]string
}

// New builds an engine with empty targets and unplaced pieces from a
// puzzle configuration.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Targets) == 0 || len(cfg.Targets) != len(cfg.Pieces) {
		return nil, fmt.Errorf("diagone: %d targets / %d pieces, want one piece per target",
			len(cfg.Targets), len(cfg.Pieces))
	}
	e := &Engine{
		cfg:     cfg,
		targets: make(map[string]*Target, len(cfg.Targets)),
		pieces:  make(map[string]*Piece, len(cfg.Pieces)),
	}
	for _, td := range cfg.Targets {
		if td.Length < 1 || td.Length > Size-1 {
			return nil, fmt.Errorf("diagone: target %s: bad length %d", td.ID, td.Length)
		}
		if _, dup := e.targets[td.ID]; dup {
			return nil, fmt.Errorf("diagone: duplicate target id %s", td.ID)
		}
		cells := make([]Cell, td.Length)
		for i := range cells {
			r, c := td.Row+i, td.Col+i
			if r < 0 || r >= Size || c < 0 || c >= Size {
				return nil, fmt.Errorf("diagone: target %s leaves the board at (%d,%d)", td.ID, r, c)
			}
			if r == c {
				return nil, fmt.Errorf("diagone: target %s crosses the main diagonal at (%d,%d)", td.ID, r, c)
			}
			cells[i] = Cell{Row: r, Col: c}
		}
		e.targets[td.ID] = &Target{ID: td.ID, Cells: cells}
		e.targetOrder = append(e.targetOrder, td.ID)
	}
	for _, pd := range cfg.Pieces {
		letters := strings.ToUpper(pd.Letters)
		if len(letters) < 1 || len(letters) > Size-1 || !isUpperAlpha(letters) {
			return nil, fmt.Errorf("diagone: piece %s: bad letters %q", pd.ID, pd.Letters)
		}
		if _, dup := e.pieces[pd.ID]; dup {
			return nil, fmt.Errorf("diagone: duplicate piece id %s", pd.ID)
		}
		e.pieces[pd.ID] = &Piece{ID: pd.ID, Length: len(letters), Letters: letters}
		e.pieceOrder = append(e.pieceOrder, pd.ID)
	}
	e.recompute()
	return e, nil
}

// ValidTargets returns the ids of every target the piece may be dropped
// on: same length, and either open or already holding this piece. Unknown
// piece ids yield an empty result, not an error.
func (e *Engine) ValidTargets(pieceID string) []string {
	p, ok := e.pieces[pieceID]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range e.targetOrder {
		t := e.targets[id]
		if len(t.Cells) == p.Length && (t.PieceID == "" || t.PieceID == p.ID) {
			out = append(out, id)
		}
	}
	return out
}

// PlaceOrReplace drops a piece on a target. A different piece already on
// the target is displaced back to the tray and its id returned. If the
// piece was placed elsewhere, its old target is opened as a side effect.
// Returns ok=false (and does nothing) for length mismatches or unknown
// ids; invalid moves are feedback, not failures.
func (e *Engine) PlaceOrReplace(pieceID, targetID string) (ok bool, replaced string) {
	p, pok := e.pieces[pieceID]
	t, tok := e.targets[targetID]
	if !pok || !tok || len(t.Cells) != p.Length {
		return false, ""
	}

	if t.PieceID != "" && t.PieceID != p.ID {
		displaced := e.pieces[t.PieceID]
		displaced.PlacedOn = ""
		replaced = displaced.ID
	}
	if p.PlacedOn != "" && p.PlacedOn != t.ID {
		e.targets[p.PlacedOn].PieceID = ""
	}
	t.PieceID = p.ID
	p.PlacedOn = t.ID
	e.recompute()
	return true, replaced
}

// RemovePiece sends the piece on a target back to the tray and returns its
// id, or "" if the target was already open.
func (e *Engine) RemovePiece(targetID string) (removed string) {
	t, ok := e.targets[targetID]
	if !ok || t.PieceID == "" {
		return ""
	}
	removed = t.PieceID
	e.pieces[t.PieceID].PlacedOn = ""
	t.PieceID = ""
	e.recompute()
	return removed
}

// SetMainDiagonal overwrites all six main-diagonal letters atomically.
// Entries are normalized to one uppercase letter or blank.
func (e *Engine) SetMainDiagonal(letters [Size]string) {
	for i, l := range letters {
		l = strings.ToUpper(strings.TrimSpace(l))
		if len(l) > 1 || (l != "" && (l[0] < 'A' || l[0] > 'Z')) {
			l = ""
		}
		e.main[i] = l
	}
	e.recompute()
}

// MainDiagonal returns the current main-diagonal letters.
func (e *Engine) MainDiagonal() [Size]string { return e.main }

// Reset clears every placement and the main diagonal; all pieces return
// to the tray.
func (e *Engine) Reset() {
	for _, t := range e.targets {
		t.PieceID = ""
	}
	for _, p := range e.pieces {
		p.PlacedOn = ""
	}
	e.main = [Size]string{}
	e.recompute()
}

// Board returns the derived 6x6 letter grid ("" for blank cells).
func (e *Engine) Board() [Size][Size]string { return e.board }

// Status evaluates the board: incomplete until every target holds a piece
// and every main-diagonal cell is filled; then solved when each row spells
// its expected word, incorrect otherwise.
func (e *Engine) Status() game.Status {
	for _, t := range e.targets {
		if t.PieceID == "" {
			return game.StatusIncomplete
		}
	}
	for _, l := range e.main {
		if l == "" {
			return game.StatusIncomplete
		}
	}
	for r := 0; r < Size; r++ {
		var row strings.Builder
		for c := 0; c < Size; c++ {
			row.WriteString(e.board[r][c])
		}
		if !strings.EqualFold(row.String(), e.cfg.RowWords[r]) {
			return game.StatusIncorrect
		}
	}
	return game.StatusSolved
}

// Targets returns value copies of all targets in construction order.
func (e *Engine) Targets() []Target {
	out := make([]Target, 0, len(e.targetOrder))
	for _, id := range e.targetOrder {
		t := e.targets[id]
		out = append(out, Target{ID: t.ID, Cells: append([]Cell(nil), t.Cells...), PieceID: t.PieceID})
	}
	return out
}

// Pieces returns value copies of all pieces in construction order.
func (e *Engine) Pieces() []Piece {
	out := make([]Piece, 0, len(e.pieceOrder))
	for _, id := range e.pieceOrder {
		out = append(out, *e.pieces[id])
	}
	return out
}

func (e *Engine) recompute() {
	e.board = [Size][Size]string{}
	for _, t := range e.targets {
		if t.PieceID == "" {
			continue
		}
		letters := e.pieces[t.PieceID].Letters
		for i, c := range t.Cells {
			e.board[c.Row][c.Col] = string(letters[i])
		}
	}
	for i := 0; i < Size; i++ {
		e.board[i][i] = e.main[i]
	}
}
