// internal/diagone/state.go
//
// Snapshot/restore for the placement engine. A snapshot stores only the
// mutable user state (placement links and main-diagonal letters) plus the
// target/piece counts used to reject snapshots taken against a different
// puzzle. Restoring is all-or-nothing: any incompatibility leaves the
// engine untouched and reports an error so the caller can start fresh.

package diagone

import (
	"encoding/json"
	"fmt"
)

// GameState is the persisted form of the engine's mutable state.
type GameState struct {
	TargetCount int               `json:"targetCount"`
	PieceCount  int               `json:"pieceCount"`
	Placements  map[string]string `json:"placements"` // target id -> piece id
	Main        [Size]string      `json:"main"`
}

// Snapshot serializes the current placements and main diagonal.
func (e *Engine) Snapshot() (json.RawMessage, error) {
	st := GameState{
		TargetCount: len(e.targets),
		PieceCount:  len(e.pieces),
		Placements:  make(map[string]string),
		Main:        e.main,
	}
	for _, id := range e.targetOrder {
		if pid := e.targets[id].PieceID; pid != "" {
			st.Placements[id] = pid
		}
	}
	return json.Marshal(st)
}

// Restore replaces the engine's mutable state wholesale from a snapshot.
// The snapshot is rejected (error, engine unchanged) when it was taken
// against a different puzzle shape: count mismatch, unknown ids, length
// mismatch, or a piece recorded on two targets. Partial restores are
// never attempted.
func (e *Engine) Restore(data json.RawMessage) error {
	var st GameState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("diagone: decode state: %w", err)
	}
	if st.TargetCount != len(e.targets) || st.PieceCount != len(e.pieces) {
		return fmt.Errorf("diagone: state is for %d targets/%d pieces, puzzle has %d/%d",
			st.TargetCount, st.PieceCount, len(e.targets), len(e.pieces))
	}
	seen := make(map[string]string, len(st.Placements))
	for tid, pid := range st.Placements {
		t, ok := e.targets[tid]
		if !ok {
			return fmt.Errorf("diagone: state references unknown target %s", tid)
		}
		p, ok := e.pieces[pid]
		if !ok {
			return fmt.Errorf("diagone: state references unknown piece %s", pid)
		}
		if len(t.Cells) != p.Length {
			return fmt.Errorf("diagone: state places piece %s (len %d) on target %s (len %d)",
				pid, p.Length, tid, len(t.Cells))
		}
		if prev, dup := seen[pid]; dup {
			return fmt.Errorf("diagone: state places piece %s on both %s and %s", pid, prev, tid)
		}
		seen[pid] = tid
	}

	e.Reset()
	for tid, pid := range st.Placements {
		e.targets[tid].PieceID = pid
		e.pieces[pid].PlacedOn = tid
	}
	e.SetMainDiagonal(st.Main)
	return nil
}
