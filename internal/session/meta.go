// internal/session/meta.go
//
// DailyMeta: the small per-game per-day summary record. Written on every
// lifecycle transition (and each clock tick) so the session state machine
// and the streak statistics can be reconstructed without loading full game
// state.

package session

import (
	"context"
	"encoding/json"

	"github.com/triodaily/go-server/internal/kvstore"
)

// Meta is the persisted daily summary for one game. Times are whole
// seconds of active (unpaused) play.
type Meta struct {
	Started     bool   `json:"started"`
	Finished    bool   `json:"finished"`
	ElapsedTime int    `json:"elapsedTime"`
	FinishTime  int    `json:"finishTime"`
	LastUpdated string `json:"lastUpdated"` // RFC3339
}

// StateKey is the key-value store key for a game's full state blob.
func StateKey(prefix string) string { return prefix + "_state" }

// MetaPrefix is the common prefix of all of a game's meta keys.
func MetaPrefix(prefix string) string { return prefix + "_meta_" }

// MetaKey is the key-value store key for one day's Meta record.
func MetaKey(prefix, dateKey string) string { return MetaPrefix(prefix) + dateKey }

// LoadMeta reads one Meta record; ok=false when the day has no record or
// the blob does not decode (corrupt records read as absent, never fail).
func LoadMeta(ctx context.Context, store kvstore.Store, owner, prefix, dateKey string) (Meta, bool, error) {
	raw, ok, err := store.Get(ctx, owner, MetaKey(prefix, dateKey))
	if err != nil || !ok {
		return Meta{}, false, err
	}
	var m Meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return Meta{}, false, nil
	}
	return m, true, nil
}
