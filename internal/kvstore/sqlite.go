// internal/kvstore/sqlite.go
//
// SQLite-backed Store. One row per (owner, key); blobs are opaque JSON.
// The kv table is created by the sql/ migrations.

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite constructs a Store over an open SQLite handle.
func NewSQLite(db *sql.DB) Store {
	return &sqliteStore{db: db}
}

func (s *sqliteStore) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE owner=? AND key=?`, owner, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, owner, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(owner, key, value, updated_at) VALUES(?,?,?,?)
		 ON CONFLICT(owner, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		owner, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, owner, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE owner=? AND key=?`, owner, key)
	return err
}

// likeEscaper neutralizes LIKE wildcards so a literal prefix (which
// always contains underscores, e.g. "diagone_meta_") matches only
// itself.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *sqliteStore) Keys(ctx context.Context, owner, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv WHERE owner=? AND key LIKE ? ESCAPE '\'`,
		owner, likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}
