// internal/httpserver/server.go
//
// HTTP wiring for the daily-puzzles backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/puzzles/today".
//   - Game endpoints (optional auth; guests play under an anonymous
//     cookie): lifecycle, moves, and state snapshots for all three games.
//   - Stats and settings endpoints.
//   - Auth endpoints: signup/login/logout/me.
//
// Live sessions are cached in memory keyed by owner|game|day and
// rehydrated from the key-value store on demand; a cached session from a
// previous UTC day is superseded by a fresh one.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/triodaily/go-server/internal/content"
	"github.com/triodaily/go-server/internal/daily"
	"github.com/triodaily/go-server/internal/diagone"
	"github.com/triodaily/go-server/internal/game"
	"github.com/triodaily/go-server/internal/kvstore"
	"github.com/triodaily/go-server/internal/session"
	"github.com/triodaily/go-server/internal/stats"
	"github.com/triodaily/go-server/internal/wordgame"
)

// Server bundles the router, the puzzle content, the progress store, and
// the DB handle used for accounts.
type Server struct {
	r       *chi.Mux
	db      *sql.DB
	kv      kvstore.Store
	content *content.Store
	clock   daily.Clock
	agg     *stats.Aggregator

	mu       sync.Mutex
	sessions map[string]*gameSession // owner|game|dateKey
}

// gameSession pairs a lifecycle controller with its concrete engine.
// Exactly one of the engine fields is non-nil.
type gameSession struct {
	ctl    *session.Controller
	diag   *diagone.Engine
	rhyme  *wordgame.RhymeGame
	tumble *wordgame.TumbleGame
}

// New constructs a Server, installs middleware, and registers routes.
func New(db *sql.DB, kv kvstore.Store, cs *content.Store, clock daily.Clock) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		db:       db,
		kv:       kv,
		content:  cs,
		clock:    clock,
		agg:      stats.New(kv, clock),
		sessions: make(map[string]*gameSession),
	}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(corsFromEnv)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"triodaily-go","games":["diagone","rhymeagrams","tumblepuns"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.mountAuthRoutes()
	s.mountGameRoutes(s.r.With(s.withOptionalAuth()))

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// session returns the live session for (owner, game), creating and
// hydrating one when missing and discarding any cached session from an
// earlier day.
func (s *Server) session(ctx context.Context, owner, g string) (*gameSession, error) {
	today := daily.DateKey(s.clock.Now())
	key := owner + "|" + g + "|" + today

	s.mu.Lock()
	if gs, ok := s.sessions[key]; ok {
		s.mu.Unlock()
		return gs, nil
	}
	// Drop superseded sessions for this owner/game from previous days,
	// stopping their background timers so they cannot write over the new
	// day's keys.
	var stale []*gameSession
	for k, old := range s.sessions {
		if strings.HasPrefix(k, owner+"|"+g+"|") && k != key {
			stale = append(stale, old)
			delete(s.sessions, k)
		}
	}
	s.mu.Unlock()
	for _, old := range stale {
		old.ctl.Stop()
	}

	gs, err := s.newSession(owner, g)
	if err != nil {
		return nil, err
	}
	gs.ctl.Hydrate(ctx)

	s.mu.Lock()
	s.sessions[key] = gs
	s.mu.Unlock()
	return gs, nil
}

func (s *Server) newSession(owner, g string) (*gameSession, error) {
	contentKey := daily.ContentKey(s.clock.Now())
	gs := &gameSession{}
	var eng game.Engine

	switch g {
	case game.Diagone:
		cfg, err := diagone.ConfigFromRows(s.content.Diagone(contentKey).RowWords)
		if err != nil {
			return nil, err
		}
		e, err := diagone.New(cfg)
		if err != nil {
			return nil, err
		}
		gs.diag = e
		eng = e
	case game.RhymeGrams:
		gs.rhyme = wordgame.NewRhyme(s.content.Rhyme(contentKey))
		eng = gs.rhyme
	case game.TumblePuns:
		gs.tumble = wordgame.NewTumble(s.content.Tumble(contentKey))
		eng = gs.tumble
	default:
		return nil, errUnknownGame
	}

	opts := session.Options{
		Hooks: session.Hooks{
			OnWin: func() {
				log.Debug().Str("game", g).Str("owner", owner).Msg("win sequence fired")
			},
			OnIncorrect: func() {
				log.Debug().Str("game", g).Str("owner", owner).Msg("complete but incorrect")
			},
		},
		CelebrationEnabled: func() bool { return s.celebrationEnabled(owner) },
	}
	if gs.tumble != nil {
		t := gs.tumble
		opts.Hooks.Cleanup = t.ClearFinal
	}
	gs.ctl = session.New(g, owner, eng, s.kv, s.clock, opts)
	return gs, nil
}

// playerSettings is the persisted settings blob. Only the haptics toggle
// is consumed here: it gates the win-sequence hook.
type playerSettings struct {
	Haptics bool `json:"haptics"`
}

const settingsKey = "settings"

func (s *Server) celebrationEnabled(owner string) bool {
	raw, ok, err := s.kv.Get(context.Background(), owner, settingsKey)
	if err != nil || !ok {
		return true
	}
	var ps playerSettings
	if err := json.Unmarshal(raw, &ps); err != nil {
		return true
	}
	return ps.Haptics
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
