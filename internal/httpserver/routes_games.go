// internal/httpserver/routes_games.go
//
// Game-facing routes. All routes run with optional auth: logged-in users
// play under their account id, guests under the anonymous cookie id, so
// progress and streaks always have an owner.
//
// Lifecycle (all games):
//   POST /{game}/start|pause|resume|clear, GET /{game}/state
// Diagone moves:
//   GET  /diagone/targets?piece=ID
//   POST /diagone/place, /diagone/remove, /diagone/diagonal
// Word-game moves (rhymeagrams, tumblepuns):
//   POST /{game}/select, /{game}/type, /{game}/delete
// Cross-game:
//   GET /stats, GET /puzzles/today, GET|POST /settings

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/triodaily/go-server/internal/daily"
	"github.com/triodaily/go-server/internal/diagone"
	"github.com/triodaily/go-server/internal/game"
)

var errUnknownGame = errors.New("unknown game")

func (s *Server) mountGameRoutes(r chi.Router) {
	r.Get("/stats", s.handleStats)
	r.Get("/puzzles/today", s.handlePuzzlesToday)
	r.Get("/settings", s.handleGetSettings)
	r.Post("/settings", s.handleSetSettings)

	r.Route("/{game:diagone|rhymeagrams|tumblepuns}", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/clear", s.handleClear)
		r.Get("/state", s.handleState)

		r.Post("/select", s.handleSelect)
		r.Post("/type", s.handleType)
		r.Post("/delete", s.handleDelete)
	})
	r.Get("/diagone/targets", s.handleTargets)
	r.Post("/diagone/place", s.handlePlace)
	r.Post("/diagone/remove", s.handleRemove)
	r.Post("/diagone/diagonal", s.handleDiagonal)
}

// owner resolves the progress namespace: account id when logged in,
// anonymous cookie id otherwise.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(userCtxKey).(*authUser); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// gameSessionFor loads the session for the {game} URL param.
func (s *Server) gameSessionFor(w http.ResponseWriter, r *http.Request) (*gameSession, bool) {
	g := chi.URLParam(r, "game")
	gs, err := s.session(r.Context(), s.owner(w, r), g)
	if err != nil {
		log.Error().Err(err).Str("game", g).Msg("build session")
		http.Error(w, `{"error":"session_failed"}`, http.StatusInternalServerError)
		return nil, false
	}
	return gs, true
}

// diagoneSession loads the diagone session for move routes that are not
// under the {game} param.
func (s *Server) diagoneSession(w http.ResponseWriter, r *http.Request) (*gameSession, bool) {
	gs, err := s.session(r.Context(), s.owner(w, r), game.Diagone)
	if err != nil {
		log.Error().Err(err).Msg("build diagone session")
		http.Error(w, `{"error":"session_failed"}`, http.StatusInternalServerError)
		return nil, false
	}
	return gs, true
}

// ------------------------------ lifecycle ----------------------------------

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	if err := gs.ctl.Start(r.Context()); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
		return
	}
	s.writeState(w, r, gs)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	if err := gs.ctl.Pause(r.Context()); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
		return
	}
	s.writeState(w, r, gs)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	if err := gs.ctl.Resume(r.Context()); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusConflict)
		return
	}
	s.writeState(w, r, gs)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	gs.ctl.Clear(r.Context())
	s.writeState(w, r, gs)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	s.writeState(w, r, gs)
}

// ---------------------------- diagone moves --------------------------------

func (s *Server) handleTargets(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.diagoneSession(w, r)
	if !ok {
		return
	}
	var ids []string
	gs.ctl.Inspect(func() {
		ids = gs.diag.ValidTargets(r.URL.Query().Get("piece"))
	})
	if ids == nil {
		ids = []string{}
	}
	_ = json.NewEncoder(w).Encode(map[string][]string{"targets": ids})
}

type placeReq struct {
	PieceID  string `json:"pieceId"`
	TargetID string `json:"targetId"`
}

type placeRes struct {
	OK       bool   `json:"ok"`
	Replaced string `json:"replacedPieceId,omitempty"`
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req placeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	gs, ok := s.diagoneSession(w, r)
	if !ok {
		return
	}
	var placed bool
	var replaced string
	gs.ctl.Mutate(r.Context(), func() {
		placed, replaced = gs.diag.PlaceOrReplace(req.PieceID, req.TargetID)
	})
	// An invalid drop is feedback for the client, not a server error.
	_ = json.NewEncoder(w).Encode(placeRes{OK: placed, Replaced: replaced})
}

type removeReq struct {
	TargetID string `json:"targetId"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	gs, ok := s.diagoneSession(w, r)
	if !ok {
		return
	}
	var removed string
	gs.ctl.Mutate(r.Context(), func() {
		removed = gs.diag.RemovePiece(req.TargetID)
	})
	_ = json.NewEncoder(w).Encode(map[string]string{"removedPieceId": removed})
}

type diagonalReq struct {
	Letters [diagone.Size]string `json:"letters"`
}

func (s *Server) handleDiagonal(w http.ResponseWriter, r *http.Request) {
	var req diagonalReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	gs, ok := s.diagoneSession(w, r)
	if !ok {
		return
	}
	gs.ctl.Mutate(r.Context(), func() {
		gs.diag.SetMainDiagonal(req.Letters)
	})
	s.writeState(w, r, gs)
}

// --------------------------- word-game moves -------------------------------

type selectReq struct {
	Slot  int  `json:"slot"`
	Final bool `json:"final"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	if gs.rhyme == nil && gs.tumble == nil {
		http.Error(w, `{"error":"not_a_word_game"}`, http.StatusBadRequest)
		return
	}
	gs.ctl.Mutate(r.Context(), func() {
		switch {
		case gs.rhyme != nil:
			gs.rhyme.SelectSlot(req.Slot)
		case req.Final:
			gs.tumble.SelectFinal()
		default:
			gs.tumble.SelectWord(req.Slot)
		}
	})
	s.writeState(w, r, gs)
}

type typeReq struct {
	Letter string `json:"letter"`
}

func (s *Server) handleType(w http.ResponseWriter, r *http.Request) {
	var req typeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Letter == "" {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	if gs.rhyme == nil && gs.tumble == nil {
		http.Error(w, `{"error":"not_a_word_game"}`, http.StatusBadRequest)
		return
	}
	ch := []rune(req.Letter)[0]
	gs.ctl.Mutate(r.Context(), func() {
		if gs.rhyme != nil {
			gs.rhyme.TypeLetter(ch)
		} else {
			gs.tumble.TypeLetter(ch)
		}
	})
	s.writeState(w, r, gs)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	gs, ok := s.gameSessionFor(w, r)
	if !ok {
		return
	}
	if gs.rhyme == nil && gs.tumble == nil {
		http.Error(w, `{"error":"not_a_word_game"}`, http.StatusBadRequest)
		return
	}
	gs.ctl.Mutate(r.Context(), func() {
		if gs.rhyme != nil {
			gs.rhyme.DeleteLetter()
		} else {
			gs.tumble.DeleteLetter()
		}
	})
	s.writeState(w, r, gs)
}

// ------------------------------ state view ---------------------------------

// stateRes is the read-only snapshot the presentation layer renders from.
// Game-specific fields are nil for the other games.
type stateRes struct {
	Game          string `json:"game"`
	Date          string `json:"date"`
	Status        string `json:"status"`
	Started       bool   `json:"started"`
	Paused        bool   `json:"paused"`
	Finished      bool   `json:"finished"`
	Elapsed       int    `json:"elapsed"`
	ElapsedString string `json:"elapsedString"`
	FinishTime    int    `json:"finishTime,omitempty"`
	PersonalBest  bool   `json:"personalBest,omitempty"`

	// diagone
	Board   *[diagone.Size][diagone.Size]string `json:"board,omitempty"`
	Targets []diagoneTargetView                 `json:"targets,omitempty"`
	Pieces  []diagonePieceView                  `json:"pieces,omitempty"`
	Main    *[diagone.Size]string               `json:"main,omitempty"`

	// word games
	Answers        []string `json:"answers,omitempty"`
	CorrectIndices []int    `json:"correctIndices,omitempty"`
	Selected       *int     `json:"selected,omitempty"`
	Pyramid        []string `json:"pyramid,omitempty"`
	Scrambles      []string `json:"scrambles,omitempty"`
	Clue           string   `json:"clue,omitempty"`
	Pattern        string   `json:"pattern,omitempty"`
	Final          string   `json:"final,omitempty"`
	FinalSelected  bool     `json:"finalSelected,omitempty"`
	ShadedLetters  []string `json:"shadedLetters,omitempty"`
}

type diagoneTargetView struct {
	ID      string         `json:"id"`
	Cells   []diagone.Cell `json:"cells"`
	PieceID string         `json:"pieceId,omitempty"`
}

type diagonePieceView struct {
	ID       string `json:"id"`
	Length   int    `json:"length"`
	Letters  string `json:"letters"`
	PlacedOn string `json:"placedOn,omitempty"`
}

func (s *Server) writeState(w http.ResponseWriter, r *http.Request, gs *gameSession) {
	ctl := gs.ctl
	res := stateRes{
		Date:          ctl.DateKey(),
		Started:       ctl.Started(),
		Paused:        ctl.Paused(),
		Finished:      ctl.Finished(),
		Elapsed:       ctl.ElapsedSeconds(),
		ElapsedString: ctl.ElapsedString(),
		FinishTime:    ctl.FinishTime(),
	}
	contentKey := daily.ContentKey(s.clock.Now())

	// Engine reads happen under the session lock so a concurrent request
	// cannot mutate mid-snapshot.
	gs.ctl.Inspect(func() {
		switch {
		case gs.diag != nil:
			res.Game = game.Diagone
			res.Status = string(gs.diag.Status())
			b := gs.diag.Board()
			res.Board = &b
			m := gs.diag.MainDiagonal()
			res.Main = &m
			for _, t := range gs.diag.Targets() {
				res.Targets = append(res.Targets, diagoneTargetView(t))
			}
			for _, p := range gs.diag.Pieces() {
				res.Pieces = append(res.Pieces, diagonePieceView(p))
			}
		case gs.rhyme != nil:
			res.Game = game.RhymeGrams
			res.Status = string(gs.rhyme.Status())
			res.Answers = gs.rhyme.Answers()
			res.CorrectIndices = gs.rhyme.CorrectIndices()
			sel := gs.rhyme.Selected()
			res.Selected = &sel
			res.Pyramid = s.content.Rhyme(contentKey).Pyramid
		case gs.tumble != nil:
			res.Game = game.TumblePuns
			res.Status = string(gs.tumble.Status())
			res.Answers = gs.tumble.Answers()
			res.CorrectIndices = gs.tumble.CorrectIndices()
			sel, final := gs.tumble.Selected()
			res.Selected = &sel
			res.FinalSelected = final
			res.Final = gs.tumble.FinalAnswer()
			res.ShadedLetters = gs.tumble.ShadedLetters()
			p := s.content.Tumble(contentKey)
			for _, word := range p.Words {
				res.Scrambles = append(res.Scrambles, word.Scrambled)
			}
			res.Clue = p.Clue
			res.Pattern = p.Pattern
		}
	})

	if res.Finished && res.FinishTime > 0 {
		best, err := s.agg.IsPersonalBest(r.Context(), s.owner(w, r), res.Game, res.FinishTime)
		if err != nil {
			log.Warn().Err(err).Msg("personal best check")
		}
		res.PersonalBest = best
	}
	_ = json.NewEncoder(w).Encode(res)
}

// ------------------------------- cross-game --------------------------------

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.agg.Summary(r.Context(), s.owner(w, r))
	if err != nil {
		http.Error(w, `{"error":"stats_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(sum)
}

// handlePuzzlesToday returns the day's puzzle definitions with solutions
// withheld.
func (s *Server) handlePuzzlesToday(w http.ResponseWriter, r *http.Request) {
	contentKey := daily.ContentKey(s.clock.Now())
	rhyme := s.content.Rhyme(contentKey)
	tumble := s.content.Tumble(contentKey)

	scrambles := make([]string, 0, len(tumble.Words))
	counts := make([]int, 0, len(tumble.Words))
	for _, word := range tumble.Words {
		scrambles = append(scrambles, word.Scrambled)
		counts = append(counts, len(word.Solution))
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"date": daily.DateKey(s.clock.Now()),
		"rhymeagrams": map[string]any{
			"pyramid": rhyme.Pyramid,
		},
		"tumblepuns": map[string]any{
			"scrambles": scrambles,
			"lengths":   counts,
			"clue":      tumble.Clue,
			"pattern":   tumble.Pattern,
		},
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	owner := s.owner(w, r)
	ps := playerSettings{Haptics: true}
	if raw, ok, err := s.kv.Get(r.Context(), owner, settingsKey); err == nil && ok {
		_ = json.Unmarshal(raw, &ps)
	}
	_ = json.NewEncoder(w).Encode(ps)
}

func (s *Server) handleSetSettings(w http.ResponseWriter, r *http.Request) {
	var ps playerSettings
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	blob, _ := json.Marshal(ps)
	if err := s.kv.Set(r.Context(), s.owner(w, r), settingsKey, blob); err != nil {
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(ps)
}
