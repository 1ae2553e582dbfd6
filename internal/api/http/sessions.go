package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pigwin-3/historie-q/internal/consent"
	"github.com/pigwin-3/historie-q/internal/game"
	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/metrics"
)

// DefaultSessionTTL bounds how long an untouched session is kept.
const DefaultSessionTTL = 30 * time.Minute

// Sessions holds the running games by ID. All sessions write the same
// transient keys, so the last one to start or finish wins there.
// A finished game stays until its summary has been served; any session
// untouched for ttl is swept on the next Start.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*entry
	kv  kvstore.Store
	src game.Source
	ttl time.Duration
	now func() time.Time
}

type entry struct {
	sess    *game.Session
	touched time.Time
	done    bool // finished and no longer counted as active
}

func NewSessions(kv kvstore.Store, src game.Source, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{m: map[string]*entry{}, kv: kv, src: src, ttl: ttl, now: time.Now}
}

func (s *Sessions) Start(ctx context.Context, themeID int) (string, *game.Session, error) {
	s.Sweep(ctx)
	sess := game.NewSession(game.WithStore(s.kv))
	if err := sess.Start(ctx, themeID, s.src); err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.m[id] = &entry{sess: sess, touched: s.now()}
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()
	return id, sess, nil
}

func (s *Sessions) Get(id string) (*game.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok {
		return nil, false
	}
	e.touched = s.now()
	return e.sess, true
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Finished stops counting id as active. It is idempotent.
func (s *Sessions) Finished(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[id]; ok && !e.done {
		e.done = true
		metrics.ActiveSessions.Dec()
	}
}

// Drop removes id, aborting the game if it is still running.
func (s *Sessions) Drop(ctx context.Context, id string) bool {
	s.mu.Lock()
	e, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	if ok {
		s.release(ctx, e)
	}
	return ok
}

// Sweep drops every session untouched for longer than the TTL and
// returns how many went.
func (s *Sessions) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.ttl)
	var stale []*entry
	s.mu.Lock()
	for id, e := range s.m {
		if e.touched.Before(cutoff) {
			stale = append(stale, e)
			delete(s.m, id)
		}
	}
	s.mu.Unlock()
	for _, e := range stale {
		s.release(ctx, e)
	}
	return len(stale)
}

func (s *Sessions) release(ctx context.Context, e *entry) {
	if e.done {
		return
	}
	if e.sess.State() == game.InProgress {
		e.sess.Abort(ctx)
	}
	metrics.ActiveSessions.Dec()
}

// questionView is what the player sees; the answer stays hidden until
// the question has been answered.
type questionView struct {
	ID      int             `json:"qnID"`
	Text    string          `json:"qn"`
	Options []string        `json:"options"`
	Media   *consent.Render `json:"media,omitempty"`
}

type sessionView struct {
	ID string `json:"id"`
	game.Progress
	Question *questionView `json:"question,omitempty"`
}

func view(ctx context.Context, gate *consent.Gate, id string, sess *game.Session) (sessionView, error) {
	p := sess.Current()
	v := sessionView{ID: id, Progress: p}
	if p.Question == nil {
		return v, nil
	}
	q := p.Question
	v.Question = &questionView{ID: q.ID, Text: q.Text, Options: q.Options}
	if q.Media != nil && gate != nil {
		plan, err := gate.Plan(ctx, q.Media)
		if err != nil {
			return v, err
		}
		v.Question.Media = &plan
	}
	return v, nil
}

// MountSessions registers the player endpoints.
func MountSessions(r chi.Router, sessions *Sessions, gate *consent.Gate) {
	r.Post("/", StartSessionHandler(sessions, gate))
	r.Get("/{id}", GetSessionHandler(sessions, gate))
	r.Post("/{id}/answer", AnswerHandler(sessions, gate))
	r.Post("/{id}/advance", AdvanceHandler(sessions, gate))
	r.Get("/{id}/summary", SummaryHandler(sessions))
	r.Delete("/{id}", AbortHandler(sessions))
}

func lookup(w http.ResponseWriter, r *http.Request, sessions *Sessions) (string, *game.Session, bool) {
	id := chi.URLParam(r, "id")
	sess, ok := sessions.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
	}
	return id, sess, ok
}

func respondView(w http.ResponseWriter, r *http.Request, gate *consent.Gate, status int, id string, sess *game.Session) {
	v, err := view(r.Context(), gate, id, sess)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, status, v)
}

func StartSessionHandler(sessions *Sessions, gate *consent.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ThemeID int `json:"theme_id"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.ThemeID <= 0 {
			http.Error(w, "theme_id required", http.StatusBadRequest)
			return
		}
		id, sess, err := sessions.Start(r.Context(), req.ThemeID)
		if err != nil {
			writeErr(w, err)
			return
		}
		respondView(w, r, gate, http.StatusCreated, id, sess)
	}
}

func GetSessionHandler(sessions *Sessions, gate *consent.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess, ok := lookup(w, r, sessions)
		if !ok {
			return
		}
		respondView(w, r, gate, http.StatusOK, id, sess)
	}
}

func AnswerHandler(sessions *Sessions, gate *consent.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess, ok := lookup(w, r, sessions)
		if !ok {
			return
		}
		var req struct {
			Choice int `json:"choice"`
		}
		if !decode(w, r, &req) {
			return
		}
		if _, err := sess.SubmitAnswer(req.Choice); err != nil {
			writeErr(w, err)
			return
		}
		respondView(w, r, gate, http.StatusOK, id, sess)
	}
}

func AdvanceHandler(sessions *Sessions, gate *consent.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess, ok := lookup(w, r, sessions)
		if !ok {
			return
		}
		st, err := sess.Advance(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		if st == game.Finished {
			sessions.Finished(id)
		}
		respondView(w, r, gate, http.StatusOK, id, sess)
	}
}

func SummaryHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, sess, ok := lookup(w, r, sessions)
		if !ok {
			return
		}
		sum, err := sess.Summary()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
		sessions.Finished(id)
		sessions.Drop(r.Context(), id)
	}
}

func AbortHandler(sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !sessions.Drop(r.Context(), chi.URLParam(r, "id")) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
