package game

import (
	"context"
	"log"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/metrics"
	"github.com/pigwin-3/historie-q/internal/quiz"
)

// Session is safe for concurrent use; racing callers (a key press and a
// click for the same action) see exactly one of them take effect.
type Session struct {
	mu  sync.Mutex
	kv  kvstore.Store
	now func() time.Time
	rng *rand.Rand

	state     State
	themeID   int
	questions []quiz.Question
	pos       int
	answered  bool
	records   []Record
	startedAt time.Time
	endedAt   time.Time
}

type Option func(*Session)

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }
func WithRand(r *rand.Rand) Option          { return func(s *Session) { s.rng = r } }

// WithStore persists gameStartTime and gameId while a game is running.
func WithStore(kv kvstore.Store) Option { return func(s *Session) { s.kv = kv } }

func NewSession(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// Progress describes where a session stands. Question is the current one
// and is only set while in progress.
type Progress struct {
	State    State          `json:"state"`
	ThemeID  int            `json:"themeId"`
	Position int            `json:"position"`
	Total    int            `json:"total"`
	Answered bool           `json:"answered"`
	Last     bool           `json:"last"`
	Correct  int            `json:"correct"`
	Question *quiz.Question `json:"-"`
	Record   *Record        `json:"record,omitempty"`
}

// Start resolves the theme's questions through src, shuffles them and
// begins a new game. Any previous game in the session is discarded. With no
// questions the session is left NotStarted and ErrNoQuestions is returned.
func (s *Session) Start(ctx context.Context, themeID int, src Source) error {
	qs, err := src.QuestionsForTheme(ctx, themeID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	if err == nil && len(qs) == 0 {
		err = ErrNoQuestions
	}
	if err != nil {
		s.clearTransient(ctx)
		return err
	}

	s.questions = append([]quiz.Question(nil), qs...)
	s.rng.Shuffle(len(s.questions), func(i, j int) {
		s.questions[i], s.questions[j] = s.questions[j], s.questions[i]
	})
	s.themeID = themeID
	s.state = InProgress
	s.startedAt = s.now()
	s.records = make([]Record, 0, len(s.questions))

	s.setTransient(ctx, kvstore.KeyGameStartTime, strconv.FormatInt(s.startedAt.UnixMilli(), 10))
	s.setTransient(ctx, kvstore.KeyGameID, strconv.Itoa(themeID))
	metrics.SessionsStarted.Inc()
	return nil
}

// SubmitAnswer scores a 1-based choice for the current question. A second
// submission before Advance returns ErrAlreadyAnswered and records nothing.
func (s *Session) SubmitAnswer(choice int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return Record{}, ErrNotInProgress
	}
	if s.answered {
		return Record{}, ErrAlreadyAnswered
	}
	q := s.questions[s.pos]
	if choice < 1 || choice > len(q.Options) {
		return Record{}, ErrChoiceOutOfRange
	}
	rec := Record{
		QuestionID:    q.ID,
		Question:      q.Text,
		Choice:        choice,
		ChoiceText:    q.OptionText(choice),
		CorrectAnswer: q.Answer,
		CorrectText:   q.CorrectText(),
		IsCorrect:     choice == q.Answer,
		Explanation:   q.Explanation,
	}
	s.records = append(s.records, rec)
	s.answered = true

	result := "wrong"
	if rec.IsCorrect {
		result = "correct"
	}
	metrics.AnswersSubmitted.WithLabelValues(result).Inc()
	return rec, nil
}

// Advance moves past an answered question, finishing the game after the
// last one. It returns the resulting state.
func (s *Session) Advance(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return s.state, ErrNotInProgress
	}
	if !s.answered {
		return s.state, ErrNotAnswered
	}
	s.pos++
	s.answered = false
	if s.pos >= len(s.questions) {
		s.state = Finished
		s.endedAt = s.now()
		s.clearTransient(ctx)
		metrics.SessionsFinished.Inc()
	}
	return s.state, nil
}

func (s *Session) Summary() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Finished {
		return Summary{}, ErrNotFinished
	}
	sum := Summary{
		ThemeID:       s.themeID,
		TotalCount:    len(s.records),
		ElapsedMillis: s.endedAt.Sub(s.startedAt).Milliseconds(),
		Records:       append([]Record(nil), s.records...),
	}
	for _, r := range s.records {
		if r.IsCorrect {
			sum.CorrectCount++
		}
	}
	return sum, nil
}

func (s *Session) Current() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Progress{
		State:    s.state,
		ThemeID:  s.themeID,
		Position: s.pos,
		Total:    len(s.questions),
		Answered: s.answered,
	}
	for _, r := range s.records {
		if r.IsCorrect {
			p.Correct++
		}
	}
	if s.state == InProgress {
		q := s.questions[s.pos]
		p.Question = &q
		p.Last = s.pos == len(s.questions)-1
		if s.answered {
			r := s.records[len(s.records)-1]
			p.Record = &r
		}
	}
	return p
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Abort drops the game in any state and clears the transient keys.
func (s *Session) Abort(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.clearTransient(ctx)
}

func (s *Session) resetLocked() {
	s.state = NotStarted
	s.themeID = 0
	s.questions = nil
	s.pos = 0
	s.answered = false
	s.records = nil
	s.startedAt, s.endedAt = time.Time{}, time.Time{}
}

func (s *Session) setTransient(ctx context.Context, key, value string) {
	if s.kv == nil {
		return
	}
	if err := s.kv.Set(ctx, key, value); err != nil {
		log.Printf("game: save %s: %v", key, err)
	}
}

func (s *Session) clearTransient(ctx context.Context) {
	if s.kv == nil {
		return
	}
	for _, k := range []string{kvstore.KeyGameStartTime, kvstore.KeyGameID} {
		if err := s.kv.Remove(ctx, k); err != nil {
			log.Printf("game: clear %s: %v", k, err)
		}
	}
}
