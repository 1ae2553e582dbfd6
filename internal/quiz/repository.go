package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/pigwin-3/historie-q/internal/kvstore"
)

// UnknownCategory labels a theme whose category was deleted.
const UnknownCategory = "unknown"

// Source produces a fresh dataset, typically by walking the file hierarchy.
type Source interface {
	LoadDataset(ctx context.Context) (Dataset, error)
}

// Change describes one applied mutation.
type Change struct {
	Type string // e.g. "theme.updated"
	Key  string
	Data any
}

// Journal receives every applied mutation after it has been persisted.
type Journal interface {
	Record(ctx context.Context, c Change) error
}

type Option func(*Repository)

func WithJournal(j Journal) Option { return func(r *Repository) { r.journal = j } }

// LoadReport says where the data came from and what was dropped while
// normalizing it (duplicate IDs, questions violating the option/answer rules).
type LoadReport struct {
	FromSnapshot bool `json:"fromSnapshot"`
	Categories   int  `json:"categories"`
	Themes       int  `json:"themes"`
	Questions    int  `json:"questions"`
	Dropped      int  `json:"dropped"`
}

// Repository owns the categories, themes and questions. Every mutation is a
// full-record replace followed by a snapshot write of all three collections.
type Repository struct {
	mu         sync.RWMutex
	kv         kvstore.Store
	journal    Journal
	categories []Category
	themes     []Theme
	questions  []Question
}

func NewRepository(kv kvstore.Store, opts ...Option) *Repository {
	r := &Repository{kv: kv}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load hydrates from the saved snapshot when one exists; only otherwise is
// src consulted, and its result is then persisted as the new snapshot.
func (r *Repository) Load(ctx context.Context, src Source) (LoadReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, found, err := r.readSnapshot(ctx)
	if err != nil {
		return LoadReport{}, err
	}
	if found {
		rep := r.replaceLocked(ds)
		rep.FromSnapshot = true
		if rep.Dropped > 0 {
			if err := r.persistLocked(ctx); err != nil {
				return rep, err
			}
		}
		log.Printf("quiz: loaded snapshot (%d categories, %d themes, %d questions)", rep.Categories, rep.Themes, rep.Questions)
		return rep, nil
	}
	if src == nil {
		return LoadReport{}, fmt.Errorf("quiz: load: no snapshot and no source")
	}
	ds, err = src.LoadDataset(ctx)
	if err != nil {
		return LoadReport{}, fmt.Errorf("quiz: load: %w", err)
	}
	rep := r.replaceLocked(ds)
	if err := r.persistLocked(ctx); err != nil {
		return rep, err
	}
	log.Printf("quiz: loaded hierarchy (%d categories, %d themes, %d questions, %d dropped)", rep.Categories, rep.Themes, rep.Questions, rep.Dropped)
	return rep, nil
}

// Reset discards the snapshot and re-hydrates from src.
func (r *Repository) Reset(ctx context.Context, src Source) (LoadReport, error) {
	r.mu.Lock()
	for _, k := range []string{kvstore.KeyCategories, kvstore.KeyThemes, kvstore.KeyQuestions} {
		if err := r.kv.Remove(ctx, k); err != nil {
			r.mu.Unlock()
			return LoadReport{}, fmt.Errorf("quiz: reset: %w", err)
		}
	}
	r.categories, r.themes, r.questions = nil, nil, nil
	r.mu.Unlock()
	return r.Load(ctx, src)
}

func (r *Repository) readSnapshot(ctx context.Context) (Dataset, bool, error) {
	var ds Dataset
	found := false
	targets := []struct {
		key string
		dst any
	}{
		{kvstore.KeyCategories, &ds.Categories},
		{kvstore.KeyThemes, &ds.Themes},
		{kvstore.KeyQuestions, &ds.Questions},
	}
	for _, t := range targets {
		v, ok, err := r.kv.Get(ctx, t.key)
		if err != nil {
			return Dataset{}, false, fmt.Errorf("quiz: read snapshot: %w", err)
		}
		if !ok {
			continue
		}
		found = true
		if err := json.Unmarshal([]byte(v), t.dst); err != nil {
			return Dataset{}, false, fmt.Errorf("quiz: decode snapshot %s: %w", t.key, err)
		}
	}
	return ds, found, nil
}

// replaceLocked installs ds, keeping the first occurrence of every ID.
func (r *Repository) replaceLocked(ds Dataset) LoadReport {
	var rep LoadReport

	r.categories = make([]Category, 0, len(ds.Categories))
	seenCat := map[string]bool{}
	for _, c := range ds.Categories {
		if err := c.Validate(); err != nil {
			log.Printf("quiz: dropping category %q: %v", c.ID, err)
			rep.Dropped++
			continue
		}
		if seenCat[c.ID] {
			log.Printf("quiz: dropping duplicate category %q", c.ID)
			rep.Dropped++
			continue
		}
		seenCat[c.ID] = true
		r.categories = append(r.categories, c)
	}

	r.themes = make([]Theme, 0, len(ds.Themes))
	seenTheme := map[int]bool{}
	for _, t := range ds.Themes {
		if err := t.Validate(); err != nil {
			log.Printf("quiz: dropping theme %d: %v", t.ID, err)
			rep.Dropped++
			continue
		}
		if seenTheme[t.ID] {
			log.Printf("quiz: dropping duplicate theme %d", t.ID)
			rep.Dropped++
			continue
		}
		seenTheme[t.ID] = true
		r.themes = append(r.themes, t)
	}

	r.questions = make([]Question, 0, len(ds.Questions))
	seenQ := map[[2]int]bool{}
	for _, q := range ds.Questions {
		if err := q.Validate(); err != nil {
			log.Printf("quiz: dropping question %d in theme %d: %v", q.ID, q.ThemeID, err)
			rep.Dropped++
			continue
		}
		k := [2]int{q.ThemeID, q.ID}
		if seenQ[k] {
			log.Printf("quiz: dropping duplicate question %d in theme %d", q.ID, q.ThemeID)
			rep.Dropped++
			continue
		}
		seenQ[k] = true
		r.questions = append(r.questions, q.clone())
	}

	rep.Categories = len(r.categories)
	rep.Themes = len(r.themes)
	rep.Questions = len(r.questions)
	return rep
}

func (r *Repository) persistLocked(ctx context.Context) error {
	items := []struct {
		key string
		v   any
	}{
		{kvstore.KeyCategories, r.categories},
		{kvstore.KeyThemes, r.themes},
		{kvstore.KeyQuestions, r.questions},
	}
	for _, it := range items {
		b, err := json.Marshal(it.v)
		if err != nil {
			return fmt.Errorf("quiz: encode %s: %w", it.key, err)
		}
		if err := r.kv.Set(ctx, it.key, string(b)); err != nil {
			return fmt.Errorf("quiz: persist: %w", err)
		}
	}
	return nil
}

// mutateLocked applies fn to copies of the collections and persists them.
// Only after a successful write does the change become visible; on failure
// the previous collections stay in place and are written back. The journal
// is told afterwards, and its failures are only logged.
func (r *Repository) mutateLocked(ctx context.Context, c Change, fn func()) error {
	cats, themes, qs := r.categories, r.themes, r.questions
	r.categories = append(make([]Category, 0, len(cats)+1), cats...)
	r.themes = append(make([]Theme, 0, len(themes)+1), themes...)
	r.questions = append(make([]Question, 0, len(qs)+1), qs...)
	fn()
	if err := r.persistLocked(ctx); err != nil {
		r.categories, r.themes, r.questions = cats, themes, qs
		if rerr := r.persistLocked(ctx); rerr != nil {
			log.Printf("quiz: restore snapshot after failed %s: %v", c.Type, rerr)
		}
		return err
	}
	if r.journal != nil {
		if err := r.journal.Record(ctx, c); err != nil {
			log.Printf("quiz: journal %s %s: %v", c.Type, c.Key, err)
		}
	}
	return nil
}
