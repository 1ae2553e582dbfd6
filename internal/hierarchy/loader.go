package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/pigwin-3/historie-q/internal/metrics"
	"github.com/pigwin-3/historie-q/internal/quiz"
)

type Level string

const (
	LevelIndex     Level = "index"
	LevelManifest  Level = "manifest"
	LevelQuestions Level = "questions"
)

// BranchError is a fetch or parse failure for one file of the tree.
type BranchError struct {
	Level Level
	Path  string
	Err   error
}

func (e BranchError) Error() string { return fmt.Sprintf("%s %s: %v", e.Level, e.Path, e.Err) }
func (e BranchError) Unwrap() error { return e.Err }

// Stats counts items loaded per level.
type Stats struct {
	Categories int `json:"categories"`
	Themes     int `json:"themes"`
	Questions  int `json:"questions"`
}

type Result struct {
	Dataset  quiz.Dataset
	Stats    Stats
	Failures []BranchError
}

type Loader struct {
	fetch       Fetcher
	concurrency int
}

type Option func(*Loader)

// WithConcurrency loads up to n categories at once. The merged dataset is
// identical for any n.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{fetch: f, concurrency: 1}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load walks the whole tree. Only a failure of index.json itself is
// returned as an error; every other failure skips its branch and is
// reported in Result.Failures.
func (l *Loader) Load(ctx context.Context) (Result, error) {
	raw, err := l.fetch.Fetch(ctx, quiz.IndexFile)
	if err != nil {
		metrics.LoadFailures.WithLabelValues(string(LevelIndex)).Inc()
		return Result{}, BranchError{Level: LevelIndex, Path: quiz.IndexFile, Err: err}
	}
	idx, err := quiz.ParseCategoryIndex(raw)
	if err != nil {
		metrics.LoadFailures.WithLabelValues(string(LevelIndex)).Inc()
		return Result{}, BranchError{Level: LevelIndex, Path: quiz.IndexFile, Err: err}
	}
	log.Printf("hierarchy: categories loaded: %d", len(idx.Categories))

	branches := make([]branch, len(idx.Categories))
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, c := range idx.Categories {
		i, c := i, c
		g.Go(func() error {
			branches[i] = l.loadCategory(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Dataset: quiz.Dataset{Categories: idx.Categories}}
	for _, b := range branches {
		res.Dataset.Themes = append(res.Dataset.Themes, b.themes...)
		res.Dataset.Questions = append(res.Dataset.Questions, b.questions...)
		res.Failures = append(res.Failures, b.failures...)
	}
	res.Stats = Stats{
		Categories: len(res.Dataset.Categories),
		Themes:     len(res.Dataset.Themes),
		Questions:  len(res.Dataset.Questions),
	}
	log.Printf("hierarchy: total %d categories, %d themes, %d questions (%d failures)",
		res.Stats.Categories, res.Stats.Themes, res.Stats.Questions, len(res.Failures))
	return res, nil
}

// LoadDataset lets a Loader hydrate a quiz.Repository.
func (l *Loader) LoadDataset(ctx context.Context) (quiz.Dataset, error) {
	res, err := l.Load(ctx)
	if err != nil {
		return quiz.Dataset{}, err
	}
	return res.Dataset, nil
}

type branch struct {
	themes    []quiz.Theme
	questions []quiz.Question
	failures  []BranchError
}

func (b *branch) fail(level Level, p string, err error) {
	log.Printf("hierarchy: could not load %s: %v", p, err)
	metrics.LoadFailures.WithLabelValues(string(level)).Inc()
	b.failures = append(b.failures, BranchError{Level: level, Path: p, Err: err})
}

func (l *Loader) loadCategory(ctx context.Context, c quiz.Category) branch {
	var b branch
	mp := path.Join(c.Dir(), quiz.ManifestFile)
	raw, err := l.fetch.Fetch(ctx, mp)
	if err != nil {
		b.fail(LevelManifest, mp, err)
		return b
	}
	m, err := quiz.ParseThemeManifest(raw)
	if err != nil {
		b.fail(LevelManifest, mp, err)
		return b
	}
	b.themes = m.Themes
	log.Printf("hierarchy: themes loaded from %s: %d", c.Dir(), len(m.Themes))

	for _, t := range m.Themes {
		qs, p, err := l.loadQuestions(ctx, c, t)
		if err != nil {
			b.fail(LevelQuestions, p, err)
			continue
		}
		b.questions = append(b.questions, qs...)
		log.Printf("hierarchy: questions loaded from %s: %d", p, len(qs))
	}
	return b
}

var errNoFile = errors.New("theme has no question file")

func (l *Loader) loadQuestions(ctx context.Context, c quiz.Category, t quiz.Theme) ([]quiz.Question, string, error) {
	if t.File == "" {
		return nil, path.Join(c.Dir(), fmt.Sprintf("<theme %d>", t.ID)), errNoFile
	}
	p := path.Join(c.Dir(), t.File)
	raw, err := l.fetch.Fetch(ctx, p)
	if err != nil {
		return nil, p, err
	}
	f, err := quiz.ParseQuestionFile(raw)
	if err != nil {
		return nil, p, err
	}
	return f.Questions, p, nil
}
