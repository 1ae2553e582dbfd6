package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/pigwin-3/historie-q/internal/quiz"
)

var ErrThemeNotFound = errors.New("hierarchy: theme not found")

// ThemeLookup finds one theme straight from the files, without a repository.
type ThemeLookup struct {
	fetch Fetcher
}

func NewThemeLookup(f Fetcher) *ThemeLookup { return &ThemeLookup{fetch: f} }

// FindTheme scans every category's main.json in index order and returns the
// first theme with the given ID. Unreadable manifests are skipped.
func (l *ThemeLookup) FindTheme(ctx context.Context, themeID int) (quiz.Category, quiz.Theme, error) {
	raw, err := l.fetch.Fetch(ctx, quiz.IndexFile)
	if err != nil {
		return quiz.Category{}, quiz.Theme{}, fmt.Errorf("hierarchy: lookup: %w", err)
	}
	idx, err := quiz.ParseCategoryIndex(raw)
	if err != nil {
		return quiz.Category{}, quiz.Theme{}, fmt.Errorf("hierarchy: lookup: %w", err)
	}
	for _, c := range idx.Categories {
		mp := path.Join(c.Dir(), quiz.ManifestFile)
		raw, err := l.fetch.Fetch(ctx, mp)
		if err != nil {
			log.Printf("hierarchy: lookup: skipping %s: %v", mp, err)
			continue
		}
		m, err := quiz.ParseThemeManifest(raw)
		if err != nil {
			log.Printf("hierarchy: lookup: skipping %s: %v", mp, err)
			continue
		}
		for _, t := range m.Themes {
			if t.ID == themeID {
				return c, t, nil
			}
		}
	}
	return quiz.Category{}, quiz.Theme{}, fmt.Errorf("%w: %d", ErrThemeNotFound, themeID)
}

// QuestionsForTheme loads the theme's question file directly. Questions that
// break the option/answer rules are left out.
func (l *ThemeLookup) QuestionsForTheme(ctx context.Context, themeID int) ([]quiz.Question, error) {
	c, t, err := l.FindTheme(ctx, themeID)
	if err != nil {
		return nil, err
	}
	if t.File == "" {
		return nil, fmt.Errorf("hierarchy: theme %d: %w", themeID, errNoFile)
	}
	p := path.Join(c.Dir(), t.File)
	raw, err := l.fetch.Fetch(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: %s: %w", p, err)
	}
	f, err := quiz.ParseQuestionFile(raw)
	if err != nil {
		return nil, fmt.Errorf("hierarchy: %s: %w", p, err)
	}
	out := make([]quiz.Question, 0, len(f.Questions))
	for _, q := range f.Questions {
		if err := q.Validate(); err != nil {
			log.Printf("hierarchy: %s: skipping question %d: %v", p, q.ID, err)
			continue
		}
		out = append(out, q)
	}
	return out, nil
}
