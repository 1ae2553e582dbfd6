package game

import (
	"context"
	"fmt"
	"log"

	"github.com/pigwin-3/historie-q/internal/quiz"
)

// Source resolves the question list for a theme.
type Source interface {
	QuestionsForTheme(ctx context.Context, themeID int) ([]quiz.Question, error)
}

// RepositorySource reads from a loaded repository. An unknown theme is an
// error so that a Fallback can try elsewhere.
type RepositorySource struct {
	Repo *quiz.Repository
}

func (s RepositorySource) QuestionsForTheme(_ context.Context, themeID int) ([]quiz.Question, error) {
	if _, ok := s.Repo.Theme(themeID); !ok {
		return nil, fmt.Errorf("theme %d: %w", themeID, quiz.ErrNotFound)
	}
	return s.Repo.QuestionsForTheme(themeID), nil
}

// Fallback asks Secondary only when Primary fails.
type Fallback struct {
	Primary   Source
	Secondary Source
}

func (f Fallback) QuestionsForTheme(ctx context.Context, themeID int) ([]quiz.Question, error) {
	qs, err := f.Primary.QuestionsForTheme(ctx, themeID)
	if err == nil || f.Secondary == nil {
		return qs, err
	}
	log.Printf("game: primary source failed for theme %d, falling back: %v", themeID, err)
	return f.Secondary.QuestionsForTheme(ctx, themeID)
}
