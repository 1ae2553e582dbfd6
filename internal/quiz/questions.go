package quiz

import (
	"context"
	"fmt"
)

func questionKey(themeID, qnID int) string { return fmt.Sprintf("%d/%d", themeID, qnID) }

// QuestionsForTheme filters the global collection on every call, in stored order.
func (r *Repository) QuestionsForTheme(themeID int) []Question {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Question{}
	for _, q := range r.questions {
		if q.ThemeID == themeID {
			out = append(out, q.clone())
		}
	}
	return out
}

func (r *Repository) Question(themeID, qnID int) (Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.questionIndex(themeID, qnID); i >= 0 {
		return r.questions[i].clone(), true
	}
	return Question{}, false
}

// NextQuestionID is max(qnID)+1 over the theme's questions, or 1.
func (r *Repository) NextQuestionID(themeID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextQuestionIDLocked(themeID)
}

func (r *Repository) nextQuestionIDLocked(themeID int) int {
	highest := 0
	for _, q := range r.questions {
		if q.ThemeID == themeID && q.ID > highest {
			highest = q.ID
		}
	}
	return highest + 1
}

// CreateQuestion validates q and appends it. A zero q.ID is replaced by
// NextQuestionID(q.ThemeID). The stored question is returned.
func (r *Repository) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	if err := q.Validate(); err != nil {
		return Question{}, fmt.Errorf("quiz: create question: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if q.ID == 0 {
		q.ID = r.nextQuestionIDLocked(q.ThemeID)
	}
	if r.questionIndex(q.ThemeID, q.ID) >= 0 {
		return Question{}, fmt.Errorf("quiz: question %s: %w", questionKey(q.ThemeID, q.ID), ErrDuplicateID)
	}
	q = q.clone()
	err := r.mutateLocked(ctx, Change{Type: "question.created", Key: questionKey(q.ThemeID, q.ID), Data: q}, func() {
		r.questions = append(r.questions, q)
	})
	if err != nil {
		return Question{}, err
	}
	return q.clone(), nil
}

// UpdateQuestion replaces the question (themeID, qnID) with q, which may
// move it to another theme or renumber it.
func (r *Repository) UpdateQuestion(ctx context.Context, themeID, qnID int, q Question) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("quiz: update question: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.questionIndex(themeID, qnID)
	if i < 0 {
		return fmt.Errorf("quiz: question %s: %w", questionKey(themeID, qnID), ErrNotFound)
	}
	if j := r.questionIndex(q.ThemeID, q.ID); j >= 0 && j != i {
		return fmt.Errorf("quiz: question %s: %w", questionKey(q.ThemeID, q.ID), ErrDuplicateID)
	}
	return r.mutateLocked(ctx, Change{Type: "question.updated", Key: questionKey(themeID, qnID), Data: q}, func() {
		r.questions[i] = q.clone()
	})
}

func (r *Repository) DeleteQuestion(ctx context.Context, themeID, qnID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.questionIndex(themeID, qnID)
	if i < 0 {
		return fmt.Errorf("quiz: question %s: %w", questionKey(themeID, qnID), ErrNotFound)
	}
	return r.mutateLocked(ctx, Change{Type: "question.deleted", Key: questionKey(themeID, qnID)}, func() {
		r.questions = append(r.questions[:i:i], r.questions[i+1:]...)
	})
}

func (r *Repository) questionIndex(themeID, qnID int) int {
	for i, q := range r.questions {
		if q.ThemeID == themeID && q.ID == qnID {
			return i
		}
	}
	return -1
}
