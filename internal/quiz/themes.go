package quiz

import (
	"context"
	"fmt"
	"strconv"
)

// ThemeView is a theme joined with its category name and live question count.
type ThemeView struct {
	Theme
	CategoryName string `json:"categoryName"`
	Questions    int    `json:"questions"`
}

func (r *Repository) Themes() []Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Theme{}, r.themes...)
}

func (r *Repository) Theme(id int) (Theme, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.themeIndex(id); i >= 0 {
		return r.themes[i], true
	}
	return Theme{}, false
}

// ThemesForCategory filters by category; an empty categoryID returns all.
func (r *Repository) ThemesForCategory(categoryID string) []Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Theme{}
	for _, t := range r.themes {
		if categoryID == "" || t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return out
}

func (r *Repository) ThemeViews(categoryID string) []ThemeView {
	themes := r.ThemesForCategory(categoryID)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ThemeView, 0, len(themes))
	for _, t := range themes {
		name := UnknownCategory
		if i := r.categoryIndex(t.CategoryID); i >= 0 {
			name = r.categories[i].Name
		}
		n := 0
		for _, q := range r.questions {
			if q.ThemeID == t.ID {
				n++
			}
		}
		out = append(out, ThemeView{Theme: t, CategoryName: name, Questions: n})
	}
	return out
}

func (r *Repository) CreateTheme(ctx context.Context, t Theme) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("quiz: create theme: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.themeIndex(t.ID) >= 0 {
		return fmt.Errorf("quiz: theme %d: %w", t.ID, ErrDuplicateID)
	}
	return r.mutateLocked(ctx, Change{Type: "theme.created", Key: strconv.Itoa(t.ID), Data: t}, func() {
		r.themes = append(r.themes, t)
	})
}

// UpdateTheme replaces the theme stored under id. Questions keep their
// themeID, so renumbering a theme detaches its questions.
func (r *Repository) UpdateTheme(ctx context.Context, id int, t Theme) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("quiz: update theme: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.themeIndex(id)
	if i < 0 {
		return fmt.Errorf("quiz: theme %d: %w", id, ErrNotFound)
	}
	if t.ID != id && r.themeIndex(t.ID) >= 0 {
		return fmt.Errorf("quiz: theme %d: %w", t.ID, ErrDuplicateID)
	}
	return r.mutateLocked(ctx, Change{Type: "theme.updated", Key: strconv.Itoa(id), Data: t}, func() {
		r.themes[i] = t
	})
}

func (r *Repository) DeleteTheme(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.themeIndex(id)
	if i < 0 {
		return fmt.Errorf("quiz: theme %d: %w", id, ErrNotFound)
	}
	return r.mutateLocked(ctx, Change{Type: "theme.deleted", Key: strconv.Itoa(id)}, func() {
		r.themes = append(r.themes[:i:i], r.themes[i+1:]...)
	})
}

func (r *Repository) themeIndex(id int) int {
	for i, t := range r.themes {
		if t.ID == id {
			return i
		}
	}
	return -1
}
