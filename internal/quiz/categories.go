package quiz

import (
	"context"
	"fmt"
)

func (r *Repository) Categories() []Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Category{}, r.categories...)
}

func (r *Repository) Category(id string) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i := r.categoryIndex(id); i >= 0 {
		return r.categories[i], true
	}
	return Category{}, false
}

// CategoryName resolves id to a display name, UnknownCategory when dangling.
func (r *Repository) CategoryName(id string) string {
	if c, ok := r.Category(id); ok {
		return c.Name
	}
	return UnknownCategory
}

func (r *Repository) CreateCategory(ctx context.Context, c Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("quiz: create category: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.categoryIndex(c.ID) >= 0 {
		return fmt.Errorf("quiz: category %q: %w", c.ID, ErrDuplicateID)
	}
	return r.mutateLocked(ctx, Change{Type: "category.created", Key: c.ID, Data: c}, func() {
		r.categories = append(r.categories, c)
	})
}

// UpdateCategory replaces the category stored under id with c. c.ID may
// differ from id as long as it does not collide with another category.
// Themes pointing at the old ID are left as they are.
func (r *Repository) UpdateCategory(ctx context.Context, id string, c Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("quiz: update category: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("quiz: category %q: %w", id, ErrNotFound)
	}
	if c.ID != id && r.categoryIndex(c.ID) >= 0 {
		return fmt.Errorf("quiz: category %q: %w", c.ID, ErrDuplicateID)
	}
	return r.mutateLocked(ctx, Change{Type: "category.updated", Key: id, Data: c}, func() {
		r.categories[i] = c
	})
}

// DeleteCategory removes the category only; its themes become orphans.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("quiz: category %q: %w", id, ErrNotFound)
	}
	return r.mutateLocked(ctx, Change{Type: "category.deleted", Key: id}, func() {
		r.categories = append(r.categories[:i:i], r.categories[i+1:]...)
	})
}

func (r *Repository) categoryIndex(id string) int {
	for i, c := range r.categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}
