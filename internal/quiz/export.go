package quiz

// ExportCategories returns the index.json payload.
func (r *Repository) ExportCategories() CategoryIndex {
	return CategoryIndex{Categories: r.Categories()}
}

// ExportThemesForCategory returns the main.json payload for one category.
func (r *Repository) ExportThemesForCategory(categoryID string) ThemeManifest {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Theme{}
	for _, t := range r.themes {
		if t.CategoryID == categoryID {
			out = append(out, t)
		}
	}
	return ThemeManifest{Themes: out}
}

// ExportQuestionsForTheme returns the question file payload for one theme.
func (r *Repository) ExportQuestionsForTheme(themeID int) QuestionFile {
	return QuestionFile{Questions: r.QuestionsForTheme(themeID)}
}

// Snapshot returns a deep copy of everything currently held.
func (r *Repository) Snapshot() Dataset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds := Dataset{
		Categories: append([]Category{}, r.categories...),
		Themes:     append([]Theme{}, r.themes...),
		Questions:  make([]Question, 0, len(r.questions)),
	}
	for _, q := range r.questions {
		ds.Questions = append(ds.Questions, q.clone())
	}
	return ds
}
