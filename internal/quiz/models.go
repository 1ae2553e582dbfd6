// Package quiz holds the category → theme → question data model and the
// repository that keeps the three collections consistent.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	MinOptions = 2
	MaxOptions = 10
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateID     = errors.New("duplicate id")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrUnsafeName      = errors.New("not a plain file name")
)

// SafeName reports whether s can be used as one path element of the
// exported tree: non-empty, no separators, not "." or "..".
func SafeName(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, `/\`) && !strings.Contains(s, "..")
}

// Category is a top-level grouping that maps to one folder on disk.
type Category struct {
	ID     string `json:"ID" validate:"required,safename"`
	Name   string `json:"Name" validate:"required"`
	About  string `json:"about"`
	Folder string `json:"folder" validate:"omitempty,safename"`
}

// Validate checks that the category maps onto a folder inside the tree.
func (c Category) Validate() error {
	if !SafeName(c.ID) {
		return fmt.Errorf("%w: category ID %q", ErrUnsafeName, c.ID)
	}
	if c.Folder != "" && !SafeName(c.Folder) {
		return fmt.Errorf("%w: folder %q", ErrUnsafeName, c.Folder)
	}
	return nil
}

// Dir is the folder holding the category's main.json; ID when Folder is unset.
func (c Category) Dir() string {
	if c.Folder != "" {
		return c.Folder
	}
	return c.ID
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"ID"`
		Name   string          `json:"Name"`
		About  string          `json:"about"`
		Folder string          `json:"folder"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := decodeString(raw.ID)
	if err != nil {
		return fmt.Errorf("category ID: %w", err)
	}
	*c = Category{ID: id, Name: raw.Name, About: raw.About, Folder: raw.Folder}
	return nil
}

// Theme is a playable quiz topic. QuestionCount mirrors the "qn" field
// editors type in; it is display-only and never drives session length.
type Theme struct {
	ID            int    `json:"ID" validate:"gt=0"`
	CategoryID    string `json:"categoryID" validate:"required"`
	Name          string `json:"Name" validate:"required"`
	About         string `json:"about"`
	QuestionCount int    `json:"qn"`
	File          string `json:"file" validate:"omitempty,safename"`
}

func (t Theme) Validate() error {
	if t.File != "" && !SafeName(t.File) {
		return fmt.Errorf("%w: file %q", ErrUnsafeName, t.File)
	}
	return nil
}

func (t *Theme) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         json.RawMessage `json:"ID"`
		CategoryID json.RawMessage `json:"categoryID"`
		Name       string          `json:"Name"`
		About      string          `json:"about"`
		Count      json.RawMessage `json:"qn"`
		File       string          `json:"file"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := decodeInt(raw.ID)
	if err != nil {
		return fmt.Errorf("theme ID: %w", err)
	}
	cat, err := decodeString(raw.CategoryID)
	if err != nil {
		return fmt.Errorf("theme categoryID: %w", err)
	}
	// qn is advisory; an unparseable value degrades to 0
	count, _ := decodeInt(raw.Count)
	*t = Theme{ID: id, CategoryID: cat, Name: raw.Name, About: raw.About, QuestionCount: count, File: raw.File}
	return nil
}

type MediaType string

const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaYouTube MediaType = "youtube"
)

func (t MediaType) Valid() bool {
	switch t {
	case MediaImage, MediaVideo, MediaYouTube:
		return true
	}
	return false
}

type Media struct {
	Type    MediaType `json:"type"`
	URL     string    `json:"url"`
	Alt     string    `json:"alt,omitempty"`
	Caption string    `json:"caption,omitempty"`
}

// Question is one multiple-choice item. ID is only unique within ThemeID.
// Answer is 1-based into Options.
type Question struct {
	ID          int      `json:"qnID"`
	ThemeID     int      `json:"themeID" validate:"gt=0"`
	Text        string   `json:"qn" validate:"required"`
	Options     []string `json:"options" validate:"min=2,max=10"`
	Answer      int      `json:"answer" validate:"min=1"`
	Explanation string   `json:"explanation"`
	Media       *Media   `json:"media,omitempty"`
}

func (q *Question) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"qnID"`
		ThemeID     json.RawMessage `json:"themeID"`
		Text        string          `json:"qn"`
		Options     []string        `json:"options"`
		Answer      json.RawMessage `json:"answer"`
		Explanation string          `json:"explanation"`
		Media       *Media          `json:"media"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id, err := decodeInt(raw.ID)
	if err != nil {
		return fmt.Errorf("question qnID: %w", err)
	}
	themeID, err := decodeInt(raw.ThemeID)
	if err != nil {
		return fmt.Errorf("question themeID: %w", err)
	}
	answer, err := decodeInt(raw.Answer)
	if err != nil {
		return fmt.Errorf("question answer: %w", err)
	}
	*q = Question{
		ID:          id,
		ThemeID:     themeID,
		Text:        raw.Text,
		Options:     raw.Options,
		Answer:      answer,
		Explanation: raw.Explanation,
		Media:       raw.Media,
	}
	return nil
}

// Validate checks the invariants every stored question must satisfy.
func (q Question) Validate() error {
	if n := len(q.Options); n < MinOptions || n > MaxOptions {
		return fmt.Errorf("%w: %d options, want %d-%d", ErrInvalidQuestion, n, MinOptions, MaxOptions)
	}
	if q.Answer < 1 || q.Answer > len(q.Options) {
		return fmt.Errorf("%w: answer %d out of range 1-%d", ErrInvalidQuestion, q.Answer, len(q.Options))
	}
	if q.Media != nil && !q.Media.Type.Valid() {
		return fmt.Errorf("%w: unknown media type %q", ErrInvalidQuestion, q.Media.Type)
	}
	return nil
}

// OptionText returns the text of a 1-based choice, or "" when out of range.
func (q Question) OptionText(choice int) string {
	if choice < 1 || choice > len(q.Options) {
		return ""
	}
	return q.Options[choice-1]
}

func (q Question) CorrectText() string { return q.OptionText(q.Answer) }

func (q Question) clone() Question {
	out := q
	out.Options = append([]string(nil), q.Options...)
	if q.Media != nil {
		m := *q.Media
		out.Media = &m
	}
	return out
}

// Dataset is one full copy of the three collections.
type Dataset struct {
	Categories []Category
	Themes     []Theme
	Questions  []Question
}
