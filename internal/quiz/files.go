package quiz

import (
	"encoding/json"
	"fmt"
)

const IndexFile = "index.json"
const ManifestFile = "main.json"

// CategoryIndex is the shape of index.json.
type CategoryIndex struct {
	Categories []Category `json:"categories"`
}

// ThemeManifest is the shape of <folder>/main.json.
type ThemeManifest struct {
	Themes []Theme `json:"themes"`
}

// QuestionFile is the shape of <folder>/<theme.file>.
type QuestionFile struct {
	Questions []Question `json:"questions"`
}

// Encode renders any of the file shapes with two-space indentation.
func Encode(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func ParseCategoryIndex(b []byte) (CategoryIndex, error) {
	var idx CategoryIndex
	if err := json.Unmarshal(b, &idx); err != nil {
		return CategoryIndex{}, fmt.Errorf("parse %s: %w", IndexFile, err)
	}
	return idx, nil
}

func ParseThemeManifest(b []byte) (ThemeManifest, error) {
	var m ThemeManifest
	if err := json.Unmarshal(b, &m); err != nil {
		return ThemeManifest{}, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	return m, nil
}

func ParseQuestionFile(b []byte) (QuestionFile, error) {
	var f QuestionFile
	if err := json.Unmarshal(b, &f); err != nil {
		return QuestionFile{}, fmt.Errorf("parse question file: %w", err)
	}
	return f, nil
}
