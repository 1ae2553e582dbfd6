package hierarchy

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log"
	"path"

	"github.com/pigwin-3/historie-q/internal/quiz"
	"github.com/pigwin-3/historie-q/internal/storage"
)

// Exporter is the read side of quiz.Repository used to rebuild the tree.
type Exporter interface {
	ExportCategories() quiz.CategoryIndex
	ExportThemesForCategory(categoryID string) quiz.ThemeManifest
	ExportQuestionsForTheme(themeID int) quiz.QuestionFile
}

// Walk renders every file of the tree and hands it to fn in index order.
// Categories and themes whose folder or file name is not a single plain
// path element cannot be placed in the tree and are skipped.
func Walk(e Exporter, fn func(name string, body []byte) error) error {
	idx := e.ExportCategories()
	if err := emit(fn, quiz.IndexFile, idx); err != nil {
		return err
	}
	for _, c := range idx.Categories {
		if !quiz.SafeName(c.Dir()) {
			log.Printf("hierarchy: category %q has unusable folder %q, not exported", c.ID, c.Dir())
			continue
		}
		m := e.ExportThemesForCategory(c.ID)
		if err := emit(fn, path.Join(c.Dir(), quiz.ManifestFile), m); err != nil {
			return err
		}
		for _, t := range m.Themes {
			if !quiz.SafeName(t.File) {
				log.Printf("hierarchy: theme %d has unusable file name %q, not exported", t.ID, t.File)
				continue
			}
			if err := emit(fn, path.Join(c.Dir(), t.File), e.ExportQuestionsForTheme(t.ID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func emit(fn func(string, []byte) error, name string, v any) error {
	b, err := quiz.Encode(v)
	if err != nil {
		return fmt.Errorf("hierarchy: encode %s: %w", name, err)
	}
	return fn(name, b)
}

// Publish writes the whole tree into bs and returns the written keys.
func Publish(ctx context.Context, bs storage.BlobStore, e Exporter) ([]string, error) {
	var keys []string
	err := Walk(e, func(name string, body []byte) error {
		k, err := bs.Put(ctx, name, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("hierarchy: publish %s: %w", name, err)
		}
		keys = append(keys, k)
		return nil
	})
	return keys, err
}

// BuildBundle zips the whole tree.
func BuildBundle(e Exporter) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	err := Walk(e, func(name string, body []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(body)
		return err
	})
	if err != nil {
		_ = zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
