package http

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pigwin-3/historie-q/internal/hierarchy"
	"github.com/pigwin-3/historie-q/internal/quiz"
	"github.com/pigwin-3/historie-q/internal/storage"
)

// MountExport registers the file downloads and the publish action. bs may be
// nil, in which case publish answers 503.
func MountExport(r chi.Router, repo *quiz.Repository, bs storage.BlobStore) {
	r.Get("/index.json", ExportIndexHandler(repo))
	r.Get("/categories/{id}/main.json", ExportManifestHandler(repo))
	r.Get("/themes/{id}/questions", ExportQuestionsHandler(repo))
	r.Get("/bundle.zip", ExportBundleHandler(repo))
	r.Post("/publish", PublishHandler(repo, bs))
}

func serveFile(w http.ResponseWriter, r *http.Request, name, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, time.Now(), bytes.NewReader(body))
}

func serveJSONFile(w http.ResponseWriter, r *http.Request, name string, v any) {
	b, err := quiz.Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveFile(w, r, name, "application/json", b)
}

func ExportIndexHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveJSONFile(w, r, quiz.IndexFile, repo.ExportCategories())
	}
}

func ExportManifestHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := repo.Category(id); !ok {
			http.Error(w, "category not found", http.StatusNotFound)
			return
		}
		serveJSONFile(w, r, quiz.ManifestFile, repo.ExportThemesForCategory(id))
	}
}

func ExportQuestionsHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := intParam(w, r, "id")
		if !ok {
			return
		}
		t, ok := repo.Theme(id)
		if !ok {
			http.Error(w, "theme not found", http.StatusNotFound)
			return
		}
		name := t.File
		if name == "" {
			name = fmt.Sprintf("theme-%d.json", t.ID)
		}
		serveJSONFile(w, r, name, repo.ExportQuestionsForTheme(id))
	}
}

func ExportBundleHandler(repo *quiz.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := hierarchy.BuildBundle(repo)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		serveFile(w, r, "quiz.zip", "application/zip", pkg)
	}
}

func PublishHandler(repo *quiz.Repository, bs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if bs == nil {
			http.Error(w, "no blob store configured", http.StatusServiceUnavailable)
			return
		}
		keys, err := hierarchy.Publish(r.Context(), bs, repo)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
	}
}
