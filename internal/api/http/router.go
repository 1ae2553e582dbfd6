package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pigwin-3/historie-q/internal/consent"
	"github.com/pigwin-3/historie-q/internal/game"
	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/metrics"
	"github.com/pigwin-3/historie-q/internal/quiz"
	"github.com/pigwin-3/historie-q/internal/storage"
	"github.com/pigwin-3/historie-q/internal/syncx"
)

type Deps struct {
	Repo *quiz.Repository
	KV   kvstore.Store

	// Source re-reads the hierarchy on /admin/reload.
	Source quiz.Source
	// Lookup is asked for a theme's questions when the repository can't
	// supply them.
	Lookup game.Source

	Blob    storage.BlobStore
	Journal *syncx.EventRepo

	// SessionTTL drops idle player sessions; DefaultSessionTTL when zero.
	SessionTTL time.Duration

	CORSOrigins   []string
	EnableMetrics bool
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if d.EnableMetrics {
		r.Use(Instrument)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	gate := consent.NewGate(d.KV)
	var src game.Source = game.RepositorySource{Repo: d.Repo}
	if d.Lookup != nil {
		src = game.Fallback{Primary: src, Secondary: d.Lookup}
	}
	sessions := NewSessions(d.KV, src, d.SessionTTL)

	MountAdmin(r, d.Repo, d.Source)
	if d.Journal != nil {
		r.Get("/admin/journal", JournalHandler(d.Journal))
	}
	r.Route("/export", func(er chi.Router) {
		MountExport(er, d.Repo, d.Blob)
	})
	if d.Blob != nil {
		r.Route("/assets", func(ar chi.Router) {
			MountAssets(ar, d.Blob)
		})
	}
	r.Route("/sessions", func(sr chi.Router) {
		MountSessions(sr, sessions, gate)
	})
	r.Route("/consent", func(cr chi.Router) {
		MountConsent(cr, gate)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, _, err := d.KV.Get(ctx, kvstore.KeyCategories); err != nil {
			http.Error(w, "store unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})
	if d.EnableMetrics {
		r.Handle("/metrics", metrics.Handler())
	}
	return r
}
