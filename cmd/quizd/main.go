package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/pigwin-3/historie-q/internal/api/http"
	"github.com/pigwin-3/historie-q/internal/bootstrap"
	"github.com/pigwin-3/historie-q/internal/config"
	"github.com/pigwin-3/historie-q/internal/hierarchy"
	"github.com/pigwin-3/historie-q/internal/quiz"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := bootstrap.OpenKV(initCtx, cfg)
	if err != nil {
		log.Fatalf("kv open failed: %v", err)
	}
	defer res.Close()

	var opts []quiz.Option
	deps := api.Deps{KV: res.KV, CORSOrigins: cfg.CORSOrigins, EnableMetrics: cfg.EnableMetrics, SessionTTL: cfg.SessionTTL}
	if cfg.EnableJournal {
		j, err := res.Journal(initCtx, cfg)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		opts = append(opts, quiz.WithJournal(j))
		deps.Journal = j
	}

	bs, err := bootstrap.BlobStore(initCtx, cfg)
	if err != nil {
		log.Printf("blob store unavailable, publish disabled: %v", err)
	} else {
		deps.Blob = bs
	}

	// --- Hierarchy ---
	fetcher, err := bootstrap.Fetcher(initCtx, cfg)
	if err != nil {
		log.Fatalf("quiz root: %v", err)
	}
	loader := hierarchy.NewLoader(fetcher, hierarchy.WithConcurrency(cfg.LoadConcurrency))
	deps.Source = loader
	deps.Lookup = hierarchy.NewThemeLookup(fetcher)

	repo := quiz.NewRepository(res.KV, opts...)
	if rep, err := repo.Load(ctx, loader); err != nil {
		// an empty editor is still usable; /admin/reload can retry
		log.Printf("initial load failed: %v", err)
	} else {
		log.Printf("loaded %d categories, %d themes, %d questions (snapshot=%v, dropped=%d)",
			rep.Categories, rep.Themes, rep.Questions, rep.FromSnapshot, rep.Dropped)
	}
	deps.Repo = repo

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.NewRouter(deps)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on %s (kv=%s, root=%s:%s)", cfg.HTTPAddr, cfg.KVDriver, cfg.QuizRootKind, cfg.QuizRoot)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
