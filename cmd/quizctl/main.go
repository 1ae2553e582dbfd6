// quizctl works on a quiz hierarchy without running the server.
//
//	quizctl validate -root ./quiz
//	quizctl export   -root ./quiz -out ./published
//	quizctl bundle   -root ./quiz -out quiz.zip
//	quizctl snapshot -out ./published      (tree from the saved KV snapshot)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pigwin-3/historie-q/internal/bootstrap"
	"github.com/pigwin-3/historie-q/internal/config"
	"github.com/pigwin-3/historie-q/internal/hierarchy"
	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/quiz"
	"github.com/pigwin-3/historie-q/internal/storage"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	cfg := config.Load()
	ctx := context.Background()

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	root := fs.String("root", cfg.QuizRoot, "hierarchy root (dir or URL)")
	kind := fs.String("kind", cfg.QuizRootKind, "fs|http|minio")
	out := fs.String("out", "", "output dir or zip file")
	_ = fs.Parse(os.Args[2:])
	cfg.QuizRoot, cfg.QuizRootKind = *root, *kind

	var err error
	switch os.Args[1] {
	case "validate":
		err = validate(ctx, cfg)
	case "export":
		err = export(ctx, cfg, *out)
	case "bundle":
		err = bundle(ctx, cfg, *out)
	case "snapshot":
		err = snapshot(ctx, cfg, *out)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quizctl validate|export|bundle|snapshot [-root dir] [-kind fs|http|minio] [-out path]")
	os.Exit(2)
}

// loadFresh reads the hierarchy into a throwaway repository, dropping
// duplicates and invalid questions the same way the server does.
func loadFresh(ctx context.Context, cfg config.Config) (*quiz.Repository, hierarchy.Result, error) {
	f, err := bootstrap.Fetcher(ctx, cfg)
	if err != nil {
		return nil, hierarchy.Result{}, err
	}
	res, err := hierarchy.NewLoader(f, hierarchy.WithConcurrency(cfg.LoadConcurrency)).Load(ctx)
	if err != nil {
		return nil, res, err
	}
	repo := quiz.NewRepository(kvstore.NewMemoryStore())
	if _, err := repo.Load(ctx, datasetSource(res.Dataset)); err != nil {
		return nil, res, err
	}
	return repo, res, nil
}

type datasetSource quiz.Dataset

func (d datasetSource) LoadDataset(context.Context) (quiz.Dataset, error) {
	return quiz.Dataset(d), nil
}

func validate(ctx context.Context, cfg config.Config) error {
	repo, res, err := loadFresh(ctx, cfg)
	if err != nil {
		return err
	}
	snap := repo.Snapshot()
	fmt.Printf("categories %d, themes %d, questions %d\n", res.Stats.Categories, res.Stats.Themes, res.Stats.Questions)
	if dropped := len(res.Dataset.Questions) - len(snap.Questions); dropped > 0 {
		fmt.Printf("invalid or duplicate questions: %d\n", dropped)
	}
	for _, v := range repo.ThemeViews("") {
		if v.CategoryName == quiz.UnknownCategory {
			fmt.Printf("theme %d %q: unknown category %q\n", v.ID, v.Name, v.CategoryID)
		}
		if v.QuestionCount != 0 && v.QuestionCount != v.Questions {
			fmt.Printf("theme %d %q: qn says %d, file has %d\n", v.ID, v.Name, v.QuestionCount, v.Questions)
		}
	}
	for _, f := range res.Failures {
		fmt.Printf("FAIL %s\n", f.Error())
	}
	if len(res.Failures) > 0 {
		return errors.New("hierarchy has failures")
	}
	return nil
}

func export(ctx context.Context, cfg config.Config, out string) error {
	repo, _, err := loadFresh(ctx, cfg)
	if err != nil {
		return err
	}
	return publishTo(ctx, repo, out)
}

func snapshot(ctx context.Context, cfg config.Config, out string) error {
	res, err := bootstrap.OpenKV(ctx, cfg)
	if err != nil {
		return err
	}
	defer res.Close()
	repo := quiz.NewRepository(res.KV)
	rep, err := repo.Load(ctx, nil)
	if err != nil {
		return err
	}
	if !rep.FromSnapshot {
		return errors.New("no snapshot saved")
	}
	return publishTo(ctx, repo, out)
}

func publishTo(ctx context.Context, repo *quiz.Repository, out string) error {
	if out == "" {
		return errors.New("-out required")
	}
	bs, err := storage.NewFSStore(out)
	if err != nil {
		return err
	}
	keys, err := hierarchy.Publish(ctx, bs, repo)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %d files to %s\n", len(keys), out)
	return nil
}

func bundle(ctx context.Context, cfg config.Config, out string) error {
	if out == "" {
		return errors.New("-out required")
	}
	repo, _, err := loadFresh(ctx, cfg)
	if err != nil {
		return err
	}
	b, err := hierarchy.BuildBundle(repo)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes)\n", out, len(b))
	return nil
}
