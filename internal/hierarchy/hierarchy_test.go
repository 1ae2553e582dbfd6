package hierarchy

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/quiz"
	"github.com/pigwin-3/historie-q/internal/storage"
)

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func sampleTree() fstest.MapFS {
	return fstest.MapFS{
		"index.json": file(`{"categories":[
			{"ID":"norse","Name":"Norrøn","about":"","folder":"norse"},
			{"ID":2,"Name":"Andre verdenskrig","about":"","folder":"ww2"},
			{"ID":"empty","Name":"Tom","about":"","folder":"empty"}]}`),
		"norse/main.json": file(`{"themes":[
			{"ID":1,"categoryID":"norse","Name":"Vikings","about":"","qn":"2","file":"vikings.json"},
			{"ID":"3","categoryID":"norse","Name":"Gods","about":"","qn":1,"file":"gods.json"}]}`),
		"norse/vikings.json": file(`{"questions":[
			{"qnID":1,"themeID":1,"qn":"Hvem?","options":["a","b"],"answer":1,"explanation":""},
			{"qnID":"2","themeID":"1","qn":"Hva?","options":["a","b","c"],"answer":"3","explanation":""}]}`),
		"norse/gods.json": file(`{"questions": [`),
		"ww2/main.json": file(`{"themes":[
			{"ID":2,"categoryID":"2","Name":"Occupation","about":"","qn":1,"file":"occupation.json"}]}`),
		"ww2/occupation.json": file(`{"questions":[
			{"qnID":1,"themeID":2,"qn":"Når?","options":["1940","1945"],"answer":1,"explanation":"9. april"}]}`),
	}
}

func TestLoaderSkipsFailedBranches(t *testing.T) {
	res, err := NewLoader(FSFetcher{FS: sampleTree()}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Stats{Categories: 3, Themes: 3, Questions: 3}
	if res.Stats != want {
		t.Fatalf("stats = %+v, want %+v", res.Stats, want)
	}
	if len(res.Failures) != 2 {
		t.Fatalf("failures = %v", res.Failures)
	}
	levels := map[Level]string{}
	for _, f := range res.Failures {
		levels[f.Level] = f.Path
	}
	if levels[LevelQuestions] != "norse/gods.json" || levels[LevelManifest] != "empty/main.json" {
		t.Fatalf("unexpected failures %v", res.Failures)
	}
	if res.Dataset.Categories[1].ID != "2" {
		t.Fatalf("numeric category ID not stringified: %q", res.Dataset.Categories[1].ID)
	}
	if q := res.Dataset.Questions[1]; q.ID != 2 || q.ThemeID != 1 || q.Answer != 3 {
		t.Fatalf("loose IDs not normalised: %+v", q)
	}
}

func TestLoaderMissingIndex(t *testing.T) {
	_, err := NewLoader(FSFetcher{FS: fstest.MapFS{}}).Load(context.Background())
	var be BranchError
	if !errors.As(err, &be) || be.Level != LevelIndex {
		t.Fatalf("err = %v, want index BranchError", err)
	}
}

func TestLoaderConcurrencyIsDeterministic(t *testing.T) {
	tree := sampleTree()
	seq, err := NewLoader(FSFetcher{FS: tree}).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		par, err := NewLoader(FSFetcher{FS: tree}, WithConcurrency(4)).Load(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(seq.Dataset, par.Dataset) {
			t.Fatalf("concurrent load differs:\n%+v\n%+v", seq.Dataset, par.Dataset)
		}
	}
}

func TestThemeLookup(t *testing.T) {
	ctx := context.Background()
	l := NewThemeLookup(FSFetcher{FS: sampleTree()})

	c, th, err := l.FindTheme(ctx, 2)
	if err != nil {
		t.Fatalf("FindTheme: %v", err)
	}
	if c.ID != "2" || th.File != "occupation.json" {
		t.Fatalf("got %+v %+v", c, th)
	}
	qs, err := l.QuestionsForTheme(ctx, 1)
	if err != nil || len(qs) != 2 {
		t.Fatalf("QuestionsForTheme(1) = %d, %v", len(qs), err)
	}
	if _, err := l.QuestionsForTheme(ctx, 42); !errors.Is(err, ErrThemeNotFound) {
		t.Fatalf("err = %v, want ErrThemeNotFound", err)
	}
	if _, err := l.QuestionsForTheme(ctx, 3); err == nil {
		t.Fatal("expected parse error for broken question file")
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.FileServer(http.FS(sampleTree())))
	defer srv.Close()

	res, err := NewLoader(NewHTTPFetcher(srv.URL, 0)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Stats.Questions != 3 || len(res.Failures) != 2 {
		t.Fatalf("stats %+v failures %v", res.Stats, res.Failures)
	}
}

func repoFromTree(t *testing.T, fsys fstest.MapFS) *quiz.Repository {
	t.Helper()
	r := quiz.NewRepository(kvstore.NewMemoryStore())
	if _, err := r.Load(context.Background(), NewLoader(FSFetcher{FS: fsys})); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestPublishRoundTrip(t *testing.T) {
	ctx := context.Background()
	tree := sampleTree()
	delete(tree, "norse/gods.json")
	src := repoFromTree(t, tree)

	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	keys, err := Publish(ctx, bs, src)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// index + three manifests + three question files
	if len(keys) != 7 {
		t.Fatalf("keys = %v", keys)
	}

	res, err := NewLoader(BlobFetcher{Store: bs}).Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("failures after publish: %v", res.Failures)
	}
	if !reflect.DeepEqual(res.Dataset, src.Snapshot()) {
		t.Fatalf("round trip differs:\n%+v\n%+v", res.Dataset, src.Snapshot())
	}
}

func TestBuildBundle(t *testing.T) {
	src := repoFromTree(t, sampleTree())
	b, err := BuildBundle(src)
	if err != nil {
		t.Fatalf("BuildBundle: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	for _, n := range []string{"index.json", "norse/main.json", "norse/vikings.json", "ww2/occupation.json"} {
		if names[n] == nil {
			t.Fatalf("bundle missing %s (have %v)", n, names)
		}
	}
	rc, _ := names["index.json"].Open()
	raw, _ := io.ReadAll(rc)
	rc.Close()
	idx, err := quiz.ParseCategoryIndex(raw)
	if err != nil || len(idx.Categories) != 3 {
		t.Fatalf("index.json in bundle: %v %+v", err, idx)
	}
}

// treeExporter serves fixed export documents, bypassing repository checks.
type treeExporter struct {
	idx   quiz.CategoryIndex
	theme map[string]quiz.ThemeManifest
}

func (e treeExporter) ExportCategories() quiz.CategoryIndex { return e.idx }
func (e treeExporter) ExportThemesForCategory(id string) quiz.ThemeManifest {
	return e.theme[id]
}
func (e treeExporter) ExportQuestionsForTheme(int) quiz.QuestionFile { return quiz.QuestionFile{} }

func TestBundleStaysInsideTree(t *testing.T) {
	e := treeExporter{
		idx: quiz.CategoryIndex{Categories: []quiz.Category{
			{ID: "evil", Name: "x", Folder: "../../evil"},
			{ID: "norse", Name: "Norrøn", Folder: "norse"},
		}},
		theme: map[string]quiz.ThemeManifest{
			"evil":  {Themes: []quiz.Theme{{ID: 1, CategoryID: "evil", File: "q.json"}}},
			"norse": {Themes: []quiz.Theme{{ID: 2, CategoryID: "norse", File: "../escape.json"}, {ID: 3, CategoryID: "norse", File: "ok.json"}}},
		},
	}
	b, err := BuildBundle(e)
	if err != nil {
		t.Fatalf("BuildBundle: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"index.json", "norse/main.json", "norse/ok.json"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("bundle entries = %q, want %q", names, want)
	}
}
