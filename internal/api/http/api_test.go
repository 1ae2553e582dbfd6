package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/pigwin-3/historie-q/internal/hierarchy"
	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/quiz"
	"github.com/pigwin-3/historie-q/internal/storage"
)

type staticSource struct{ ds quiz.Dataset }

func (s staticSource) LoadDataset(context.Context) (quiz.Dataset, error) { return s.ds, nil }

func dataset() quiz.Dataset {
	return quiz.Dataset{
		Categories: []quiz.Category{{ID: "norse", Name: "Norrøn", Folder: "norse"}},
		Themes: []quiz.Theme{
			{ID: 1, CategoryID: "norse", Name: "Vikings", File: "vikings.json"},
			{ID: 2, CategoryID: "gone", Name: "Orphan", File: "orphan.json"},
		},
		Questions: []quiz.Question{
			{ID: 1, ThemeID: 1, Text: "Hvem?", Options: []string{"Odin", "Tor"}, Answer: 1, Explanation: "Allfader"},
			{ID: 2, ThemeID: 1, Text: "Hva?", Options: []string{"Mjølner", "Gungne"}, Answer: 2,
				Media: &quiz.Media{Type: quiz.MediaYouTube, URL: "https://youtu.be/dQw4w9WgXcQ"}},
		},
	}
}

type fixture struct {
	srv  *httptest.Server
	repo *quiz.Repository
	kv   kvstore.Store
	blob *storage.FSStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	repo := quiz.NewRepository(kv)
	src := staticSource{ds: dataset()}
	if _, err := repo.Load(context.Background(), src); err != nil {
		t.Fatal(err)
	}
	blob, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	lookupTree := fstest.MapFS{
		"index.json":    {Data: []byte(`{"categories":[{"ID":"ww2","Name":"Krig","about":"","folder":"ww2"}]}`)},
		"ww2/main.json": {Data: []byte(`{"themes":[{"ID":9,"categoryID":"ww2","Name":"Okkupasjon","about":"","qn":1,"file":"occ.json"}]}`)},
		"ww2/occ.json":  {Data: []byte(`{"questions":[{"qnID":1,"themeID":9,"qn":"Når?","options":["1940","1945"],"answer":1,"explanation":""}]}`)},
	}
	h := NewRouter(Deps{
		Repo:   repo,
		KV:     kv,
		Source: src,
		Lookup: hierarchy.NewThemeLookup(hierarchy.FSFetcher{FS: lookupTree}),
		Blob:   blob,

		EnableMetrics: true,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, repo: repo, kv: kv, blob: blob}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, b
}

func expect(t *testing.T, res *http.Response, body []byte, status int) {
	t.Helper()
	if res.StatusCode != status {
		t.Fatalf("%s %s: status %d, want %d (%s)", res.Request.Method, res.Request.URL.Path, res.StatusCode, status, body)
	}
}

func TestAdminCRUD(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, "POST", "/categories", `{"ID":"ww2","Name":"Andre verdenskrig","about":"","folder":"ww2"}`)
	expect(t, res, body, http.StatusCreated)
	res, body = f.do(t, "POST", "/categories", `{"ID":"ww2","Name":"Dup"}`)
	expect(t, res, body, http.StatusConflict)
	res, body = f.do(t, "POST", "/categories", `{"ID":"evil","Name":"x","folder":"../../evil"}`)
	expect(t, res, body, http.StatusBadRequest)
	res, body = f.do(t, "POST", "/categories", `{"ID":"x"}`)
	expect(t, res, body, http.StatusBadRequest)

	res, body = f.do(t, "GET", "/themes?category=gone", "")
	expect(t, res, body, http.StatusOK)
	var views []map[string]any
	if err := json.Unmarshal(body, &views); err != nil || len(views) != 1 || views[0]["categoryName"] != quiz.UnknownCategory {
		t.Fatalf("orphan theme view: %s", body)
	}

	res, body = f.do(t, "GET", "/themes/1/questions/next-id", "")
	expect(t, res, body, http.StatusOK)
	if !bytes.Contains(body, []byte(`"qnID":3`)) {
		t.Fatalf("next-id: %s", body)
	}

	res, body = f.do(t, "POST", "/themes/1/questions", `{"qn":"Hvor?","options":["Uppsala","Roma"],"answer":"1","explanation":""}`)
	expect(t, res, body, http.StatusCreated)
	var created quiz.Question
	if err := json.Unmarshal(body, &created); err != nil || created.ID != 3 || created.ThemeID != 1 {
		t.Fatalf("created %+v (%v)", created, err)
	}

	res, body = f.do(t, "POST", "/themes/1/questions", `{"qn":"Feil","options":["a"],"answer":1}`)
	expect(t, res, body, http.StatusBadRequest)
	res, body = f.do(t, "POST", "/themes/1/questions", `{"qn":"Feil","options":["a","b"],"answer":3}`)
	expect(t, res, body, http.StatusUnprocessableEntity)

	res, body = f.do(t, "PUT", "/themes/1/questions/3", `{"qn":"Hvor lå hovet?","options":["Uppsala","Roma","Paris"],"answer":1}`)
	expect(t, res, body, http.StatusOK)
	if q, _ := f.repo.Question(1, 3); len(q.Options) != 3 {
		t.Fatalf("update not applied: %+v", q)
	}

	res, body = f.do(t, "DELETE", "/themes/1/questions/3", "")
	expect(t, res, body, http.StatusNoContent)
	res, body = f.do(t, "DELETE", "/themes/1/questions/3", "")
	expect(t, res, body, http.StatusNotFound)
	res, body = f.do(t, "DELETE", "/themes/abc", "")
	expect(t, res, body, http.StatusBadRequest)
}

func TestPlaySession(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, "POST", "/sessions", `{"theme_id":1}`)
	expect(t, res, body, http.StatusCreated)
	var v struct {
		ID       string `json:"id"`
		State    string `json:"state"`
		Total    int    `json:"total"`
		Question *struct {
			ID    int `json:"qnID"`
			Media *struct {
				Kind string `json:"kind"`
			} `json:"media"`
		} `json:"question"`
	}
	if err := json.Unmarshal(body, &v); err != nil || v.ID == "" || v.State != "in_progress" || v.Total != 2 {
		t.Fatalf("start view %s (%v)", body, err)
	}
	if bytes.Contains(body, []byte(`"answer"`)) {
		t.Fatalf("answer leaked before answering: %s", body)
	}
	if v.Question.ID == 2 && (v.Question.Media == nil || v.Question.Media.Kind != "prompt") {
		t.Fatalf("youtube media without consent should prompt: %s", body)
	}
	base := "/sessions/" + v.ID

	res, body = f.do(t, "POST", base+"/advance", "")
	expect(t, res, body, http.StatusConflict)

	correct := map[int]int{1: 1, 2: 2}
	for i := 0; i < 2; i++ {
		res, body = f.do(t, "GET", base, "")
		expect(t, res, body, http.StatusOK)
		_ = json.Unmarshal(body, &v)
		res, body = f.do(t, "POST", base+"/answer", fmt.Sprintf(`{"choice":%d}`, correct[v.Question.ID]))
		expect(t, res, body, http.StatusOK)
		res, body = f.do(t, "POST", base+"/answer", `{"choice":1}`)
		expect(t, res, body, http.StatusConflict)
		res, body = f.do(t, "POST", base+"/advance", "")
		expect(t, res, body, http.StatusOK)
	}

	res, body = f.do(t, "GET", base+"/summary", "")
	expect(t, res, body, http.StatusOK)
	var sum struct {
		CorrectCount int `json:"correctCount"`
		TotalCount   int `json:"totalCount"`
	}
	if err := json.Unmarshal(body, &sum); err != nil || sum.CorrectCount != 2 || sum.TotalCount != 2 {
		t.Fatalf("summary %s", body)
	}

	// the summary ends the session
	res, body = f.do(t, "GET", base, "")
	expect(t, res, body, http.StatusNotFound)
	res, body = f.do(t, "DELETE", base, "")
	expect(t, res, body, http.StatusNotFound)

	res, body = f.do(t, "POST", "/sessions", `{"theme_id":1}`)
	expect(t, res, body, http.StatusCreated)
	_ = json.Unmarshal(body, &v)
	res, body = f.do(t, "DELETE", "/sessions/"+v.ID, "")
	expect(t, res, body, http.StatusNoContent)
	res, body = f.do(t, "GET", "/sessions/"+v.ID, "")
	expect(t, res, body, http.StatusNotFound)
}

func TestSessionFallsBackToHierarchy(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, "POST", "/sessions", `{"theme_id":9}`)
	expect(t, res, body, http.StatusCreated)

	res, body = f.do(t, "POST", "/sessions", `{"theme_id":2}`)
	expect(t, res, body, http.StatusUnprocessableEntity)

	res, body = f.do(t, "POST", "/sessions", `{"theme_id":77}`)
	expect(t, res, body, http.StatusNotFound)
}

func TestConsentEndpoints(t *testing.T) {
	f := newFixture(t)
	res, body := f.do(t, "GET", "/consent", "")
	expect(t, res, body, http.StatusOK)
	if !bytes.Contains(body, []byte(`"status":"unset"`)) {
		t.Fatalf("initial consent %s", body)
	}
	res, body = f.do(t, "PUT", "/consent", `{}`)
	expect(t, res, body, http.StatusBadRequest)
	res, body = f.do(t, "PUT", "/consent", `{"allowed":false}`)
	expect(t, res, body, http.StatusOK)
	if v, _, _ := f.kv.Get(context.Background(), kvstore.KeyConsent); v != "false" {
		t.Fatalf("stored consent %q", v)
	}
	res, body = f.do(t, "GET", "/consent", "")
	if !bytes.Contains(body, []byte(`"status":"declined"`)) {
		t.Fatalf("declined consent %s", body)
	}
}

func TestExportAndPublish(t *testing.T) {
	f := newFixture(t)

	res, body := f.do(t, "GET", "/export/index.json", "")
	expect(t, res, body, http.StatusOK)
	if cd := res.Header.Get("Content-Disposition"); !strings.Contains(cd, "index.json") {
		t.Fatalf("content-disposition %q", cd)
	}
	if !strings.HasPrefix(string(body), "{\n  \"categories\": [") {
		t.Fatalf("index.json not pretty printed: %s", body)
	}

	res, body = f.do(t, "GET", "/export/themes/1/questions", "")
	expect(t, res, body, http.StatusOK)
	qf, err := quiz.ParseQuestionFile(body)
	if err != nil || len(qf.Questions) != 2 {
		t.Fatalf("question export: %v %s", err, body)
	}
	if !strings.Contains(res.Header.Get("Content-Disposition"), "vikings.json") {
		t.Fatalf("file name %q", res.Header.Get("Content-Disposition"))
	}

	res, body = f.do(t, "GET", "/export/categories/nope/main.json", "")
	expect(t, res, body, http.StatusNotFound)

	res, body = f.do(t, "GET", "/export/bundle.zip", "")
	expect(t, res, body, http.StatusOK)
	if res.Header.Get("Content-Type") != "application/zip" || len(body) == 0 {
		t.Fatalf("bundle: %s %d bytes", res.Header.Get("Content-Type"), len(body))
	}

	res, body = f.do(t, "POST", "/export/publish", "")
	expect(t, res, body, http.StatusOK)
	rc, err := f.blob.Get(context.Background(), "norse/vikings.json")
	if err != nil {
		t.Fatalf("published file missing: %v", err)
	}
	rc.Close()
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	if err := f.repo.DeleteCategory(context.Background(), "norse"); err != nil {
		t.Fatal(err)
	}
	res, body := f.do(t, "POST", "/admin/reload", "")
	expect(t, res, body, http.StatusOK)
	if _, ok := f.repo.Category("norse"); !ok {
		t.Fatal("reload did not restore category")
	}

	res, body = f.do(t, "GET", "/metrics", "")
	expect(t, res, body, http.StatusOK)
	if !bytes.Contains(body, []byte("quiz_http_request_duration_seconds")) {
		t.Fatal("request histogram not exported")
	}
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestAssets(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "ship.bin")
	fw.Write(pngBytes)
	mw.Close()

	res, err := http.Post(f.srv.URL+"/assets/media/1", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	expect(t, res, body, http.StatusCreated)
	var up struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &up); err != nil || !strings.HasPrefix(up.Key, "media/1/") || !strings.HasSuffix(up.Key, ".png") {
		t.Fatalf("upload response %s", body)
	}

	res, body = f.do(t, "GET", up.URL, "")
	expect(t, res, body, http.StatusOK)
	if !bytes.Equal(body, pngBytes) || res.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("asset %q %s", body, res.Header.Get("Content-Type"))
	}
	res, body = f.do(t, "GET", "/assets/media/1/missing.png", "")
	expect(t, res, body, http.StatusNotFound)

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("file", "notes.png")
	fw.Write([]byte("just text"))
	mw.Close()
	res, err = http.Post(f.srv.URL+"/assets/media/1", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("text upload status %d", res.StatusCode)
	}
}
