package syncx

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pigwin-3/historie-q/internal/db"
	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/quiz"
)

func TestJournalRecordsMutations(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "journal.db")
	sqlDB, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()

	j := NewEventRepo(sqlDB, "test-site")
	repo := quiz.NewRepository(kvstore.NewSQLStore(sqlDB, string(db.DriverSQLite)), quiz.WithJournal(j))

	if err := repo.CreateCategory(ctx, quiz.Category{ID: "norse", Name: "Norrøn", Folder: "norse"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateTheme(ctx, quiz.Theme{ID: 1, CategoryID: "norse", Name: "Vikings", File: "vikings.json"}); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CreateQuestion(ctx, quiz.Question{ThemeID: 1, Text: "Hvem?", Options: []string{"a", "b"}, Answer: 1}); err != nil {
		t.Fatal(err)
	}

	evs, err := j.Since(ctx, 0, 0)
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("events = %d, want 3", len(evs))
	}
	if evs[0].Type != "category.created" || evs[0].Key != "norse" || evs[0].SiteID != "test-site" {
		t.Fatalf("first event %+v", evs[0])
	}
	if evs[2].Key != "1/1" {
		t.Fatalf("question key = %q", evs[2].Key)
	}
	var q quiz.Question
	if err := json.Unmarshal([]byte(evs[2].DataJSON), &q); err != nil || q.Text != "Hvem?" {
		t.Fatalf("payload %s: %v", evs[2].DataJSON, err)
	}

	rest, _ := j.Since(ctx, evs[1].Seq, 10)
	if len(rest) != 1 || rest[0].Seq != evs[2].Seq {
		t.Fatalf("Since(%d) = %+v", evs[1].Seq, rest)
	}
}

func TestDefaultSiteID(t *testing.T) {
	if NewEventRepo(nil, "").SiteID() == "" {
		t.Fatal("empty site id")
	}
}
