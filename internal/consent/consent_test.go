package consent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pigwin-3/historie-q/internal/kvstore"
	"github.com/pigwin-3/historie-q/internal/quiz"
)

func TestConsentSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	kv, err := kvstore.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGate(kv)
	if st, _ := g.Status(ctx); st != Unset {
		t.Fatalf("fresh status = %v", st)
	}
	if ok, _ := g.HasConsent(ctx); ok {
		t.Fatal("unset must not count as consent")
	}
	if err := g.SetConsent(ctx, true); err != nil {
		t.Fatal(err)
	}

	kv2, err := kvstore.NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := NewGate(kv2).HasConsent(ctx); err != nil || !ok {
		t.Fatalf("after reopen HasConsent = %v, %v", ok, err)
	}
}

func TestDeclineIsDistinctFromUnset(t *testing.T) {
	ctx := context.Background()
	g := NewGate(kvstore.NewMemoryStore())
	if err := g.SetConsent(ctx, false); err != nil {
		t.Fatal(err)
	}
	if st, _ := g.Status(ctx); st != Declined {
		t.Fatalf("status = %v, want declined", st)
	}
	if err := g.SetConsent(ctx, true); err != nil {
		t.Fatal(err)
	}
	if st, _ := g.Status(ctx); st != Granted {
		t.Fatalf("status = %v, want granted", st)
	}
}

func TestExtractEmbedID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/v/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://vimeo.com/123456", "https://vimeo.com/123456"},
		{"https://www.youtube.com/", "https://www.youtube.com/"},
	}
	for _, c := range cases {
		if got := ExtractEmbedID(c.in); got != c.want {
			t.Errorf("ExtractEmbedID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	g := NewGate(kvstore.NewMemoryStore())
	yt := &quiz.Media{Type: quiz.MediaYouTube, URL: "https://youtu.be/dQw4w9WgXcQ", Caption: "Rick"}

	r, err := g.Plan(ctx, yt)
	if err != nil || r.Kind != KindPrompt {
		t.Fatalf("unset plan = %+v, %v", r, err)
	}

	g.SetConsent(ctx, false)
	r, _ = g.Plan(ctx, yt)
	if r.Kind != KindLink || r.URL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("declined plan = %+v", r)
	}

	g.SetConsent(ctx, true)
	r, _ = g.Plan(ctx, yt)
	if r.Kind != KindEmbed || r.URL != "https://www.youtube.com/embed/dQw4w9WgXcQ?rel=0&modestbranding=1" || r.Caption != "Rick" {
		t.Fatalf("granted plan = %+v", r)
	}

	r, _ = g.Plan(ctx, &quiz.Media{Type: quiz.MediaImage, URL: "img/ship.jpg", Alt: "ship"})
	if r.Kind != KindImage || r.Alt != "ship" {
		t.Fatalf("image plan = %+v", r)
	}
	if r, _ = g.Plan(ctx, nil); r.Kind != KindNone {
		t.Fatalf("nil media plan = %+v", r)
	}
}
