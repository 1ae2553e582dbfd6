package consent

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/pigwin-3/historie-q/internal/quiz"
)

var youtubeID = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/ ]{11})`)

// ExtractEmbedID pulls the 11 character video ID out of a YouTube URL.
// Anything else, a bare ID included, is returned unchanged.
func ExtractEmbedID(raw string) string {
	if !strings.Contains(raw, "youtube.com") && !strings.Contains(raw, "youtu.be") {
		return raw
	}
	if m := youtubeID.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return raw
}

func EmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + url.PathEscape(id) + "?rel=0&modestbranding=1"
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

type Kind string

const (
	KindNone   Kind = ""
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindEmbed  Kind = "embed"  // consent granted
	KindPrompt Kind = "prompt" // never asked; show the consent question
	KindLink   Kind = "link"   // declined; link out instead
)

// Render is what the presentation layer should draw for a question's media.
type Render struct {
	Kind    Kind   `json:"kind"`
	URL     string `json:"url,omitempty"`
	LinkURL string `json:"linkUrl,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Plan decides how to show m. YouTube media depends on the stored consent;
// a declined choice stays declined until SetConsent is called again.
func (g *Gate) Plan(ctx context.Context, m *quiz.Media) (Render, error) {
	if m == nil || m.URL == "" {
		return Render{Kind: KindNone}, nil
	}
	r := Render{URL: m.URL, Alt: m.Alt, Caption: m.Caption}
	switch m.Type {
	case quiz.MediaImage:
		r.Kind = KindImage
		return r, nil
	case quiz.MediaVideo:
		r.Kind = KindVideo
		return r, nil
	case quiz.MediaYouTube:
	default:
		return Render{Kind: KindNone}, nil
	}

	id := ExtractEmbedID(m.URL)
	r.LinkURL = WatchURL(id)
	st, err := g.Status(ctx)
	if err != nil {
		return Render{}, err
	}
	switch st {
	case Granted:
		r.Kind = KindEmbed
		r.URL = EmbedURL(id)
	case Declined:
		r.Kind = KindLink
		r.URL = r.LinkURL
	default:
		r.Kind = KindPrompt
		r.URL = r.LinkURL
	}
	return r, nil
}
