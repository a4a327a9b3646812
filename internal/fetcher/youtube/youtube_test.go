package youtube_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"gleaner/internal/fetcher"
	"gleaner/internal/fetcher/youtube"
)

const oembedPayload = `{
	"title": "How SQLite Works",
	"author_name": "dbinternals",
	"author_url": "https://www.youtube.com/@dbinternals",
	"thumbnail_url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
	"provider_name": "YouTube"
}`

func newFetcher(t *testing.T, handler http.HandlerFunc) *youtube.Fetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := fetcher.NewHTTPClient(5 * time.Second)
	return youtube.New(client, "gleaner-test/1.0", youtube.WithEndpoint(server.URL))
}

func TestCanHandle(t *testing.T) {
	f := youtube.New(fetcher.NewHTTPClient(time.Second), "ua")
	cases := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://m.youtube.com/shorts/abc123", true},
		{"https://www.tiktok.com/@u/video/1", false},
	}
	for _, tc := range cases {
		if got := f.CanHandle(tc.url); got != tc.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc123", "abc123"},
		{"https://www.youtube.com/embed/abc123", "abc123"},
		{"https://www.youtube.com/@somechannel", ""},
	}
	for _, tc := range cases {
		parsed, err := url.Parse(tc.url)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.url, err)
		}
		if got := youtube.VideoID(parsed); got != tc.want {
			t.Errorf("VideoID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestFetchContentNormalizesOEmbed(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("expected format=json, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(oembedPayload))
	})

	result, err := f.FetchContent(context.Background(), fetcher.Request{
		URL:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Platform: fetcher.PlatformYouTube,
	})
	if err != nil {
		t.Fatalf("FetchContent failed: %v", err)
	}
	if result.Content.Text != "How SQLite Works" {
		t.Errorf("unexpected title: %q", result.Content.Text)
	}
	if result.Media == nil || result.Media.Type != fetcher.MediaVideo {
		t.Fatalf("expected video media, got %#v", result.Media)
	}
	if result.Metadata.Author != "dbinternals" || result.Metadata.PlatformID != "dQw4w9WgXcQ" {
		t.Errorf("unexpected metadata: %#v", result.Metadata)
	}
}

func TestFetchContentClassifiesNotFound(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := f.FetchContent(context.Background(), fetcher.Request{
		URL:      "https://www.youtube.com/watch?v=gone",
		Platform: fetcher.PlatformYouTube,
	})
	fe, ok := fetcher.AsError(err)
	if !ok || fe.Code != fetcher.CodeNotFound {
		t.Fatalf("expected CONTENT_NOT_FOUND, got %v", err)
	}
}

func TestFetchContentClassifiesPrivateVideo(t *testing.T) {
	f := newFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := f.FetchContent(context.Background(), fetcher.Request{
		URL:      "https://www.youtube.com/watch?v=private",
		Platform: fetcher.PlatformYouTube,
	})
	fe, ok := fetcher.AsError(err)
	if !ok || fe.Code != fetcher.CodePrivate {
		t.Fatalf("expected CONTENT_PRIVATE, got %v", err)
	}
	if fe.Retryable() {
		t.Fatal("private content must not be retryable")
	}
}
