package media_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gleaner/internal/fetcher"
	"gleaner/internal/media"
)

func TestDownloadWritesFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("fake video bytes"))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	d := media.New(fetcher.NewHTTPClient(5*time.Second), dir, 1<<20, "gleaner-test")

	localPath, err := d.Download(context.Background(), 42, &fetcher.Media{
		Type: fetcher.MediaVideo,
		URL:  server.URL + "/clip.mp4",
	})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if filepath.Base(localPath) != "job-42.mp4" {
		t.Errorf("unexpected file name: %s", localPath)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "fake video bytes" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestDownloadRejectsOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	d := media.New(fetcher.NewHTTPClient(5*time.Second), dir, 1024, "gleaner-test")

	_, err := d.Download(context.Background(), 1, &fetcher.Media{Type: fetcher.MediaImage, URL: server.URL + "/big"})
	if err == nil {
		t.Fatal("expected oversized download to fail")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read media dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no leftover files, found %d", len(entries))
	}
}

func TestDownloadInfersExtensionFromContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	t.Cleanup(server.Close)

	d := media.New(fetcher.NewHTTPClient(5*time.Second), t.TempDir(), 0, "gleaner-test")
	localPath, err := d.Download(context.Background(), 7, &fetcher.Media{Type: fetcher.MediaImage, URL: server.URL + "/image"})
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if filepath.Ext(localPath) != ".png" {
		t.Errorf("expected .png extension, got %s", localPath)
	}
}

func TestDownloadFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	d := media.New(fetcher.NewHTTPClient(5*time.Second), t.TempDir(), 0, "gleaner-test")
	if _, err := d.Download(context.Background(), 1, &fetcher.Media{URL: server.URL + "/gone.mp4"}); err == nil {
		t.Fatal("expected 404 download to fail")
	}
}
