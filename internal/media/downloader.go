// Package media downloads the primary media object referenced by a fetch
// result into the configured media directory.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gleaner/internal/fetcher"
)

// Downloader saves media files under a single directory with a per-file
// size ceiling. Downloads go through a temp file and rename so a partial
// download never leaves a plausible-looking artifact behind.
type Downloader struct {
	client    *http.Client
	dir       string
	maxBytes  int64
	userAgent string
}

// New builds a Downloader writing into dir. maxBytes at or below zero means
// unlimited.
func New(client *http.Client, dir string, maxBytes int64, userAgent string) *Downloader {
	return &Downloader{client: client, dir: dir, maxBytes: maxBytes, userAgent: userAgent}
}

// Download fetches media.URL to disk and returns the local path. The name
// combines the job id with an extension inferred from the URL or the
// response content type.
func (d *Downloader) Download(ctx context.Context, jobID int64, media *fetcher.Media) (string, error) {
	if media == nil || strings.TrimSpace(media.URL) == "" {
		return "", fmt.Errorf("no media url to download")
	}
	source, err := url.Parse(media.URL)
	if err != nil || !source.IsAbs() {
		return "", fmt.Errorf("invalid media url %q", media.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build media request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download media: unexpected status %d", resp.StatusCode)
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return "", fmt.Errorf("media size %d exceeds limit %d", resp.ContentLength, d.maxBytes)
	}

	name := fmt.Sprintf("job-%d%s", jobID, extensionFor(source, resp.Header.Get("Content-Type"), media.Type))
	finalPath := filepath.Join(d.dir, name)

	tmp, err := os.CreateTemp(d.dir, name+".partial-*")
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer func() {
		tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	reader := io.Reader(resp.Body)
	if d.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	written, err := io.Copy(tmp, reader)
	if err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	if d.maxBytes > 0 && written > d.maxBytes {
		return "", fmt.Errorf("media exceeds size limit %d", d.maxBytes)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("flush media file: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", fmt.Errorf("finalize media file: %w", err)
	}
	return finalPath, nil
}

func extensionFor(source *url.URL, contentType string, mediaType fetcher.MediaType) string {
	if ext := path.Ext(source.Path); ext != "" && len(ext) <= 5 {
		return ext
	}
	if mediaTypeName, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaTypeName); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	switch mediaType {
	case fetcher.MediaVideo:
		return ".mp4"
	case fetcher.MediaImage:
		return ".jpg"
	case fetcher.MediaAudio:
		return ".mp3"
	default:
		return ".bin"
	}
}
