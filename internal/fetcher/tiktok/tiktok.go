// Package tiktok extracts TikTok post metadata through the public oEmbed
// endpoint, which needs no API key and covers captions, authorship, and
// thumbnails for public videos.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gleaner/internal/fetcher"
)

const defaultEndpoint = "https://www.tiktok.com/oembed"

// maxBodyBytes bounds the oEmbed response read; real payloads are a few KB.
const maxBodyBytes = 1 << 20

// Fetcher resolves TikTok URLs via oEmbed.
type Fetcher struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithEndpoint overrides the oEmbed endpoint. Tests point this at a local
// server.
func WithEndpoint(endpoint string) Option {
	return func(f *Fetcher) { f.endpoint = endpoint }
}

// New builds a TikTok fetcher sharing the given bounded HTTP client.
func New(client *http.Client, userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, endpoint: defaultEndpoint, userAgent: userAgent}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Platform identifies this fetcher.
func (f *Fetcher) Platform() fetcher.Platform { return fetcher.PlatformTikTok }

// CanHandle reports whether the URL belongs to TikTok.
func (f *Fetcher) CanHandle(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	return host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com")
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	EmbedID      string `json:"embed_product_id"`
	ProviderName string `json:"provider_name"`
}

// FetchContent resolves the post through oEmbed and normalizes the response.
func (f *Fetcher) FetchContent(ctx context.Context, req fetcher.Request) (*fetcher.Result, error) {
	target, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || !target.IsAbs() {
		return nil, fetcher.NewError(fetcher.CodeValidation, f.Platform(), fmt.Sprintf("invalid url %q", req.URL))
	}

	endpoint := f.endpoint + "?url=" + url.QueryEscape(target.String())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fetcher.WrapError(fetcher.CodeValidation, f.Platform(), "build oembed request", err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fetcher.ClassifyTransport(f.Platform(), err)
	}
	defer resp.Body.Close()

	// TikTok answers 400 for malformed or non-post URLs.
	if resp.StatusCode == http.StatusBadRequest {
		return nil, fetcher.NewError(fetcher.CodeNotFound, f.Platform(), "oembed does not recognize this url")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fetcher.ClassifyStatus(f.Platform(), resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fetcher.ClassifyTransport(f.Platform(), err)
	}

	var payload oembedResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fetcher.WrapError(fetcher.CodeUnavailable, f.Platform(), "decode oembed response", err)
	}

	result := &fetcher.Result{
		Content: fetcher.Content{Text: payload.Title},
		Media: &fetcher.Media{
			Type:         fetcher.MediaVideo,
			URL:          target.String(),
			ThumbnailURL: payload.ThumbnailURL,
		},
		Metadata: fetcher.Metadata{
			Author:     payload.AuthorName,
			Platform:   f.Platform(),
			PlatformID: platformID(payload, target),
		},
		RawPlatformData: json.RawMessage(body),
	}
	result.Normalize()
	return result, nil
}

// platformID prefers the oEmbed product id and falls back to the numeric
// tail of a /video/<id> path.
func platformID(payload oembedResponse, target *url.URL) string {
	if payload.EmbedID != "" {
		return payload.EmbedID
	}
	parts := strings.Split(strings.Trim(target.Path, "/"), "/")
	for i, part := range parts {
		if part == "video" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
