// Package youtube extracts YouTube video metadata through the public oEmbed
// endpoint.
package youtube

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

const defaultEndpoint = "https://www.youtube.com/oembed"

const maxBodyBytes = 1 << 20

// Fetcher resolves YouTube URLs via oEmbed.
type Fetcher struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithEndpoint overrides the oEmbed endpoint for tests.
func WithEndpoint(endpoint string) Option {
	return func(f *Fetcher) { f.endpoint = endpoint }
}

// New builds a YouTube fetcher sharing the given bounded HTTP client.
func New(client *http.Client, userAgent string, opts ...Option) *Fetcher {
	f := &Fetcher{client: client, endpoint: defaultEndpoint, userAgent: userAgent}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Platform identifies this fetcher.
func (f *Fetcher) Platform() fetcher.Platform { return fetcher.PlatformYouTube }

// CanHandle reports whether the URL belongs to YouTube.
func (f *Fetcher) CanHandle(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	return host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") || host == "youtu.be"
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	ProviderName string `json:"provider_name"`
}

// FetchContent resolves the video through oEmbed and normalizes the response.
func (f *Fetcher) FetchContent(ctx context.Context, req fetcher.Request) (*fetcher.Result, error) {
	target, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || !target.IsAbs() {
		return nil, fetcher.NewError(fetcher.CodeValidation, f.Platform(), fmt.Sprintf("invalid url %q", req.URL))
	}

	endpoint := f.endpoint + "?format=json&url=" + url.QueryEscape(target.String())
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

	// YouTube answers 400 for URLs that do not reference a video.
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
			PlatformID: VideoID(target),
		},
		RawPlatformData: json.RawMessage(body),
	}
	result.Normalize()
	return result, nil
}

// VideoID extracts the video identifier from watch, shorts, embed, and
// youtu.be URL forms. Returns "" when the URL carries none.
func VideoID(target *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(target.Hostname()), "www.")
	parts := strings.Split(strings.Trim(target.Path, "/"), "/")

	if host == "youtu.be" {
		if len(parts) > 0 {
			return parts[0]
		}
		return ""
	}
	if id := target.Query().Get("v"); id != "" {
		return id
	}
	for i, part := range parts {
		if (part == "shorts" || part == "embed" || part == "live") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
