// Package opengraph is the generic fallback fetcher. It downloads the page
// and extracts Open Graph and standard meta tags, which is enough to give
// unsupported platforms a title, description, and primary media reference.
package opengraph

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"gleaner/internal/fetcher"
)

// maxBodyBytes bounds the page read; og: tags live in <head>.
const maxBodyBytes = 2 << 20

// Fetcher extracts Open Graph metadata from arbitrary pages.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New builds the generic fetcher sharing the given bounded HTTP client.
func New(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{client: client, userAgent: userAgent}
}

// Platform identifies this fetcher.
func (f *Fetcher) Platform() fetcher.Platform { return fetcher.PlatformGeneric }

// CanHandle accepts any absolute http(s) URL.
func (f *Fetcher) CanHandle(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.IsAbs() && (parsed.Scheme == "http" || parsed.Scheme == "https")
}

// FetchContent downloads the page and assembles a result from its meta tags.
func (f *Fetcher) FetchContent(ctx context.Context, req fetcher.Request) (*fetcher.Result, error) {
	target, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || !target.IsAbs() {
		return nil, fetcher.NewError(fetcher.CodeValidation, req.Platform, fmt.Sprintf("invalid url %q", req.URL))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fetcher.WrapError(fetcher.CodeValidation, req.Platform, "build page request", err)
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fetcher.ClassifyTransport(req.Platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fetcher.ClassifyStatus(req.Platform, resp)
	}

	tags, err := parseMetaTags(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fetcher.WrapError(fetcher.CodeUnavailable, req.Platform, "parse page", err)
	}

	result := buildResult(req.Platform, tags)
	result.Normalize()
	return result, nil
}

// metaTags holds the subset of page metadata the fallback cares about.
type metaTags struct {
	title       string
	ogTitle     string
	description string
	image       string
	video       string
	audio       string
	author      string
	locale      string
	siteName    string
}

func parseMetaTags(r io.Reader) (metaTags, error) {
	var tags metaTags

	tokenizer := html.NewTokenizer(r)
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return tags, nil
			}
			// A truncated body still yields whatever <head> produced.
			if tags.ogTitle != "" || tags.title != "" {
				return tags, nil
			}
			return tags, tokenizer.Err()
		case html.TextToken:
			if inTitle && tags.title == "" {
				tags.title = strings.TrimSpace(string(tokenizer.Text()))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			switch string(name) {
			case "title":
				inTitle = true
			case "meta":
				if hasAttr {
					recordMeta(&tags, tokenizer)
				}
			case "body":
				// Meta tags only appear in <head>.
				return tags, nil
			}
		case html.EndTagToken:
			if name, _ := tokenizer.TagName(); string(name) == "title" {
				inTitle = false
			}
		}
	}
}

func recordMeta(tags *metaTags, tokenizer *html.Tokenizer) {
	var property, content string
	for {
		key, value, more := tokenizer.TagAttr()
		switch string(key) {
		case "property", "name":
			property = strings.ToLower(string(value))
		case "content":
			content = string(value)
		}
		if !more {
			break
		}
	}
	if content == "" {
		return
	}
	switch property {
	case "og:title":
		tags.ogTitle = content
	case "og:description", "description":
		if tags.description == "" || strings.HasPrefix(property, "og:") {
			tags.description = content
		}
	case "og:image", "og:image:url", "og:image:secure_url":
		if tags.image == "" {
			tags.image = content
		}
	case "og:video", "og:video:url", "og:video:secure_url":
		if tags.video == "" {
			tags.video = content
		}
	case "og:audio":
		if tags.audio == "" {
			tags.audio = content
		}
	case "og:locale":
		tags.locale = content
	case "og:site_name":
		tags.siteName = content
	case "author", "article:author":
		if tags.author == "" {
			tags.author = content
		}
	}
}

func buildResult(platform fetcher.Platform, tags metaTags) *fetcher.Result {
	title := tags.ogTitle
	if title == "" {
		title = tags.title
	}

	result := &fetcher.Result{
		Content: fetcher.Content{
			Text:        title,
			Description: tags.description,
		},
		Metadata: fetcher.Metadata{
			Author:   tags.author,
			Platform: platform,
		},
		Hints: fetcher.Hints{Language: normalizeLocale(tags.locale)},
	}

	switch {
	case tags.video != "":
		result.Media = &fetcher.Media{Type: fetcher.MediaVideo, URL: tags.video, ThumbnailURL: tags.image}
	case tags.audio != "":
		result.Media = &fetcher.Media{Type: fetcher.MediaAudio, URL: tags.audio, ThumbnailURL: tags.image}
	case tags.image != "":
		result.Media = &fetcher.Media{Type: fetcher.MediaImage, URL: tags.image}
	}
	return result
}

// normalizeLocale converts og:locale's en_US form to a BCP-47 candidate;
// Result.Normalize canonicalizes or drops it.
func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
}
