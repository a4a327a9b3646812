package fetcher

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// MediaType categorizes the primary media attached to fetched content.
type MediaType string

const (
	MediaVideo MediaType = "video"
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaNone  MediaType = "none"
)

// Content holds the textual portion of a fetch result.
type Content struct {
	Text        string `json:"text,omitempty"`
	Description string `json:"description,omitempty"`
}

// Media describes the primary media object, when one exists. LocalPath is
// set when the daemon downloaded the media into its media directory.
type Media struct {
	Type         MediaType `json:"type"`
	URL          string    `json:"url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Duration     float64   `json:"duration_seconds,omitempty"`
	LocalPath    string    `json:"local_path,omitempty"`
}

// Metadata identifies the content on its source platform.
type Metadata struct {
	Author      string     `json:"author,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Platform    Platform   `json:"platform"`
	PlatformID  string     `json:"platform_id,omitempty"`
}

// Hints carries downstream processing hints.
type Hints struct {
	HasNativeCaptions bool   `json:"has_native_captions,omitempty"`
	Language          string `json:"language,omitempty"`
	RequiresAuth      bool   `json:"requires_auth,omitempty"`
}

// Result is the normalized output of a successful fetch. It is produced once
// per job, persisted as the job's result payload, and never mutated after.
type Result struct {
	Content         Content         `json:"content"`
	Media           *Media          `json:"media,omitempty"`
	Metadata        Metadata        `json:"metadata"`
	RawPlatformData json.RawMessage `json:"raw_platform_data,omitempty"`
	Hints           Hints           `json:"hints,omitempty"`
}

// Normalize canonicalizes fields that downstream consumers compare against:
// the language hint becomes a canonical BCP-47 tag and whitespace is trimmed
// from text fields. Unparsable language hints are dropped rather than
// propagated.
func (r *Result) Normalize() {
	r.Content.Text = strings.TrimSpace(r.Content.Text)
	r.Content.Description = strings.TrimSpace(r.Content.Description)
	r.Metadata.Author = strings.TrimSpace(r.Metadata.Author)
	r.Metadata.PlatformID = strings.TrimSpace(r.Metadata.PlatformID)

	if hint := strings.TrimSpace(r.Hints.Language); hint != "" {
		if tag, err := language.Parse(hint); err == nil {
			r.Hints.Language = tag.String()
		} else {
			r.Hints.Language = ""
		}
	}
}
