package fetcher

import "strings"

// Platform identifies a content source. Detection happens upstream; jobs
// carry an already-resolved platform and the registry dispatches on it
// without re-parsing URLs.
type Platform string

const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformReddit    Platform = "reddit"
	PlatformGeneric   Platform = "generic"
)

var allPlatforms = []Platform{
	PlatformTikTok,
	PlatformYouTube,
	PlatformInstagram,
	PlatformTwitter,
	PlatformReddit,
	PlatformGeneric,
}

var platformSet = func() map[Platform]struct{} {
	set := make(map[Platform]struct{}, len(allPlatforms))
	for _, platform := range allPlatforms {
		set[platform] = struct{}{}
	}
	return set
}()

// AllPlatforms returns the ordered list of known platforms.
func AllPlatforms() []Platform {
	cp := make([]Platform, len(allPlatforms))
	copy(cp, allPlatforms)
	return cp
}

// ParsePlatform converts a string into a known Platform.
func ParsePlatform(value string) (Platform, bool) {
	normalized := Platform(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := platformSet[normalized]
	return normalized, ok
}
