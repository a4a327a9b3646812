package fetcher

import "fmt"

// Registry maps platforms to fetcher implementations under an
// enabled-platform allow-list. The mapping is fixed at startup; lookups
// never re-parse URLs or consult anything mutable.
type Registry struct {
	fetchers map[Platform]Fetcher
	enabled  map[Platform]struct{}
	fallback Fetcher
}

// NewRegistry builds a registry limited to the enabled platforms.
func NewRegistry(enabled []Platform) *Registry {
	set := make(map[Platform]struct{}, len(enabled))
	for _, platform := range enabled {
		set[platform] = struct{}{}
	}
	return &Registry{
		fetchers: make(map[Platform]Fetcher),
		enabled:  set,
	}
}

// Register binds a fetcher to its platform. Later registrations for the same
// platform replace earlier ones.
func (r *Registry) Register(f Fetcher) {
	r.fetchers[f.Platform()] = f
}

// RegisterFallback installs the generic fetcher used for enabled platforms
// without a dedicated implementation.
func (r *Registry) RegisterFallback(f Fetcher) {
	r.fallback = f
}

// GetFetcher resolves the fetcher for a platform. Platforms outside the
// allow-list fail with a permanent PLATFORM_DISABLED error before anything
// is invoked; enabled platforms without a dedicated fetcher fall back to the
// generic fetcher, and fail with PLATFORM_NOT_IMPLEMENTED when none exists.
func (r *Registry) GetFetcher(platform Platform) (Fetcher, error) {
	if _, ok := r.enabled[platform]; !ok {
		return nil, NewError(CodeDisabled, platform, fmt.Sprintf("platform %s is not enabled", platform))
	}
	if f, ok := r.fetchers[platform]; ok {
		return f, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, NewError(CodeNotImplemented, platform, fmt.Sprintf("no fetcher implemented for platform %s", platform))
}

// Enabled reports whether a platform passes the allow-list.
func (r *Registry) Enabled(platform Platform) bool {
	_, ok := r.enabled[platform]
	return ok
}

// Platforms returns the platforms with a dedicated fetcher registered.
func (r *Registry) Platforms() []Platform {
	out := make([]Platform, 0, len(r.fetchers))
	for platform := range r.fetchers {
		out = append(out, platform)
	}
	return out
}
