// Package fetcher defines the per-platform content extraction contract: the
// Platform enumeration, the Fetcher interface, the normalized Result shape,
// the classified Error taxonomy, and the Registry that maps platforms to
// implementations under an enabled-platform allow-list.
package fetcher
