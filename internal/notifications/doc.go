// Package notifications delivers queue events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Worker code depends only on the simple Service interface; extend
// this package if you need alternative transports.
package notifications
