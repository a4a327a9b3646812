// Package api defines the transport-facing queue DTOs shared by the daemon
// HTTP surface and the CLI. Conversions live here so wire shapes stay stable
// when the persistence model changes.
package api
