// Package daemon coordinates the long-running gleaner process.
//
// It wires configuration, queue storage, the worker manager, and the HTTP
// API into a single lifecycle with flock-based locking to prevent multiple
// instances. On startup the daemon resets jobs orphaned in the processing
// state by a previous crash before workers begin claiming. The daemon also
// exposes queue maintenance helpers used by the CLI over the API.
//
// Keep orchestration logic here: fetch and retry behavior lives in the
// worker and queue packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
