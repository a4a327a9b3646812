// Package main hosts the gleaner CLI entrypoint and command graph.
//
// The Cobra-based command tree covers enqueueing fetch jobs, inspecting and
// maintaining the queue, showing daemon status over the local HTTP API, and
// configuration scaffolding. It centralizes configuration resolution and
// store access so subcommands can focus on user experience instead of
// wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
