// Package logging builds the slog loggers used across gleaner. It provides a
// JSON handler for machine consumption and a compact key=value console
// handler for interactive use, plus shared attribute helpers and field name
// constants so log output stays greppable.
package logging
