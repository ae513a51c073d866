// Package logging wraps log/slog with the handlers and field conventions
// shared across the pipeline: a console handler for interactive runs, a JSON
// handler for captured output, and context helpers that stamp run, job,
// stage, and segment identifiers onto every record.
package logging
