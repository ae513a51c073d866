// Package services defines shared utilities consumed by the pipeline stages
// and external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job indexes, stage names, and
//     segment numbers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (parse, fetch, plan, clip) and tag retry-worthy ones as transient.
//
// Use these helpers when wiring stage logic so error handling and
// observability stay uniform across the pipeline.
package services
