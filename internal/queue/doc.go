// Package queue defines the job data model shared across the pipeline and a
// SQLite-backed journal that records each run's jobs, segments, and results
// for later inspection.
package queue
