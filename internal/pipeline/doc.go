// Package pipeline orchestrates jobs from pending to terminal status with a
// bounded worker pool. Workers report observations over a channel to a
// single-writer loop that owns the job table and the journal, so no status
// transition ever races another.
package pipeline
