// Package report folds a finished run into a deterministic per-job summary
// for terminal tables, JSON export, and the process exit code. The fold is
// read only; it never retries or mutates run state.
package report
