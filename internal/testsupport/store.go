package testsupport

import (
	"context"
	"testing"
	"time"

	"sprocket/internal/config"
	"sprocket/internal/queue"
)

// MustOpenJournal opens the run journal for tests and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg.JournalPath())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedRun records a run row and its jobs so store-backed tests start from a
// populated journal.
func SeedRun(t testing.TB, store *queue.Store, runID string, jobs []*queue.Job) {
	t.Helper()

	run := queue.RunRecord{
		ID:        runID,
		StartedAt: time.Now().UTC(),
	}
	if err := store.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
	if err := store.InsertJobs(context.Background(), runID, jobs); err != nil {
		t.Fatalf("store.InsertJobs: %v", err)
	}
}
