package queue_test

import (
	"testing"

	"sprocket/internal/queue"
	"sprocket/internal/timecode"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to queue.Status
	}{
		{queue.StatusPending, queue.StatusFetching},
		{queue.StatusFetching, queue.StatusFetched},
		{queue.StatusFetched, queue.StatusPlanning},
		{queue.StatusPlanning, queue.StatusClipping},
		{queue.StatusClipping, queue.StatusCompleted},
		{queue.StatusPending, queue.StatusFailed},
		{queue.StatusClipping, queue.StatusFailed},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Fatalf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from, to queue.Status
	}{
		{queue.StatusFetched, queue.StatusFetching},
		{queue.StatusCompleted, queue.StatusFailed},
		{queue.StatusFailed, queue.StatusPending},
		{queue.StatusPending, queue.StatusCompleted},
		{queue.StatusClipping, queue.StatusPlanning},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Fatalf("%s -> %s should be denied", tc.from, tc.to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []queue.Status{queue.StatusCompleted, queue.StatusFailed} {
		if !status.IsTerminal() {
			t.Fatalf("%s should be terminal", status)
		}
	}
	for _, status := range []queue.Status{queue.StatusPending, queue.StatusFetching, queue.StatusClipping} {
		if status.IsTerminal() {
			t.Fatalf("%s should not be terminal", status)
		}
	}
}

func TestParseStatus(t *testing.T) {
	status, err := queue.ParseStatus(" Fetching ")
	if err != nil || status != queue.StatusFetching {
		t.Fatalf("ParseStatus: %v %v", status, err)
	}
	if _, err := queue.ParseStatus("exploded"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestJobNaming(t *testing.T) {
	job := &queue.Job{Index: 7, SourceID: "dQw4w9WgXcQ"}
	if got := job.DirName(); got != "job-007-dQw4w9WgXcQ" {
		t.Fatalf("unexpected dir name: %q", got)
	}
	if got := queue.SegmentFileName(3, ".mp4"); got != "segment-03.mp4" {
		t.Fatalf("unexpected segment name: %q", got)
	}
}

func TestJobWholeVideo(t *testing.T) {
	job := &queue.Job{}
	if !job.WholeVideo() {
		t.Fatal("no ranges should mean whole video")
	}
	job.Ranges = []timecode.Range{{Start: 0, End: 5}}
	if job.WholeVideo() {
		t.Fatal("ranged job is not whole video")
	}
}

func TestSetFailedTrimsReason(t *testing.T) {
	job := &queue.Job{Status: queue.StatusFetching}
	job.SetFailed("  network gone  ")
	if job.Status != queue.StatusFailed || job.FailureReason != "network gone" {
		t.Fatalf("unexpected failure state: %+v", job)
	}
}
