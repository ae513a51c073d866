package main

import (
	"encoding/json"
	"strings"
	"testing"

	"sprocket/internal/testsupport"
)

func writePlanInputs(t *testing.T, env *cliTestEnv) {
	t.Helper()
	testsupport.WriteLines(t, env.cfg.Inputs.URLFile,
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=aqz-KE-bpKQ",
		"https://www.youtube.com/watch?v=9bZkp7q19f0",
	)
	testsupport.WriteLines(t, env.cfg.Inputs.TimestampFile,
		"00:00:05-00:00:10",
		"00:01:00-00:01:30",
		"",
		"*",
		"",
		"nonsense",
	)
}

func TestPlanRendersSegments(t *testing.T) {
	env := setupCLITestEnv(t)
	writePlanInputs(t, env)

	out, _, err := runCLI(t, []string{"plan"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "00:00:05.000-00:00:10.000")
	requireContains(t, out, "whole video")
	requireContains(t, out, "parse failure")
}

func TestPlanAppliesDeclaredDuration(t *testing.T) {
	env := setupCLITestEnv(t)
	writePlanInputs(t, env)

	out, _, err := runCLI(t, []string{"plan", "--duration", "00:01:10"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "00:01:00.000-00:01:10.000")
	requireContains(t, out, "clamped")
}

func TestPlanRejectsBadDuration(t *testing.T) {
	env := setupCLITestEnv(t)
	writePlanInputs(t, env)

	_, _, err := runCLI(t, []string{"plan", "--duration", "bogus"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "parse --duration") {
		t.Fatalf("expected duration parse error, got %v", err)
	}
}

func TestPlanJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	writePlanInputs(t, env)

	out, _, err := runCLI(t, []string{"plan", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}

	var rep planReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode plan report: %v", err)
	}
	if len(rep.Jobs) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rep.Jobs))
	}
	if rep.Jobs[0].Segments != 2 {
		t.Fatalf("expected 2 segments for job 0, got %d", rep.Jobs[0].Segments)
	}
	if len(rep.Jobs[1].Ranges) != 1 || rep.Jobs[1].Ranges[0] != "whole video" {
		t.Fatalf("unexpected ranges for job 1: %v", rep.Jobs[1].Ranges)
	}
	if !strings.Contains(rep.Jobs[2].Error, "parse failure") {
		t.Fatalf("expected parse failure on job 2, got %q", rep.Jobs[2].Error)
	}
}
