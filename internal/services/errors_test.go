package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"sprocket/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	base := errors.New("connection reset")
	err := services.Wrap(services.ErrFetch, "fetch", "download", "attempt 2", base)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, fragment := range []string{"fetch", "download", "attempt 2", "connection reset"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("error %q missing fragment %q", err.Error(), fragment)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrPlan, "plan", "validate", "ranges overlap", nil)
	if !errors.Is(err, services.ErrPlan) {
		t.Fatalf("expected plan marker, got %v", err)
	}
	if strings.Contains(err.Error(), "<nil>") {
		t.Fatalf("unexpected nil rendering: %q", err.Error())
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "clip", "", "", errors.New("boom"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	transient := services.Wrap(services.ErrTransient, "fetch", "download", "rate limited", nil)
	if !services.IsTransient(transient) {
		t.Fatalf("expected transient classification: %v", transient)
	}
	layered := fmt.Errorf("attempt 1: %w", transient)
	if !services.IsTransient(layered) {
		t.Fatalf("expected transient to survive wrapping: %v", layered)
	}
	permanent := services.Wrap(services.ErrFetch, "fetch", "download", "404", nil)
	if services.IsTransient(permanent) {
		t.Fatalf("unknown shapes must not classify transient: %v", permanent)
	}
}
