package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTestNotifyUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are not configured")
}

func TestTestNotifySendsToTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	env.cfg.Notifications.NtfyTopic = srv.URL + "/sprocket-test"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")

	select {
	case body := <-received:
		if body != "Notification system test" {
			t.Fatalf("unexpected notification body %q", body)
		}
	default:
		t.Fatal("expected the topic to receive a request")
	}
}
