package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quill/internal/config"
	"quill/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyQueueStarted(context.Background(), 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, captured *[]capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		*captured = append(*captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
}

func newNtfyService(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	return notifications.NewService(&cfg)
}

func TestNtfyServiceFormatsEvents(t *testing.T) {
	var captured []capturedRequest
	server := newCaptureServer(t, &captured)
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	ctx := context.Background()

	tests := []struct {
		name           string
		publish        func() error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "file added",
			publish:       func() error { return svc.NotifyFileAdded(ctx, "Team Standup") },
			expectTitle:   "Quill - File Queued",
			expectMessage: "🎙️ Queued for transcription: Team Standup",
			expectTags:    "quill,queue,added",
		},
		{
			name:          "transcription completed",
			publish:       func() error { return svc.NotifyTranscriptionCompleted(ctx, "Team Standup") },
			expectTitle:   "Quill - Transcribed",
			expectMessage: "📝 Transcription complete: Team Standup",
			expectTags:    "quill,transcribe,completed",
		},
		{
			name:          "export completed",
			publish:       func() error { return svc.NotifyExportCompleted(ctx, "Team Standup", "/captions/standup.vtt") },
			expectTitle:   "Quill - Captions Ready",
			expectMessage: "Captions rendered: Team Standup\nFile: /captions/standup.vtt",
			expectTags:    "quill,export,completed",
		},
		{
			name:           "processing completed",
			publish:        func() error { return svc.NotifyProcessingCompleted(ctx, "Team Standup") },
			expectTitle:    "Quill - Complete",
			expectMessage:  "✅ Ready to use: Team Standup",
			expectTags:     "quill,workflow,completed",
			expectPriority: "high",
		},
		{
			name:          "review required",
			publish:       func() error { return svc.NotifyReviewRequired(ctx, "Team Standup", "no cues recovered") },
			expectTitle:   "Quill - Review Required",
			expectMessage: "Needs review: Team Standup\nno cues recovered",
			expectTags:    "quill,review",
		},
		{
			name:          "queue completed clean",
			publish:       func() error { return svc.NotifyQueueCompleted(ctx, 4, 0, 90*time.Second) },
			expectTitle:   "Quill - Queue Complete",
			expectMessage: "Queue processing complete: 4 items processed in 1m30s",
			expectTags:    "quill,queue,completed",
		},
		{
			name:           "error",
			publish:        func() error { return svc.NotifyError(ctx, errors.New("boom"), "transcriber (item #3)") },
			expectTitle:    "Quill - Error",
			expectMessage:  "❌ Error with transcriber (item #3): boom",
			expectTags:     "quill,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		captured = captured[:0]
		if err := tc.publish(); err != nil {
			t.Fatalf("%s: publish failed: %v", tc.name, err)
		}
		if len(captured) != 1 {
			t.Fatalf("%s: expected one request, got %d", tc.name, len(captured))
		}
		got := captured[0]
		if got.title != tc.expectTitle {
			t.Errorf("%s: expected title %q, got %q", tc.name, tc.expectTitle, got.title)
		}
		if got.body != tc.expectMessage {
			t.Errorf("%s: expected message %q, got %q", tc.name, tc.expectMessage, got.body)
		}
		if got.tags != tc.expectTags {
			t.Errorf("%s: expected tags %q, got %q", tc.name, tc.expectTags, got.tags)
		}
		if got.priority != tc.expectPriority {
			t.Errorf("%s: expected priority %q, got %q", tc.name, tc.expectPriority, got.priority)
		}
	}
}

func TestNtfyServiceHonorsEventGates(t *testing.T) {
	var captured []capturedRequest
	server := newCaptureServer(t, &captured)
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Review = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyReviewRequired(ctx, "Muted", "reason"); err != nil {
		t.Fatalf("muted review notification should be nil, got %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "context"); err != nil {
		t.Fatalf("muted error notification should be nil, got %v", err)
	}
	if len(captured) != 0 {
		t.Fatalf("expected no requests for muted events, got %d", len(captured))
	}

	// Test notifications bypass gates so operators can always verify wiring.
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if len(captured) != 1 {
		t.Fatalf("expected test notification request, got %d", len(captured))
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic rejected", http.StatusForbidden)
	}))
	defer server.Close()

	svc := newNtfyService(t, server.URL)
	err := svc.NotifyQueueStarted(context.Background(), 1)
	if err == nil {
		t.Fatal("expected error from rejected notification")
	}
}
