package queue_test

import (
	"testing"
	"time"

	"quill/internal/queue"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  queue.Status
		ok    bool
	}{
		{"pending", queue.StatusPending, true},
		{" Transcribing ", queue.StatusTranscribing, true},
		{"REVIEW", queue.StatusReview, true},
		{"", "", false},
		{"bogus", "", false},
	}
	for _, tc := range cases {
		got, ok := queue.ParseStatus(tc.input)
		if ok != tc.ok {
			t.Fatalf("ParseStatus(%q): expected ok=%v, got %v", tc.input, tc.ok, ok)
		}
		if ok && got != tc.want {
			t.Fatalf("ParseStatus(%q): expected %s, got %s", tc.input, tc.want, got)
		}
	}
}

func TestSetFailedClearsHeartbeat(t *testing.T) {
	now := time.Now().UTC()
	item := &queue.Item{Status: queue.StatusTranscribing, LastHeartbeat: &now}
	item.SetFailed("speech service unreachable")

	if item.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", item.Status)
	}
	if item.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}
	if item.ErrorMessage != "speech service unreachable" || item.ProgressMessage != "speech service unreachable" {
		t.Fatalf("expected message propagated, got %q / %q", item.ErrorMessage, item.ProgressMessage)
	}
	if item.ProgressStage != "Failed" {
		t.Fatalf("expected Failed stage, got %q", item.ProgressStage)
	}
}

func TestSetReviewMarksItem(t *testing.T) {
	item := &queue.Item{Status: queue.StatusExporting}
	item.SetReview("no cues recovered from transcript")

	if item.Status != queue.StatusReview {
		t.Fatalf("expected review status, got %s", item.Status)
	}
	if !item.NeedsReview || item.ReviewReason != "no cues recovered from transcript" {
		t.Fatalf("expected review flags set, got %v %q", item.NeedsReview, item.ReviewReason)
	}
}

func TestLaneForItem(t *testing.T) {
	cases := []struct {
		name string
		item *queue.Item
		want queue.ProcessingLane
	}{
		{"nil", nil, queue.LaneTranscribe},
		{"pending", &queue.Item{Status: queue.StatusPending}, queue.LaneTranscribe},
		{"transcribing", &queue.Item{Status: queue.StatusTranscribing}, queue.LaneTranscribe},
		{"transcribed", &queue.Item{Status: queue.StatusTranscribed}, queue.LaneExport},
		{"exporting", &queue.Item{Status: queue.StatusExporting}, queue.LaneExport},
		{"completed", &queue.Item{Status: queue.StatusCompleted}, queue.LaneExport},
		{"failed without transcript", &queue.Item{Status: queue.StatusFailed}, queue.LaneTranscribe},
		{"failed with transcript", &queue.Item{Status: queue.StatusFailed, TranscriptPath: "/tmp/t.json"}, queue.LaneExport},
	}
	for _, tc := range cases {
		if got := queue.LaneForItem(tc.item); got != tc.want {
			t.Fatalf("%s: expected lane %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestStagingRoot(t *testing.T) {
	item := queue.Item{ID: 7, Title: "Sprint Retro Q3"}
	got := item.StagingRoot("/srv/staging")
	if got != "/srv/staging/7-sprint-retro-q3" {
		t.Fatalf("unexpected staging root: %s", got)
	}

	bare := queue.Item{ID: 9}
	if got := bare.StagingRoot("/srv/staging"); got != "/srv/staging/queue-9" {
		t.Fatalf("unexpected fallback staging root: %s", got)
	}

	if got := bare.StagingRoot("  "); got != "" {
		t.Fatalf("expected empty root for blank base, got %s", got)
	}
}
