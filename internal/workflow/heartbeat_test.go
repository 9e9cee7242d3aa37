package workflow_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quill/internal/logging"
	"quill/internal/queue"
	"quill/internal/testsupport"
	"quill/internal/workflow"
)

func TestHeartbeatMonitorReclaimsStaleItems(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item, err := store.NewFile(ctx, filepath.Join(testsupport.BaseDir(cfg), "meeting.mkv"))
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	stale := time.Now().UTC().Add(-time.Hour)
	item.Status = queue.StatusTranscribing
	item.LastHeartbeat = &stale
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	monitor := workflow.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Minute)
	if err := monitor.ReclaimStaleItems(ctx, nil, []queue.Status{queue.StatusTranscribing}); err != nil {
		t.Fatalf("ReclaimStaleItems failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected stale item back in pending, got %s", updated.Status)
	}
}

func TestHeartbeatMonitorLeavesFreshItems(t *testing.T) {
	cfg := fastConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item, err := store.NewFile(ctx, filepath.Join(testsupport.BaseDir(cfg), "meeting.mkv"))
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	fresh := time.Now().UTC()
	item.Status = queue.StatusExporting
	item.LastHeartbeat = &fresh
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	monitor := workflow.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Minute)
	if err := monitor.ReclaimStaleItems(ctx, nil, []queue.Status{queue.StatusExporting}); err != nil {
		t.Fatalf("ReclaimStaleItems failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusExporting {
		t.Fatalf("expected fresh item untouched, got %s", updated.Status)
	}
}
