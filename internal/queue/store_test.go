package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quill/internal/queue"
	"quill/internal/testsupport"
)

func newStore(t *testing.T) *queue.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

// seedItem inserts a file and, when status is not pending, moves it there.
func seedItem(t *testing.T, store *queue.Store, path string, status queue.Status) *queue.Item {
	t.Helper()
	ctx := context.Background()
	item, err := store.NewFile(ctx, path)
	if err != nil {
		t.Fatalf("seeding %s: %v", path, err)
	}
	if status != queue.StatusPending {
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("moving %s to %s: %v", path, status, err)
		}
	}
	return item
}

func mustUpdate(t *testing.T, store *queue.Store, item *queue.Item) {
	t.Helper()
	if err := store.Update(context.Background(), item); err != nil {
		t.Fatalf("persisting item %d: %v", item.ID, err)
	}
}

func mustGet(t *testing.T, store *queue.Store, id int64) *queue.Item {
	t.Helper()
	item, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("loading item %d: %v", id, err)
	}
	if item == nil {
		t.Fatalf("item %d missing from store", id)
	}
	return item
}

func TestOpenInitializesSchema(t *testing.T) {
	store := newStore(t)

	ctx := context.Background()
	item, err := store.NewFile(ctx, "/media/recordings/team_standup.mkv")
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if item.ID == 0 {
		t.Fatal("insert returned zero ID")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("new item status = %s, want pending", item.Status)
	}
	if item.Title != "Team Standup" {
		t.Fatalf("derived title = %q", item.Title)
	}

	fetched := mustGet(t, store, item.ID)
	if fetched.SourcePath != "/media/recordings/team_standup.mkv" {
		t.Fatalf("round-trip mangled item: %#v", fetched)
	}

	found, err := store.FindBySourcePath(ctx, "/media/recordings/team_standup.mkv")
	if err != nil {
		t.Fatalf("FindBySourcePath: %v", err)
	}
	if found == nil || found.ID != item.ID {
		t.Fatalf("lookup by source path returned %#v", found)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	store := newStore(t)

	item, err := store.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item != nil {
		t.Fatalf("missing ID produced %#v, want nil", item)
	}
}

func TestResetStuckProcessingRollsBack(t *testing.T) {
	store := newStore(t)

	ctx := context.Background()
	rollbacks := []struct {
		name  string
		stuck queue.Status
		want  queue.Status
	}{
		{"transcribing", queue.StatusTranscribing, queue.StatusPending},
		{"exporting", queue.StatusExporting, queue.StatusTranscribed},
	}
	var ids []int64
	for i, rb := range rollbacks {
		item := seedItem(t, store, fmt.Sprintf("/media/reset-%d.mkv", i), rb.stuck)
		item.ProgressStage = rb.name
		mustUpdate(t, store, item)
		ids = append(ids, item.ID)
	}

	count, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing: %v", err)
	}
	if int(count) != len(rollbacks) {
		t.Fatalf("reset %d items, want %d", count, len(rollbacks))
	}

	for idx, rb := range rollbacks {
		updated := mustGet(t, store, ids[idx])
		if updated.Status != rb.want {
			t.Fatalf("%s item landed on %s, want %s", rb.name, updated.Status, rb.want)
		}
		if updated.LastHeartbeat != nil {
			t.Fatalf("%s item kept its heartbeat after reset", rb.name)
		}
	}
}

func TestItemsByStatus(t *testing.T) {
	store := newStore(t)

	seedItem(t, store, "/media/a.mkv", queue.StatusPending)
	seedItem(t, store, "/media/b.mkv", queue.StatusTranscribed)

	items, err := store.ItemsByStatus(context.Background(), queue.StatusTranscribed)
	if err != nil {
		t.Fatalf("ItemsByStatus: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d transcribed items, want 1", len(items))
	}
	if items[0].SourcePath != "/media/b.mkv" {
		t.Fatalf("wrong item matched: %s", items[0].SourcePath)
	}
}

func TestListFiltering(t *testing.T) {
	store := newStore(t)

	a := seedItem(t, store, "/media/a.mkv", queue.StatusPending)
	b := seedItem(t, store, "/media/b.mkv", queue.StatusTranscribed)
	c := seedItem(t, store, "/media/c.mkv", queue.StatusFailed)
	c.ErrorMessage = "boom"
	mustUpdate(t, store, c)

	ctx := context.Background()
	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("unfiltered list has %d items, want 3", len(items))
	}
	if items[0].ID != a.ID || items[1].ID != b.ID || items[2].ID != c.ID {
		t.Fatalf("list not in insertion order: IDs %d,%d,%d", items[0].ID, items[1].ID, items[2].ID)
	}

	filtered, err := store.List(ctx, queue.StatusTranscribed, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List with filter: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered list has %d items, want 2", len(filtered))
	}
	if filtered[0].ID != b.ID || filtered[1].ID != c.ID {
		t.Fatalf("filter matched IDs %d,%d", filtered[0].ID, filtered[1].ID)
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	store := newStore(t)

	first := seedItem(t, store, "/media/first.mkv", queue.StatusPending)
	seedItem(t, store, "/media/second.mkv", queue.StatusPending)

	ctx := context.Background()
	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("want oldest pending item %d, got %#v", first.ID, next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusExporting)
	if err != nil {
		t.Fatalf("NextForStatuses with no matches: %v", err)
	}
	if none != nil {
		t.Fatalf("empty status should yield nil, got %#v", none)
	}
}

func TestRetryFailedRestoresPending(t *testing.T) {
	store := newStore(t)

	ctx := context.Background()
	a := seedItem(t, store, "/media/a.mkv", queue.StatusPending)
	b := seedItem(t, store, "/media/b.mkv", queue.StatusPending)
	a.SetFailed("boom")
	mustUpdate(t, store, a)
	b.SetReview("no cues recovered")
	mustUpdate(t, store, b)

	updated, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("retry everything: %v", err)
	}
	if updated != 2 {
		t.Fatalf("retried %d items, want 2", updated)
	}

	item := mustGet(t, store, b.ID)
	if item.Status != queue.StatusPending {
		t.Fatalf("review item landed on %s, want pending", item.Status)
	}
	if item.NeedsReview || item.ReviewReason != "" {
		t.Fatalf("review flags survived retry: %v %q", item.NeedsReview, item.ReviewReason)
	}

	// Fail B again and retry only that ID.
	b.SetFailed("boom again")
	mustUpdate(t, store, b)
	updated, err = store.RetryFailed(ctx, b.ID)
	if err != nil {
		t.Fatalf("retry single item: %v", err)
	}
	if updated != 1 {
		t.Fatalf("targeted retry touched %d items, want 1", updated)
	}
}

func TestUpdateHeartbeatStampsItem(t *testing.T) {
	store := newStore(t)

	ctx := context.Background()
	item := seedItem(t, store, "/media/heartbeat.mkv", queue.StatusTranscribing)

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	updated := mustGet(t, store, item.ID)
	if updated.LastHeartbeat == nil {
		t.Fatal("heartbeat column still null after update")
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	t.Run("every processing status", func(t *testing.T) {
		store := newStore(t)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()
		rollbacks := []struct {
			name       string
			processing queue.Status
			want       queue.Status
		}{
			{"transcribing", queue.StatusTranscribing, queue.StatusPending},
			{"exporting", queue.StatusExporting, queue.StatusTranscribed},
		}
		var ids []int64
		for i, rb := range rollbacks {
			item := seedItem(t, store, fmt.Sprintf("/media/stale-%d.mkv", i), rb.processing)
			item.LastHeartbeat = &past
			mustUpdate(t, store, item)
			ids = append(ids, item.ID)
		}

		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour))
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing: %v", err)
		}
		if int(count) != len(rollbacks) {
			t.Fatalf("reclaimed %d items, want %d", count, len(rollbacks))
		}

		for idx, rb := range rollbacks {
			updated := mustGet(t, store, ids[idx])
			if updated.Status != rb.want {
				t.Fatalf("%s item landed on %s after reclaim, want %s", rb.name, updated.Status, rb.want)
			}
			if updated.LastHeartbeat != nil {
				t.Fatalf("%s item kept heartbeat %v after reclaim", rb.name, updated.LastHeartbeat)
			}
		}
	})

	t.Run("subset of statuses", func(t *testing.T) {
		store := newStore(t)

		ctx := context.Background()
		past := time.Now().Add(-2 * time.Hour).UTC()

		transcribing := seedItem(t, store, "/media/stale-transcribing.mkv", queue.StatusTranscribing)
		transcribing.LastHeartbeat = &past
		mustUpdate(t, store, transcribing)

		exporting := seedItem(t, store, "/media/stale-exporting.mkv", queue.StatusExporting)
		exporting.LastHeartbeat = &past
		mustUpdate(t, store, exporting)

		count, err := store.ReclaimStaleProcessing(ctx, time.Now().Add(-1*time.Hour), queue.StatusExporting)
		if err != nil {
			t.Fatalf("ReclaimStaleProcessing subset: %v", err)
		}
		if count != 1 {
			t.Fatalf("reclaimed %d items, want only the exporting one", count)
		}

		reclaimed := mustGet(t, store, exporting.ID)
		if reclaimed.Status != queue.StatusTranscribed {
			t.Fatalf("exporting item landed on %s, want transcribed", reclaimed.Status)
		}
		if reclaimed.LastHeartbeat != nil {
			t.Fatalf("exporting item kept heartbeat %v", reclaimed.LastHeartbeat)
		}

		unchanged := mustGet(t, store, transcribing.ID)
		if unchanged.Status != queue.StatusTranscribing {
			t.Fatalf("transcribing item should be untouched, got %s", unchanged.Status)
		}
		if unchanged.LastHeartbeat == nil || !unchanged.LastHeartbeat.Equal(past) {
			t.Fatalf("transcribing heartbeat drifted: %v", unchanged.LastHeartbeat)
		}
	})
}

func TestProgressUpdateKeepsHeartbeat(t *testing.T) {
	store := newStore(t)

	ctx := context.Background()
	item := seedItem(t, store, "/media/progress.mkv", queue.StatusTranscribing)
	past := time.Now().Add(-5 * time.Minute).UTC()
	item.LastHeartbeat = &past
	mustUpdate(t, store, item)

	if err := store.UpdateHeartbeat(ctx, item.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	before := mustGet(t, store, item.ID)
	if before.LastHeartbeat == nil {
		t.Fatal("heartbeat missing before progress write")
	}
	origHeartbeat := *before.LastHeartbeat

	before.ProgressStage = "Transcribe"
	before.ProgressPercent = 42.5
	before.ProgressMessage = "Waiting on speech service"
	if err := store.UpdateProgress(ctx, before); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	after := mustGet(t, store, item.ID)
	if after.LastHeartbeat == nil {
		t.Fatal("progress write nulled the heartbeat")
	}
	if !after.LastHeartbeat.Equal(origHeartbeat) {
		t.Fatalf("heartbeat drifted across progress write: before %v after %v", origHeartbeat, after.LastHeartbeat)
	}
	if after.ProgressStage != "Transcribe" || after.ProgressMessage != "Waiting on speech service" {
		t.Fatalf("progress fields lost: stage=%q message=%q", after.ProgressStage, after.ProgressMessage)
	}
	if after.ProgressPercent != 42.5 {
		t.Fatalf("progress percent = %f, want 42.5", after.ProgressPercent)
	}
}

func TestStatsAndHealthGroupCounts(t *testing.T) {
	store := newStore(t)

	seed := []queue.Status{
		queue.StatusPending,
		queue.StatusPending,
		queue.StatusTranscribing,
		queue.StatusCompleted,
		queue.StatusFailed,
		queue.StatusReview,
	}
	for i, status := range seed {
		seedItem(t, store, fmt.Sprintf("/media/stats-%d.mkv", i), status)
	}

	ctx := context.Background()
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusPending] != 2 {
		t.Fatalf("pending count = %d, want 2", stats[queue.StatusPending])
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != len(seed) {
		t.Fatalf("total = %d, want %d", health.Total, len(seed))
	}
	if health.Pending != 2 || health.Processing != 1 || health.Completed != 1 || health.Failed != 1 || health.Review != 1 {
		t.Fatalf("health summary off: %#v", health)
	}
}

func TestCheckHealthReportsColumns(t *testing.T) {
	store := newStore(t)

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.TableExists {
		t.Fatalf("fresh database reported unhealthy: %#v", health)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("schema check flagged columns %v on a fresh database", health.MissingColumns)
	}
	if !health.IntegrityCheck {
		t.Fatal("integrity check failed on a fresh database")
	}
}
