package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/queue"
	"quill/internal/testsupport"
)

func TestAddQueuesFile(t *testing.T) {
	env := newTestCLI(t)

	mediaPath := filepath.Join(env.baseDir, "incoming", "Manual Session.mp3")
	testsupport.WriteFile(t, mediaPath, 64)

	out, _, err := env.run(t, "add", mediaPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	wantOutput(t, out, "Queued Manual Session.mp3 as item #")

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(items))
	}
	if items[0].SourcePath != mediaPath {
		t.Fatalf("expected source %s, got %s", mediaPath, items[0].SourcePath)
	}
	if items[0].Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", items[0].Status)
	}
}

func TestAddMultipleFiles(t *testing.T) {
	env := newTestCLI(t)

	first := filepath.Join(env.baseDir, "incoming", "First.mp3")
	second := filepath.Join(env.baseDir, "incoming", "Second.wav")
	testsupport.WriteFile(t, first, 64)
	testsupport.WriteFile(t, second, 64)

	out, _, err := env.run(t, "add", first, second)
	if err != nil {
		t.Fatalf("add multiple: %v", err)
	}
	wantOutput(t, out, "Queued First.mp3")
	wantOutput(t, out, "Queued Second.wav")

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 queued items, got %d", len(items))
	}
}

func TestAddRejectsMissingFile(t *testing.T) {
	env := newTestCLI(t)

	missing := filepath.Join(env.baseDir, "incoming", "ghost.mp3")
	_, _, err := env.run(t, "add", missing)
	if err == nil || !strings.Contains(err.Error(), "file does not exist") {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestAddRejectsUnsupportedExtension(t *testing.T) {
	env := newTestCLI(t)

	textPath := filepath.Join(env.baseDir, "incoming", "notes.txt")
	testsupport.WriteFile(t, textPath, 16)

	_, _, err := env.run(t, "add", textPath)
	if err == nil || !strings.Contains(err.Error(), "unsupported file extension") {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestAddRejectsDirectory(t *testing.T) {
	env := newTestCLI(t)

	_, _, err := env.run(t, "add", env.baseDir)
	if err == nil || !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("expected directory error, got %v", err)
	}
}

func TestAddValidatesBeforeQueueing(t *testing.T) {
	env := newTestCLI(t)

	good := filepath.Join(env.baseDir, "incoming", "Good.mp3")
	testsupport.WriteFile(t, good, 64)
	missing := filepath.Join(env.baseDir, "incoming", "ghost.mp3")

	_, _, err := env.run(t, "add", good, missing)
	if err == nil {
		t.Fatal("expected validation error")
	}

	items, listErr := env.store.List(context.Background())
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items queued when validation fails, got %d", len(items))
	}
}

func TestAddDuplicateInWorkflowReturnsExisting(t *testing.T) {
	env := newTestCLI(t)

	mediaPath := filepath.Join(env.baseDir, "incoming", "Manual Session.mp3")
	testsupport.WriteFile(t, mediaPath, 64)

	out, _, err := env.run(t, "add", mediaPath)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	wantOutput(t, out, "Queued Manual Session.mp3 as item #")

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	existingID := items[0].ID

	out, _, err = env.run(t, "add", mediaPath)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	wantOutput(t, out, fmt.Sprintf("item #%d", existingID))

	items, err = env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list after second add: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected duplicate add to reuse item, got %d items", len(items))
	}
}
