package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a thread-safe bytes.Buffer for commands that keep writing
// from a goroutine while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

func TestLogsLines(t *testing.T) {
	env := newTestCLI(t)

	if err := os.WriteFile(env.logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := env.run(t, "logs", "--lines", "2")
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	wantOutput(t, out, "second")
	wantOutput(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got:\n%s", out)
	}
}

func TestLogsEmpty(t *testing.T) {
	env := newTestCLI(t)

	out, _, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	wantOutput(t, out, "No log entries available")
}

func TestLogsFollow(t *testing.T) {
	env := newTestCLI(t)

	if err := appendLogLine(env.logPath, "first"); err != nil {
		t.Fatalf("append first: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	cmd.SetArgs([]string{"--socket", env.socketPath, "--config", env.configPath, "logs", "--follow"})
	cmd.SetContext(ctx)
	stdout := &syncBuffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	eventually(t, 2*time.Second, func() bool { return stdout.Len() > 0 })
	if err := appendLogLine(env.logPath, "second"); err != nil {
		t.Fatalf("append second: %v", err)
	}
	eventually(t, 2*time.Second, func() bool { return strings.Contains(stdout.String(), "second") })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("logs --follow did not exit")
	}
}
