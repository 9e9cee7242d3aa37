package stage_test

import (
	"testing"

	"quill/internal/queue"
	"quill/internal/stage"
)

func TestDisplayTitle(t *testing.T) {
	cases := []struct {
		name string
		item *queue.Item
		want string
	}{
		{"prefers stored title", &queue.Item{Title: "Team Standup", SourcePath: "/media/raw.mkv"}, "Team Standup"},
		{"trims title whitespace", &queue.Item{Title: "  Weekly Sync  "}, "Weekly Sync"},
		{"falls back to base name", &queue.Item{SourcePath: "/media/town_hall.mp3"}, "town_hall.mp3"},
		{"nil item", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stage.DisplayTitle(tc.item); got != tc.want {
				t.Fatalf("DisplayTitle = %q, want %q", got, tc.want)
			}
		})
	}
}
