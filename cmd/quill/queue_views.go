package main

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"quill/internal/ipc"
)

// queueTimeLayouts are the timestamp encodings IPC payloads may carry.
var queueTimeLayouts = []string{time.RFC3339, time.RFC3339Nano}

// queueStatusTable renders the status-count summary, or "" for an empty
// queue.
func queueStatusTable(stats map[string]int) string {
	if len(stats) == 0 {
		return ""
	}
	statuses := make([]string, 0, len(stats))
	for status := range stats {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	view := newTableView("Status", "Count").alignNumeric(1)
	for _, status := range statuses {
		view.addRow(humanizeToken(status), strconv.Itoa(stats[status]))
	}
	return view.render()
}

// queueListTable renders the item listing, newest first.
func queueListTable(items []ipc.QueueItem) string {
	ordered := append([]ipc.QueueItem(nil), items...)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := queueTime(ordered[i].CreatedAt), queueTime(ordered[j].CreatedAt)
		if a.Equal(b) {
			return ordered[i].ID > ordered[j].ID
		}
		return a.After(b)
	})

	view := newTableView("ID", "Title", "Status", "Lane", "Created").alignNumeric(0)
	for _, item := range ordered {
		view.addRow(
			strconv.FormatInt(item.ID, 10),
			itemDisplayTitle(item),
			humanizeToken(item.Status),
			laneLabel(item.Lane),
			shortTimestamp(item.CreatedAt),
		)
	}
	return view.render()
}

func itemDisplayTitle(item ipc.QueueItem) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	if source := strings.TrimSpace(item.SourcePath); source != "" {
		return filepath.Base(source)
	}
	return "Unknown"
}

// humanizeToken upper-cases the first letter of every underscore-separated
// word, so "needs_review" reads as "Needs Review".
func humanizeToken(token string) string {
	words := strings.Split(strings.TrimSpace(token), "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		lower := strings.ToLower(word)
		words[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(words, " ")
}

func laneLabel(lane string) string {
	if strings.TrimSpace(lane) == "" {
		return "-"
	}
	return humanizeToken(lane)
}

// shortTimestamp renders an IPC timestamp as a minute-resolution UTC string,
// passing unrecognized values through untouched.
func shortTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := queueTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func queueTime(value string) time.Time {
	for _, layout := range queueTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
