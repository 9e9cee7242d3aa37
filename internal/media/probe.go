package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Report holds what ffprobe told us about a media file. The zero value
// means the file was never probed.
type Report struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream is one audio or video stream inside the container. Numeric
// fields ffprobe emits as strings stay strings here and are parsed on
// demand.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format is the container-level block of the ffprobe output.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Probe runs ffprobe over path and decodes its JSON output. An empty
// binary falls back to "ffprobe" from PATH.
func Probe(ctx context.Context, binary string, path string) (Report, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Report{}, errors.New("media probe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-show_format", "-show_streams",
		"-of", "json", "--", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return Report{}, fmt.Errorf("media probe: %w: %s", err, detail)
	}

	var report Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return Report{}, fmt.Errorf("media probe: parse: %w", err)
	}
	report.raw = append([]byte(nil), stdout.Bytes()...)
	return report, nil
}

// IsNotInstalled reports whether the probe failed because no ffprobe
// binary could be found.
func IsNotInstalled(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// RawJSON returns a copy of the unparsed ffprobe output, for persisting
// alongside the queue item.
func (r Report) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// AudioStreamCount counts streams whose codec type is audio.
func (r Report) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// HasAudio reports whether anything in the container can be transcribed.
func (r Report) HasAudio() bool {
	return r.AudioStreamCount() > 0
}

// DurationSeconds parses the container duration, returning 0 when the
// field is absent or malformed.
func (r Report) DurationSeconds() float64 {
	return parseNonNegative(r.Format.Duration)
}

// SizeBytes parses the container size, returning 0 when unavailable.
func (r Report) SizeBytes() int64 {
	return int64(parseNonNegative(r.Format.Size))
}

func parseNonNegative(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
