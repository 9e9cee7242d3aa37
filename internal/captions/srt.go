package captions

import (
	"fmt"
	"strings"
)

// FormatSRT renders cues as a SubRip document with 1-based cue indexes.
// SubRip uses a comma before the millisecond field where WebVTT uses a
// period; everything else mirrors FormatVTT.
func FormatSRT(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n", formatSRTClock(cue.StartMS), formatSRTClock(cue.EndMS))
		sb.WriteString(flattenText(cue.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatSRTClock(ms int64) string {
	hours, minutes, seconds, millis := splitClock(ms)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
