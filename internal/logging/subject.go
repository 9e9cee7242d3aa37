package logging

import "strings"

// FormatSubject builds the lane/item/stage subject string used in console
// output, e.g. "Transcribe · Item #3 (transcribing)".
func FormatSubject(lane, itemID, stage string) string {
	lane = strings.TrimSpace(lane)
	itemID = strings.TrimSpace(itemID)
	stage = strings.TrimSpace(stage)

	var b strings.Builder
	if lane != "" {
		b.WriteString(laneLabel(lane))
	}

	var detail string
	switch {
	case itemID != "" && stage != "":
		detail = "Item #" + itemID + " (" + stage + ")"
	case itemID != "":
		detail = "Item #" + itemID
	case stage != "":
		detail = stage
	}
	if detail != "" {
		if b.Len() > 0 {
			b.WriteString(" · ")
		}
		b.WriteString(detail)
	}
	return b.String()
}

func laneLabel(lane string) string {
	if len(lane) < 2 {
		return strings.ToUpper(lane)
	}
	return strings.ToUpper(lane[:1]) + strings.ToLower(lane[1:])
}
