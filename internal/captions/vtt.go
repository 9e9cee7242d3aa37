package captions

import "strings"

// vttHeader is the fixed first line of every rendered WebVTT document.
const vttHeader = "WEBVTT"

// FormatVTT renders cues as a WebVTT document: the header line, then one
// blank-line-separated block per cue holding a timing line and a text line.
// Cue text is flattened to a single line so a stray newline inside a cue
// cannot break the block structure.
func FormatVTT(cues []Cue) string {
	var sb strings.Builder
	sb.WriteString(vttHeader)
	sb.WriteString("\n")
	for _, cue := range cues {
		sb.WriteString("\n")
		sb.WriteString(FormatClock(cue.StartMS))
		sb.WriteString(" --> ")
		sb.WriteString(FormatClock(cue.EndMS))
		sb.WriteString("\n")
		sb.WriteString(flattenText(cue.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

// flattenText collapses all interior whitespace runs to single spaces.
func flattenText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
