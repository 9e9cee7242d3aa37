package captions

// Cue is one timed span of transcript text. StartMS and EndMS are absolute
// offsets from the beginning of the media in milliseconds. Cues keep the
// order they held in the source payload; the pipeline trusts emission order
// as temporal order and never sorts or de-duplicates.
type Cue struct {
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// DurationMS returns the span covered by the cue.
func (c Cue) DurationMS() int64 {
	return c.EndMS - c.StartMS
}
