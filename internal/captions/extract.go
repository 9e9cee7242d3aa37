package captions

import (
	"encoding/json"
	"regexp"
	"strings"
)

// structuredCue mirrors one element of the JSON cue array the speech model
// is asked to emit. Start and end stay untyped because the model mixes
// numeric seconds with clock strings; the text may arrive under either of
// two field names depending on the prompt revision the payload came from.
type structuredCue struct {
	Start   any    `json:"start"`
	End     any    `json:"end"`
	Text    string `json:"text"`
	Caption string `json:"caption"`
}

// arrowPattern matches one "<start> --> <end>" marker. The arrow accepts
// one or two dashes, and the start token is lazy so it stops at the nearest
// arrow instead of swallowing it.
var arrowPattern = regexp.MustCompile(`([^\s>]+?)\s*-{1,2}>\s*(\S+)`)

// listPrefixPattern matches a numbered-list artifact glued onto cue text:
// a bare integer, whitespace, then a letter starting the real text.
var listPrefixPattern = regexp.MustCompile(`^\d+\s+(\p{L}.*)$`)

// Extract converts a raw transcription payload into ordered cues. The
// structured JSON form is tried first; payloads that do not decode as a
// cue array, or that decode to zero usable cues, fall through to the
// arrow-line scan. An empty result is valid and means the caller should
// treat the payload as plain unsegmented text.
func Extract(payload string) []Cue {
	if cues, ok := extractStructured(payload); ok && len(cues) > 0 {
		return cues
	}
	return extractArrowLines(payload)
}

// extractStructured decodes the payload as a JSON array of cue objects.
// The boolean reports whether the payload was an array at all; corrupt
// elements inside a valid array are dropped, never fatal.
func extractStructured(payload string) ([]Cue, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &elements); err != nil {
		return nil, false
	}
	cues := make([]Cue, 0, len(elements))
	for _, element := range elements {
		var entry structuredCue
		if err := json.Unmarshal(element, &entry); err != nil {
			continue
		}
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			text = strings.TrimSpace(entry.Caption)
		}
		if text == "" {
			continue
		}
		start, err := CoerceMillis(entry.Start)
		if err != nil {
			continue
		}
		end, err := CoerceMillis(entry.End)
		if err != nil || end < start {
			continue
		}
		cues = append(cues, Cue{Text: text, StartMS: start, EndMS: end})
	}
	return cues, true
}

func extractArrowLines(payload string) []Cue {
	var cues []Cue
	for _, line := range strings.Split(payload, "\n") {
		cues = append(cues, scanArrowLine(line)...)
	}
	return cues
}

// arrowMatch is one marker on a line whose timestamps both parsed. matchAt
// and textAt are byte offsets of the marker start and of the first byte
// after the end token.
type arrowMatch struct {
	start   int64
	end     int64
	matchAt int
	textAt  int
}

// scanArrowLine extracts every cue on one line. Text for a marker runs to
// the next parseable marker or the end of the line, so an arrow-shaped
// fragment inside cue text merges back into the text instead of truncating
// the cue.
func scanArrowLine(line string) []Cue {
	groups := arrowPattern.FindAllStringSubmatchIndex(line, -1)
	if len(groups) == 0 {
		return nil
	}
	matches := make([]arrowMatch, 0, len(groups))
	for _, loc := range groups {
		start, err := ParseClock(line[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		end, err := ParseClock(line[loc[4]:loc[5]])
		if err != nil {
			continue
		}
		matches = append(matches, arrowMatch{start: start, end: end, matchAt: loc[0], textAt: loc[1]})
	}
	cues := make([]Cue, 0, len(matches))
	for i, match := range matches {
		limit := len(line)
		if i+1 < len(matches) {
			limit = matches[i+1].matchAt
		}
		text := cleanCueText(line[match.textAt:limit])
		if text == "" || match.end < match.start {
			continue
		}
		cues = append(cues, Cue{Text: text, StartMS: match.start, EndMS: match.end})
	}
	return cues
}

// cleanCueText trims a scanned cue body: wrapping quotes first, then the
// numbered-list prefix when a letter follows it.
func cleanCueText(text string) string {
	text = strings.TrimSpace(text)
	text = stripWrappingQuotes(text)
	if m := listPrefixPattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	return strings.TrimSpace(text)
}

func stripWrappingQuotes(text string) string {
	if len(text) < 2 {
		return text
	}
	first, last := text[0], text[len(text)-1]
	if first != last || (first != '"' && first != '\'') {
		return text
	}
	return strings.TrimSpace(text[1 : len(text)-1])
}
