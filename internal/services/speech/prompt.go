package speech

import (
	"fmt"
	"strings"

	"quill/internal/language"
)

// transcriptionInstruction builds the instruction part sent alongside the
// audio. Update this text centrally so every call stays in sync.
func transcriptionInstruction(cfg Config, durationSeconds float64) string {
	var sb strings.Builder
	sb.WriteString("You are a professional transcriber. Transcribe the attached audio.\n\nRules:\n\n")

	switch cfg.Granularity {
	case "word":
		sb.WriteString("- Emit one entry per spoken word.\n")
	default:
		sb.WriteString("- Emit one entry per sentence or natural phrase.\n")
	}
	if cfg.Punctuation {
		sb.WriteString("- Include punctuation and capitalization as spoken.\n")
	} else {
		sb.WriteString("- Emit lowercase text without punctuation.\n")
	}
	if cfg.Language != "" {
		if name := language.DisplayName(cfg.Language); name != "" {
			fmt.Fprintf(&sb, "- The audio is spoken in %s. Transcribe in that language, do not translate.\n", name)
		} else {
			fmt.Fprintf(&sb, "- The audio is spoken in %q. Transcribe in that language, do not translate.\n", cfg.Language)
		}
	} else {
		sb.WriteString("- Transcribe in the spoken language, do not translate.\n")
	}
	if durationSeconds > 0 {
		fmt.Fprintf(&sb, "- The audio is about %.0f seconds long; no timestamp may exceed that.\n", durationSeconds)
	}
	sb.WriteString("- Skip non-speech sounds (music, silence) rather than describing them.\n")

	sb.WriteString("\nYou must respond ONLY with a JSON array like: " +
		`[{"start": 2.1, "end": 4.9, "text": "spoken words"}]` +
		" where start and end are seconds from the beginning of the audio.")
	return sb.String()
}
