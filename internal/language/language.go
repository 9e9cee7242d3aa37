package language

import "strings"

type entry struct {
	code2   string   // ISO 639-1
	code3   string   // ISO 639-2 terminology code
	alt3    string   // ISO 639-2 bibliographic alternate (e.g. "fre" vs "fra")
	display string   // English display name
	words   []string // full word forms users type in config files
}

var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish"}},
	{"fr", "fra", "fre", "French", []string{"french"}},
	{"de", "deu", "ger", "German", []string{"german"}},
	{"it", "ita", "", "Italian", []string{"italian"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese", "mandarin"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch"}},
	{"pl", "pol", "", "Polish", []string{"polish"}},
	{"sv", "swe", "", "Swedish", []string{"swedish"}},
	{"da", "dan", "", "Danish", []string{"danish"}},
	{"no", "nor", "", "Norwegian", []string{"norwegian"}},
	{"fi", "fin", "", "Finnish", []string{"finnish"}},
}

var byHint map[string]*entry

func init() {
	byHint = make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		byHint[e.code2] = e
		byHint[e.code3] = e
		if e.alt3 != "" {
			byHint[e.alt3] = e
		}
		for _, w := range e.words {
			byHint[w] = e
		}
	}
}

// lookup resolves a hint to a table entry. Region subtags ("en-US", "pt_BR")
// are stripped before matching.
func lookup(hint string) *entry {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return nil
	}
	if e, ok := byHint[hint]; ok {
		return e
	}
	if i := strings.IndexAny(hint, "-_"); i > 0 {
		if e, ok := byHint[hint[:i]]; ok {
			return e
		}
	}
	return nil
}

// Canonical returns the ISO 639-1 code for a recognized hint. ok is false
// for hints outside the table; callers should keep the original value.
func Canonical(hint string) (string, bool) {
	if e := lookup(hint); e != nil {
		return e.code2, true
	}
	return "", false
}

// DisplayName returns the English name for a recognized hint, or the empty
// string when the hint is not in the table.
func DisplayName(hint string) string {
	if e := lookup(hint); e != nil {
		return e.display
	}
	return ""
}
