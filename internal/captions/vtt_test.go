package captions

import "testing"

func TestFormatVTT(t *testing.T) {
	cues := []Cue{
		{Text: "Hello there", StartMS: 1000, EndMS: 2500},
		{Text: "General Kenobi", StartMS: 3000, EndMS: 4000},
	}

	want := `WEBVTT

00:00:01.000 --> 00:00:02.500
Hello there

00:00:03.000 --> 00:00:04.000
General Kenobi
`
	if got := FormatVTT(cues); got != want {
		t.Fatalf("FormatVTT() = %q, want %q", got, want)
	}
}

func TestFormatVTTEmpty(t *testing.T) {
	if got := FormatVTT(nil); got != "WEBVTT\n" {
		t.Fatalf("FormatVTT(nil) = %q, want header only", got)
	}
}

func TestFormatVTTFlattensNewlines(t *testing.T) {
	cues := []Cue{{Text: "line one\nline two", StartMS: 0, EndMS: 1000}}

	want := `WEBVTT

00:00:00.000 --> 00:00:01.000
line one line two
`
	if got := FormatVTT(cues); got != want {
		t.Fatalf("FormatVTT() = %q, want %q", got, want)
	}
}
