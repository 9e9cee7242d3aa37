package language_test

import (
	"testing"

	"quill/internal/language"
)

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"en", "en", true},
		{"EN", "en", true},
		{"eng", "en", true},
		{"english", "en", true},
		{" English ", "en", true},
		{"en-US", "en", true},
		{"pt_BR", "pt", true},
		{"fra", "fr", true},
		{"fre", "fr", true},
		{"deu", "de", true},
		{"ger", "de", true},
		{"zho", "zh", true},
		{"chi", "zh", true},
		{"mandarin", "zh", true},
		{"dut", "nl", true},
		{"xx", "", false},
		{"xyz", "", false},
		{"klingon", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, ok := language.Canonical(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Canonical(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"ja", "Japanese"},
		{"sv", "Swedish"},
		{"en-GB", "English"},
		{"norwegian", "Norwegian"},
		{"xx", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := language.DisplayName(tc.in); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
