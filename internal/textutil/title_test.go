package textutil

import "testing"

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/media/city_council-2024.06.12.mp3", "City Council 2024 06 12"},
		{"/media/quarterly.earnings.call.m4a", "Quarterly Earnings Call"},
		{"interview with dr smith.wav", "Interview With Dr Smith"},
		{"/media/███.mp3", "Untitled Recording"},
		{"", "Untitled Recording"},
	}
	for _, tc := range cases {
		if got := DeriveTitle(tc.path); got != tc.want {
			t.Errorf("DeriveTitle(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
