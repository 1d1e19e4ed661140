package validators

import "testing"

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{name: "trims", input: "  treasury top-up \n", want: "treasury top-up"},
		{name: "collapses whitespace", input: "a\t\t b\n\nc", want: "a b c"},
		{name: "drops control characters", input: "pay\x00out\x07", want: "payout"},
		{name: "truncates", input: "abcdef", maxLen: 3, want: "abc"},
		{name: "truncates on rune boundary", input: "ab€", maxLen: 4, want: "ab"},
		{name: "no trailing space after cut", input: "abc def", maxLen: 4, want: "abc"},
		{name: "empty", input: " \t ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeString(tc.input, tc.maxLen); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, got, tc.want)
			}
		})
	}
}
