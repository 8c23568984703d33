package service

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	testCases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "already clean", in: "a cat", want: "a cat"},
		{name: "runs and tabs", in: "  a \t cat\n\non  a keyboard ", want: "a cat on a keyboard"},
		{name: "whitespace only", in: " \t\n ", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeWhitespace(tc.in); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildEmbedText(t *testing.T) {
	testCases := []struct {
		name  string
		short string
		long  string
		tags  string
		want  string
	}{
		{
			name:  "all segments",
			short: "a cat",
			long:  "a cat on a keyboard",
			tags:  "cat, keyboard",
			want:  "a cat a cat on a keyboard cat, keyboard",
		},
		{
			name: "empty segments dropped",
			long: "only the long one",
			want: "only the long one",
		},
		{
			name:  "whitespace-only segment dropped",
			short: "   ",
			tags:  "cat",
			want:  "cat",
		},
		{
			name: "all empty",
			want: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildEmbedText(tc.short, tc.long, tc.tags); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
