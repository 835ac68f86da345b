package ocrengine

import "testing"

// TestPostprocessDeterministic exercises spec.md §4.1's post-processing
// steps and §8 property 8 (byte-equal output for fixed input).
func TestPostprocessDeterministic(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"trims outer whitespace", "  Hello World  ", "Hello World"},
		{"collapses space runs", "Hello     World", "Hello World"},
		{"trims punctuation cutset", "...Hello World!!!", "Hello World"},
		{"trims quotes", `"Hello World"`, "Hello World"},
		{"combined", "  ...Hello,   World!?  ", "Hello, World"},
		{"empty result allowed", "   ...   ", ""},
		{"no change needed", "Hello World", "Hello World"},
		{"preserves internal punctuation", "Hello, World. Test!", "Hello, World. Test"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := postprocess(tc.in)
			if got != tc.want {
				t.Errorf("postprocess(%q) = %q, want %q", tc.in, got, tc.want)
			}
			// Determinism: running it again must yield the same bytes.
			if again := postprocess(tc.in); again != got {
				t.Errorf("postprocess(%q) not deterministic: %q then %q", tc.in, got, again)
			}
		})
	}
}

func TestCollapseSpacesLeavesOtherWhitespace(t *testing.T) {
	in := "Hello\t\tWorld\n\nTest"
	got := collapseSpaces(in)
	if got != in {
		t.Errorf("collapseSpaces(%q) = %q, want unchanged (tabs/newlines are not spaces)", in, got)
	}
}
