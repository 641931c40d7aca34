package normalize

import (
	"math/rand"
	"strings"
	"testing"
)

func TestNormalize_SectionNumberSpacing(t *testing.T) {
	got := Normalize("132.Appropriations are authorized.")
	want := "132. Appropriations are authorized."
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalize_Cases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", " \t\n ", ""},
		{"trims", "  The Secretary shall act.  ", "The Secretary shall act."},
		{"section with letter suffix", "132A.Funds are available.", "132A. Funds are available."},
		{"lowercase after section period untouched", "Sec. 5.in general", "Sec. 5.in general"},
		{"header sentence split", "101. Short title.This Act may be cited as the Act.", "101. Short title. This Act may be cited as the Act."},
		{"paragraph marker", "(1)the Secretary shall (2)report", "(1) the Secretary shall (2) report"},
		{"paragraph marker before capital untouched", "(1)The Secretary", "(1)The Secretary"},
		{"whitespace after period", "shall act.     The", "shall act. The"},
		{"newlines after period", "shall act.\n\n\nThe", "shall act. The"},
		{"mixed whitespace runs", "the\tSecretary \n shall\r\nact", "the Secretary shall act"},
		{"non-breaking spaces", "the\u00a0 Secretary", "the Secretary"},
		{"glued section inside prose", "under section 12.The Secretary", "under section 12. The Secretary"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.input)
			if got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"132.Appropriations are authorized.",
		"101. Short title.This Act may be cited.Another sentence.",
		"1.A.B.C.",
		"(1)the (2)and (3)or",
		"SEC. 2.  DEFINITIONS.\n\n  In this Act:\n(1)the term",
		"12.3.Text  \u2003 with\u2028separators.",
		"  \t.  .  .",
		"5A.Bb. 6.Cc.Dd",
		"a\u00a0 \u00a0b",
		"SEC. 132.  Short title.The Act may be cited",
		"A1\n3.\n\nZB\t.AB",
		"\t1. \tA.BBbb",
		" B1.\t\n\nZaB.Z1a",
		"a(1A2. \nB.Z.)",
	}

	for _, input := range inputs {
		once := Normalize(input)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: once=%q twice=%q", input, once, twice)
		}
	}
}

func TestNormalize_HeaderSentenceAfterWhitespaceRun(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"SEC. 132.  Short title.The Act may be cited", "SEC. 132. Short title. The Act may be cited"},
		{"SEC. 132.\nShort title.The Act may be cited", "SEC. 132. Short title. The Act may be cited"},
		{"SEC. 132. Short title.The Act may be cited", "SEC. 132. Short title. The Act may be cited"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.input); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalize_IdempotentRandomized(t *testing.T) {
	const alphabet = "12AZBab.() \t\n"
	random := rand.New(rand.NewSource(7))

	for i := 0; i < 20000; i++ {
		length := random.Intn(25)
		var sb strings.Builder
		for j := 0; j < length; j++ {
			sb.WriteByte(alphabet[random.Intn(len(alphabet))])
		}
		input := sb.String()

		once := Normalize(input)
		if twice := Normalize(once); once != twice {
			t.Fatalf("Normalize not idempotent for %q: once=%q twice=%q", input, once, twice)
		}
	}
}

func TestNormalize_NoWhitespaceRuns(t *testing.T) {
	got := Normalize("SEC. 3.\tAUTHORIZATION.\n\n\n(a)In General.--There are\n  authorized")
	if strings.Contains(got, "  ") || strings.ContainsAny(got, "\t\n\r") {
		t.Errorf("Normalize() left whitespace runs: %q", got)
	}
	if got != strings.TrimSpace(got) {
		t.Errorf("Normalize() left surrounding whitespace: %q", got)
	}
}

func TestNormalize_UnicodeNFC(t *testing.T) {
	decomposed := "cafe\u0301 clause"

	withNFC := New(Options{UnicodeNFC: true}, nil)
	if got := withNFC.Normalize(decomposed); got != "caf\u00e9 clause" {
		t.Errorf("NFC Normalize() = %q, want composed form", got)
	}

	if got := Normalize(decomposed); got != decomposed {
		t.Errorf("default Normalize() = %q, want decomposed form kept", got)
	}
}

func TestNormalizeValue_MalformedInput(t *testing.T) {
	normalizer := Default()
	text := "  (1)the term  "
	var missing *string

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, ""},
		{"number", 42, ""},
		{"bool", true, ""},
		{"slice", []string{"a"}, ""},
		{"nil string pointer", missing, ""},
		{"string pointer", &text, "(1) the term"},
		{"string", text, "(1) the term"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizer.NormalizeValue(tc.value); got != tc.want {
				t.Errorf("NormalizeValue(%v) = %q, want %q", tc.value, got, tc.want)
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	input := "SEC. 101.Short Title.This Act may be cited as the   Farm Act.(1)the"
	first := Normalize(input)
	for i := 0; i < 20; i++ {
		if got := Normalize(input); got != first {
			t.Fatalf("run %d: Normalize() = %q, want %q", i, got, first)
		}
	}
}
