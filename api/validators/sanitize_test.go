package validators

import (
	"testing"
	"unicode/utf8"
)

func TestSanitizeStringStripsControlCharacters(t *testing.T) {
	got := SanitizeString("  stage\x00 left\x1b\n  riser\t2 ", 0)
	if got != "stage left\n  riser\t2" {
		t.Fatalf("unexpected sanitized value %q", got)
	}
}

func TestSanitizeStringTruncatesOnRuneBoundary(t *testing.T) {
	// each kana is three bytes
	input := "ステージ設営"
	got := SanitizeString(input, 7)
	if got != "ステ" {
		t.Fatalf("expected two whole runes, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated value is not valid UTF-8: %q", got)
	}
	if SanitizeString(input, 100) != input {
		t.Fatalf("short input must be untouched")
	}
}

func TestSanitizeStringDropsInvalidBytes(t *testing.T) {
	got := SanitizeString("mic\xffstand", 0)
	if got != "micstand" {
		t.Fatalf("expected invalid byte dropped, got %q", got)
	}
}

func TestSanitizeOptional(t *testing.T) {
	if SanitizeOptional(nil, 10) != nil {
		t.Fatalf("nil must stay nil")
	}
	blank := " \x07 "
	if SanitizeOptional(&blank, 10) != nil {
		t.Fatalf("blank value must become nil")
	}
	notes := " load-in 08:00 "
	got := SanitizeOptional(&notes, 0)
	if got == nil || *got != "load-in 08:00" {
		t.Fatalf("unexpected value %v", got)
	}
}
