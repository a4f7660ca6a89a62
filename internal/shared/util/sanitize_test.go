package util

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileNameRejectsPathCharacters(t *testing.T) {
	bad := []string{
		"",
		"   ",
		"../../etc/passwd",
		"report/2024.pdf",
		`notes\draft.pdf`,
		"name\x00.pdf",
		"name\x1f.pdf",
		"what?.pdf",
		"a<b>.pdf",
		strings.Repeat("x", 256) + ".pdf",
	}
	for _, name := range bad {
		if _, err := SanitizeFileName(name); err == nil {
			t.Errorf("SanitizeFileName(%q): expected error", name)
		}
	}
}

func TestSanitizeFileNameAcceptsPlainNames(t *testing.T) {
	got, err := SanitizeFileName("  Quarterly Report (final).pdf ")
	if err != nil {
		t.Fatalf("SanitizeFileName: %v", err)
	}
	if got != "Quarterly Report (final).pdf" {
		t.Fatalf("SanitizeFileName trimmed = %q", got)
	}
}

func TestHasPDFExtension(t *testing.T) {
	if !HasPDFExtension("report.PDF") {
		t.Error("expected .PDF to be accepted")
	}
	if HasPDFExtension("report.pdf.exe") {
		t.Error("expected .exe to be rejected")
	}
	if HasPDFExtension("report") {
		t.Error("expected missing extension to be rejected")
	}
}

func TestSanitizeQuestionStripsControlCharacters(t *testing.T) {
	got := SanitizeQuestion("  what\x00 is\x07 this?\n\t ")
	if got != "what is this?" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeQuestionCapsLength(t *testing.T) {
	got := SanitizeQuestion(strings.Repeat("a", 12000))
	if len(got) != 10000 {
		t.Fatalf("len = %d, want 10000", len(got))
	}
}

func TestSanitizeQuestionCapsOnRuneBoundary(t *testing.T) {
	got := SanitizeQuestion(strings.Repeat("a", 9999) + "éé")
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8, tail %q", got[len(got)-4:])
	}
	if n := utf8.RuneCountInString(got); n != 10000 {
		t.Fatalf("rune count = %d, want 10000", n)
	}
	if !strings.HasSuffix(got, "é") {
		t.Fatalf("tail = %q", got[len(got)-4:])
	}
}

func TestSanitizeQuestionKeepsNewlines(t *testing.T) {
	got := SanitizeQuestion("line one\nline two")
	if got != "line one\nline two" {
		t.Fatalf("got %q", got)
	}
}
